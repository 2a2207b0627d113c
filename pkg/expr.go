package ifjc

import "strings"

// arithOpFor maps an operator token to its BinaryArithOp.
func arithOpFor(tok Token) BinaryArithOp {
	switch tok.Kind {
	case TokenPlus:
		return ArithAdd
	case TokenMinus:
		return ArithSub
	case TokenStar:
		return ArithMul
	default:
		return ArithDiv
	}
}

func relOpFor(tok Token) RelationalOp {
	switch tok.Kind {
	case TokenEq:
		return RelEq
	case TokenNotEq:
		return RelNeq
	case TokenLess:
		return RelLess
	case TokenLessEq:
		return RelLessEq
	case TokenGreater:
		return RelGreater
	default:
		return RelGreaterEq
	}
}

func isArithOp(k TokenKind) bool {
	return k == TokenPlus || k == TokenMinus || k == TokenStar || k == TokenSlash
}

func isRelOp(k TokenKind) bool {
	switch k {
	case TokenEq, TokenNotEq, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq:
		return true
	default:
		return false
	}
}

// precedence implements spec.md §4.G's table: * / highest, + - middle,
// relationals lowest, all left-associative.
func precedence(k TokenKind) int {
	switch {
	case k == TokenStar || k == TokenSlash:
		return 3
	case k == TokenPlus || k == TokenMinus:
		return 2
	case isRelOp(k):
		return 1
	default:
		return 0
	}
}

// postfixItem is one element of the Shunting-Yard output: either an operand
// token or an operator token.
type postfixItem struct {
	isOperator bool
	tok        Token
}

// ExprParser is component G: the infix->postfix converter plus on-the-fly
// type-checking emitter described in spec.md §4.G. It consumes tokens
// directly from a TokenVector and drives an Emit sink.
type ExprParser struct {
	tokens  *TokenVector
	scopes  *SymtableStack
	globals *GlobalTable
	emit    Emit
}

// NewExprParser builds an expression sub-parser sharing the body parser's
// token cursor, scope stack and emitter.
func NewExprParser(tokens *TokenVector, scopes *SymtableStack, globals *GlobalTable, emit Emit) *ExprParser {
	return &ExprParser{tokens: tokens, scopes: scopes, globals: globals, emit: emit}
}

// terminatorSet names the token kinds allowed to end an expression without
// being consumed, at paren-depth 0.
type terminatorSet map[TokenKind]bool

var exprTerminators = terminatorSet{TokenSemicolon: true}
var argTerminators = terminatorSet{TokenComma: true, TokenRParen: true}
var condTerminators = terminatorSet{TokenRParen: true}

// Parse consumes one expression from the current token cursor, up to (but
// not including) the terminator, emits TARGET code leaving the value on the
// operand stack, and returns its static type.
func (p *ExprParser) Parse(terms terminatorSet) (DataType, *Diagnostic) {
	postfix, startLine, diag := p.toPostfix(terms)
	if diag != nil {
		return TypeVoid, diag
	}
	if len(postfix) == 0 {
		return TypeVoid, newDiag(ErrMissingExpression, startLine, "empty expression")
	}

	return p.evaluate(postfix, startLine)
}

// toPostfix runs the Shunting-Yard algorithm, producing the postfix item
// sequence. It also enforces the single-source-line rule for expressions.
func (p *ExprParser) toPostfix(terms terminatorSet) ([]postfixItem, int, *Diagnostic) {
	var output []postfixItem
	var opstack []Token
	depth := 0
	startLine := p.tokens.Peek().Line
	relCount := 0

	for {
		tok := p.tokens.Peek()
		if tok.Kind == TokenEOF {
			return nil, startLine, newDiag(ErrSyntactic, tok.Line, "unexpected end of input in expression")
		}
		if depth == 0 && terms[tok.Kind] {
			break
		}
		if tok.Line != startLine {
			return nil, startLine, newDiag(ErrSyntactic, tok.Line, "expression must fit on a single source line")
		}

		switch {
		case tok.Kind == TokenInt || tok.Kind == TokenFloat || tok.Kind == TokenString ||
			tok.Kind == TokenIdentifier || tok.Kind == TokenUnderscore ||
			(tok.Kind == TokenKeyword && tok.Keyword == KeywordNull):
			p.tokens.Next()
			output = append(output, postfixItem{tok: tok})

		case tok.Kind == TokenLParen:
			p.tokens.Next()
			depth++
			opstack = append(opstack, tok)

		case tok.Kind == TokenRParen:
			if depth == 0 {
				return nil, startLine, newDiag(ErrSyntactic, tok.Line, "unmatched closing parenthesis in expression")
			}
			p.tokens.Next()
			depth--
			for len(opstack) > 0 && opstack[len(opstack)-1].Kind != TokenLParen {
				output = append(output, postfixItem{isOperator: true, tok: opstack[len(opstack)-1]})
				opstack = opstack[:len(opstack)-1]
			}
			if len(opstack) == 0 {
				return nil, startLine, newDiag(ErrSyntactic, tok.Line, "unmatched closing parenthesis in expression")
			}
			opstack = opstack[:len(opstack)-1] // discard the matching '('

		case isArithOp(tok.Kind) || isRelOp(tok.Kind):
			if isRelOp(tok.Kind) {
				relCount++
			}
			p.tokens.Next()
			for len(opstack) > 0 && opstack[len(opstack)-1].Kind != TokenLParen &&
				precedence(opstack[len(opstack)-1].Kind) >= precedence(tok.Kind) {
				output = append(output, postfixItem{isOperator: true, tok: opstack[len(opstack)-1]})
				opstack = opstack[:len(opstack)-1]
			}
			opstack = append(opstack, tok)

		default:
			return nil, startLine, newDiag(ErrSyntactic, tok.Line, "unexpected token %q in expression", tok.Text)
		}
	}

	for len(opstack) > 0 {
		top := opstack[len(opstack)-1]
		if top.Kind == TokenLParen {
			return nil, startLine, newDiag(ErrSyntactic, top.Line, "unmatched opening parenthesis in expression")
		}
		output = append(output, postfixItem{isOperator: true, tok: top})
		opstack = opstack[:len(opstack)-1]
	}

	if relCount > 1 {
		return nil, startLine, newDiag(ErrIncompatibleType, startLine, "at most one relational operator is allowed per expression")
	}
	if relCount == 1 {
		last := output[len(output)-1]
		if !last.isOperator || !isRelOp(last.tok.Kind) {
			return nil, startLine, newDiag(ErrIncompatibleType, startLine, "relational operator must be the outermost operation in its expression")
		}
	}

	return output, startLine, nil
}

// operand is the live state of one value on the imaginary evaluation stack:
// its static type, and (for leaves only) whether it is a known-at-compile-
// time literal that hasn't been pushed onto the VM stack yet.
type operand struct {
	dt          DataType
	isLiteral   bool
	literalVal  string
	emittedName string
}

// evaluate walks the postfix sequence, type-checks and emits code,
// returning the final result type.
func (p *ExprParser) evaluate(postfix []postfixItem, startLine int) (DataType, *Diagnostic) {
	var stack []operand

	push := func(o operand) {
		stack = append(stack, o)
		switch {
		case o.isLiteral:
			p.emit.PushLiteral(o.literalVal, o.dt)
		case o.emittedName != "":
			p.emit.PushVar(o.emittedName, LocalFrame)
		}
	}

	for _, item := range postfix {
		if !item.isOperator {
			o, diag := p.resolveLeaf(item.tok)
			if diag != nil {
				return TypeVoid, diag
			}
			push(o)
			continue
		}

		if len(stack) < 2 {
			return TypeVoid, newDiag(ErrSyntactic, item.tok.Line, "operator %q is missing an operand", item.tok.Text)
		}
		b := stack[len(stack)-1]
		a := stack[len(stack)-2]
		stack = stack[:len(stack)-2]

		var result operand
		var diag *Diagnostic
		if isArithOp(item.tok.Kind) {
			result, diag = p.combineArith(item.tok, a, b)
		} else {
			result, diag = p.combineRelational(item.tok, a, b)
		}
		if diag != nil {
			return TypeVoid, diag
		}
		stack = append(stack, result)
	}

	if len(stack) != 1 {
		return TypeVoid, newDiag(ErrSyntactic, startLine, "malformed expression")
	}

	return stack[0].dt, nil
}

// resolveLeaf resolves one operand token to its operand descriptor,
// inlining constant-initialized variables (spec.md §4.G) and marking
// variables used.
func (p *ExprParser) resolveLeaf(tok Token) (operand, *Diagnostic) {
	switch {
	case tok.Kind == TokenInt:
		return operand{dt: TypeI32, isLiteral: true, literalVal: tok.Text}, nil
	case tok.Kind == TokenFloat:
		return operand{dt: TypeF64, isLiteral: true, literalVal: tok.Text}, nil
	case tok.Kind == TokenString:
		// tok.Text retains its enclosing quotes (spec.md §4.C); strip them
		// before the value is fed to literalOperand/EscapeString.
		raw := tok.Text
		if len(raw) >= 2 {
			raw = raw[1 : len(raw)-1]
		}
		return operand{dt: TypeU8Array, isLiteral: true, literalVal: raw}, nil
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordNull:
		return operand{dt: TypeNull, isLiteral: true, literalVal: "nil"}, nil
	case tok.Kind == TokenIdentifier:
		sym := p.scopes.Find(tok.Text)
		if sym == nil {
			return operand{}, newDiag(ErrUndefined, tok.Line, "undefined variable %q", tok.Text)
		}
		sym.WasUsed = true
		if sym.HasConst {
			return operand{dt: sym.Type, isLiteral: true, literalVal: sym.ConstValue}, nil
		}
		return operand{dt: sym.Type, emittedName: sym.EmittedName}, nil
	default:
		return operand{}, newDiag(ErrSyntactic, tok.Line, "unexpected token %q in expression", tok.Text)
	}
}

// isZeroFraction reports whether a float literal's textual form has an
// all-zero fractional part and no exponent, e.g. "3.0" but not "3.5" or
// "3.0e1".
func isZeroFraction(text string) bool {
	if strings.ContainsAny(text, "eE") {
		return false
	}
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return true
	}
	frac := text[dot+1:]
	return strings.Trim(frac, "0") == ""
}

// combineArith implements spec.md §4.G's arithmetic compatibility/promotion
// table and emits the corresponding TARGET code.
func (p *ExprParser) combineArith(op Token, a, b operand) (operand, *Diagnostic) {
	if a.dt == TypeU8Array || b.dt == TypeU8Array || a.dt == TypeBool || b.dt == TypeBool {
		return operand{}, newDiag(ErrIncompatibleType, op.Line, "operand types are not compatible with %q", op.Text)
	}

	finalType, diag := p.promoteNumeric(op, a, b)
	if diag != nil {
		return operand{}, diag
	}

	if finalType == TypeF64 {
		p.emit.ArithFloat(arithOpFor(op))
		return operand{dt: TypeF64}, nil
	}

	// The right operand is on top, so it lands in R1 and the left one in
	// R2; ArithInt's SUB/IDIV operand swap then computes left op right.
	p.emit.Pop("$R1", GlobalFrame)
	p.emit.Pop("$R2", GlobalFrame)
	p.emit.ArithInt(arithOpFor(op), "GF@$R0", "GF@$R1", "GF@$R2")
	p.emit.PushVar("$R0", GlobalFrame)
	return operand{dt: TypeI32}, nil
}

// promoteNumeric implements spec.md §4.G's numeric compatibility/promotion
// table in isolation from the operator being applied: it only emits the
// INT2FLOATS/FLOAT2INTS conversion (if any) needed to bring a and b, both
// already pushed onto the VM operand stack in source order, to a common
// type, and returns that common type. Shared by combineArith (which then
// emits the arithmetic op) and combineRelational (which then emits the
// comparison op) so the conversion logic is written, and grounded, once.
func (p *ExprParser) promoteNumeric(op Token, a, b operand) (DataType, *Diagnostic) {
	if a.dt.IsNullable() || b.dt.IsNullable() || a.dt == TypeNull || b.dt == TypeNull {
		return TypeVoid, newDiag(ErrIncompatibleType, op.Line, "nullable values are not allowed in this expression")
	}

	switch {
	case a.dt == TypeI32 && b.dt == TypeI32:
		return TypeI32, nil

	case a.dt == TypeF64 && b.dt == TypeF64:
		return TypeF64, nil

	case a.dt == TypeI32 && b.dt == TypeF64:
		return p.promoteMixed(op, a, b, true)

	case a.dt == TypeF64 && b.dt == TypeI32:
		return p.promoteMixed(op, b, a, false)

	default:
		return TypeVoid, newDiag(ErrIncompatibleType, op.Line, "operand types are not compatible with %q", op.Text)
	}
}

// promoteMixed handles one i32-typed operand paired with one f64-typed
// operand. intIsA reports whether the i32 operand was the left (a) operand
// in source order, which decides whether the operand needing conversion is
// still on top of the VM stack or must be spilled-and-restored around.
func (p *ExprParser) promoteMixed(op Token, intOperand, floatOperand operand, intIsA bool) (DataType, *Diagnostic) {
	switch {
	case intOperand.isLiteral:
		// Row 1: one i32 literal, one f64 operand -> promote the literal.
		if intIsA {
			// b (float) is on top, a (int literal) sits beneath it: spill
			// b, promote a, restore b.
			p.emit.Pop("$F2", GlobalFrame)
			p.emit.Int2FloatS()
			p.emit.PushVar("$F2", GlobalFrame)
		} else {
			// b (int literal) is on top: promote directly.
			p.emit.Int2FloatS()
		}
		return TypeF64, nil

	case floatOperand.isLiteral && isZeroFraction(floatOperand.literalVal):
		// Row 2: zero-fraction f64 literal, i32 operand -> demote the literal.
		floatWasA := !intIsA
		if floatWasA {
			p.emit.Pop("$R2", GlobalFrame)
			p.emit.Float2IntS()
			p.emit.PushVar("$R2", GlobalFrame)
		} else {
			p.emit.Float2IntS()
		}
		return TypeI32, nil

	default:
		// Row 3: non-zero-fraction f64 literal paired with an i32 variable,
		// or two variables of differing numeric type: incompatible.
		return TypeVoid, newDiag(ErrIncompatibleType, op.Line, "cannot mix i32 and f64 operands of %q without a convertible literal", op.Text)
	}
}

// combineRelational implements the relational half of spec.md §4.G's table.
func (p *ExprParser) combineRelational(op Token, a, b operand) (operand, *Diagnostic) {
	aNullable := a.dt.IsNullable() || a.dt == TypeNull
	bNullable := b.dt.IsNullable() || b.dt == TypeNull

	if aNullable || bNullable {
		if op.Kind != TokenEq && op.Kind != TokenNotEq {
			return operand{}, newDiag(ErrIncompatibleType, op.Line, "only == and != may compare nullable operands")
		}
		sameNullable := (a.dt == b.dt) ||
			(a.dt == TypeNull && b.dt.IsNullable()) ||
			(b.dt == TypeNull && a.dt.IsNullable())
		if !sameNullable {
			return operand{}, newDiag(ErrIncompatibleType, op.Line, "nullable comparison requires both operands to share the same nullable type")
		}
		p.emit.RelationalS(relOpFor(op))
		return operand{dt: TypeBool}, nil
	}

	if a.dt == TypeU8Array || b.dt == TypeU8Array || a.dt == TypeBool || b.dt == TypeBool {
		return operand{}, newDiag(ErrIncompatibleType, op.Line, "operand types are not compatible with %q", op.Text)
	}

	if _, diag := p.promoteNumeric(op, a, b); diag != nil {
		return operand{}, diag
	}
	p.emit.RelationalS(relOpFor(op))
	return operand{dt: TypeBool}, nil
}
