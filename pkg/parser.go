package ifjc

import "fmt"

// Parser is component I: the body parser. It performs a second, independent
// walk of the TokenVector (the pre-pass's walk having already registered
// every function signature into globals), parsing and emitting one function
// body at a time. Declarations, assignments, calls, if/while (both the
// boolean and nullable-unwrap forms) and return all live here, driving the
// symbol/symtable/expression/emitter components built separately.
type Parser struct {
	tokens  *TokenVector
	globals *GlobalTable
	emit    Emit
	scopes  *SymtableStack

	currentFunc *FunctionSymbol

	// mangleCounter disambiguates EmittedNames: the n-th declaration of a
	// source name "x" anywhere in the function (across sibling or nested
	// scopes) is emitted as LF@x, LF@x_1, LF@x_2, ... All declarations live
	// in one flat local frame per function call (DESIGN.md, decision 7), so
	// two same-named variables in different lexical scopes still need
	// distinct DEFVAR targets. parseFunction resets it for every function.
	mangleCounter map[string]int
}

// NewParser builds a body parser over tokens, registering into / reading
// from globals and driving emit.
func NewParser(tokens *TokenVector, globals *GlobalTable, emit Emit) *Parser {
	return &Parser{
		tokens:        tokens,
		globals:       globals,
		emit:          emit,
		scopes:        NewSymtableStack(),
		mangleCounter: make(map[string]int),
	}
}

// mangle mints a fresh, unique LF@ name for a source-level variable or
// parameter name.
func (p *Parser) mangle(name string) string {
	n := p.mangleCounter[name]
	p.mangleCounter[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, n)
}

// Run walks the whole token vector from the start, parsing and emitting
// every top-level "pub fn" definition. @import directives are accepted and
// skipped, together with whatever follows them up to the terminating ';'
// (spec.md §4.C classifies them lexically; nothing downstream attaches
// semantics to them).
func (p *Parser) Run() *Diagnostic {
	for {
		tok := p.tokens.Peek()
		switch {
		case tok.Kind == TokenEOF:
			return nil
		case tok.Kind == TokenImport:
			p.tokens.Next()
			for p.tokens.Peek().Kind != TokenSemicolon {
				if t := p.tokens.Next(); t.Kind == TokenEOF {
					return newDiag(ErrSyntactic, t.Line, "expected ';' after an import directive")
				}
			}
			p.tokens.Next()
		case tok.Kind == TokenKeyword && tok.Keyword == KeywordPub:
			if diag := p.parseFunction(); diag != nil {
				return diag
			}
		default:
			return newDiag(ErrSyntactic, tok.Line, "expected a top-level function definition, got %q", tok.Text)
		}
	}
}

// parseTypeFrom consumes one type annotation. Shared between the pre-pass
// (which only needs the DataType) and the body parser (which re-walks the
// same signature text to bind parameter symbols).
func parseTypeFrom(tokens *TokenVector) (DataType, *Diagnostic) {
	tok := tokens.Next()
	switch {
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordI32:
		return TypeI32, nil
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordF64:
		return TypeF64, nil
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordVoid:
		return TypeVoid, nil
	case tok.Kind == TokenU8Array:
		return TypeU8Array, nil
	case tok.Kind == TokenNullableI32:
		return TypeI32Nullable, nil
	case tok.Kind == TokenNullableF64:
		return TypeF64Nullable, nil
	case tok.Kind == TokenU8ArrayNull:
		return TypeU8ArrayNullable, nil
	default:
		return TypeVoid, newDiag(ErrSyntactic, tok.Line, "expected a type, got %q", tok.Text)
	}
}

// assignable reports whether a value of type actual may be stored into an
// lvalue declared as declared: exact match, the implicit T -> ?T widening
// spec.md §4.I permits, or a bare null literal landing in any ?T slot.
func assignable(declared, actual DataType) bool {
	if actual == TypeNull {
		return declared.IsNullable()
	}
	if declared == actual {
		return true
	}
	if declared.IsNullable() && !actual.IsNullable() && NullableToNormal(declared) == actual {
		return true
	}
	return false
}

// scratchFor returns the global scratch register a non-embedded call's
// stack-left return value is round-tripped through before being re-pushed
// for the caller (SPEC_FULL.md §5): the call convention is stack-based end
// to end, but landing the value in a named register first lets the caller
// either discard it (call-as-statement) or leave it pushed for further use.
func scratchFor(dt DataType) string {
	switch dt {
	case TypeI32, TypeI32Nullable:
		return "$R0"
	case TypeF64, TypeF64Nullable:
		return "$F0"
	case TypeBool:
		return "$B0"
	default:
		return "$S0"
	}
}

// parseFunction parses one "pub fn name(params) returnType { ... }"
// definition, looking up its already-registered FunctionSymbol (built by the
// pre-pass) rather than re-deriving it, and emits the function's TARGET
// prologue/body/epilogue.
func (p *Parser) parseFunction() *Diagnostic {
	p.tokens.Next() // "pub"
	p.tokens.Next() // "fn"
	nameTok := p.tokens.Next()

	fn := p.globals.Lookup(nameTok.Text)
	if fn == nil {
		return newDiag(ErrInternal, nameTok.Line, "function %q was not registered by the pre-pass", nameTok.Text)
	}
	p.currentFunc = fn
	p.mangleCounter = make(map[string]int)

	if open := p.tokens.Next(); open.Kind != TokenLParen {
		return newDiag(ErrSyntactic, open.Line, "expected '(' after function name %q", nameTok.Text)
	}

	p.scopes.Push()
	paramEmitted := make([]string, len(fn.Parameters))

	for i := range fn.Parameters {
		pTok := p.tokens.Next()
		if pTok.Kind != TokenIdentifier {
			return newDiag(ErrSyntactic, pTok.Line, "expected a parameter name")
		}
		if colon := p.tokens.Next(); colon.Kind != TokenColon {
			return newDiag(ErrSyntactic, colon.Line, "expected ':' after parameter name %q", pTok.Text)
		}
		if _, diag := parseTypeFrom(p.tokens); diag != nil {
			return diag
		}

		sym := fn.Parameters[i].Clone()
		sym.EmittedName = p.mangle(pTok.Text)
		sym.Defined = true
		paramEmitted[i] = sym.EmittedName
		if !p.scopes.Top().AddVariable(sym) {
			return newDiag(ErrRedefinition, pTok.Line, "duplicate parameter name %q", pTok.Text)
		}

		if p.tokens.Peek().Kind == TokenComma {
			p.tokens.Next()
		}
	}

	if close := p.tokens.Next(); close.Kind != TokenRParen {
		return newDiag(ErrSyntactic, close.Line, "expected ')' to close the parameter list of %q", nameTok.Text)
	}
	if _, diag := parseTypeFrom(p.tokens); diag != nil {
		return diag
	}
	if open2 := p.tokens.Next(); open2.Kind != TokenLBrace {
		return newDiag(ErrSyntactic, open2.Line, "expected '{' to open the body of %q", nameTok.Text)
	}

	p.emit.FunctionLabel(fn.Name)
	if fn.Name == "main" {
		// main is entered via JUMP $main, never CALL, so nothing created a
		// frame for it; every other function's frame was set up by its
		// caller (parseCall's CREATEFRAME).
		p.emit.CreateFrame()
	}
	p.emit.PushFrame()

	// Bind each parameter's caller-supplied TF@%i (now aliased to LF@%i by
	// PUSHFRAME) into its own named local, in declaration order.
	for i, emitted := range paramEmitted {
		p.emit.DefineVar(emitted, LocalFrame)
		p.emit.MoveVar(emitted, LocalFrame, fmt.Sprintf("%%%d", i), LocalFrame)
	}

	if diag := p.parseBlock(); diag != nil {
		return diag
	}

	p.emit.PopFrame()
	p.emit.Return()

	return p.scopes.Pop()
}

// parseBlock parses statements up to (and consuming) the matching '}'. Every
// block introduces its own scope, popped (with its unused-variable check) on
// the closing brace, matching spec.md §4.I's contract.
func (p *Parser) parseBlock() *Diagnostic {
	p.scopes.Push()
	for {
		tok := p.tokens.Peek()
		if tok.Kind == TokenRBrace {
			p.tokens.Next()
			break
		}
		if tok.Kind == TokenEOF {
			return newDiag(ErrSyntactic, tok.Line, "unexpected end of input inside a block")
		}
		if diag := p.parseStatement(); diag != nil {
			return diag
		}
	}
	return p.scopes.Pop()
}

// parseStatement dispatches on the first token of one statement.
func (p *Parser) parseStatement() *Diagnostic {
	tok := p.tokens.Peek()
	switch {
	case tok.Kind == TokenKeyword && (tok.Keyword == KeywordConst || tok.Keyword == KeywordVar):
		return p.parseDeclaration()
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordIf:
		return p.parseIf()
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordWhile:
		return p.parseWhile()
	case tok.Kind == TokenKeyword && tok.Keyword == KeywordReturn:
		return p.parseReturn()
	case tok.Kind == TokenUnderscore:
		return p.parseDiscard()
	case tok.Kind == TokenIdentifier:
		return p.parseIdentifierStatement()
	default:
		return newDiag(ErrSyntactic, tok.Line, "unexpected token %q at the start of a statement", tok.Text)
	}
}

// peekConstLiteral reports whether the upcoming tokens are exactly one
// literal followed immediately by the statement terminator ';' -- the
// condition under which a const declaration's value can be folded into its
// symbol and inlined at every use site (spec.md §4.G).
func (p *Parser) peekConstLiteral() (string, bool) {
	start := p.tokens.Checkpoint()
	defer p.tokens.Restore(start)

	tok := p.tokens.Next()
	var text string
	switch tok.Kind {
	case TokenInt, TokenFloat:
		text = tok.Text
	case TokenString:
		text = tok.Text
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
	default:
		return "", false
	}
	return text, p.tokens.Peek().Kind == TokenSemicolon
}

// parseRHS parses the value side of a declaration or assignment: either a
// call (whose arguments are restricted to simple tokens per
// original_source/src/core_parser.c's ParametersOnCall) or a full
// expression. Both leave their result on the VM operand stack.
func (p *Parser) parseRHS() (DataType, *Diagnostic) {
	if p.isCallLookahead() {
		return p.parseCall()
	}
	return NewExprParser(p.tokens, p.scopes, p.globals, p.emit).Parse(exprTerminators)
}

// isCallLookahead reports whether the upcoming tokens form a call:
// "name(" or "ifj" "." name "(", without consuming anything.
func (p *Parser) isCallLookahead() bool {
	start := p.tokens.Checkpoint()
	defer p.tokens.Restore(start)

	tok := p.tokens.Peek()
	if tok.Kind != TokenIdentifier {
		return false
	}
	p.tokens.Next()
	if tok.Text == "ifj" && p.tokens.Peek().Kind == TokenDot {
		return true
	}
	return p.tokens.Peek().Kind == TokenLParen
}

// parseDeclaration parses "const|var name (: type)? = <rhs>;".
func (p *Parser) parseDeclaration() *Diagnostic {
	kwTok := p.tokens.Next()
	isConst := kwTok.Keyword == KeywordConst

	nameTok := p.tokens.Next()
	if nameTok.Kind != TokenIdentifier {
		return newDiag(ErrSyntactic, nameTok.Line, "expected a variable name after %q", kwTok.Text)
	}

	declaredType := TypeVoid
	hasAnnotation := false
	if p.tokens.Peek().Kind == TokenColon {
		p.tokens.Next()
		t, diag := parseTypeFrom(p.tokens)
		if diag != nil {
			return diag
		}
		if t == TypeVoid {
			return newDiag(ErrOtherSemantic, nameTok.Line, "variable %q cannot be declared void", nameTok.Text)
		}
		declaredType, hasAnnotation = t, true
	}

	if eq := p.tokens.Next(); eq.Kind != TokenAssign {
		return newDiag(ErrSyntactic, eq.Line, "expected '=' in declaration of %q", nameTok.Text)
	}

	constText, constFoldable := p.peekConstLiteral()

	resultType, diag := p.parseRHS()
	if diag != nil {
		return diag
	}
	if resultType == TypeVoid {
		return newDiag(ErrTypeOrCountMismatch, nameTok.Line, "cannot initialize %q from a void-returning call", nameTok.Text)
	}
	if hasAnnotation {
		if !assignable(declaredType, resultType) {
			return newDiag(ErrIncompatibleType, nameTok.Line, "cannot assign a value of type %s to %q of declared type %s", resultType, nameTok.Text, declaredType)
		}
	} else {
		if resultType == TypeNull {
			return newDiag(ErrUninferableType, nameTok.Line, "cannot infer the type of %q from a bare null; add a : ?T annotation", nameTok.Text)
		}
		declaredType = resultType
	}

	if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
		return newDiag(ErrSyntactic, semi.Line, "expected ';' after the declaration of %q", nameTok.Text)
	}

	emittedName := p.mangle(nameTok.Text)
	p.emit.DefineVar(emittedName, LocalFrame)
	p.emit.Pop(emittedName, LocalFrame)

	sym := &VariableSymbol{
		Name:        nameTok.Text,
		Type:        declaredType,
		IsConst:     isConst,
		Defined:     true,
		Nullable:    declaredType.IsNullable(),
		EmittedName: emittedName,
	}
	if isConst && constFoldable {
		sym.HasConst = true
		sym.ConstValue = constText
	}

	if !p.scopes.Top().AddVariable(sym) {
		return newDiag(ErrRedefinition, nameTok.Line, "variable %q is already declared in this scope", nameTok.Text)
	}
	return nil
}

// parseIdentifierStatement dispatches an identifier-led statement to either
// a call-statement or a plain assignment.
func (p *Parser) parseIdentifierStatement() *Diagnostic {
	if p.isCallLookahead() {
		return p.parseCallAsStatement()
	}
	nameTok := p.tokens.Next()
	return p.parseAssignment(nameTok)
}

// parseAssignment parses "name = <rhs>;" for an already-declared variable.
func (p *Parser) parseAssignment(nameTok Token) *Diagnostic {
	sym := p.scopes.Find(nameTok.Text)
	if sym == nil {
		return newDiag(ErrUndefined, nameTok.Line, "undefined variable %q", nameTok.Text)
	}
	if sym.IsConst {
		return newDiag(ErrRedefinition, nameTok.Line, "cannot reassign constant %q", nameTok.Text)
	}

	if eq := p.tokens.Next(); eq.Kind != TokenAssign {
		return newDiag(ErrSyntactic, eq.Line, "expected '=' in assignment to %q", nameTok.Text)
	}

	resultType, diag := p.parseRHS()
	if diag != nil {
		return diag
	}
	if resultType == TypeVoid {
		return newDiag(ErrTypeOrCountMismatch, nameTok.Line, "cannot assign a void-returning call to %q", nameTok.Text)
	}
	if !assignable(sym.Type, resultType) {
		return newDiag(ErrIncompatibleType, nameTok.Line, "cannot assign a value of type %s to %q of type %s", resultType, nameTok.Text, sym.Type)
	}

	if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
		return newDiag(ErrSyntactic, semi.Line, "expected ';' after assignment to %q", nameTok.Text)
	}

	p.emit.Pop(sym.EmittedName, LocalFrame)
	sym.Defined = true
	return nil
}

// parseDiscard parses "_ = <rhs>;": the only legal use of a bare
// underscore, used to call a function purely for its side effects while
// discarding a non-void result (spec.md §8 scenarios 2 and 5).
func (p *Parser) parseDiscard() *Diagnostic {
	p.tokens.Next() // '_'
	if eq := p.tokens.Next(); eq.Kind != TokenAssign {
		return newDiag(ErrSyntactic, eq.Line, "expected '=' after '_'")
	}

	resultType, diag := p.parseRHS()
	if diag != nil {
		return diag
	}

	if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
		return newDiag(ErrSyntactic, semi.Line, "expected ';' after a discard assignment")
	}

	if resultType != TypeVoid {
		p.emit.Pop(scratchFor(resultType), GlobalFrame)
	}
	return nil
}

// parseCallAsStatement parses a call used purely for its side effects,
// discarding any non-void result.
func (p *Parser) parseCallAsStatement() *Diagnostic {
	resultType, diag := p.parseCall()
	if diag != nil {
		return diag
	}
	if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
		return newDiag(ErrSyntactic, semi.Line, "expected ';' after a call statement")
	}
	if resultType != TypeVoid {
		p.emit.Pop(scratchFor(resultType), GlobalFrame)
	}
	return nil
}

// resolveArgument resolves one call argument: a literal, an identifier, or
// null. Call arguments are never full sub-expressions
// (original_source/src/core_parser.c's ParametersOnCall), so this bypasses
// ExprParser entirely.
func (p *Parser) resolveArgument() (operand, *Diagnostic) {
	tok := p.tokens.Next()
	switch {
	case tok.Kind == TokenInt:
		return operand{dt: TypeI32, isLiteral: true, literalVal: tok.Text}, nil
	case tok.Kind == TokenFloat:
		return operand{dt: TypeF64, isLiteral: true, literalVal: tok.Text}, nil
	case tok.Kind == TokenString:
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
		return operand{}, newDiag(ErrSyntactic, tok.Line, "call arguments must be a literal, a variable, or null")
	}
}

// renderOperand renders o as a fully-qualified TARGET operand string.
func renderOperand(o operand) string {
	if o.isLiteral {
		return literalOperand(o.literalVal, o.dt)
	}
	return operand(LocalFrame, o.emittedName)
}

// pushOperand pushes o onto the VM operand stack.
func (p *Parser) pushOperand(o operand) {
	if o.isLiteral {
		p.emit.PushLiteral(o.literalVal, o.dt)
		return
	}
	p.emit.PushVar(o.emittedName, LocalFrame)
}

// isParamCompatible reports whether an argument of type actual may be
// passed where a parameter of type declared is expected: exact match, the
// implicit T -> ?T widening spec.md §4.I names, term accepting anything, or
// a bare null landing in a ?T parameter.
func isParamCompatible(declared, actual DataType) bool {
	if declared == TypeTerm {
		return actual != TypeVoid
	}
	return assignable(declared, actual)
}

// parseCall parses one call, "name(args)" or "ifj.name(args)", emits its
// TARGET code, and returns its static return type (TypeVoid for void
// functions/the write builtin).
func (p *Parser) parseCall() (DataType, *Diagnostic) {
	nameTok := p.tokens.Next()
	fnName := nameTok.Text
	embedded := false

	if fnName == "ifj" {
		if dot := p.tokens.Next(); dot.Kind != TokenDot {
			return TypeVoid, newDiag(ErrSyntactic, dot.Line, "expected '.' after 'ifj'")
		}
		idTok := p.tokens.Next()
		if idTok.Kind != TokenIdentifier {
			return TypeVoid, newDiag(ErrSyntactic, idTok.Line, "expected a built-in function name after 'ifj.'")
		}
		fnName = idTok.Text
		embedded = true
	}

	var fn *FunctionSymbol
	if embedded {
		fn = EmbeddedFunctions[fnName]
		if fn == nil {
			return TypeVoid, newDiag(ErrUndefined, nameTok.Line, "unknown built-in function %q", fnName)
		}
	} else {
		fn = p.globals.Lookup(fnName)
		if fn == nil {
			return TypeVoid, newDiag(ErrUndefined, nameTok.Line, "call to undefined function %q", fnName)
		}
	}

	if open := p.tokens.Next(); open.Kind != TokenLParen {
		return TypeVoid, newDiag(ErrSyntactic, open.Line, "expected '(' after function name %q", fnName)
	}

	if !embedded {
		p.emit.CreateFrame()
	}

	args := make([]operand, 0, len(fn.Parameters))
	for p.tokens.Peek().Kind != TokenRParen {
		if len(args) >= len(fn.Parameters) {
			return TypeVoid, newDiag(ErrTypeOrCountMismatch, nameTok.Line, "too many arguments to %q", fnName)
		}
		arg, diag := p.resolveArgument()
		if diag != nil {
			return TypeVoid, diag
		}
		if !isParamCompatible(fn.Parameters[len(args)].Type, arg.dt) {
			return TypeVoid, newDiag(ErrTypeOrCountMismatch, nameTok.Line, "argument %d to %q has type %s, want %s", len(args)+1, fnName, arg.dt, fn.Parameters[len(args)].Type)
		}
		if !embedded {
			p.emit.SetParam(len(args), renderOperand(arg))
		}
		args = append(args, arg)

		if p.tokens.Peek().Kind == TokenComma {
			p.tokens.Next()
			continue
		}
		break
	}

	if close := p.tokens.Next(); close.Kind != TokenRParen {
		return TypeVoid, newDiag(ErrSyntactic, close.Line, "expected ')' to close the call to %q", fnName)
	}
	if len(args) != len(fn.Parameters) {
		return TypeVoid, newDiag(ErrTypeOrCountMismatch, nameTok.Line, "%q expects %d argument(s), got %d", fnName, len(fn.Parameters), len(args))
	}

	if embedded {
		return p.emitEmbedded(fnName, args), nil
	}

	p.emit.Call(fnName)
	if fn.ReturnType != TypeVoid {
		scratch := scratchFor(fn.ReturnType)
		p.emit.Pop(scratch, GlobalFrame)
		p.emit.PushVar(scratch, GlobalFrame)
	}
	return fn.ReturnType, nil
}

// emitEmbedded emits one of the ifj.* built-ins directly as TARGET
// instructions (spec.md §4.H), leaving its result (if any) on the VM
// operand stack so the caller's uniform Pop-on-assignment convention holds.
func (p *Parser) emitEmbedded(fnName string, args []operand) DataType {
	switch fnName {
	case "readstr":
		p.emit.Read("$S0", GlobalFrame, TypeU8ArrayNullable)
		p.emit.PushVar("$S0", GlobalFrame)
		return TypeU8ArrayNullable
	case "readi32":
		p.emit.Read("$R0", GlobalFrame, TypeI32Nullable)
		p.emit.PushVar("$R0", GlobalFrame)
		return TypeI32Nullable
	case "readf64":
		p.emit.Read("$F0", GlobalFrame, TypeF64Nullable)
		p.emit.PushVar("$F0", GlobalFrame)
		return TypeF64Nullable

	case "write":
		if args[0].isLiteral {
			p.emit.Write(literalOperand(args[0].literalVal, args[0].dt), GlobalFrame, true)
		} else {
			p.emit.Write(args[0].emittedName, LocalFrame, false)
		}
		return TypeVoid

	case "i2f":
		p.pushOperand(args[0])
		p.emit.Int2FloatS()
		return TypeF64
	case "f2i":
		p.pushOperand(args[0])
		p.emit.Float2IntS()
		return TypeI32

	case "string":
		// No generic to-string opcode exists in TARGET; a term is already
		// printable as-is, so this is a passthrough move into scratch.
		if args[0].isLiteral {
			p.emit.MoveLiteral("$S0", GlobalFrame, args[0].literalVal, args[0].dt)
		} else {
			p.emit.MoveVar("$S0", GlobalFrame, args[0].emittedName, LocalFrame)
		}
		p.emit.PushVar("$S0", GlobalFrame)
		return TypeU8Array

	case "length":
		p.emit.Length(operand(GlobalFrame, "$R0"), renderOperand(args[0]))
		p.emit.PushVar("$R0", GlobalFrame)
		return TypeI32
	case "concat":
		p.emit.Concat(operand(GlobalFrame, "$S0"), renderOperand(args[0]), renderOperand(args[1]))
		p.emit.PushVar("$S0", GlobalFrame)
		return TypeU8Array
	case "substring":
		p.emit.Substring(operand(GlobalFrame, "$S0"), renderOperand(args[0]), renderOperand(args[1]), renderOperand(args[2]))
		p.emit.PushVar("$S0", GlobalFrame)
		return TypeU8ArrayNullable
	case "strcmp":
		p.emit.Strcmp(operand(GlobalFrame, "$R0"), renderOperand(args[0]), renderOperand(args[1]))
		p.emit.PushVar("$R0", GlobalFrame)
		return TypeI32
	case "ord":
		p.emit.Ord(operand(GlobalFrame, "$R0"), renderOperand(args[0]), renderOperand(args[1]))
		p.emit.PushVar("$R0", GlobalFrame)
		return TypeI32
	case "chr":
		p.emit.Chr(operand(GlobalFrame, "$S0"), renderOperand(args[0]))
		p.emit.PushVar("$S0", GlobalFrame)
		return TypeU8Array

	default:
		return TypeVoid
	}
}

// lookaheadIsNullableForm reports whether, starting at a '(' immediately
// after an if/while keyword, the matched ")" is followed by a "|" binder
// opener -- the nullable-unwrap form's disambiguator (spec.md §4.I).
func (p *Parser) lookaheadIsNullableForm() bool {
	start := p.tokens.Checkpoint()
	defer p.tokens.Restore(start)

	if p.tokens.Peek().Kind != TokenLParen {
		return false
	}
	depth := 0
	for {
		tok := p.tokens.Next()
		if tok.Kind == TokenEOF {
			return false
		}
		if tok.Kind == TokenLParen {
			depth++
		}
		if tok.Kind == TokenRParen {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	return p.tokens.Peek().Kind == TokenPipe
}

// parseNullableHeader parses the "(id) |binder|" condition shared by the
// nullable if/while forms, pushes one new scope holding the binder (bound to
// a non-nullable copy of id's value), and wires the jump to skipLabel taken
// when id is null.
func (p *Parser) parseNullableHeader(skipLabel string) *Diagnostic {
	if open := p.tokens.Next(); open.Kind != TokenLParen {
		return newDiag(ErrSyntactic, open.Line, "expected '(' to open a nullable condition")
	}
	idTok := p.tokens.Next()
	if idTok.Kind != TokenIdentifier {
		return newDiag(ErrSyntactic, idTok.Line, "a nullable condition must be a single variable")
	}
	sym := p.scopes.Find(idTok.Text)
	if sym == nil {
		return newDiag(ErrUndefined, idTok.Line, "undefined variable %q", idTok.Text)
	}
	if !sym.Type.IsNullable() {
		return newDiag(ErrIncompatibleType, idTok.Line, "nullable condition requires a ?T variable, got %s", sym.Type)
	}
	sym.WasUsed = true

	if close := p.tokens.Next(); close.Kind != TokenRParen {
		return newDiag(ErrSyntactic, close.Line, "expected ')' after the nullable condition")
	}
	if bar := p.tokens.Next(); bar.Kind != TokenPipe {
		return newDiag(ErrSyntactic, bar.Line, "expected '|' to open the binder")
	}
	bindTok := p.tokens.Next()
	if bindTok.Kind != TokenIdentifier {
		return newDiag(ErrSyntactic, bindTok.Line, "expected a binder name")
	}
	if bar2 := p.tokens.Next(); bar2.Kind != TokenPipe {
		return newDiag(ErrSyntactic, bar2.Line, "expected '|' to close the binder")
	}

	p.emit.JumpIfEqNil(skipLabel, operand(LocalFrame, sym.EmittedName))

	p.scopes.Push()
	binderEmitted := p.mangle(bindTok.Text)
	p.emit.DefineVar(binderEmitted, LocalFrame)
	p.emit.MoveVar(binderEmitted, LocalFrame, sym.EmittedName, LocalFrame)
	binder := &VariableSymbol{
		Name:        bindTok.Text,
		Type:        NullableToNormal(sym.Type),
		Defined:     true,
		EmittedName: binderEmitted,
	}
	if !p.scopes.Top().AddVariable(binder) {
		return newDiag(ErrRedefinition, bindTok.Line, "binder %q is already declared", bindTok.Text)
	}
	return nil
}

// parseIf parses both if forms: "if (bool-expr) { ... } [else { ... }]" and
// "if (id) |binder| { ... } [else { ... }]" (spec.md §4.I).
func (p *Parser) parseIf() *Diagnostic {
	ifTok := p.tokens.Next() // "if"
	nullable := p.lookaheadIsNullableForm()

	ifLabel := p.emit.NewLabel(LabelIf)
	elseLabel := p.emit.NewLabel(LabelElse)
	endLabel := p.emit.NewLabel(LabelEndIf)
	p.emit.Label(ifLabel)

	if nullable {
		if diag := p.parseNullableHeader(elseLabel); diag != nil {
			return diag
		}
		if open := p.tokens.Next(); open.Kind != TokenLBrace {
			return newDiag(ErrSyntactic, open.Line, "expected '{' to start the if-branch")
		}
		if diag := p.parseBlock(); diag != nil {
			return diag
		}
		if diag := p.scopes.Pop(); diag != nil { // the binder's scope
			return diag
		}
	} else {
		if open := p.tokens.Next(); open.Kind != TokenLParen {
			return newDiag(ErrSyntactic, open.Line, "expected '(' after 'if'")
		}
		condType, diag := NewExprParser(p.tokens, p.scopes, p.globals, p.emit).Parse(condTerminators)
		if diag != nil {
			return diag
		}
		if condType != TypeBool {
			return newDiag(ErrIncompatibleType, ifTok.Line, "if condition must be bool, got %s", condType)
		}
		if close := p.tokens.Next(); close.Kind != TokenRParen {
			return newDiag(ErrSyntactic, close.Line, "expected ')' after the if condition")
		}

		p.emit.Pop("$B0", GlobalFrame)
		p.emit.JumpIfEq(elseLabel, operand(GlobalFrame, "$B0"), literalOperand("false", TypeBool))

		if open2 := p.tokens.Next(); open2.Kind != TokenLBrace {
			return newDiag(ErrSyntactic, open2.Line, "expected '{' to start the if-branch")
		}
		if diag := p.parseBlock(); diag != nil {
			return diag
		}
	}

	p.emit.Jump(endLabel)
	p.emit.Label(elseLabel)

	if p.tokens.Peek().Kind == TokenKeyword && p.tokens.Peek().Keyword == KeywordElse {
		p.tokens.Next()
		if open3 := p.tokens.Next(); open3.Kind != TokenLBrace {
			return newDiag(ErrSyntactic, open3.Line, "expected '{' to start the else-branch")
		}
		if diag := p.parseBlock(); diag != nil {
			return diag
		}
	}

	p.emit.Label(endLabel)
	return nil
}

// parseWhile parses both while forms, mirroring parseIf but with a
// back-edge jump to the loop head instead of a forward-only else.
func (p *Parser) parseWhile() *Diagnostic {
	whileTok := p.tokens.Next() // "while"
	nullable := p.lookaheadIsNullableForm()

	whileLabel := p.emit.NewLabel(LabelWhile)
	endLabel := p.emit.NewLabel(LabelEndWhile)
	p.emit.Label(whileLabel)

	if nullable {
		if diag := p.parseNullableHeader(endLabel); diag != nil {
			return diag
		}
		if open := p.tokens.Next(); open.Kind != TokenLBrace {
			return newDiag(ErrSyntactic, open.Line, "expected '{' to start the while-body")
		}
		if diag := p.parseBlock(); diag != nil {
			return diag
		}
		if diag := p.scopes.Pop(); diag != nil { // the binder's scope
			return diag
		}
	} else {
		if open := p.tokens.Next(); open.Kind != TokenLParen {
			return newDiag(ErrSyntactic, open.Line, "expected '(' after 'while'")
		}
		condType, diag := NewExprParser(p.tokens, p.scopes, p.globals, p.emit).Parse(condTerminators)
		if diag != nil {
			return diag
		}
		if condType != TypeBool {
			return newDiag(ErrIncompatibleType, whileTok.Line, "while condition must be bool, got %s", condType)
		}
		if close := p.tokens.Next(); close.Kind != TokenRParen {
			return newDiag(ErrSyntactic, close.Line, "expected ')' after the while condition")
		}

		p.emit.Pop("$B0", GlobalFrame)
		p.emit.JumpIfEq(endLabel, operand(GlobalFrame, "$B0"), literalOperand("false", TypeBool))

		if open2 := p.tokens.Next(); open2.Kind != TokenLBrace {
			return newDiag(ErrSyntactic, open2.Line, "expected '{' to start the while-body")
		}
		if diag := p.parseBlock(); diag != nil {
			return diag
		}
	}

	p.emit.Jump(whileLabel)
	p.emit.Label(endLabel)
	return nil
}

// parseReturn parses "return [expr];", enforcing that void functions (and
// main, which is always void) take no expression and non-void functions
// always supply one of a compatible type (spec.md §7, exit code 6).
func (p *Parser) parseReturn() *Diagnostic {
	retTok := p.tokens.Next() // "return"

	if p.currentFunc.ReturnType == TypeVoid {
		if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
			return newDiag(ErrMissingExpression, semi.Line, "function %q returns void and takes no return expression", p.currentFunc.Name)
		}
		p.emit.PopFrame()
		p.emit.Return()
		return nil
	}

	if p.tokens.Peek().Kind == TokenSemicolon {
		return newDiag(ErrMissingExpression, retTok.Line, "function %q must return a value of type %s", p.currentFunc.Name, p.currentFunc.ReturnType)
	}

	resultType, diag := p.parseRHS()
	if diag != nil {
		return diag
	}
	if !assignable(p.currentFunc.ReturnType, resultType) {
		return newDiag(ErrTypeOrCountMismatch, retTok.Line, "function %q must return %s, got %s", p.currentFunc.Name, p.currentFunc.ReturnType, resultType)
	}

	if semi := p.tokens.Next(); semi.Kind != TokenSemicolon {
		return newDiag(ErrSyntactic, semi.Line, "expected ';' after a return expression")
	}

	p.emit.PopFrame()
	p.emit.Return()
	return nil
}
