package ifjc

// Prepass is component H: a linear scan over the TokenVector, tracking
// brace depth, that registers every function whose definition begins at
// depth 0 into the global table before any function body is parsed. This
// lets bodies call functions defined later in the source (spec.md §4.H,
// §8 scenario 2).
type Prepass struct {
	tokens  *TokenVector
	globals *GlobalTable
}

// NewPrepass builds a pre-pass over tokens that will register into globals.
func NewPrepass(tokens *TokenVector, globals *GlobalTable) *Prepass {
	return &Prepass{tokens: tokens, globals: globals}
}

// Run walks the whole token vector once, leaving the cursor at its original
// position on return (the body parser performs its own, independent walk
// afterwards). Returns the first diagnostic encountered, or nil.
func (pp *Prepass) Run() *Diagnostic {
	start := pp.tokens.Checkpoint()
	defer pp.tokens.Restore(start)

	depth := 0
	sawMain := false

	for {
		tok := pp.tokens.Peek()
		if tok.Kind == TokenEOF {
			break
		}

		switch {
		case tok.Kind == TokenLBrace:
			depth++
			pp.tokens.Next()
		case tok.Kind == TokenRBrace:
			depth--
			pp.tokens.Next()
		case tok.Kind == TokenKeyword && tok.Keyword == KeywordPub:
			if depth != 0 {
				return newDiag(ErrOtherSemantic, tok.Line, "nested function definitions are not allowed")
			}
			fn, diag := pp.parseSignature()
			if diag != nil {
				return diag
			}
			// parseSignature consumes the function's opening '{' itself (it
			// needs to stop exactly there); account for it here so this
			// loop's own brace-tracking stays balanced.
			depth++
			if fn.Name == "main" {
				sawMain = true
				if len(fn.Parameters) != 0 || fn.ReturnType != TypeVoid {
					return newDiag(ErrOtherSemantic, tok.Line, "main must take no parameters and return void")
				}
			}
			if IsEmbedded(fn.Name) || !pp.globals.Define(fn) {
				return newDiag(ErrRedefinition, tok.Line, "function %q is already defined", fn.Name)
			}
		default:
			pp.tokens.Next()
		}
	}

	if !sawMain {
		return newDiag(ErrOtherSemantic, 0, "program must define a function named main")
	}
	return nil
}

// parseSignature reads "pub fn name(params) returnType {" starting at the
// "pub" keyword, leaving the cursor just past the opening "{". It performs
// no semantic emission; only the FunctionSymbol is built and returned.
func (pp *Prepass) parseSignature() (*FunctionSymbol, *Diagnostic) {
	pubTok := pp.tokens.Next() // "pub"
	fnTok := pp.tokens.Next()
	if fnTok.Kind != TokenKeyword || fnTok.Keyword != KeywordFn {
		return nil, newDiag(ErrSyntactic, pubTok.Line, "expected 'fn' after 'pub'")
	}

	nameTok := pp.tokens.Next()
	if nameTok.Kind != TokenIdentifier {
		return nil, newDiag(ErrSyntactic, fnTok.Line, "expected function name")
	}

	if open := pp.tokens.Next(); open.Kind != TokenLParen {
		return nil, newDiag(ErrSyntactic, nameTok.Line, "expected '(' after function name")
	}

	seen := make(map[string]bool)
	var params []*VariableSymbol
	for pp.tokens.Peek().Kind != TokenRParen {
		pTok := pp.tokens.Next()
		if pTok.Kind != TokenIdentifier {
			return nil, newDiag(ErrSyntactic, pTok.Line, "expected parameter name")
		}
		if seen[pTok.Text] {
			return nil, newDiag(ErrOtherSemantic, pTok.Line, "duplicate parameter name %q", pTok.Text)
		}
		seen[pTok.Text] = true

		if colon := pp.tokens.Next(); colon.Kind != TokenColon {
			return nil, newDiag(ErrSyntactic, pTok.Line, "expected ':' after parameter name")
		}

		typ, diag := parseTypeFrom(pp.tokens)
		if diag != nil {
			return nil, diag
		}

		params = append(params, &VariableSymbol{Name: pTok.Text, Type: typ, Defined: true})

		if pp.tokens.Peek().Kind == TokenComma {
			pp.tokens.Next()
			continue
		}
		break
	}

	if closeParen := pp.tokens.Next(); closeParen.Kind != TokenRParen {
		return nil, newDiag(ErrSyntactic, nameTok.Line, "expected ')' to close parameter list")
	}

	retType, diag := parseTypeFrom(pp.tokens)
	if diag != nil {
		return nil, diag
	}

	if open := pp.tokens.Next(); open.Kind != TokenLBrace {
		return nil, newDiag(ErrSyntactic, nameTok.Line, "expected '{' to open function body")
	}

	return &FunctionSymbol{
		Name:       nameTok.Text,
		Parameters: params,
		ReturnType: retType,
		HasReturn:  retType != TypeVoid,
	}, nil
}

