package ifjc

import "fmt"

// TokenKind is an ID that correlates to the lexical category of a Token.
//
//go:generate stringer -type=TokenKind -trimprefix=Token
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdentifier
	TokenKeyword
	TokenUnderscore
	TokenInt
	TokenFloat
	TokenString
	TokenImport // @import

	TokenAssign       // =
	TokenEq           // ==
	TokenNotEq        // !=
	TokenLess         // <
	TokenLessEq       // <=
	TokenGreater      // >
	TokenGreaterEq    // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenLParen       // (
	TokenRParen       // )
	TokenLBrace       // {
	TokenRBrace       // }
	TokenLBracket     // [
	TokenRBracket     // ]
	TokenPipe         // |
	TokenSemicolon    // ;
	TokenComma        // ,
	TokenDot          // .
	TokenColon        // :
	TokenQuestion     // ?
	TokenU8Array      // []u8
	TokenU8ArrayNull  // ?[]u8
	TokenNullableI32  // ?i32
	TokenNullableF64  // ?f64
	TokenNullableU8   // unused alias, kept for symmetry with the type table
)

// KeywordKind further classifies a TokenKeyword token.
type KeywordKind uint8

const (
	KeywordNone KeywordKind = iota
	KeywordConst
	KeywordElse
	KeywordFn
	KeywordIf
	KeywordI32
	KeywordF64
	KeywordNull
	KeywordPub
	KeywordReturn
	KeywordU8
	KeywordVar
	KeywordVoid
	KeywordWhile
)

// keywordTable is the closed set of reserved words, per spec.md §4.C.
var keywordTable = map[string]KeywordKind{
	"const":  KeywordConst,
	"else":   KeywordElse,
	"fn":     KeywordFn,
	"if":     KeywordIf,
	"i32":    KeywordI32,
	"f64":    KeywordF64,
	"null":   KeywordNull,
	"pub":    KeywordPub,
	"return": KeywordReturn,
	"u8":     KeywordU8,
	"var":    KeywordVar,
	"void":   KeywordVoid,
	"while":  KeywordWhile,
}

// Token is a tagged record produced by the Lexer and consumed by both
// compiler passes. Numeric literals keep their textual form, and the
// emitter writes that text verbatim into the TARGET int@/float@ operand
// (literalOperand), so exponent notation is preserved through to emission;
// no conversion to a binary value takes place.
type Token struct {
	Kind    TokenKind
	Keyword KeywordKind
	Text    string
	Line    int
}

func (t Token) String() string {
	if t.Kind == TokenKeyword {
		return fmt.Sprintf("keyword(%s)@%d", t.Text, t.Line)
	}
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Line)
}

// String renders a TokenKind for diagnostics without relying on a
// go:generate'd stringer file (none is checked in for this small enum).
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenIdentifier:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenUnderscore:
		return "underscore"
	case TokenInt:
		return "int"
	case TokenFloat:
		return "float"
	case TokenString:
		return "string"
	case TokenImport:
		return "import"
	default:
		return "op"
	}
}

// TokenVector is the ordered, random-access sequence of tokens produced by
// the Lexer. It is the single source of truth walked by both the
// function-signature pre-pass and the body parser: the pre-pass scans it
// once front-to-back, the body parser walks it a second time and may
// checkpoint/restore its index for bounded look-ahead (used by the if/while
// nullable-form disambiguators, spec.md §4.I).
type TokenVector struct {
	tokens []Token
	pos    int
}

// NewTokenVector returns an empty TokenVector ready for Append.
func NewTokenVector() *TokenVector {
	return &TokenVector{}
}

// Append adds tok to the end of the vector. Only the Lexer appends; the
// pre-pass and body parser only index.
func (v *TokenVector) Append(tok Token) {
	v.tokens = append(v.tokens, tok)
}

// Len returns the number of tokens in the vector.
func (v *TokenVector) Len() int {
	return len(v.tokens)
}

// At returns the token at absolute index i.
func (v *TokenVector) At(i int) Token {
	if i < 0 || i >= len(v.tokens) {
		return v.tokens[len(v.tokens)-1] // EOF sentinel, always last
	}
	return v.tokens[i]
}

// Pos returns the current read cursor.
func (v *TokenVector) Pos() int {
	return v.pos
}

// SeekTo repositions the read cursor to an absolute index. The pre-pass and
// the look-ahead predicates rewind with Checkpoint/Restore instead; nothing
// in the compiler calls SeekTo.
func (v *TokenVector) SeekTo(pos int) {
	v.pos = pos
}

// Peek returns the token at the cursor without advancing it.
func (v *TokenVector) Peek() Token {
	return v.At(v.pos)
}

// PeekAt returns the token offset tokens ahead of the cursor without
// advancing it, clamped to the end of the vector.
func (v *TokenVector) PeekAt(offset int) Token {
	return v.At(v.pos + offset)
}

// Next returns the token at the cursor and advances it by one, unless
// already at EOF.
func (v *TokenVector) Next() Token {
	tok := v.Peek()
	if tok.Kind != TokenEOF {
		v.pos++
	}
	return tok
}

// Checkpoint records the current cursor for a later Restore. The two
// nullable-if/nullable-while disambiguation predicates (spec.md §4.I) use
// this to look ahead past a balanced "(...)" without consuming tokens.
func (v *TokenVector) Checkpoint() int {
	return v.pos
}

// Restore resets the cursor to a value previously returned by Checkpoint.
func (v *TokenVector) Restore(checkpoint int) {
	v.pos = checkpoint
}

// Rewind moves the cursor back k tokens, per spec.md §3's "index -= k"
// bounded look-ahead/rewind support.
func (v *TokenVector) Rewind(k int) {
	v.pos -= k
	if v.pos < 0 {
		v.pos = 0
	}
}
