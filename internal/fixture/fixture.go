// Package fixture generates random SRC token streams and well-formed
// programs for property-style tests, generalizing the teacher's flat
// random-token generator into a generator that also produces syntactically
// valid snippets the parser stages can round-trip.
package fixture

import (
	"fmt"
	"math/rand"
	"strings"
)

// validTokens is a flat, ";"-separated table of individually well-formed SRC
// lexemes, in the teacher's style. Because the table is split on ";", the
// ";;;" run yields two empty entries and no ";" lexeme; the line comment
// and the bare newline lex to no token at all; every other entry lexes as
// exactly one token.
const validTokens = "pub;fn;main;(;);{;};i32;f64;void;\"a short string\";\"\";+;-;*;/;=;==;!=;<;<=;>;>=;;;,;:;123;0;3.14;1e10;?i32;?f64;[]u8;if;else;while;return;const;var;null;//a comment\n;\n"

// GetRandomTokens returns size random lexemes from validTokens joined by a
// single space, for lexer-only fuzzing: the stream need not parse, only
// lex cleanly token-by-token.
func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

// GetRandomTokensWithSep is GetRandomTokens with a caller-chosen separator,
// used to probe the lexer's whitespace handling.
func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}

// arithOps and relOps are the operators RandomExpr may splice between two
// operands; kept separate so a caller can request a purely-relational or
// purely-arithmetic expression.
var arithOps = []string{"+", "-", "*", "/"}
var relOps = []string{"==", "!=", "<", "<=", ">", ">="}

// RandomExpr returns a random well-formed i32 expression of depth terms
// chaining r's arithmetic operators, e.g. "1 + 2 - 3".
func RandomExpr(r *rand.Rand, depth int) string {
	if depth < 1 {
		depth = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d", r.Intn(100))
	for i := 1; i < depth; i++ {
		fmt.Fprintf(&b, " %s %d", arithOps[r.Intn(len(arithOps))], r.Intn(100))
	}
	return b.String()
}

// RandomCondition returns a random well-formed bool expression suitable for
// an if/while header, e.g. "1 < 2".
func RandomCondition(r *rand.Rand) string {
	return fmt.Sprintf("%d %s %d", r.Intn(100), relOps[r.Intn(len(relOps))], r.Intn(100))
}

// RandomProgram returns a complete, syntactically valid SRC source text
// with a single "pub fn main() void" body containing count randomly-named
// i32 variable declarations, each assigned a random expression and then
// passed to ifj.write, followed by a trailing return. The program is
// well-formed by construction: every variable it declares is also used,
// satisfying the unused-variable invariant.
func RandomProgram(r *rand.Rand, count int) string {
	var b strings.Builder
	b.WriteString("pub fn main() void {\n")
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("v%d", i)
		fmt.Fprintf(&b, "    var %s: i32 = %s;\n", name, RandomExpr(r, 1+r.Intn(3)))
		fmt.Fprintf(&b, "    ifj.write(%s);\n", name)
	}
	b.WriteString("    return;\n}\n")
	return b.String()
}
