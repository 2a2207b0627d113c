package ifjc

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ifjc24/ifjc/internal/fixture"
	"github.com/stretchr/testify/assert"
)

func TestCompilerEmitsHeaderAndJumpsToMain(t *testing.T) {
	var out strings.Builder
	diag := NewCompiler().Compile(strings.NewReader(`
pub fn main() void {
    ifj.write("ok");
    return;
}
`), &out)
	assert.Nil(t, diag)

	text := out.String()
	assert.Contains(t, text, ".IFJcode24")
	assert.Contains(t, text, "JUMP $main")
	assert.Contains(t, text, "FUNCTIONLABEL $main")
	assert.Contains(t, text, "WRITE string@ok")
}

func TestCompilerSurfacesLexicalErrorExitCode(t *testing.T) {
	var out strings.Builder
	diag := NewCompiler().Compile(strings.NewReader("012"), &out)
	assert.NotNil(t, diag)
	assert.Equal(t, 1, diag.Kind.ExitCode())
}

func TestCompilerSurfacesUndefinedFunctionErrorExitCode(t *testing.T) {
	var out strings.Builder
	diag := NewCompiler().Compile(strings.NewReader(`
pub fn main() void {
    var r: i32 = missing(1);
    ifj.write(r);
    return;
}
`), &out)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrUndefined, diag.Kind)
	assert.Equal(t, 3, diag.Kind.ExitCode())
}

func TestCompilerRoundTripsRandomProgramWithoutError(t *testing.T) {
	// Grounded on the teacher's random-token fuzz benchmark (internal/test),
	// generalized here to a well-formed program so the full pipeline -
	// lexer, pre-pass, body parser, emitter - is exercised end to end on
	// input whose shape isn't hand-picked.
	var out strings.Builder
	src := fixture.RandomProgram(rand.New(rand.NewSource(1)), 5)
	diag := NewCompiler().Compile(strings.NewReader(src), &out)
	assert.Nil(t, diag)
	assert.Contains(t, out.String(), "FUNCTIONLABEL $main")
}
