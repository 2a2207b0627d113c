package ifjc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runPrepass(t *testing.T, src string) (*GlobalTable, *Diagnostic) {
	t.Helper()
	vec, diag := NewLexer(strings.NewReader(src)).Run()
	assert.Nil(t, diag)
	globals := NewGlobalTable()
	pp := NewPrepass(vec, globals)
	return globals, pp.Run()
}

func TestPrepassRegistersForwardReferencedFunction(t *testing.T) {
	globals, diag := runPrepass(t, `
pub fn main() void {
    return;
}

pub fn helper(x: i32) i32 {
    return x;
}
`)
	assert.Nil(t, diag)
	fn := globals.Lookup("helper")
	assert.NotNil(t, fn)
	assert.Equal(t, TypeI32, fn.ReturnType)
	assert.Len(t, fn.Parameters, 1)
}

func TestPrepassLeavesCursorAtStart(t *testing.T) {
	vec, diag := NewLexer(strings.NewReader(`
pub fn main() void {
    return;
}
`)).Run()
	assert.Nil(t, diag)

	pp := NewPrepass(vec, NewGlobalTable())
	assert.Nil(t, pp.Run())
	assert.Equal(t, 0, vec.Pos())
}

func TestPrepassRejectsMissingMain(t *testing.T) {
	_, diag := runPrepass(t, `
pub fn f() void {
    return;
}
`)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrOtherSemantic, diag.Kind)
}

func TestPrepassRejectsMainWithParameters(t *testing.T) {
	_, diag := runPrepass(t, `
pub fn main(x: i32) void {
    return;
}
`)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrOtherSemantic, diag.Kind)
}

func TestPrepassRejectsDuplicateFunctionName(t *testing.T) {
	_, diag := runPrepass(t, `
pub fn f() void {
    return;
}

pub fn f() void {
    return;
}

pub fn main() void {
    return;
}
`)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrRedefinition, diag.Kind)
}

func TestPrepassRejectsNestedFunctionDefinition(t *testing.T) {
	_, diag := runPrepass(t, `
pub fn main() void {
    pub fn nested() void {
        return;
    }
    return;
}
`)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrOtherSemantic, diag.Kind)
}

func TestPrepassRejectsDuplicateParameterName(t *testing.T) {
	_, diag := runPrepass(t, `
pub fn f(a: i32, a: i32) void {
    return;
}

pub fn main() void {
    return;
}
`)
	assert.NotNil(t, diag)
	assert.Equal(t, ErrOtherSemantic, diag.Kind)
}
