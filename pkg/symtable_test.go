package ifjc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymtableAddVariableRejectsDuplicate(t *testing.T) {
	tbl := NewSymtable()
	assert.True(t, tbl.AddVariable(&VariableSymbol{Name: "x", Type: TypeI32}))
	assert.False(t, tbl.AddVariable(&VariableSymbol{Name: "x", Type: TypeF64}))
}

func TestSymtableVariablesAndFunctionsShareKeySpace(t *testing.T) {
	tbl := NewSymtable()
	assert.True(t, tbl.AddFunction(&FunctionSymbol{Name: "f"}))
	assert.False(t, tbl.AddVariable(&VariableSymbol{Name: "f", Type: TypeI32}))
}

func TestSymtableStackFindSearchesInnerToOuter(t *testing.T) {
	s := NewSymtableStack()
	s.Push()
	s.Top().AddVariable(&VariableSymbol{Name: "x", Type: TypeI32, WasUsed: true})
	s.Push()
	s.Top().AddVariable(&VariableSymbol{Name: "x", Type: TypeF64, WasUsed: true})

	found := s.Find("x")
	assert.Equal(t, TypeF64, found.Type)

	assert.Nil(t, s.Pop())
	found = s.Find("x")
	assert.Equal(t, TypeI32, found.Type)
	assert.Nil(t, s.Pop())
}

func TestSymtableStackPopFlagsUnusedVariable(t *testing.T) {
	s := NewSymtableStack()
	s.Push()
	s.Top().AddVariable(&VariableSymbol{Name: "unused", Type: TypeI32})

	diag := s.Pop()
	assert.NotNil(t, diag)
	assert.Equal(t, ErrUnusedVariable, diag.Kind)
}

func TestSymtableStackPopFlagsUnusedParameterSameAsLocal(t *testing.T) {
	// Parameters are ordinary VariableSymbols added to the function's
	// outermost scope, so an unused parameter triggers the same check as
	// an unused local (no special-casing).
	s := NewSymtableStack()
	s.Push()
	s.Top().AddVariable(&VariableSymbol{Name: "p", Type: TypeI32, Defined: true})
	diag := s.Pop()
	assert.NotNil(t, diag)
	assert.Equal(t, ErrUnusedVariable, diag.Kind)
}

func TestGlobalTablePreSeededWithEmbedded(t *testing.T) {
	g := NewGlobalTable()
	fn := g.Lookup("length")
	assert.NotNil(t, fn)
	assert.Equal(t, TypeI32, fn.ReturnType)
}

func TestGlobalTableDefineRejectsEmbeddedCollision(t *testing.T) {
	g := NewGlobalTable()
	ok := g.Define(&FunctionSymbol{Name: "length", ReturnType: TypeI32})
	assert.False(t, ok)
}

func TestGlobalTableDefineRejectsDuplicateUserFunction(t *testing.T) {
	g := NewGlobalTable()
	assert.True(t, g.Define(&FunctionSymbol{Name: "f"}))
	assert.False(t, g.Define(&FunctionSymbol{Name: "f"}))
}
