package ifjc

import (
	"io"

	"golang.org/x/sync/errgroup"
)

// Compiler is the top-level driver wiring the Lexer, the function-signature
// pre-pass, the body parser, and the emitter into the single-pass pipeline
// spec.md §2 describes. A Compiler is single-use: call Compile once per
// source.
type Compiler struct{}

// NewCompiler returns a ready-to-use driver. There is no configuration:
// SRC has no target triple, no optimization levels, no build flags.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile reads SRC source from src, writes TARGET assembly to dst on
// success, and returns the first Diagnostic encountered otherwise. Lexing
// and preparing the output sink's header have no dependency on each other,
// so they run as two goroutines joined by an errgroup: the first to fail
// cancels the pipeline before the pre-pass and body parser ever see the
// token vector.
func (c *Compiler) Compile(src io.Reader, dst io.Writer) *Diagnostic {
	var g errgroup.Group

	var tokens *TokenVector
	g.Go(func() error {
		lexer := NewLexer(src)
		toks, diag := lexer.Run()
		if diag != nil {
			return diag
		}
		tokens = toks
		return nil
	})

	sink := NewSink(dst)
	g.Go(func() error {
		sink.Header()
		sink.InitRegisters()
		sink.JumpToMain()
		return nil
	})

	if err := g.Wait(); err != nil {
		if diag, ok := err.(*Diagnostic); ok {
			return diag
		}
		return newDiag(ErrInternal, 0, "pipeline setup failed: %v", err)
	}

	globals := NewGlobalTable()

	pp := NewPrepass(tokens, globals)
	if diag := pp.Run(); diag != nil {
		return diag
	}

	parser := NewParser(tokens, globals, sink)
	if diag := parser.Run(); diag != nil {
		return diag
	}

	if err := sink.Flush(); err != nil {
		return newDiag(ErrInternal, 0, "failed to flush emitted output: %v", err)
	}
	return nil
}
