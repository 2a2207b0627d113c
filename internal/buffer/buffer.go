// Package buffer provides a grow-on-append accumulator used by the lexer
// while it is building up the text of a lexeme (a number, identifier or
// string body) one rune at a time.
package buffer

import "strings"

// Buffer accumulates runes until the lexer state that owns it decides the
// lexeme is complete. It is a thin wrapper over strings.Builder: the lexer
// itself never needs more than append-and-read-back, so there is no reason
// to hand-roll a growable byte slice the way the original C scanner does
// (src/scanner.c's Vector).
type Buffer struct {
	b strings.Builder
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// WriteRune appends r to the buffer.
func (buf *Buffer) WriteRune(r rune) {
	buf.b.WriteRune(r)
}

// WriteByte appends b to the buffer, for the handful of call sites (the
// enclosing quotes of a string literal) that write a known single-byte
// ASCII character rather than a decoded rune.
func (buf *Buffer) WriteByte(b byte) error {
	return buf.b.WriteByte(b)
}

// String returns the accumulated text.
func (buf *Buffer) String() string {
	return buf.b.String()
}

// Len returns the number of bytes accumulated so far.
func (buf *Buffer) Len() int {
	return buf.b.Len()
}

// Reset clears the buffer for reuse.
func (buf *Buffer) Reset() {
	buf.b.Reset()
}
