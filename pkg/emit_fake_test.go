package ifjc

import "fmt"

// fakeEmit is a no-op Emit recorder used across the pkg test suite in place
// of a real Sink: tests assert on the sequence of mnemonic-shaped strings it
// records rather than parsing TARGET assembly text.
type fakeEmit struct {
	lines         []string
	labelCounters map[LabelKind]int
}

func newFakeEmit() *fakeEmit {
	return &fakeEmit{labelCounters: make(map[LabelKind]int)}
}

func (f *fakeEmit) record(format string, args ...interface{}) {
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

func (f *fakeEmit) Header()        { f.record("HEADER") }
func (f *fakeEmit) InitRegisters() { f.record("INITREGS") }
func (f *fakeEmit) JumpToMain()    { f.record("JUMPMAIN") }
func (f *fakeEmit) FunctionLabel(name string) {
	f.record("FUNCLABEL %s", name)
}
func (f *fakeEmit) Return() { f.record("RETURN") }

func (f *fakeEmit) DefineVar(name string, frame Frame) {
	f.record("DEFVAR %s", operand(frame, name))
}
func (f *fakeEmit) PushVar(name string, frame Frame) {
	f.record("PUSHVAR %s", operand(frame, name))
}
func (f *fakeEmit) PushLiteral(value string, typ DataType) {
	f.record("PUSHLIT %s", literalOperand(value, typ))
}
func (f *fakeEmit) Pop(name string, frame Frame) {
	f.record("POP %s", operand(frame, name))
}
func (f *fakeEmit) MoveVar(dstName string, dstFrame Frame, srcName string, srcFrame Frame) {
	f.record("MOVE %s %s", operand(dstFrame, dstName), operand(srcFrame, srcName))
}
func (f *fakeEmit) MoveLiteral(dstName string, dstFrame Frame, value string, typ DataType) {
	f.record("MOVE %s %s", operand(dstFrame, dstName), literalOperand(value, typ))
}
func (f *fakeEmit) MoveNil(dstName string, dstFrame Frame) {
	f.record("MOVE %s nil@nil", operand(dstFrame, dstName))
}

func (f *fakeEmit) CreateFrame() { f.record("CREATEFRAME") }
func (f *fakeEmit) PushFrame()   { f.record("PUSHFRAME") }
func (f *fakeEmit) PopFrame()    { f.record("POPFRAME") }
func (f *fakeEmit) SetParam(order int, value string) {
	f.record("SETPARAM %d %s", order, value)
}
func (f *fakeEmit) Call(name string) { f.record("CALL %s", name) }

func (f *fakeEmit) ArithInt(op BinaryArithOp, dst, a, b string) {
	f.record("ARITHINT %d %s %s %s", op, dst, a, b)
}
func (f *fakeEmit) ArithFloat(op BinaryArithOp) { f.record("ARITHFLOAT %d", op) }
func (f *fakeEmit) Int2FloatS()                 { f.record("INT2FLOATS") }
func (f *fakeEmit) Float2IntS()                 { f.record("FLOAT2INTS") }
func (f *fakeEmit) RelationalS(op RelationalOp) { f.record("REL %d", op) }

func (f *fakeEmit) NewLabel(kind LabelKind) string {
	f.record("NEWLABEL %s", kind)
	n := f.labelCounters[kind]
	f.labelCounters[kind] = n + 1
	return fmt.Sprintf("%s%d", kind, n)
}
func (f *fakeEmit) Label(name string) { f.record("LABEL %s", name) }
func (f *fakeEmit) Jump(label string) { f.record("JUMP %s", label) }
func (f *fakeEmit) JumpIfEq(label, a, b string) {
	f.record("JUMPIFEQ %s %s %s", label, a, b)
}
func (f *fakeEmit) JumpIfNeq(label, a, b string) {
	f.record("JUMPIFNEQ %s %s %s", label, a, b)
}
func (f *fakeEmit) JumpIfEqNil(label, varName string) {
	f.record("JUMPIFEQNIL %s %s", label, varName)
}

func (f *fakeEmit) Read(varName string, frame Frame, typ DataType) {
	f.record("READ %s %d", operand(frame, varName), typ)
}
func (f *fakeEmit) Write(value string, frame Frame, isLiteral bool) {
	if isLiteral {
		f.record("WRITE %s", value)
		return
	}
	f.record("WRITE %s", operand(frame, value))
}
func (f *fakeEmit) WriteStringLiteral(lit string) {
	f.record("WRITE %s", EscapeString(lit))
}

func (f *fakeEmit) Length(dst, src string)        { f.record("LENGTH %s %s", dst, src) }
func (f *fakeEmit) Concat(dst, a, b string)        { f.record("CONCAT %s %s %s", dst, a, b) }
func (f *fakeEmit) Substring(dst, s, i, j string) { f.record("SUBSTR %s %s %s %s", dst, s, i, j) }
func (f *fakeEmit) Ord(dst, s, i string)           { f.record("ORD %s %s %s", dst, s, i) }
func (f *fakeEmit) Chr(dst, i string)              { f.record("CHR %s %s", dst, i) }
func (f *fakeEmit) Strcmp(dst, a, b string)        { f.record("STRCMP %s %s %s", dst, a, b) }
