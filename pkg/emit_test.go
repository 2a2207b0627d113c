package ifjc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkNewLabelIsUniquePerKind(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	assert.Equal(t, "if0", s.NewLabel(LabelIf))
	assert.Equal(t, "if1", s.NewLabel(LabelIf))
	assert.Equal(t, "while0", s.NewLabel(LabelWhile))
	assert.Equal(t, "if2", s.NewLabel(LabelIf))
}

func TestSinkOrdEmitsBoundsCheckBeforeStri2int(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Ord("LF@r", "LF@str", "LF@idx")
	out := buf.String()

	assert.Contains(t, out, "STRLEN GF@$R0 LF@str")
	assert.Contains(t, out, "STRI2INT LF@r LF@str LF@idx")
	// the zero-length/out-of-range path must be checked, and the
	// STRI2INT must come strictly after both checks.
	strlenIdx := strings.Index(out, "STRLEN")
	stri2intIdx := strings.Index(out, "STRI2INT")
	assert.Less(t, strlenIdx, stri2intIdx)
	assert.Contains(t, out, "GT GF@$B0 LF@idx GF@$R0")
	assert.Contains(t, out, "MOVE LF@r int@0")
}

func TestSinkOrdLabelsAreUniquePerCall(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Ord("LF@r1", "LF@s", "LF@i")
	s.Ord("LF@r2", "LF@s", "LF@i")
	out := buf.String()

	assert.Contains(t, out, "ord_zero_0")
	assert.Contains(t, out, "ord_zero_1")
	assert.NotContains(t, out, "ord_zero_2")
}

func TestSinkSubstringBuildsMultiCharacterRange(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Substring("LF@r", "LF@str", "LF@i", "LF@j")
	out := buf.String()

	// must bounds-check i, j, and the string length
	assert.Contains(t, out, "LT GF@$B0 LF@i int@0")
	assert.Contains(t, out, "LT GF@$B0 LF@j LF@i")
	assert.Contains(t, out, "STRLEN GF@$R0 LF@str")
	assert.Contains(t, out, "GT GF@$B0 LF@j GF@$R0")

	// must walk the range a character at a time: one GETCHAR inside a
	// loop, not a single straight-line GETCHAR
	assert.Equal(t, 1, strings.Count(out, "GETCHAR"))
	assert.Contains(t, out, "CONCAT LF@r LF@r GF@$S1")
	assert.Contains(t, out, "MOVE LF@r nil@nil")

	// the loop body must be reachable more than once: it needs a
	// back-edge (a JUMP to its own label), not a straight-line sequence.
	loopLabel := "substr_loop_0"
	assert.Contains(t, out, "LABEL $"+loopLabel)
	assert.Contains(t, out, "JUMP $"+loopLabel)
}

func TestSinkSubstringLabelsAreUniquePerCall(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Substring("LF@r1", "LF@s", "LF@i", "LF@j")
	s.Substring("LF@r2", "LF@s", "LF@i", "LF@j")
	out := buf.String()

	assert.Contains(t, out, "substr_loop_0")
	assert.Contains(t, out, "substr_loop_1")
	assert.NotContains(t, out, "substr_loop_2")
}

func TestSinkStrcmpEmitsThreeWayLabeledComparison(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Strcmp("LF@r", "LF@a", "LF@b")
	out := buf.String()

	assert.Contains(t, out, "JUMPIFEQ $strcmp_eq_0 LF@a LF@b")
	assert.Contains(t, out, "LT GF@$B0 LF@a LF@b")
	assert.Contains(t, out, "MOVE LF@r int@1")
	assert.Contains(t, out, "MOVE LF@r int@-1")
	assert.Contains(t, out, "MOVE LF@r int@0")
	assert.Contains(t, out, "LABEL $strcmp_done_0")
}

func TestSinkStrcmpLabelsAreUniquePerCall(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	s.Strcmp("LF@r1", "LF@a", "LF@b")
	s.Strcmp("LF@r2", "LF@a", "LF@b")
	out := buf.String()

	assert.Contains(t, out, "strcmp_eq_0")
	assert.Contains(t, out, "strcmp_eq_1")
	assert.NotContains(t, out, "strcmp_eq_2")
}
