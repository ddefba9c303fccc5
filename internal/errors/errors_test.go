package errors

import (
	"strings"
	"testing"
)

func TestConstructorsSetType(t *testing.T) {
	cases := []struct {
		err  *Error
		want Type
	}{
		{NewSyntaxError("bad token", "a.rn", 1, 2), SyntaxError},
		{NewCompileError("too many locals", "a.rn", 3), CompileError},
		{NewRuntimeError("boom", 4), RuntimeError},
		{NewTypeError("not callable", 5), TypeError},
		{NewImportError("not found", "a.rn", 6), ImportError},
	}
	for _, c := range cases {
		if c.err.Type != c.want {
			t.Fatalf("Type = %q, want %q", c.err.Type, c.want)
		}
	}
}

func TestRenderTypeAndMessage(t *testing.T) {
	e := NewRuntimeError("Division by zero.", 0)
	if got := e.Error(); got != "RuntimeError: Division by zero." {
		t.Fatalf("Error() = %q", got)
	}
}

func TestRenderLocation(t *testing.T) {
	e := NewCompileError("undefined variable 'x'", "main.rn", 12)
	got := e.Error()
	if !strings.Contains(got, "at main.rn:12") {
		t.Fatalf("missing location in %q", got)
	}

	withCol := NewSyntaxError("unexpected ')'", "main.rn", 12, 7)
	if !strings.Contains(withCol.Error(), "at main.rn:12:7") {
		t.Fatalf("missing column in %q", withCol.Error())
	}
}

func TestRenderSourceCaret(t *testing.T) {
	e := NewSyntaxError("unexpected ')'", "main.rn", 3, 9).
		WithSource("var x = );")
	got := e.Error()
	if !strings.Contains(got, "3 | var x = );") {
		t.Fatalf("missing source line in %q", got)
	}
	lines := strings.Split(got, "\n")
	var srcIdx int
	for i, l := range lines {
		if strings.Contains(l, "3 | ") {
			srcIdx = i
		}
	}
	caret := lines[srcIdx+1]
	if !strings.HasSuffix(caret, "^") {
		t.Fatalf("caret line = %q", caret)
	}
	// The caret sits under column 9 of the source: two leading spaces,
	// the "3 | " gutter, then eight spaces.
	if want := "  " + strings.Repeat(" ", len("3 | ")) + strings.Repeat(" ", 8) + "^"; caret != want {
		t.Fatalf("caret = %q, want %q", caret, want)
	}
}

func TestCallStackInnermostLast(t *testing.T) {
	e := NewRuntimeError("boom", 9)
	e.PushFrame("", 30)
	e.PushFrame("outer", 20)
	e.PushFrame("inner", 10)

	got := e.Error()
	if !strings.Contains(got, "Call Stack:") {
		t.Fatalf("missing stack header in %q", got)
	}
	script := strings.Index(got, "<script> (line 30)")
	outer := strings.Index(got, "outer (line 20)")
	inner := strings.Index(got, "inner (line 10)")
	if script < 0 || outer < 0 || inner < 0 {
		t.Fatalf("missing frames in %q", got)
	}
	if !(script < outer && outer < inner) {
		t.Fatalf("frame order wrong in %q", got)
	}
}

func TestNoStackSectionWhenEmpty(t *testing.T) {
	e := NewRuntimeError("boom", 1)
	if strings.Contains(e.Error(), "Call Stack:") {
		t.Fatal("empty stack rendered a header")
	}
}
