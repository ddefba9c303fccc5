package errors

import (
	"fmt"
	"strings"
)

// Type classifies an error raised by the pipeline.
type Type string

const (
	SyntaxError  Type = "SyntaxError"
	CompileError Type = "CompileError"
	RuntimeError Type = "RuntimeError"
	TypeError    Type = "TypeError"
	ImportError  Type = "ImportError"
)

// Location is a position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
}

// Frame is one entry in a script-level call stack.
type Frame struct {
	Function string
	Line     int
}

// Error is a pipeline error with optional source context and call stack.
type Error struct {
	Type     Type
	Message  string
	Location Location
	Stack    []Frame
	Source   string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))

	if e.Location.Line > 0 {
		sb.WriteString(fmt.Sprintf("\n  at %s:%d", e.Location.File, e.Location.Line))
		if e.Location.Column > 0 {
			sb.WriteString(fmt.Sprintf(":%d", e.Location.Column))
		}
		if e.Source != "" {
			prefix := fmt.Sprintf("%d | ", e.Location.Line)
			sb.WriteString(fmt.Sprintf("\n\n  %s%s\n", prefix, e.Source))
			sb.WriteString("  " + strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 1 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^")
		}
	}

	if len(e.Stack) > 0 {
		sb.WriteString("\n\nCall Stack:")
		for _, f := range e.Stack {
			name := f.Function
			if name == "" {
				name = "<script>"
			}
			sb.WriteString(fmt.Sprintf("\n  at %s (line %d)", name, f.Line))
		}
	}

	return sb.String()
}

func New(t Type, message, file string, line, column int) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Location: Location{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

func NewSyntaxError(message, file string, line, column int) *Error {
	return New(SyntaxError, message, file, line, column)
}

func NewCompileError(message, file string, line int) *Error {
	return New(CompileError, message, file, line, 0)
}

func NewRuntimeError(message string, line int) *Error {
	return New(RuntimeError, message, "", line, 0)
}

func NewTypeError(message string, line int) *Error {
	return New(TypeError, message, "", line, 0)
}

func NewImportError(message, file string, line int) *Error {
	return New(ImportError, message, file, line, 0)
}

// WithSource attaches the offending source line for display.
func (e *Error) WithSource(line string) *Error {
	e.Source = line
	return e
}

// PushFrame appends a call-stack entry, innermost last.
func (e *Error) PushFrame(function string, line int) *Error {
	e.Stack = append(e.Stack, Frame{Function: function, Line: line})
	return e
}
