package modules

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"rowan/internal/gc"
	"rowan/internal/value"
)

var stdinReader = bufio.NewReader(os.Stdin)

func ioModule(g *gc.GC) *value.Module {
	mod, export, done := newModule(g, "io")
	defer done()

	export("read_file", native(g, "read_file", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() {
			return value.Nil(), fmt.Errorf("read_file expects a path string")
		}
		data, err := os.ReadFile(args[0].AsString())
		if err != nil {
			return value.Nil(), fmt.Errorf("read_file: %v", err)
		}
		return value.Object(g.NewString(string(data))), nil
	}))

	export("write_file", native(g, "write_file", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() || !args[1].IsString() {
			return value.Nil(), fmt.Errorf("write_file expects a path and content string")
		}
		if err := os.WriteFile(args[0].AsString(), []byte(args[1].AsString()), 0o644); err != nil {
			return value.Nil(), fmt.Errorf("write_file: %v", err)
		}
		return value.Bool(true), nil
	}))

	export("input", native(g, "input", -1, func(args []value.Value) (value.Value, error) {
		if len(args) > 0 && args[0].IsString() {
			fmt.Print(args[0].AsString())
		}
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return value.Nil(), nil
		}
		return value.Object(g.NewString(strings.TrimRight(line, "\r\n"))), nil
	}))

	return mod
}
