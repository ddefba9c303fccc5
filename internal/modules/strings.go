package modules

import (
	"fmt"
	"strings"

	"rowan/internal/gc"
	"rowan/internal/value"
)

func stringModule(g *gc.GC) *value.Module {
	mod, export, done := newModule(g, "string")
	defer done()

	str1 := func(name string, fn func(string) string) {
		export(name, native(g, name, 1, func(args []value.Value) (value.Value, error) {
			if !args[0].IsString() {
				return value.Nil(), fmt.Errorf("%s expects a string, got %s", name, args[0].TypeName())
			}
			return value.Object(g.NewString(fn(args[0].AsString()))), nil
		}))
	}
	str1("upper", strings.ToUpper)
	str1("lower", strings.ToLower)
	str1("trim", strings.TrimSpace)

	export("sub", native(g, "sub", 3, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() || !args[1].IsNumber() || !args[2].IsNumber() {
			return value.Nil(), fmt.Errorf("sub expects a string and two numbers")
		}
		s := args[0].AsString()
		start, end := int(args[1].AsNumber()), int(args[2].AsNumber())
		if start < 0 {
			start += len(s)
		}
		if end < 0 {
			end += len(s)
		}
		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start >= end {
			return value.Object(g.NewString("")), nil
		}
		return value.Object(g.NewString(s[start:end])), nil
	}))

	export("find", native(g, "find", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() || !args[1].IsString() {
			return value.Nil(), fmt.Errorf("find expects two strings")
		}
		return value.Number(float64(strings.Index(args[0].AsString(), args[1].AsString()))), nil
	}))

	export("split", native(g, "split", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() || !args[1].IsString() {
			return value.Nil(), fmt.Errorf("split expects two strings")
		}
		list := g.NewList()
		g.PushTempRoot(list)
		defer g.PopTempRoot()
		for _, part := range strings.Split(args[0].AsString(), args[1].AsString()) {
			list.Elems = append(list.Elems, value.Object(g.NewString(part)))
		}
		return value.Object(list), nil
	}))

	export("join", native(g, "join", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsList() || !args[1].IsString() {
			return value.Nil(), fmt.Errorf("join expects a list and a separator string")
		}
		parts := make([]string, len(args[0].AsList().Elems))
		for i, e := range args[0].AsList().Elems {
			parts[i] = e.ToString()
		}
		return value.Object(g.NewString(strings.Join(parts, args[1].AsString()))), nil
	}))

	return mod
}
