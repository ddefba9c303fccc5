// Package modules provides the builtin standard library: the global
// native functions and the importable math, io, string, time, and json
// modules.
package modules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"rowan/internal/value"
	"rowan/internal/vm"
)

// RegisterGlobals installs the global native functions on a VM.
func RegisterGlobals(v *vm.VM) {
	g := v.GC()

	v.RegisterNative("print", -1, func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.ToString()
		}
		v.Print(strings.Join(parts, " ") + "\n")
		return value.Nil(), nil
	})

	v.RegisterNative("len", 1, func(args []value.Value) (value.Value, error) {
		a := args[0]
		switch {
		case a.IsString():
			return value.Number(float64(len(a.AsString()))), nil
		case a.IsList():
			return value.Number(float64(len(a.AsList().Elems))), nil
		case a.IsTable():
			return value.Number(float64(a.AsTable().Len())), nil
		default:
			return value.Nil(), fmt.Errorf("len expects a string, list, or table, got %s", a.TypeName())
		}
	})

	v.RegisterNative("push", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsList() {
			return value.Nil(), fmt.Errorf("push expects a list, got %s", args[0].TypeName())
		}
		l := args[0].AsList()
		l.Elems = append(l.Elems, args[1])
		g.WriteBarrier(l, args[1])
		return args[0], nil
	})

	v.RegisterNative("pop", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsList() {
			return value.Nil(), fmt.Errorf("pop expects a list, got %s", args[0].TypeName())
		}
		l := args[0].AsList()
		if len(l.Elems) == 0 {
			return value.Nil(), nil
		}
		last := l.Elems[len(l.Elems)-1]
		l.Elems = l.Elems[:len(l.Elems)-1]
		return last, nil
	})

	v.RegisterNative("tonumber", 1, func(args []value.Value) (value.Value, error) {
		a := args[0]
		switch {
		case a.IsNumber():
			return a, nil
		case a.IsString():
			n, err := strconv.ParseFloat(strings.TrimSpace(a.AsString()), 64)
			if err != nil {
				return value.Nil(), nil
			}
			return value.Number(n), nil
		default:
			return value.Nil(), nil
		}
	})

	v.RegisterNative("tostring", 1, func(args []value.Value) (value.Value, error) {
		return value.Object(g.NewString(args[0].ToString())), nil
	})

	v.RegisterNative("type", 1, func(args []value.Value) (value.Value, error) {
		return value.Object(g.NewString(args[0].TypeName())), nil
	})

	v.RegisterNative("gc_collect", 0, func(args []value.Value) (value.Value, error) {
		g.Collect()
		return value.Nil(), nil
	})

	v.RegisterNative("gc_count", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(float64(g.ObjectCount())), nil
	})

	v.RegisterNative("uuid", 0, func(args []value.Value) (value.Value, error) {
		return value.Object(g.NewString(uuid.NewString())), nil
	})
}
