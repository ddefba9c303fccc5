package modules

import (
	"rowan/internal/gc"
	"rowan/internal/value"
)

// builders maps a module name to its constructor.
var builders = map[string]func(*gc.GC) *value.Module{
	"math":   mathModule,
	"io":     ioModule,
	"string": stringModule,
	"time":   timeModule,
	"json":   jsonModule,
}

// IsBuiltin reports whether name is a builtin stdlib module.
func IsBuiltin(name string) bool {
	_, ok := builders[name]
	return ok
}

// Builtin constructs the named builtin module. Callers cache the result,
// so every import of the same name sees one module object.
func Builtin(g *gc.GC, name string) (value.Value, bool) {
	build, ok := builders[name]
	if !ok {
		return value.Nil(), false
	}
	mod := build(g)
	mod.Loaded = true
	return value.Object(mod), true
}

// newModule allocates a temp-rooted module; callers pair it with done().
func newModule(g *gc.GC, name string) (mod *value.Module, export func(string, value.Value), done func()) {
	mod = g.NewModule(name, "<builtin:"+name+">")
	g.PushTempRoot(mod)
	export = func(key string, v value.Value) {
		mod.Exports[key] = v
		g.WriteBarrier(mod, v)
	}
	done = func() { g.PopTempRoot() }
	return mod, export, done
}

func native(g *gc.GC, name string, arity int, fn func([]value.Value) (value.Value, error)) value.Value {
	return value.Object(g.NewNative(name, arity, fn))
}
