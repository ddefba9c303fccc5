package modules

import (
	"fmt"
	"math"
	"math/rand"

	"rowan/internal/gc"
	"rowan/internal/value"
)

func num1(name string, fn func(float64) float64) (int, func([]value.Value) (value.Value, error)) {
	return 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsNumber() {
			return value.Nil(), fmt.Errorf("%s expects a number, got %s", name, args[0].TypeName())
		}
		return value.Number(fn(args[0].AsNumber())), nil
	}
}

func mathModule(g *gc.GC) *value.Module {
	mod, export, done := newModule(g, "math")
	defer done()

	export("pi", value.Number(math.Pi))

	for name, fn := range map[string]func(float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"sqrt":  math.Sqrt,
		"abs":   math.Abs,
		"floor": math.Floor,
		"ceil":  math.Ceil,
	} {
		arity, impl := num1(name, fn)
		export(name, native(g, name, arity, impl))
	}

	export("pow", native(g, "pow", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsNumber() || !args[1].IsNumber() {
			return value.Nil(), fmt.Errorf("pow expects two numbers")
		}
		return value.Number(math.Pow(args[0].AsNumber(), args[1].AsNumber())), nil
	}))

	export("random", native(g, "random", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(rand.Float64()), nil
	}))

	return mod
}
