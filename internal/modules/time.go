package modules

import (
	"fmt"
	"time"

	"rowan/internal/gc"
	"rowan/internal/value"
)

var processStart = time.Now()

func timeModule(g *gc.GC) *value.Module {
	mod, export, done := newModule(g, "time")
	defer done()

	export("now", native(g, "now", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
	}))

	export("clock", native(g, "clock", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(time.Since(processStart).Seconds()), nil
	}))

	export("sleep", native(g, "sleep", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsNumber() {
			return value.Nil(), fmt.Errorf("sleep expects seconds as a number")
		}
		time.Sleep(time.Duration(args[0].AsNumber() * float64(time.Second)))
		return value.Nil(), nil
	}))

	// format(timestamp) renders RFC 3339; format(timestamp, layout)
	// accepts a reference-time layout string.
	export("format", native(g, "format", -1, func(args []value.Value) (value.Value, error) {
		if len(args) < 1 || !args[0].IsNumber() {
			return value.Nil(), fmt.Errorf("format expects a timestamp number")
		}
		sec := args[0].AsNumber()
		ts := time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9))
		layout := time.RFC3339
		if len(args) > 1 {
			if !args[1].IsString() {
				return value.Nil(), fmt.Errorf("format layout must be a string")
			}
			layout = args[1].AsString()
		}
		return value.Object(g.NewString(ts.Format(layout))), nil
	}))

	return mod
}
