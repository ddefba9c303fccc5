package modules

import (
	"encoding/json"
	"fmt"

	"rowan/internal/gc"
	"rowan/internal/value"
)

func jsonModule(g *gc.GC) *value.Module {
	mod, export, done := newModule(g, "json")
	defer done()

	export("encode", native(g, "encode", 1, func(args []value.Value) (value.Value, error) {
		plain, err := ToPlain(args[0])
		if err != nil {
			return value.Nil(), err
		}
		data, err := json.Marshal(plain)
		if err != nil {
			return value.Nil(), fmt.Errorf("encode: %v", err)
		}
		return value.Object(g.NewString(string(data))), nil
	}))

	export("decode", native(g, "decode", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() {
			return value.Nil(), fmt.Errorf("decode expects a string")
		}
		var plain interface{}
		if err := json.Unmarshal([]byte(args[0].AsString()), &plain); err != nil {
			return value.Nil(), fmt.Errorf("decode: %v", err)
		}
		return FromPlain(g, plain), nil
	}))

	return mod
}

// ToPlain converts a script value into the encoding/json data model.
func ToPlain(v value.Value) (interface{}, error) {
	switch {
	case v.IsNil():
		return nil, nil
	case v.IsBool():
		return v.AsBool(), nil
	case v.IsNumber():
		return v.AsNumber(), nil
	case v.IsString():
		return v.AsString(), nil
	case v.IsList():
		out := make([]interface{}, len(v.AsList().Elems))
		for i, e := range v.AsList().Elems {
			p, err := ToPlain(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case v.IsTable():
		out := make(map[string]interface{})
		var convErr error
		v.AsTable().Entries(func(key, val value.Value) bool {
			p, err := ToPlain(val)
			if err != nil {
				convErr = err
				return false
			}
			out[key.ToString()] = p
			return true
		})
		return out, convErr
	default:
		return nil, fmt.Errorf("cannot encode a %s", v.TypeName())
	}
}

// FromPlain converts decoded JSON data into script values.
func FromPlain(g *gc.GC, plain interface{}) value.Value {
	switch p := plain.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.Bool(p)
	case float64:
		return value.Number(p)
	case string:
		return value.Object(g.NewString(p))
	case []interface{}:
		list := g.NewList()
		g.PushTempRoot(list)
		defer g.PopTempRoot()
		for _, e := range p {
			list.Elems = append(list.Elems, FromPlain(g, e))
		}
		return value.Object(list)
	case map[string]interface{}:
		table := g.NewTable()
		g.PushTempRoot(table)
		defer g.PopTempRoot()
		for k, e := range p {
			key := g.NewString(k)
			g.PushTempRoot(key)
			table.Set(value.Object(key), FromPlain(g, e))
			g.PopTempRoot()
		}
		return value.Object(table)
	default:
		return value.Nil()
	}
}
