package modules

import (
	"strings"
	"testing"

	"rowan/internal/compiler"
	"rowan/internal/gc"
	"rowan/internal/lexer"
	"rowan/internal/parser"
	"rowan/internal/value"
	"rowan/internal/vm"
)

func run(t *testing.T, source string) string {
	t.Helper()
	g := gc.New()
	sc := lexer.NewScanner(source, "test.rn")
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		t.Fatalf("scan errors: %v", sc.Errors)
	}
	p := parser.NewParserWithSource(tokens, source, "test.rn")
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	c := compiler.New(g, "test.rn")
	fn, err := c.Compile(stmts)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := vm.New(g)
	RegisterGlobals(machine)
	machine.SetModuleLoader(func(path string) (value.Value, error) {
		if mod, ok := Builtin(g, path); ok {
			return mod, nil
		}
		return value.Nil(), nil
	})
	var sb strings.Builder
	machine.SetOutput(func(s string) { sb.WriteString(s) })
	if _, err := machine.Interpret(fn, nil); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return sb.String()
}

func TestMathModule(t *testing.T) {
	got := run(t, `
		import math;
		print(math.sqrt(16), math.abs(-3), math.floor(2.7), math.ceil(2.1));
		print(math.pow(2, 10));
		print(math.pi > 3.14 and math.pi < 3.15);
		var r = math.random();
		print(r >= 0 and r < 1);`)
	want := "4 3 2 3\n1024\ntrue\ntrue\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFromImport(t *testing.T) {
	got := run(t, "from math import floor, sqrt; print(floor(2.9), sqrt(9));")
	if got != "2 3\n" {
		t.Errorf("got %q", got)
	}
}

func TestStringModule(t *testing.T) {
	got := run(t, `
		import string;
		print(string.upper("abc"), string.lower("ABC"));
		print(string.sub("hello", 1, 4));
		print(string.find("hello", "ll"), string.find("hello", "zz"));
		print(string.trim("  pad  "));
		var parts = string.split("a,b,c", ",");
		print(len(parts), parts[1]);
		print(string.join(parts, "-"));`)
	want := "ABC abc\nell\n2 -1\npad\n3 b\na-b-c\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	got := run(t, `
		import json;
		var data = json.decode("{\"name\": \"ada\", \"tags\": [1, 2], \"ok\": true}");
		print(data["name"], data["ok"], data["tags"][1]);
		print(json.encode([1, "two", nil]));`)
	want := "ada true 2\n[1,\"two\",null]\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestJSONEncodeRejectsFunctions(t *testing.T) {
	g := gc.New()
	modVal, ok := Builtin(g, "json")
	if !ok {
		t.Fatal("json module missing")
	}
	encode := modVal.AsModule().Exports["encode"].AsNative()
	fn := g.NewFunction("f", nil)
	if _, err := encode.Fn([]value.Value{value.Object(fn)}); err == nil {
		t.Fatal("expected an encode error for a function value")
	}
}

func TestTimeModule(t *testing.T) {
	got := run(t, `
		import time;
		var t0 = time.now();
		print(t0 > 1000000000);
		print(time.clock() >= 0);
		print(time.format(0, "2006") == "1970" or time.format(0, "2006") == "1969");`)
	want := "true\ntrue\ntrue\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestListNatives(t *testing.T) {
	got := run(t, `
		var xs = [1];
		push(xs, 2);
		push(xs, 3);
		print(len(xs), pop(xs), len(xs));
		print(pop([]));`)
	want := "3 3 2\nnil\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestConversionNatives(t *testing.T) {
	got := run(t, `
		print(tonumber("42"), tonumber(" 3.5 "), tonumber("nope"));
		print(tostring(1) + tostring(true));
		print(type(1), type("s"), type([1]), type({}), type(nil));`)
	want := "42 3.5 nil\n1true\nnumber string list table nil\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestUUIDNative(t *testing.T) {
	got := run(t, "var a = uuid(); var b = uuid(); print(len(a), a != b);")
	if got != "36 true\n" {
		t.Errorf("got %q", got)
	}
}

func TestGCNatives(t *testing.T) {
	got := run(t, `
		var before = gc_count();
		gc_collect();
		print(before >= 0, gc_count() >= 0);`)
	if got != "true true\n" {
		t.Errorf("got %q", got)
	}
}

func TestBuiltinLookup(t *testing.T) {
	if !IsBuiltin("math") || !IsBuiltin("json") {
		t.Error("expected math and json to be builtins")
	}
	if IsBuiltin("nosuch") {
		t.Error("nosuch should not be a builtin")
	}
	g := gc.New()
	if _, ok := Builtin(g, "nosuch"); ok {
		t.Error("Builtin should reject unknown names")
	}
}
