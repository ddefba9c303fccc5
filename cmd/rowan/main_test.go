package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// capture redirects stdout around f. Script output goes through the
// VM's default writer, which resolves os.Stdout at each call.
func capture(t *testing.T, f func() int) (string, int) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	code := f()
	w.Close()
	os.Stdout = old
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data), code
}

func runScript(t *testing.T, files map[string]string, entry string) (string, int) {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return capture(t, func() int {
		return runFile(filepath.Join(dir, entry), false)
	})
}

func TestArithmeticAndPrint(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"main.rn": "print(1 + 2 * 3);\n",
	}, "main.rn")
	if code != exitOK || out != "7\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestClosuresAndUpvalues(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"main.rn": `
fun make() { var x = 10; fun inc() { x = x + 1; return x; } return inc; }
var f = make(); print(f()); print(f()); print(f());
`,
	}, "main.rn")
	if code != exitOK || out != "11\n12\n13\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestClassOperatorOverload(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"main.rn": `
class V { fun init(x) { this.x = x; } fun __add__(o) { return V(this.x + o.x); } }
var a = V(2); var b = V(3); print((a + b).x);
`,
	}, "main.rn")
	if code != exitOK || out != "5\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestForEachTableOrderedKeys(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"main.rn": `
var t = {b: 2, a: 1, c: 3};
for (var k in t) { print(k); }
`,
	}, "main.rn")
	if code != exitOK || out != "a\nb\nc\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestModuleImportAndExport(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"mymod.rn": "export var answer = 42;\n",
		"main.rn":  "from mymod import answer; print(answer);\n",
	}, "main.rn")
	if code != exitOK || out != "42\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestSlicing(t *testing.T) {
	out, code := runScript(t, map[string]string{
		"main.rn": "var xs = [10,20,30,40]; var ys = xs[1:3]; print(ys[0]); print(ys[1]);\n",
	}, "main.rn")
	if code != exitOK || out != "20\n30\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestVersionFlag(t *testing.T) {
	out, code := capture(t, func() int { return run([]string{"--version"}) })
	if code != exitOK || !strings.HasPrefix(out, "rowan ") {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestHelpFlag(t *testing.T) {
	out, code := capture(t, func() int { return run([]string{"-h"}) })
	if code != exitOK || !strings.Contains(out, "Usage:") {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	_, code := capture(t, func() int { return run([]string{"--bogus"}) })
	if code != exitUsage {
		t.Fatalf("code=%d", code)
	}
}

func TestTooManyArgumentsIsUsageError(t *testing.T) {
	_, code := capture(t, func() int { return run([]string{"one.rn", "two.rn"}) })
	if code != exitUsage {
		t.Fatalf("code=%d", code)
	}
}

func TestUnreadableFileExitCode(t *testing.T) {
	_, code := capture(t, func() int {
		return runFile(filepath.Join(t.TempDir(), "absent.rn"), false)
	})
	if code != exitIOErr {
		t.Fatalf("code=%d", code)
	}
}

func TestCompileErrorExitCode(t *testing.T) {
	_, code := runScript(t, map[string]string{
		"main.rn": "var = = =\n",
	}, "main.rn")
	if code != exitDataErr {
		t.Fatalf("code=%d", code)
	}
}

func TestRuntimeErrorExitCode(t *testing.T) {
	_, code := runScript(t, map[string]string{
		"main.rn": "print(1 / 0);\n",
	}, "main.rn")
	if code != exitDataErr {
		t.Fatalf("code=%d", code)
	}
}

func TestDisasmListsBytecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rn")
	if err := os.WriteFile(path, []byte("print(1 + 2);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, code := capture(t, func() int { return runFile(path, true) })
	if code != exitOK {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(out, "== main.rn ==") || !strings.Contains(out, "ADD") {
		t.Fatalf("listing = %q", out)
	}
}

func TestGCThresholdEnv(t *testing.T) {
	t.Setenv("ROWAN_GC_THRESHOLD", "64")
	out, code := runScript(t, map[string]string{
		"main.rn": `
var total = 0;
for (var i = 0; i < 500; i = i + 1) {
    var xs = [i, i + 1];
    total = total + xs[0];
}
print(total);
`,
	}, "main.rn")
	if code != exitOK || out != "124750\n" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}
