package repl

import (
	"strings"
	"testing"
)

func runInput(t *testing.T, input string, interactive bool) string {
	t.Helper()
	var out strings.Builder
	run(strings.NewReader(input), &out, interactive, "0.0.0-test")
	return out.String()
}

func TestEvaluatesLines(t *testing.T) {
	out := runInput(t, "print(1 + 2);\n", false)
	if out != "3\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestExitStopsSession(t *testing.T) {
	out := runInput(t, "print(1);\nexit\nprint(2);\n", false)
	if out != "1\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestStatePersistsBetweenLines(t *testing.T) {
	out := runInput(t, "var x = 10;\nprint(x * 2);\n", false)
	if out != "20\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestFunctionsPersistBetweenLines(t *testing.T) {
	out := runInput(t, "fun inc(n) { return n + 1; }\nprint(inc(4));\n", false)
	if out != "5\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestErrorDoesNotKillSession(t *testing.T) {
	out := runInput(t, "print(1 / 0);\nprint(5);\n", false)
	if !strings.Contains(out, "Division by zero") {
		t.Fatalf("missing error in %q", out)
	}
	if !strings.HasSuffix(out, "5\n") {
		t.Fatalf("session died after error: %q", out)
	}
}

func TestParseErrorReported(t *testing.T) {
	out := runInput(t, "var = = =\nprint(7);\n", false)
	if !strings.HasSuffix(out, "7\n") {
		t.Fatalf("session died after parse error: %q", out)
	}
	if out == "7\n" {
		t.Fatal("parse error was silent")
	}
}

func TestBannerAndPromptOnlyWhenInteractive(t *testing.T) {
	quiet := runInput(t, "exit\n", false)
	if quiet != "" {
		t.Fatalf("non-interactive output = %q", quiet)
	}
	chatty := runInput(t, "exit\n", true)
	if !strings.Contains(chatty, "rowan 0.0.0-test") || !strings.Contains(chatty, prompt) {
		t.Fatalf("interactive output = %q", chatty)
	}
}

func TestBlankLinesIgnored(t *testing.T) {
	out := runInput(t, "\n\nprint(9);\n\n", false)
	if out != "9\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestBuiltinModulesAvailable(t *testing.T) {
	out := runInput(t, "import math;\nprint(math.floor(3.9));\n", false)
	if out != "3\n" {
		t.Fatalf("output = %q", out)
	}
}
