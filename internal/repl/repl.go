// Package repl implements the interactive prompt. One VM lives for the
// whole session, so globals, imports, and class definitions persist
// between lines.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"rowan/internal/compiler"
	"rowan/internal/gc"
	"rowan/internal/lexer"
	"rowan/internal/loader"
	"rowan/internal/modules"
	"rowan/internal/parser"
	"rowan/internal/value"
	"rowan/internal/vm"
)

const prompt = ">>> "

// Start runs the interactive loop on stdin until EOF or "exit". The
// banner and prompt appear only when stdin is a terminal, so piping a
// script through the REPL produces clean output.
func Start(version string) {
	fd := os.Stdin.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	run(os.Stdin, os.Stdout, interactive, version)
}

func run(in io.Reader, out io.Writer, interactive bool, version string) {
	if interactive {
		fmt.Fprintf(out, "rowan %s | type 'exit' to quit\n", version)
	}

	g := gc.New()
	machine := vm.New(g)
	machine.SetOutput(func(s string) { fmt.Fprint(out, s) })
	modules.RegisterGlobals(machine)

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	loader.New(g, machine, wd)

	// Each session gets its own module identity so nothing collides with
	// a file module named "repl" on the search path.
	session := g.NewModule("repl", "repl:"+uuid.NewString())
	g.PushTempRoot(session)
	defer g.PopTempRoot()

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}
		eval(machine, g, session, line, out)
	}
}

// eval compiles and runs one input line in the session module. Errors
// are printed and the loop continues.
func eval(machine *vm.VM, g *gc.GC, session *value.Module, line string, out io.Writer) {
	sc := lexer.NewScanner(line, "<repl>")
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		fmt.Fprintln(out, sc.Errors[0])
		return
	}
	p := parser.NewParserWithSource(tokens, line, "<repl>")
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		fmt.Fprintln(out, p.Errors[0])
		return
	}
	c := compiler.New(g, "<repl>")
	c.SetInteractive(true)
	fn, err := c.Compile(stmts)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	if _, err := machine.Interpret(fn, session); err != nil {
		fmt.Fprintln(out, err)
	}
}
