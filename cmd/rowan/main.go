package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tliron/commonlog"

	"rowan/internal/compiler"
	"rowan/internal/gc"
	"rowan/internal/lexer"
	"rowan/internal/loader"
	"rowan/internal/modules"
	"rowan/internal/parser"
	"rowan/internal/repl"
	"rowan/internal/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// Exit codes follow BSD sysexits.
const (
	exitOK      = 0
	exitUsage   = 64
	exitDataErr = 65
	exitIOErr   = 74
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		disasm  bool
		verbose bool
		script  string
	)
	for _, arg := range args {
		switch arg {
		case "--version", "-v":
			fmt.Printf("rowan %s\n", version)
			return exitOK
		case "--help", "-h":
			usage(os.Stdout)
			return exitOK
		case "--disasm":
			disasm = true
		case "--verbose":
			verbose = true
		default:
			if len(arg) > 0 && arg[0] == '-' {
				fmt.Fprintf(os.Stderr, "rowan: unknown flag %s\n", arg)
				usage(os.Stderr)
				return exitUsage
			}
			if script != "" {
				fmt.Fprintln(os.Stderr, "rowan: too many arguments")
				usage(os.Stderr)
				return exitUsage
			}
			script = arg
		}
	}

	if verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if script == "" {
		repl.Start(version)
		return exitOK
	}
	return runFile(script, disasm)
}

func runFile(path string, disasm bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rowan: cannot read %s: %v\n", path, err)
		return exitIOErr
	}

	g := gc.New()
	if env := os.Getenv("ROWAN_GC_THRESHOLD"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			g.SetThreshold(n)
		}
	}

	sc := lexer.NewScanner(string(source), path)
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		fmt.Fprintln(os.Stderr, sc.Errors[0])
		return exitDataErr
	}
	p := parser.NewParserWithSource(tokens, string(source), path)
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		fmt.Fprintln(os.Stderr, p.Errors[0])
		return exitDataErr
	}
	c := compiler.New(g, path)
	fn, err := c.Compile(stmts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitDataErr
	}

	if disasm {
		fmt.Print(fn.Chunk.Disassemble(filepath.Base(path)))
		return exitOK
	}

	machine := vm.New(g)
	modules.RegisterGlobals(machine)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	loader.New(g, machine, filepath.Dir(abs))

	mod := g.NewModule("main", path)
	g.PushTempRoot(mod)
	defer g.PopTempRoot()

	if _, err := machine.Interpret(fn, mod); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitDataErr
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `rowan %s

Usage:
  rowan [flags] [script.rn]

With no script, rowan starts an interactive session.

Flags:
  -v, --version   print the version and exit
  -h, --help      print this help and exit
      --disasm    print the compiled bytecode instead of running
      --verbose   enable debug logging

Environment:
  ROWAN_PATH           extra module search directories
  ROWAN_GC_THRESHOLD   allocated bytes that trigger the first collection
`, version)
}
