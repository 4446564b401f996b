// Command wsccli is the thin CLI adapter spec.md §6 describes: "Reads a
// Scheme source file path and an output path, calls compile_module, writes
// bytes. Exit code 0 on success; non-zero with message on any error."
//
// Grounded on the teacher's cmd/ailang/main.go: the flag.Bool banner
// flags, fatih/color-wrapped diagnostics, and subcommand dispatch
// (flag.Arg(0) switch) all follow that file's shape. The repl subcommand
// additionally follows internal/repl/repl.go's peterh/liner read loop,
// feeding each line to the same Compiler session so definitions made in
// one line are visible to the next, the way the teacher's REPL keeps one
// persistent evaluator across prompts.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/webschembly/wsc/internal/compiler"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "print version information")
		helpFlag    = flag.Bool("help", false, "show help")
		jitFlag     = flag.Bool("jit", false, "enable JIT module splitting")
		stdlibFlag  = flag.Bool("stdlib", false, "compile the input as a stdlib module")
	)
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	cfg := compiler.Config{}
	if *jitFlag {
		cfg.Jit = &compiler.JitConfig{Enabled: true}
	}

	switch command := flag.Arg(0); command {
	case "compile":
		if flag.NArg() < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing arguments\n", red("Error"))
			fmt.Println("Usage: wsccli compile <input.scm> <output>")
			os.Exit(1)
		}
		compileFile(cfg, flag.Arg(1), flag.Arg(2), *stdlibFlag)

	case "repl":
		runREPL(cfg)

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("wsccli %s\n", bold("dev"))
	fmt.Println("Scheme-to-WebAssembly compiler with staged JIT specialization")
}

func printHelp() {
	fmt.Println(bold("wsccli - the Webschembly compiler CLI"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wsccli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <in> <out>   Compile a Scheme source file to a module\n", cyan("compile"))
	fmt.Printf("  %s              Start an interactive session\n", cyan("repl"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --jit        Enable JIT module splitting in compile_module")
	fmt.Println("  --stdlib     Mark the compiled module as a stdlib module")
	fmt.Println("  --version    Print version information")
	fmt.Println("  --help       Show this help message")
}

// compileFile implements spec.md §6's CLI adapter exactly: read input,
// call compile_module, write output, exit non-zero with a message on any
// error.
func compileFile(cfg compiler.Config, inPath, outPath string, isStdlib bool) {
	src, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %q: %v\n", red("Error"), inPath, err)
		os.Exit(1)
	}

	c := compiler.New(cfg)
	out, err := c.CompileModule(string(src), isStdlib)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot write %q: %v\n", red("Error"), outPath, err)
		os.Exit(1)
	}

	fmt.Printf("%s wrote %s (%d bytes)\n", green("✓"), outPath, len(out))
}

// runREPL compiles each line the user enters as its own module against one
// shared Compiler session, so top-level defines accumulate the way the
// teacher's REPL keeps one persistent evaluator across prompts.
func runREPL(cfg compiler.Config) {
	c := compiler.New(cfg)

	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	fmt.Println(bold("wsccli"), bold("dev"))
	fmt.Println("Type an expression; :quit to exit.")

	for {
		input, err := line.Prompt("wsc> ")
		if err == io.EOF {
			fmt.Println(green("\nGoodbye!"))
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			continue
		}
		if input == ":quit" {
			fmt.Println(green("Goodbye!"))
			return
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		out, err := c.CompileModule(input, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			continue
		}
		fmt.Printf("%s %s\n", cyan("=>"), out)
	}
}
