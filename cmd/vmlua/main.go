// Command vmlua is the driver for the lexer → parser → emitter → VM
// pipeline. Its contractual surface is "vmlua <input_file>" (spec §6);
// everything else (tokens/ast/disasm subcommands, --version, --help)
// is ambient CLI convenience, in the shape of the teacher's
// cmd/flowa driver.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"vmlua/pkg/ast"
	"vmlua/pkg/emitter"
	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
	"vmlua/pkg/program"
	"vmlua/pkg/token"
	"vmlua/pkg/vm"
)

const (
	versionNumber = "0.1.0"
	buildDate     = "dev"
	gitCommit     = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("Error: missing input file")
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
	case "tokens":
		requireFile("tokens", os.Args)
		printTokens(os.Args[2])
		return
	case "ast":
		requireFile("ast", os.Args)
		printAST(os.Args[2])
		return
	case "disasm":
		requireFile("disasm", os.Args)
		printDisasm(os.Args[2])
		return
	}

	runFile(command)
}

func requireFile(sub string, args []string) {
	if len(args) < 3 {
		fmt.Printf("Usage: vmlua %s <file>\n", sub)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: vmlua <input_file>")
}

func printHelp() {
	fmt.Println("vmlua — a minimal Lua-like compiler and stack-machine VM")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vmlua <file>            Compile and run a script")
	fmt.Println("  vmlua tokens <file>     Print the lexer's token stream")
	fmt.Println("  vmlua ast <file>        Print the parsed AST")
	fmt.Println("  vmlua disasm <file>     Print the compiled instruction stream")
	fmt.Println("  vmlua version           Show version information")
	fmt.Println("  vmlua help              Show this help message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -v, --version           Show version information")
	fmt.Println("  -h, --help              Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  VM_LUA_DEBUG=1          Enable the interactive step debugger")
}

func printVersion() {
	fmt.Printf("vmlua %s\n", versionNumber)
	fmt.Printf("Build Date: %s\n", buildDate)
	fmt.Printf("Git Commit: %s\n", gitCommit)
}

// runFile is the contractual entry point: read, lex+parse+compile,
// run. Exit code 0 on success; 1 on a missing argument or unreadable
// file, with the message printed followed by the usage string
// (spec §6). Any downstream error also exits non-zero.
func runFile(filename string) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		printUsage()
		os.Exit(1)
	}

	prog, err := compile(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Println("-- parsed and compiled --")

	machine := vm.New(os.Stdout)
	machine.SetDebug(os.Getenv("VM_LUA_DEBUG") == "1")

	if err := machine.Run(prog); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Println("-- done --")
}

func printTokens(filename string) {
	content := readFileOrExit(filename)
	l := lexer.New(string(content))
	for {
		tok, err := l.NextToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%-11s %-20s (%s)\n", tok.Kind, fmt.Sprintf("%q", tok.Literal), tok.Loc)
		if tok.Kind == token.EOF {
			break
		}
	}
}

func printAST(filename string) {
	content := readFileOrExit(filename)
	tree := parseOrExit(string(content))
	fmt.Println(tree.String())
}

func printDisasm(filename string) {
	content := readFileOrExit(filename)
	prog, err := compile(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Print(prog.Disassemble())
}

func readFileOrExit(filename string) []byte {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		printUsage()
		os.Exit(1)
	}
	return content
}

func parseOrExit(src string) *ast.Program {
	l := lexer.New(src)
	p, err := parser.New(l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lex error: %s\n", err)
		os.Exit(1)
	}
	tree, err := p.Parse()
	if len(p.Errors()) != 0 {
		for _, msg := range p.Errors() {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse failed: %s\n", err)
		os.Exit(1)
	}
	return tree
}

func compile(src string) (*program.Program, error) {
	tree := parseOrExit(src)
	prog, err := emitter.New().Compile(tree)
	if err != nil {
		return nil, fmt.Errorf("compilation failed: %w", err)
	}
	return prog, nil
}
