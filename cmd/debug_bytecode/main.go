// Command debug_bytecode compiles a source file and prints its
// disassembly alongside the symbol table. A quick dev tool, not part
// of the vmlua CLI contract; replaces what used to be two separate
// teacher-era tools (debug_bytecode and inspect_bytecode) now that the
// instruction stream is no longer byte-packed and there is nothing
// left to hex-dump.
package main

import (
	"fmt"
	"os"

	"vmlua/pkg/emitter"
	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug_bytecode <file>")
		os.Exit(1)
	}

	content, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	l := lexer.New(string(content))
	p, err := parser.New(l)
	if err != nil {
		fmt.Printf("lex error: %s\n", err)
		os.Exit(1)
	}

	ast, err := p.Parse()
	if err != nil {
		fmt.Printf("parse failed: %s\n", err)
		os.Exit(1)
	}

	prog, err := emitter.New().Compile(ast)
	if err != nil {
		fmt.Printf("compilation failed: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Symbols (%d):\n", len(prog.Symbols))
	for name, sym := range prog.Symbols {
		fmt.Printf("  %-20s loc=%-5d nargs=%-3d nlocals=%d\n", name, sym.Loc, sym.NArgs, sym.NLocals)
	}

	fmt.Printf("\nInstructions (%d):\n", len(prog.Instructions))
	fmt.Print(prog.Disassemble())
}
