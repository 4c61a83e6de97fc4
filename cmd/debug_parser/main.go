// Command debug_parser prints the AST produced for a snippet of source
// passed as a single command-line argument. A quick dev tool, not part
// of the vmlua CLI contract.
package main

import (
	"fmt"
	"os"

	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug_parser '<code>'")
		os.Exit(1)
	}

	input := os.Args[1]
	l := lexer.New(input)
	p, err := parser.New(l)
	if err != nil {
		fmt.Printf("lex error: %s\n", err)
		os.Exit(1)
	}

	prog, err := p.Parse()
	if len(p.Errors()) != 0 {
		fmt.Println("Parser errors:")
		for _, msg := range p.Errors() {
			fmt.Printf("  %s\n", msg)
		}
		fmt.Println()
	}
	if err != nil {
		fmt.Printf("parse failed: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("AST:\n%s\n", prog.String())
}
