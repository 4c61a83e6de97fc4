// Command debug_vm runs a small fixed snippet through the full
// lex-parse-emit-run pipeline, printing the symbol count and the
// disassembly before running it.
// A quick dev tool, not part of the vmlua CLI contract.
package main

import (
	"fmt"
	"os"

	"vmlua/pkg/emitter"
	"vmlua/pkg/lexer"
	"vmlua/pkg/parser"
	"vmlua/pkg/vm"
)

func main() {
	input := `
function add(a, b)
  return a + b;
end
print(add(2, 3));
`

	l := lexer.New(input)
	p, err := parser.New(l)
	if err != nil {
		panic(err)
	}

	ast, err := p.Parse()
	if err != nil {
		panic(err)
	}

	prog, err := emitter.New().Compile(ast)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Symbols: %d\n", len(prog.Symbols))
	fmt.Printf("Instructions (%d):\n%s\n", len(prog.Instructions), prog.Disassemble())

	machine := vm.New(os.Stdout)
	if err := machine.Run(prog); err != nil {
		panic(err)
	}
}
