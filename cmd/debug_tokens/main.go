// Command debug_tokens prints the token stream for a snippet of source
// passed as a single command-line argument. A quick dev tool, not part
// of the vmlua CLI contract.
package main

import (
	"fmt"
	"os"

	"vmlua/pkg/lexer"
	"vmlua/pkg/token"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug_tokens '<code>'")
		os.Exit(1)
	}

	input := os.Args[1]
	l := lexer.New(input)

	fmt.Printf("Input: %s\n\n", input)
	fmt.Println("Tokens:")
	fmt.Println("-------")

	for {
		tok, err := l.NextToken()
		if err != nil {
			fmt.Printf("lex error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%-11s %-20s (%s)\n", tok.Kind, fmt.Sprintf("%q", tok.Literal), tok.Loc)
		if tok.Kind == token.EOF {
			break
		}
	}
}
