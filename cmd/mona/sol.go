package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/go-mona/codegen/solidity"
	"github.com/pflow-xyz/go-mona/token"
)

func sol(args []string) error {
	fs := flag.NewFlagSet("sol", flag.ExitOnError)
	output := fs.String("output", "", "Write the contract to a file instead of stdout")
	fs.Usage = func() {
		fmt.Println(`Usage: mona sol [options]

Render the token contract declaration as a Solidity contract. The
generated source mirrors the schema: one function per action with its
role and guard checks, one event per emit.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona sol
  mona sol --output MonadToken.sol`)
	}
	fs.Parse(args)

	src := solidity.Generate(token.Schema())

	if *output == "" {
		fmt.Print(src)
		return nil
	}
	if err := os.WriteFile(*output, []byte(src), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", *output, len(src))
	return nil
}
