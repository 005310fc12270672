package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/rpc"
)

func verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona verify [options]

Ask the node to check every declared constraint against its live
state. A healthy ledger reports no violations; any violation means
the event history and the contract declaration disagree.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona verify --url http://localhost:8700`)
	}
	fs.Parse(args)

	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	resp, err := rpc.NewClient(base).Verify(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Sequence:    %d\n", resp.Sequence)
	fmt.Printf("State root:  %s\n", resp.StateRoot)
	fmt.Printf("Constraints: %d\n", resp.Constraints)
	if resp.OK {
		fmt.Println("Result:      ok")
		return nil
	}
	fmt.Println("Result:      VIOLATED")
	for _, v := range resp.Violations {
		fmt.Printf("  %s\n", v)
	}
	return fmt.Errorf("%d constraint violation(s)", len(resp.Violations))
}
