package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/rpc"
)

func status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona status [options]

Show the ledger a node serves: token identity, supply, pause state,
and the current stream position.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona status --url http://localhost:8700`)
	}
	fs.Parse(args)

	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	client := rpc.NewClient(base)
	resp, err := client.Status(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Ledger:     %s\n", resp.Ledger)
	fmt.Printf("Deployer:   %s\n", resp.Deployer)
	fmt.Printf("Stream:     %s\n", resp.Stream)
	fmt.Printf("Token:      %s (%s), %d decimals\n", resp.Name, resp.Symbol, resp.Decimals)
	fmt.Printf("Supply:     %s %s\n", formatTokens(resp.TotalSupply), resp.Symbol)
	fmt.Printf("Paused:     %v\n", resp.Paused)
	fmt.Printf("Sequence:   %d\n", resp.Sequence)
	fmt.Printf("Version:    %d\n", resp.Version)
	fmt.Printf("State root: %s\n", resp.StateRoot)
	fmt.Printf("Applied:    %d transactions (%d rejected)\n", resp.Stats.Applied, resp.Stats.Rejected)
	return nil
}
