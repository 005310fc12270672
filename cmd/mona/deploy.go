package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/go-mona/rpc"
)

func deploy(args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona deploy [options]

Deploy the Monad Token ledger to a node. The deployer address derives
from the MONA_PRIVATE_KEY environment variable (a hex ed25519 seed);
the deployer receives the initial supply and every role. Deploying a
second time as the same account is a no-op.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  MONA_PRIVATE_KEY=9d61b19d... MONA_RPC_URL=http://localhost:8700 mona deploy
  mona deploy --url http://localhost:8700`)
	}
	fs.Parse(args)

	key := os.Getenv("MONA_PRIVATE_KEY")
	if key == "" {
		return fmt.Errorf("MONA_PRIVATE_KEY required: the deployer address derives from it")
	}
	deployer, err := addressFromKey(key)
	if err != nil {
		return err
	}

	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	client := rpc.NewClient(base)
	resp, err := client.Deploy(context.Background(), deployer)
	if err != nil {
		return err
	}

	if resp.Created {
		fmt.Println("Ledger deployed")
	} else {
		fmt.Println("Ledger already deployed by this account")
	}
	fmt.Printf("Address:    %s\n", resp.Ledger)
	fmt.Printf("Deployer:   %s\n", resp.Deployer)
	fmt.Printf("Stream:     %s\n", resp.Stream)
	fmt.Printf("Token:      %s (%s), %d decimals\n", resp.Name, resp.Symbol, resp.Decimals)
	fmt.Printf("Supply:     %s %s\n", formatTokens(resp.TotalSupply), resp.Symbol)
	fmt.Printf("Version:    %d\n", resp.Version)
	fmt.Printf("State root: %s\n", resp.StateRoot)
	return nil
}
