package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func allowance(args []string) error {
	fs := flag.NewFlagSet("allowance", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona allowance <owner> <spender> [options]

Show how much the spender may still move out of the owner's account.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona allowance 0x1f98...f984 0x7a25...cc45`)
	}
	fs.Parse(args)

	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("allowance requires <owner> and <spender>")
	}

	owner, err := token.ParseAddress(fs.Arg(0))
	if err != nil {
		return err
	}
	spender, err := token.ParseAddress(fs.Arg(1))
	if err != nil {
		return err
	}
	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	client := rpc.NewClient(base)
	resp, err := client.Allowance(context.Background(), owner, spender)
	if err != nil {
		return err
	}

	fmt.Printf("Owner:      %s\n", resp.Owner)
	fmt.Printf("Spender:    %s\n", resp.Spender)
	if resp.Unlimited {
		fmt.Println("Remaining:  unlimited")
		return nil
	}
	fmt.Printf("Remaining:  %s %s\n", resp.Tokens, token.Symbol)
	fmt.Printf("Base units: %s\n", resp.Remaining)
	return nil
}
