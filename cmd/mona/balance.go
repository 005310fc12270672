package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func balance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona balance [address] [options]

Show an account's token balance. With no address the account derives
from MONA_PRIVATE_KEY.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona balance 0x1f9840a85d5af5bf1d1762f925bdaddc4201f984
  mona balance --url http://localhost:8700`)
	}
	fs.Parse(args)

	var account token.Address
	var err error
	if fs.NArg() > 0 {
		account, err = token.ParseAddress(fs.Arg(0))
	} else {
		account, err = signerAddress("")
	}
	if err != nil {
		return err
	}

	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	client := rpc.NewClient(base)
	resp, err := client.Balance(context.Background(), account)
	if err != nil {
		return err
	}

	fmt.Printf("Account:    %s\n", resp.Address)
	fmt.Printf("Balance:    %s %s\n", resp.Tokens, token.Symbol)
	fmt.Printf("Base units: %s\n", resp.Balance)
	return nil
}
