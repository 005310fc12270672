package main

import (
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func mint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona mint <to> <amount> [options]

Create new tokens and credit them to an account. The caller must hold
the minter role. Amounts are in whole tokens.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona mint 0x1f98...f984 1000`)
	}
	fs.Parse(args)

	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("mint requires <to> and <amount>")
	}

	to, err := token.ParseAddress(fs.Arg(0))
	if err != nil {
		return err
	}
	amount, err := token.ParseAmount(fs.Arg(1))
	if err != nil {
		return err
	}
	caller, err := signerAddress(*callerFlag)
	if err != nil {
		return err
	}
	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	return submitAndPrint(rpc.NewClient(base), rpc.TxRequest{
		Op:     string(host.OpMint),
		Caller: caller.String(),
		To:     to.String(),
		Amount: amount.Dec(),
	})
}
