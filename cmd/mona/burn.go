package main

import (
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func burn(args []string) error {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona burn <amount> [options]

Destroy tokens held by the caller, shrinking total supply. Amounts are
in whole tokens.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona burn 200
  mona burn 0.5 --caller 0x1f98...f984`)
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("burn requires <amount>")
	}

	amount, err := token.ParseAmount(fs.Arg(0))
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
		Op:     string(host.OpBurn),
		Caller: caller.String(),
		Amount: amount.Dec(),
	})
}
