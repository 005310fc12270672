package main

import (
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func approve(args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona approve <spender> <amount> [options]

Set the allowance a spender may move out of the caller's account.
The new allowance replaces the old one; approving 0 revokes it. The
literal amount "max" grants an unlimited allowance that transfers
never draw down.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona approve 0x7a25...cc45 500
  mona approve 0x7a25...cc45 max
  mona approve 0x7a25...cc45 0`)
	}
	fs.Parse(args)

	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("approve requires <spender> and <amount>")
	}

	spender, err := token.ParseAddress(fs.Arg(0))
	if err != nil {
		return err
	}
	amount := token.MaxAllowance()
	if fs.Arg(1) != "max" {
		amount, err = token.ParseAmount(fs.Arg(1))
		if err != nil {
			return err
		}
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
		Op:      string(host.OpApprove),
		Caller:  caller.String(),
		Spender: spender.String(),
		Amount:  amount.Dec(),
	})
}
