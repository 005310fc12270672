package main

import (
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func transfer(args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fromFlag := fs.String("from", "", "Spend from this account using the caller's allowance")
	fs.Usage = func() {
		fmt.Println(`Usage: mona transfer <to> <amount> [options]

Move tokens from the caller to another account. Amounts are in whole
tokens ("250", "1.5"). With --from the tokens move out of that account
instead, drawing down the allowance it granted the caller.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona transfer 0x1f98...f984 250
  mona transfer 0x1f98...f984 1.5 --from 0x7a25...cc45`)
	}
	fs.Parse(args)

	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("transfer requires <to> and <amount>")
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

	req := rpc.TxRequest{
		Op:     string(host.OpTransfer),
		Caller: caller.String(),
		To:     to.String(),
		Amount: amount.Dec(),
	}
	if *fromFlag != "" {
		from, err := token.ParseAddress(*fromFlag)
		if err != nil {
			return err
		}
		req.Op = host.OpTransferFrom
		req.From = from.String()
	}
	return submitAndPrint(rpc.NewClient(base), req)
}
