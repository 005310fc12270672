package main

import (
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
)

func pause(args []string) error {
	return setPaused("pause", string(host.OpPause), args)
}

func unpause(args []string) error {
	return setPaused("unpause", string(host.OpUnpause), args)
}

func setPaused(name, op string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fs.Usage = func() {
		fmt.Printf(`Usage: mona %s [options]

Flip the transfer switch. The caller must hold the pauser role.
While paused, transfer and transferFrom are rejected; mint, burn,
approvals, and role changes still apply.

Options:
`, name)
		fs.PrintDefaults()
		fmt.Printf(`
Examples:
  mona %s --url http://localhost:8700
`, name)
	}
	fs.Parse(args)

	caller, err := signerAddress(*callerFlag)
	if err != nil {
		return err
	}
	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	return submitAndPrint(rpc.NewClient(base), rpc.TxRequest{
		Op:     op,
		Caller: caller.String(),
	})
}
