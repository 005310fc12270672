package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func role(args []string) error {
	fs := flag.NewFlagSet("role", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona role <grant|revoke> <role> <account> [options]
       mona role show [account] [options]

Manage the admin, minter, and pauser roles. Granting and revoking
require the caller to hold the admin role. "show" lists the roles an
account holds; with no account it shows the caller's.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona role grant minter 0x7a25...cc45
  mona role revoke pauser 0x7a25...cc45
  mona role show 0x7a25...cc45`)
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("role requires a subcommand")
	}

	switch verb := fs.Arg(0); verb {
	case "grant", "revoke":
		if fs.NArg() < 3 {
			fs.Usage()
			return fmt.Errorf("role %s requires <role> and <account>", verb)
		}
		r, err := token.ParseRole(fs.Arg(1))
		if err != nil {
			return err
		}
		account, err := token.ParseAddress(fs.Arg(2))
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
		op := host.OpGrantRole
		if verb == "revoke" {
			op = host.OpRevokeRole
		}
		return submitAndPrint(rpc.NewClient(base), rpc.TxRequest{
			Op:      string(op),
			Caller:  caller.String(),
			Account: account.String(),
			Role:    string(r),
		})

	case "show":
		var account token.Address
		var err error
		if fs.NArg() > 1 {
			account, err = token.ParseAddress(fs.Arg(1))
		} else {
			account, err = signerAddress(*callerFlag)
		}
		if err != nil {
			return err
		}
		base, err := rpcURL(*urlFlag)
		if err != nil {
			return err
		}
		resp, err := rpc.NewClient(base).Roles(context.Background(), account)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(resp.Roles))
		for name := range resp.Roles {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("Account: %s\n", resp.Account)
		for _, name := range names {
			held := "no"
			if resp.Roles[name] {
				held = "yes"
			}
			fmt.Printf("  %-8s %s\n", name, held)
		}
		return nil

	default:
		fs.Usage()
		return fmt.Errorf("unknown role subcommand: %s", verb)
	}
}
