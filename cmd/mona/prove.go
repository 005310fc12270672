package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pflow-xyz/go-mona/proof"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func prove(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	urlFlag := fs.String("url", "", "Node URL (defaults to MONA_RPC_URL)")
	callerFlag := fs.String("caller", "", "Caller address (defaults to MONA_PRIVATE_KEY)")
	fromFlag := fs.String("from", "", "Account the proof is about (defaults to the caller)")
	amountFlag := fs.String("amount", "", "Amount in whole tokens the proof covers")
	fs.Usage = func() {
		fmt.Printf(`Usage: mona prove <circuit> [options]

Ask the node to generate a zero-knowledge proof against its live
state. The "%s" circuit proves an account can cover an amount without
revealing its balance; "%s" proves a spender's allowance covers an
amount. The node must run with --prover.

Options:
`, proof.CircuitSolvency, proof.CircuitAllowance)
		fs.PrintDefaults()
		fmt.Printf(`
Examples:
  mona prove %s --amount 250
  mona prove %s --from 0x1f98...f984 --amount 100
`, proof.CircuitSolvency, proof.CircuitAllowance)
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("prove requires <circuit>")
	}
	circuit := fs.Arg(0)

	if *amountFlag == "" {
		return fmt.Errorf("prove requires --amount")
	}
	amount, err := token.ParseAmount(*amountFlag)
	if err != nil {
		return err
	}
	caller, err := signerAddress(*callerFlag)
	if err != nil {
		return err
	}
	from := caller
	if *fromFlag != "" {
		from, err = token.ParseAddress(*fromFlag)
		if err != nil {
			return err
		}
	}
	base, err := rpcURL(*urlFlag)
	if err != nil {
		return err
	}

	resp, err := rpc.NewClient(base).Prove(context.Background(), circuit, rpc.ProveRequest{
		From:   from.String(),
		Caller: caller.String(),
		Amount: amount.Dec(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Circuit:     %s (%d constraints)\n", resp.Circuit, resp.Constraints)
	fmt.Printf("Proof time:  %dms\n", resp.ProofTimeMs)
	if resp.Proof == nil {
		return fmt.Errorf("node returned no proof")
	}
	fmt.Println("\nProof:")
	for _, word := range resp.Proof.Proof {
		fmt.Printf("  %s\n", word)
	}
	fmt.Println("\nPublic inputs:")
	for _, word := range resp.Proof.PublicInputs {
		fmt.Printf("  %s\n", word)
	}
	return nil
}
