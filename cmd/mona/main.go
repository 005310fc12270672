package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/rpc"
	"github.com/pflow-xyz/go-mona/token"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "deploy":
		if err := deploy(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "node":
		if err := node(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := status(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "balance":
		if err := balance(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "transfer":
		if err := transfer(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mint":
		if err := mint(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "burn":
		if err := burn(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "approve":
		if err := approve(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "allowance":
		if err := allowance(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "pause":
		if err := pause(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "unpause":
		if err := unpause(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "role":
		if err := role(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "events":
		if err := events(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "schema":
		if err := schema(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "analyze":
		if err := analyze(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "verify":
		if err := verify(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "prove":
		if err := prove(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "sol":
		if err := sol(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("mona version 1.0.0 (%s %s, %d decimals)\n", token.Name, token.Symbol, token.Decimals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mona - Monad Token ledger node and client

Usage:
  mona <command> [options]

Node:
  node       Run a ledger node
  deploy     Deploy the ledger to a node (MONA_PRIVATE_KEY, MONA_RPC_URL)

Queries:
  status     Show the ledger the node serves
  balance    Show an account balance
  allowance  Show a spender's remaining allowance
  events     Show committed events, optionally following new ones

Transactions:
  transfer   Move tokens (--from spends an allowance)
  mint       Create new tokens (minter role)
  burn       Destroy caller-held tokens
  approve    Set a spender's allowance
  pause      Halt transfers (pauser role)
  unpause    Resume transfers (pauser role)
  role       Grant, revoke, or show roles (admin role)

Contract:
  schema     Show the contract declaration
  analyze    Structural analysis of the contract
  verify     Check declared constraints against live state
  prove      Generate a zk proof against live state
  sol        Render the contract as Solidity

Environment:
  MONA_PRIVATE_KEY  Hex ed25519 seed; the caller address derives from it
  MONA_RPC_URL      Node URL used when --url is not given

Examples:
  # Run a node with a durable store
  mona node --addr :8700 --db mona.db

  # Deploy and inspect
  MONA_PRIVATE_KEY=... MONA_RPC_URL=http://localhost:8700 mona deploy
  mona status --url http://localhost:8700

  # Move value
  mona transfer 0xabc... 250 --url http://localhost:8700
  mona mint 0xabc... 1000 --url http://localhost:8700

  # Watch the event stream
  mona events --follow --url http://localhost:8700

For command-specific help, run:
  mona <command> --help`)
}

// rpcURL resolves the node address: an explicit flag wins, then
// MONA_RPC_URL.
func rpcURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("MONA_RPC_URL"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("node URL required: pass --url or set MONA_RPC_URL")
}

// signerAddress resolves the account a transaction executes as: an
// explicit --caller address wins, otherwise the address derives from
// MONA_PRIVATE_KEY.
func signerAddress(flagValue string) (token.Address, error) {
	if flagValue != "" {
		return token.ParseAddress(flagValue)
	}
	key := os.Getenv("MONA_PRIVATE_KEY")
	if key == "" {
		return token.Address{}, fmt.Errorf("caller required: pass --caller or set MONA_PRIVATE_KEY")
	}
	return addressFromKey(key)
}

// addressFromKey derives the account address from a hex-encoded
// ed25519 seed.
func addressFromKey(hexSeed string) (token.Address, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexSeed), "0x"))
	if err != nil {
		return token.Address{}, fmt.Errorf("decode MONA_PRIVATE_KEY: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return token.Address{}, fmt.Errorf("MONA_PRIVATE_KEY must be a %d-byte seed, got %d bytes", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return token.AddressFromPubKey(priv.Public().(ed25519.PublicKey)), nil
}

// formatTokens renders a base-unit decimal string in whole tokens.
func formatTokens(baseUnits string) string {
	v, err := uint256.FromDecimal(baseUnits)
	if err != nil {
		return baseUnits
	}
	return token.FormatAmount(v)
}

// submitAndPrint sends a transaction, renders its receipt, and fails
// when the ledger rejected it.
func submitAndPrint(c *rpc.Client, req rpc.TxRequest) error {
	receipt, err := c.Submit(context.Background(), req)
	if err != nil {
		return err
	}
	printReceipt(receipt)
	if !receipt.Applied() {
		return fmt.Errorf("transaction rejected")
	}
	return nil
}

func printReceipt(receipt *host.Receipt) {
	fmt.Printf("Status:     %s\n", receipt.Status)
	if receipt.Error != "" {
		fmt.Printf("Reason:     %s\n", receipt.Error)
	}
	fmt.Printf("Tx:         %s\n", receipt.TxID)
	fmt.Printf("Sequence:   %d\n", receipt.Sequence)
	fmt.Printf("State root: %s\n", receipt.StateRoot)
	for _, ev := range receipt.Events {
		fmt.Printf("Event:      %s\n", formatEvent(ev))
	}
}
