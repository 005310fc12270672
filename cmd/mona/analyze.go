package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/pflow-xyz/go-mona/analysis"
	"github.com/pflow-xyz/go-mona/token"
)

func analyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println(`Usage: mona analyze

Structural analysis of the token contract. Builds the delta matrix
from the schema, classifies each action by its net effect on value,
and verifies the supply conservation invariant. The analysis is
purely structural: what it proves holds in every reachable state.

Examples:
  mona analyze`)
	}
	fs.Parse(args)

	s := token.Schema()
	m := analysis.BuildDeltaMatrix(s)

	fmt.Printf("=== %s: delta matrix ===\n\n", s.Name)
	fmt.Printf("%-14s", "")
	for _, action := range m.Actions {
		fmt.Printf(" %12s", action)
	}
	fmt.Println()
	for i, state := range m.States {
		fmt.Printf("%-14s", state)
		for j := range m.Actions {
			if d := m.Matrix[i][j]; d == 0 {
				fmt.Printf(" %12s", ".")
			} else {
				fmt.Printf(" %+12d", d)
			}
		}
		fmt.Println()
	}

	result := analysis.Analyze(m, "totalSupply")
	fmt.Println("\n=== Action classes ===")
	fmt.Printf("Conservative:     %s\n", joinOrNone(result.ConservativeActions))
	fmt.Printf("Non-conservative: %s\n", joinOrNone(result.NonConservativeActions))
	fmt.Printf("Supply increase:  %s\n", joinOrNone(result.SupplyIncreasing))
	fmt.Printf("Supply decrease:  %s\n", joinOrNone(result.SupplyDecreasing))

	// Every balance movement is matched by a supply movement or by an
	// equal and opposite balance movement.
	conservation := analysis.StateInvariant{Weights: map[string]int{
		"balances":    1,
		"totalSupply": -1,
	}}
	fmt.Println("\n=== Invariants ===")
	if conservation.Verify(m) {
		fmt.Printf("%-32s holds for every action\n", conservation.String())
	} else {
		fmt.Printf("%-32s VIOLATED by: %s\n",
			conservation.String(), strings.Join(conservation.ViolatingActions(m), ", "))
	}
	return nil
}

func joinOrNone(actions []string) string {
	if len(actions) == 0 {
		return "(none)"
	}
	return strings.Join(actions, ", ")
}
