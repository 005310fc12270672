package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/pflow-xyz/go-mona/token"
)

func schema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "Print the schema as canonical JSON")
	fs.Usage = func() {
		fmt.Println(`Usage: mona schema [options]

Show the token contract declaration: states, actions with their role
guards, arcs, and constraints. This is the same schema every node
serves at /schema; its CID pins the contract version.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona schema
  mona schema --json > mona.schema.json`)
	}
	fs.Parse(args)

	s := token.Schema()

	if *jsonFlag {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s (version %s)\n", s.Name, s.Version)
	fmt.Printf("CID: %s\n", s.CID())
	fmt.Printf("\nRoles: %s\n", strings.Join(s.Roles, ", "))

	fmt.Println("\nStates:")
	for _, st := range s.States {
		kind := st.Type
		if st.Initial != "" {
			kind += " (initial " + st.Initial + ")"
		}
		fmt.Printf("  %-12s %s\n", st.ID, kind)
	}

	fmt.Println("\nActions:")
	for _, a := range s.Actions {
		var notes []string
		if a.Requires != "" {
			notes = append(notes, "requires "+a.Requires)
		}
		if a.Guard != "" {
			notes = append(notes, "guard "+a.Guard)
		}
		notes = append(notes, "emits "+a.Emits)
		fmt.Printf("  %-14s %s\n", a.ID, strings.Join(notes, ", "))
	}

	fmt.Println("\nArcs:")
	for _, arc := range s.Arcs {
		keys := ""
		if len(arc.Keys) > 0 {
			keys = " [" + strings.Join(arc.Keys, ",") + "]"
		}
		fmt.Printf("  %s -> %s%s\n", arc.Source, arc.Target, keys)
	}

	if len(s.Constraints) > 0 {
		fmt.Println("\nConstraints:")
		for _, c := range s.Constraints {
			fmt.Printf("  %-14s %s\n", c.ID, c.Expr)
		}
	}
	return nil
}
