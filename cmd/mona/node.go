package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/pflow-xyz/go-mona/eventstore"
	"github.com/pflow-xyz/go-mona/proof"
	"github.com/pflow-xyz/go-mona/rpc"
)

func node(args []string) error {
	fs := flag.NewFlagSet("node", flag.ExitOnError)
	addr := fs.String("addr", ":8700", "Listen address")
	db := fs.String("db", "", "SQLite event store path (default in-memory)")
	stream := fs.String("stream", "mona:main", "Event stream the ledger lives on")
	check := fs.Bool("check", true, "Recheck supply conservation after every applied transaction")
	withProver := fs.Bool("prover", false, "Compile the zk circuits and serve the proof endpoints")
	keys := fs.String("keys", "", "Cache circuit keys in this directory (with --prover)")
	fs.Usage = func() {
		fmt.Println(`Usage: mona node [options]

Run a ledger node. The node serves the HTTP API and the websocket
event stream, replaying any existing ledger from the event store on
startup. With no --db the store is in-memory and state is lost on
exit.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  mona node
  mona node --addr :8700 --db mona.db
  mona node --db mona.db --prover --keys keys/`)
	}
	fs.Parse(args)

	var store eventstore.Store
	if *db == "" {
		log.Printf("node: using in-memory event store")
		store = eventstore.NewMemoryStore()
	} else {
		s, err := eventstore.NewSQLiteStore(*db)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer s.Close()
		log.Printf("node: using sqlite event store at %s", *db)
		store = s
	}

	cfg := rpc.Config{StreamID: *stream, CheckInvariants: *check}
	if *withProver {
		prover := proof.NewProver()
		if *keys == "" {
			log.Printf("node: compiling zk circuits (takes a moment)")
			if err := prover.RegisterDefaults(); err != nil {
				return fmt.Errorf("register circuits: %w", err)
			}
		} else {
			log.Printf("node: loading zk circuits (key cache %s)", *keys)
			if err := prover.LoadOrRegisterDefaults(*keys); err != nil {
				return fmt.Errorf("register circuits: %w", err)
			}
		}
		cfg.Prover = prover
	}

	srv := rpc.NewServer(eventstore.NewRepository(store), cfg)
	if err := srv.Start(context.Background()); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer srv.Close()

	log.Printf("node: listening on %s (stream %s)", *addr, *stream)
	return http.ListenAndServe(*addr, srv.Handler())
}
