package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "cypher",
		Usage: "Ledger indexer CLI",
		Description: `A command-line tool for querying and debugging the indexer.

Use this CLI to query indexed accounts and transactions, stream live
notifications from NATS, and inspect the ledger directly over RPC.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Query commands (HTTP API)
			queryCommands(),
			// Live state inspection (HTTP API)
			stateCommands(),
			// NATS notification streaming commands
			{
				Name:  "nats",
				Usage: "NATS notification streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			// Ledger inspection commands (direct RPC)
			ledgerCommands(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Indexer query API URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ledger RPC URL",
				EnvVars: []string{"SOLANA_RPC_URL"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
