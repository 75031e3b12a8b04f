package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	"github.com/cypherlabs/cypher-indexer/service/solana"
)

func ledgerCommands() *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Ledger inspection commands (direct RPC)",
		Subcommands: []*cli.Command{
			signaturesCommand(),
			slotCommand(),
		},
	}
}

// signaturesCommand lists recent signatures mentioning an address, straight
// from the RPC node. Useful for checking indexer coverage.
func signaturesCommand() *cli.Command {
	return &cli.Command{
		Name:      "signatures",
		Usage:     "List recent transaction signatures for an address",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of signatures to return",
				Value:   20,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			address, err := solanago.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}

			ledger, err := newLedgerClient(c)
			if err != nil {
				return err
			}

			sigs, err := ledger.ListSignatures(c.Context, address, c.Int("limit"), nil)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sigs)
		},
	}
}

func slotCommand() *cli.Command {
	return &cli.Command{
		Name:  "slot",
		Usage: "Print the current confirmed slot",
		Action: func(c *cli.Context) error {
			ledger, err := newLedgerClient(c)
			if err != nil {
				return err
			}

			slot, err := ledger.CurrentSlot(c.Context)
			if err != nil {
				return err
			}
			fmt.Println(slot)
			return nil
		},
	}
}

func newLedgerClient(c *cli.Context) (*solana.Client, error) {
	rpcURL := c.String("rpc-url")
	if rpcURL == "" {
		return nil, fmt.Errorf("--rpc-url or SOLANA_RPC_URL is required")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return solana.NewClient(solana.NewRPCClient(rpcURL), rpcURL, nil, logger), nil
}
