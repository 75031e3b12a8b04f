package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/cypherlabs/cypher-indexer/client"
)

func queryCommands() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Query indexed data over the HTTP API",
		Subcommands: []*cli.Command{
			queryAccountCommand(),
			queryTransactionCommand(),
			queryTransactionsCommand(),
		},
	}
}

func queryAccountCommand() *cli.Command {
	return &cli.Command{
		Name:      "account",
		Usage:     "Get the latest indexed record for an account",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			address := c.Args().Get(0)

			api := newAPIClient(c)
			account, err := api.GetAccount(c.Context, address)
			if err != nil {
				return err
			}
			return printJSON(account, c.String("jq"))
		},
	}
}

func queryTransactionCommand() *cli.Command {
	return &cli.Command{
		Name:      "transaction",
		Usage:     "Get an indexed transaction by signature",
		ArgsUsage: "[signature]",
		Flags: []cli.Flag{
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("transaction signature is required")
			}
			signature := c.Args().Get(0)

			api := newAPIClient(c)
			txn, err := api.GetTransaction(c.Context, signature)
			if err != nil {
				return err
			}
			return printJSON(txn, c.String("jq"))
		},
	}
}

func queryTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "transactions",
		Usage:     "List recent transactions mentioning an address, newest first",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of transactions to return",
				Value:   50,
			},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			address := c.Args().Get(0)

			api := newAPIClient(c)
			txns, err := api.ListTransactions(c.Context, address, c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(txns, c.String("jq"))
		},
	}
}

func jqFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "jq",
		Usage: "jq filter applied to the response before printing",
	}
}

func newAPIClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

// printJSON pretty-prints v, optionally piping it through a jq filter first.
func printJSON(v any, jqFilter string) error {
	if jqFilter == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	query, err := gojq.Parse(jqFilter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", jqFilter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", jqFilter, err)
	}

	// Round-trip through encoding/json so gojq sees plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	iter := code.Run(decoded)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
