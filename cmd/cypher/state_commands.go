package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func stateCommands() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect the indexer's live in-memory state",
		Subcommands: []*cli.Command{
			stateByKindCommand(),
		},
	}
}

func stateByKindCommand() *cli.Command {
	return &cli.Command{
		Name:      "by-kind",
		Usage:     "List live accounts of one kind (mint, token, metadata, unknown)",
		ArgsUsage: "[kind]",
		Flags: []cli.Flag{
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account kind is required")
			}
			kind := c.Args().Get(0)

			api := newAPIClient(c)
			entries, err := api.ListState(c.Context, kind)
			if err != nil {
				return err
			}
			return printJSON(entries, c.String("jq"))
		},
	}
}
