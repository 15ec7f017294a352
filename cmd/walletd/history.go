package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var history = cli.Command{
	Name:  "history",
	Usage: "show the account history grouped by calendar day",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "account",
			Usage:    "account id",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "count",
			Usage: "maximum number of operations to show",
			Value: 50,
		},
	},
	Action: historyAction,
}

func historyAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	sections, err := svc.GetHistory(
		context.Background(), ctx.String("account"), ctx.Int("count"),
	)
	if err != nil {
		return err
	}

	printJSON(sections)

	return nil
}
