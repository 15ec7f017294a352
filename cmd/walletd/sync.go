package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var syncaccounts = cli.Command{
	Name:  "sync",
	Usage: "refresh tracked accounts against the network",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "account",
			Usage: "account id to sync; every account when omitted",
		},
	},
	Action: syncAction,
}

func syncAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	if id := ctx.String("account"); id != "" {
		account, err := svc.SyncAccount(context.Background(), id)
		if err != nil {
			return err
		}
		printJSON(account)
		return nil
	}

	if err := svc.SyncAllAccounts(context.Background()); err != nil {
		return err
	}
	accounts, err := svc.ListAccounts(context.Background())
	if err != nil {
		return err
	}
	printJSON(accounts)

	return nil
}
