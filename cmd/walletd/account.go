package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var accountadd = cli.Command{
	Name:  "accountadd",
	Usage: "start tracking an address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "family",
			Usage:    "currency family of the address (tron, stellar, cosmos)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "currency",
			Usage:    "ticker of the main currency",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "address",
			Usage:    "address to track",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "derivation_path",
			Usage: "BIP32 path of the key on the signing device",
		},
		&cli.StringFlag{
			Name:  "pubkey",
			Usage: "base64 public key, for the families that broadcast it",
		},
	},
	Action: accountAddAction,
}

var accountlist = cli.Command{
	Name:   "accountlist",
	Usage:  "list all tracked accounts",
	Action: accountListAction,
}

func accountAddAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	account, err := svc.CreateAccount(
		context.Background(),
		ctx.String("family"),
		ctx.String("currency"),
		ctx.String("address"),
		ctx.String("derivation_path"),
		ctx.String("pubkey"),
	)
	if err != nil {
		return err
	}

	printJSON(account)

	return nil
}

func accountListAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	accounts, err := svc.ListAccounts(context.Background())
	if err != nil {
		return err
	}

	printJSON(accounts)

	return nil
}
