package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/walletd-network/walletd/internal/core/application"
	"github.com/walletd-network/walletd/internal/core/application/bridge"
	cosmosbridge "github.com/walletd-network/walletd/internal/core/application/bridge/cosmos"
	stellarbridge "github.com/walletd-network/walletd/internal/core/application/bridge/stellar"
	tronbridge "github.com/walletd-network/walletd/internal/core/application/bridge/tron"
	"github.com/walletd-network/walletd/internal/core/domain"
)

var send = cli.Command{
	Name:   "send",
	Usage:  "sign a payment on the device and broadcast it",
	Flags:  draftFlags(),
	Action: sendAction,
}

func sendAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	req, err := draftRequest(ctx, svc)
	if err != nil {
		return err
	}

	op, err := svc.SendFunds(context.Background(), req)
	if err != nil {
		return err
	}

	printJSON(op)

	return nil
}

// familyOptions lists the draft options of every served family, used both
// to register the CLI flags and to collect the values the user set.
func familyOptions() [][]bridge.Option {
	return [][]bridge.Option{
		tronbridge.Options(),
		stellarbridge.Options(),
		cosmosbridge.Options(),
	}
}

// draftFlags merges the option lists of every family into one flag set.
// Options the target family does not understand are rejected at inference
// time.
func draftFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "account",
			Usage:    "account id of the sender",
			Required: true,
		},
	}
	seen := map[string]bool{}
	for _, options := range familyOptions() {
		for _, opt := range options {
			if seen[opt.Name] {
				continue
			}
			seen[opt.Name] = true
			flags = append(flags, &cli.StringFlag{
				Name:  opt.Name,
				Usage: opt.Usage,
			})
		}
	}
	return flags
}

func draftRequest(
	ctx *cli.Context, svc *application.AccountService,
) (application.SendRequest, error) {
	accountId := ctx.String("account")
	account, err := svc.GetAccount(context.Background(), accountId)
	if err != nil {
		return application.SendRequest{}, err
	}

	opts := map[string]string{}
	for _, options := range familyOptions() {
		for _, opt := range options {
			if ctx.IsSet(opt.Name) {
				opts[opt.Name] = ctx.String(opt.Name)
			}
		}
	}

	patch, err := inferPatch(account.Family, opts)
	if err != nil {
		return application.SendRequest{}, err
	}
	subId, err := inferSubAccount(account.Family, account, opts)
	if err != nil {
		return application.SendRequest{}, err
	}
	if subId != "" {
		patch.SubAccountId = &subId
	}

	return application.SendRequest{AccountId: accountId, Patch: patch}, nil
}

func inferPatch(
	family string, opts map[string]string,
) (domain.TransactionPatch, error) {
	switch family {
	case tronbridge.FamilyTron:
		return tronbridge.InferPatch(opts)
	case stellarbridge.FamilyStellar:
		return stellarbridge.InferPatch(opts)
	case cosmosbridge.FamilyCosmos:
		return cosmosbridge.InferPatch(opts)
	}
	return domain.TransactionPatch{}, fmt.Errorf("unsupported family %q", family)
}

func inferSubAccount(
	family string, account *domain.Account, opts map[string]string,
) (string, error) {
	switch family {
	case tronbridge.FamilyTron:
		return tronbridge.InferSubAccount(account, opts)
	case stellarbridge.FamilyStellar:
		return stellarbridge.InferSubAccount(account, opts)
	case cosmosbridge.FamilyCosmos:
		return cosmosbridge.InferSubAccount(account, opts)
	}
	return "", fmt.Errorf("unsupported family %q", family)
}
