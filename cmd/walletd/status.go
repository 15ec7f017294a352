package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var status = cli.Command{
	Name:   "status",
	Usage:  "validate a payment draft without signing it",
	Flags:  draftFlags(),
	Action: statusAction,
}

func statusAction(ctx *cli.Context) error {
	svc, cleanup, err := getAccountService()
	if err != nil {
		return err
	}
	defer cleanup()

	req, err := draftRequest(ctx, svc)
	if err != nil {
		return err
	}

	txStatus, err := svc.ValidateTransaction(context.Background(), req)
	if err != nil {
		return err
	}

	printJSON(statusView{
		Errors:        errorStrings(txStatus.Errors),
		Warnings:      errorStrings(txStatus.Warnings),
		EstimatedFees: txStatus.EstimatedFees.String(),
		Amount:        txStatus.Amount.String(),
		TotalSpent:    txStatus.TotalSpent.String(),
	})

	return nil
}

// statusView flattens the validation result for display; error values do
// not round-trip through JSON.
type statusView struct {
	Errors        map[string]string `json:"errors"`
	Warnings      map[string]string `json:"warnings"`
	EstimatedFees string            `json:"estimated_fees"`
	Amount        string            `json:"amount"`
	TotalSpent    string            `json:"total_spent"`
}

func errorStrings(errs map[string]error) map[string]string {
	out := make(map[string]string, len(errs))
	for key, err := range errs {
		out[key] = err.Error()
	}
	return out
}
