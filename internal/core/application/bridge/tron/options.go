package tron

import (
	"fmt"
	"strconv"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
)

// Options lists the draft options the tron family understands.
func Options() []bridge.Option {
	return []bridge.Option{
		{Name: "recipient", Usage: "address receiving the funds"},
		{Name: "amount", Usage: "amount to send, in sun or token units"},
		{Name: "send_max", Usage: "send the whole spendable balance"},
		{Name: "fees", Usage: "override the estimated fees, in sun"},
		{Name: "token", Usage: "TRC10 token id to spend instead of TRX"},
	}
}

// InferPatch translates raw option values into a draft patch. Unknown
// options are rejected so typos surface instead of being ignored.
func InferPatch(opts map[string]string) (domain.TransactionPatch, error) {
	var patch domain.TransactionPatch
	for name, raw := range opts {
		var err error
		switch name {
		case "recipient":
			recipient := raw
			patch.Recipient = &recipient
		case "amount":
			patch.Amount, err = bridge.ParseAmountOption(name, raw)
		case "send_max":
			var sendMax bool
			if sendMax, err = strconv.ParseBool(raw); err == nil {
				patch.UseAllAmount = &sendMax
			}
		case "fees":
			patch.Fees, err = bridge.ParseAmountOption(name, raw)
		case "token":
			// Resolved against the account by InferSubAccount.
		default:
			err = fmt.Errorf("unknown option %q for the tron family", name)
		}
		if err != nil {
			return domain.TransactionPatch{}, err
		}
	}
	return patch, nil
}

// InferSubAccount resolves the token sub account targeted by the options,
// when one is.
func InferSubAccount(
	account *domain.Account, opts map[string]string,
) (string, error) {
	tokenId, ok := opts["token"]
	if !ok || tokenId == "" {
		return "", nil
	}
	for i := range account.SubAccounts {
		if account.SubAccounts[i].TokenId == tokenId {
			return account.SubAccounts[i].Id, nil
		}
	}
	return "", fmt.Errorf("token %q is not tracked on account %s", tokenId, account.Id)
}
