package stellar

import (
	"fmt"
	"strconv"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
)

// Options lists the draft options the stellar family understands.
func Options() []bridge.Option {
	return []bridge.Option{
		{Name: "recipient", Usage: "address receiving the funds"},
		{Name: "amount", Usage: "amount to send, in stroops"},
		{Name: "send_max", Usage: "send the whole spendable balance"},
		{Name: "fees", Usage: "override the suggested fees, in stroops"},
		{Name: "memo_type", Usage: "memo type to attach (MEMO_TEXT, MEMO_ID, MEMO_HASH)"},
		{Name: "memo_value", Usage: "memo value to attach"},
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
		case "memo_type":
			memoType := raw
			patch.MemoType = &memoType
		case "memo_value":
			memoValue := raw
			patch.MemoValue = &memoValue
		default:
			err = fmt.Errorf("unknown option %q for the stellar family", name)
		}
		if err != nil {
			return domain.TransactionPatch{}, err
		}
	}
	return patch, nil
}

// InferSubAccount is part of the family option contract; stellar accounts
// carry no sub accounts.
func InferSubAccount(
	account *domain.Account, opts map[string]string,
) (string, error) {
	if token := opts["token"]; token != "" {
		return "", fmt.Errorf("the stellar family has no token sub accounts")
	}
	return "", nil
}
