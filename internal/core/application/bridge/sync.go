package bridge

import (
	"math/big"
	"time"

	"github.com/walletd-network/walletd/internal/core/domain"
)

// AccountShape is what a family reconstructs from raw chain records during
// a sync pass: fresh balances and the full set of observed confirmed
// operations, plus the token sub-accounts scoped under the account.
type AccountShape struct {
	Balance          *big.Int
	SpendableBalance *big.Int
	BlockHeight      uint64
	Operations       []domain.Operation
	SubAccounts      []domain.SubAccount
}

// ApplyShape merges a freshly fetched shape into the account and returns
// the updated copy. Confirmed operations are merged by identity, pending
// operations whose identity is now confirmed are promoted out, and token
// sub-accounts are matched by id so their pending collections survive the
// pass. Applying the same shape twice yields the same account.
func ApplyShape(
	account *domain.Account, shape AccountShape, now time.Time,
) *domain.Account {
	next := *account

	if shape.Balance != nil {
		next.Balance = shape.Balance
	}
	next.SpendableBalance = shape.SpendableBalance
	if next.SpendableBalance == nil {
		next.SpendableBalance = next.Balance
	}
	if shape.BlockHeight > 0 {
		next.BlockHeight = shape.BlockHeight
	}

	next.Operations = domain.MergeOperations(account.Operations, shape.Operations)
	next.PendingOperations = domain.ReconcilePending(
		account.PendingOperations, next.Operations,
	)

	subAccounts := make([]domain.SubAccount, 0, len(shape.SubAccounts))
	for _, sub := range shape.SubAccounts {
		if existing := account.FindSubAccount(sub.Id); existing != nil {
			sub.Operations = domain.MergeOperations(existing.Operations, sub.Operations)
			sub.PendingOperations = domain.ReconcilePending(
				existing.PendingOperations, sub.Operations,
			)
		} else {
			sub.Operations = domain.MergeOperations(nil, sub.Operations)
		}
		subAccounts = append(subAccounts, sub)
	}
	next.SubAccounts = subAccounts

	next.LastSyncTime = now
	return &next
}
