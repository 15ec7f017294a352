package bridge

import (
	"math/big"
	"time"

	"github.com/walletd-network/walletd/internal/core/domain"
)

// OptimisticOperation synthesizes the operation recorded locally right
// after signing, before the chain confirms it. The value reflects the
// actually-signed amounts: when the draft spends the whole balance, the
// value is balance minus reserve minus the fee actually paid, rather than
// the amount estimated when the draft was composed. hash may be empty when
// the final transaction hash is only known after broadcast.
func OptimisticOperation(
	account *domain.Account, t domain.Transaction, fee *big.Int, hash string,
	now time.Time,
) domain.Operation {
	if fee == nil {
		fee = new(big.Int)
	}

	value := new(big.Int).Add(t.Amount, fee)
	switch {
	case t.SubAccountId != "":
		// Token transfers: the moved value is in token units, the fee is
		// paid by the parent account.
		value = new(big.Int).Set(t.Amount)
	case t.UseAllAmount:
		reserve := new(big.Int)
		if t.NetworkInfo != nil && t.NetworkInfo.BaseReserve != nil {
			reserve = t.NetworkInfo.BaseReserve
		}
		value = new(big.Int).Sub(account.Balance, reserve)
		value.Sub(value, fee)
	}

	return domain.Operation{
		Id:         domain.NewOperationId(account.Id, hash, domain.OperationTypeOut),
		AccountId:  account.Id,
		Hash:       hash,
		Type:       domain.OperationTypeOut,
		Value:      value,
		Fee:        fee,
		Senders:    []string{account.Address},
		Recipients: []string{t.Recipient},
		Date:       now,
		Extra:      map[string]string{},
	}
}
