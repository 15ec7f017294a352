package domain

import (
	"fmt"
	"math/big"
	"time"
)

// Account is the data structure representing one on-chain identity tracked
// by the daemon: its balances, its confirmed and pending operations and the
// token sub-accounts scoped under it.
type Account struct {
	Id                string
	Family            string
	Currency          string
	Address           string
	DerivationPath    string
	// PublicKey is the base64 form of the account key, for the families
	// whose broadcast format embeds it next to the signature.
	PublicKey         string
	Balance           *big.Int
	SpendableBalance  *big.Int
	BlockHeight       uint64
	Operations        []Operation
	PendingOperations []Operation
	SubAccounts       []SubAccount
	LastSyncTime      time.Time
}

// SubAccount is a secondary balance (eg. a token) scoped under a parent
// account, sharing the same operation model.
type SubAccount struct {
	Id                string
	ParentId          string
	TokenId           string
	TokenTicker       string
	Balance           *big.Int
	Operations        []Operation
	PendingOperations []Operation
}

// NewAccountId returns the stable identifier of an account.
func NewAccountId(family, address string) string {
	return fmt.Sprintf("%s:%s", family, address)
}

// NewSubAccountId returns the stable identifier of a token sub-account.
func NewSubAccountId(parentId, tokenId string) string {
	return fmt.Sprintf("%s+%s", parentId, tokenId)
}

// NewAccount returns an account with zeroed balances and no history.
func NewAccount(family, currency, address, derivationPath string) *Account {
	return &Account{
		Id:               NewAccountId(family, address),
		Family:           family,
		Currency:         currency,
		Address:          address,
		DerivationPath:   derivationPath,
		Balance:          new(big.Int),
		SpendableBalance: new(big.Int),
	}
}

// FindSubAccount returns the sub-account with the given id, or nil.
func (a *Account) FindSubAccount(id string) *SubAccount {
	for i := range a.SubAccounts {
		if a.SubAccounts[i].Id == id {
			return &a.SubAccounts[i]
		}
	}
	return nil
}
