package domain

import "math/big"

// NetworkInfo is the family-specific snapshot of network parameters a draft
// needs for fee and validity computations. It is fetched once per draft and
// cached on it.
type NetworkInfo struct {
	Family string
	// Fees is the flat network fee (stellar base fee, tron flat cost).
	Fees *big.Int
	// BaseReserve is the minimum balance the network requires the sender
	// to retain, if any.
	BaseReserve *big.Int
	// GasPrice and BaseGas describe gas-metered fee models.
	GasPrice *big.Int
	BaseGas  uint64
	// FreeBandwidth is the remaining amount of free bandwidth points the
	// sender can consume before transactions start costing coins.
	FreeBandwidth int64
}

// Transaction is a mutable user-in-progress payment draft. Every mutation
// produces a new value; a draft is owned by a single UI session until it is
// signed. Family-specific fields are left at their zero value for the
// families that do not use them.
type Transaction struct {
	Family       string
	Amount       *big.Int
	Recipient    string
	SubAccountId string
	UseAllAmount bool

	// Fees is the user-chosen or network-suggested fee, loaded by prepare.
	Fees *big.Int

	// MemoType is nil while the recommended memo policy for the current
	// recipient has not been resolved yet.
	MemoType  *string
	MemoValue string

	// GasLimit applies to gas-metered families.
	GasLimit *big.Int

	NetworkInfo *NetworkInfo
}

// TransactionPatch is a partial update to a draft; nil fields are left
// untouched.
type TransactionPatch struct {
	Amount       *big.Int
	Recipient    *string
	SubAccountId *string
	UseAllAmount *bool
	Fees         *big.Int
	MemoType     *string
	MemoValue    *string
	GasLimit     *big.Int
}

// Apply merges the patch into the draft and returns the new draft value.
func (t Transaction) Apply(patch TransactionPatch) Transaction {
	if patch.Amount != nil {
		t.Amount = patch.Amount
	}
	if patch.Recipient != nil {
		t.Recipient = *patch.Recipient
	}
	if patch.SubAccountId != nil {
		t.SubAccountId = *patch.SubAccountId
	}
	if patch.UseAllAmount != nil {
		t.UseAllAmount = *patch.UseAllAmount
	}
	if patch.Fees != nil {
		t.Fees = patch.Fees
	}
	if patch.MemoType != nil {
		t.MemoType = patch.MemoType
	}
	if patch.MemoValue != nil {
		t.MemoValue = *patch.MemoValue
	}
	if patch.GasLimit != nil {
		t.GasLimit = patch.GasLimit
	}
	return t
}

// Equal reports whether two drafts carry the same values. Bridges rely on
// it to return the incoming draft untouched when a prepare pass resolved
// nothing new, letting callers short-circuit re-renders.
func (t Transaction) Equal(other Transaction) bool {
	return t.Family == other.Family &&
		bigIntEqual(t.Amount, other.Amount) &&
		t.Recipient == other.Recipient &&
		t.SubAccountId == other.SubAccountId &&
		t.UseAllAmount == other.UseAllAmount &&
		bigIntEqual(t.Fees, other.Fees) &&
		strPtrEqual(t.MemoType, other.MemoType) &&
		t.MemoValue == other.MemoValue &&
		bigIntEqual(t.GasLimit, other.GasLimit) &&
		t.NetworkInfo.Equal(other.NetworkInfo)
}

// Equal reports whether two network-info snapshots carry the same values.
func (n *NetworkInfo) Equal(other *NetworkInfo) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Family == other.Family &&
		bigIntEqual(n.Fees, other.Fees) &&
		bigIntEqual(n.BaseReserve, other.BaseReserve) &&
		bigIntEqual(n.GasPrice, other.GasPrice) &&
		n.BaseGas == other.BaseGas &&
		n.FreeBandwidth == other.FreeBandwidth
}

func bigIntEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
