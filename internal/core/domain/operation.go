package domain

import (
	"fmt"
	"math/big"
	"sort"
	"time"
)

// OperationType qualifies the directional role of an operation with respect
// to its account.
type OperationType string

const (
	// OperationTypeIn marks funds received by the account.
	OperationTypeIn OperationType = "IN"
	// OperationTypeOut marks funds sent from the account.
	OperationTypeOut OperationType = "OUT"
	// OperationTypeReveal marks a public-key revelation, a side effect some
	// chains record as its own entry.
	OperationTypeReveal OperationType = "REVEAL"
)

// Operation is a single directional economic effect of a chain transaction
// on an account. Its identity is the (account, transaction hash, type)
// tuple encoded in Id. A nil BlockHeight means the operation is not yet
// confirmed.
type Operation struct {
	Id          string
	AccountId   string
	Hash        string
	Type        OperationType
	Value       *big.Int
	Fee         *big.Int
	Senders     []string
	Recipients  []string
	BlockHeight *uint64
	BlockHash   string
	Date        time.Time
	Extra       map[string]string
}

// NewOperationId encodes the identity tuple of an operation.
func NewOperationId(accountId, hash string, typ OperationType) string {
	return fmt.Sprintf("%s-%s-%s", accountId, hash, typ)
}

// Confirmed returns whether the operation carries a block reference.
func (o Operation) Confirmed() bool {
	return o.BlockHeight != nil
}

// MergeOperations deduplicates the newly observed confirmed operations
// against the existing ones by identity and returns the union in strictly
// descending chronological order. Ties on the date are broken by the
// operation id so that repeated merges of the same batch are idempotent.
func MergeOperations(existing, incoming []Operation) []Operation {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]Operation, 0, len(existing)+len(incoming))
	for _, op := range existing {
		if _, ok := seen[op.Id]; ok {
			continue
		}
		seen[op.Id] = struct{}{}
		merged = append(merged, op)
	}
	for _, op := range incoming {
		if _, ok := seen[op.Id]; ok {
			continue
		}
		seen[op.Id] = struct{}{}
		merged = append(merged, op)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.After(merged[j].Date)
		}
		return merged[i].Id < merged[j].Id
	})
	return merged
}

// ReconcilePending removes from the pending collection every operation
// whose identity now appears in the confirmed set, preserving the original
// ascending submission order of what remains.
func ReconcilePending(pending, confirmed []Operation) []Operation {
	confirmedIds := make(map[string]struct{}, len(confirmed))
	for _, op := range confirmed {
		confirmedIds[op.Id] = struct{}{}
	}

	kept := make([]Operation, 0, len(pending))
	for _, op := range pending {
		if _, ok := confirmedIds[op.Id]; ok {
			continue
		}
		kept = append(kept, op)
	}
	return kept
}
