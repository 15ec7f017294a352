package domain_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/walletd-network/walletd/internal/core/domain"
)

func confirmedOp(accountId, hash string, typ domain.OperationType, date time.Time) domain.Operation {
	height := uint64(100)
	return domain.Operation{
		Id:          domain.NewOperationId(accountId, hash, typ),
		AccountId:   accountId,
		Hash:        hash,
		Type:        typ,
		Value:       big.NewInt(1000),
		Fee:         big.NewInt(10),
		BlockHeight: &height,
		Date:        date,
	}
}

func pendingOp(accountId, hash string, typ domain.OperationType, date time.Time) domain.Operation {
	op := confirmedOp(accountId, hash, typ, date)
	op.BlockHeight = nil
	return op
}

func TestMergeOperationsOrdering(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	existing := []domain.Operation{
		confirmedOp("tron:A", "h2", domain.OperationTypeOut, now.Add(-time.Hour)),
		confirmedOp("tron:A", "h3", domain.OperationTypeIn, now.Add(-2*time.Hour)),
	}
	incoming := []domain.Operation{
		confirmedOp("tron:A", "h1", domain.OperationTypeIn, now),
		confirmedOp("tron:A", "h4", domain.OperationTypeOut, now.Add(-3*time.Hour)),
	}

	merged := domain.MergeOperations(existing, incoming)
	require.Len(t, merged, 4)
	for i := 1; i < len(merged); i++ {
		require.False(
			t, merged[i].Date.After(merged[i-1].Date),
			"merged operations must be in descending chronological order",
		)
	}
	require.Equal(t, "h1", merged[0].Hash)
	require.Equal(t, "h4", merged[3].Hash)
}

func TestMergeOperationsIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	existing := []domain.Operation{
		confirmedOp("tron:A", "h1", domain.OperationTypeOut, now),
	}
	incoming := []domain.Operation{
		confirmedOp("tron:A", "h2", domain.OperationTypeIn, now.Add(-time.Minute)),
	}

	once := domain.MergeOperations(existing, incoming)
	twice := domain.MergeOperations(once, incoming)
	require.Equal(t, once, twice)
}

func TestMergeOperationsTieBreakIsDeterministic(t *testing.T) {
	date := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	// Same transaction produces two entries with the same date; the id
	// breaks the tie the same way on every merge.
	a := confirmedOp("tezos:A", "h1", domain.OperationTypeOut, date)
	b := confirmedOp("tezos:A", "h1", domain.OperationTypeReveal, date)

	m1 := domain.MergeOperations([]domain.Operation{a}, []domain.Operation{b})
	m2 := domain.MergeOperations([]domain.Operation{b}, []domain.Operation{a})
	require.Equal(t, m1, m2)
}

func TestReconcilePendingPromotesConfirmed(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	pending := []domain.Operation{
		pendingOp("tron:A", "h1", domain.OperationTypeOut, now.Add(-time.Hour)),
		pendingOp("tron:A", "h2", domain.OperationTypeOut, now),
	}
	confirmed := []domain.Operation{
		confirmedOp("tron:A", "h1", domain.OperationTypeOut, now.Add(-time.Hour)),
	}

	kept := domain.ReconcilePending(pending, confirmed)
	require.Len(t, kept, 1)
	require.Equal(t, "h2", kept[0].Hash)
}

func TestReconcilePendingKeepsSubmissionOrder(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	pending := []domain.Operation{
		pendingOp("tron:A", "h1", domain.OperationTypeOut, now.Add(-2*time.Hour)),
		pendingOp("tron:A", "h2", domain.OperationTypeOut, now.Add(-time.Hour)),
		pendingOp("tron:A", "h3", domain.OperationTypeOut, now),
	}

	kept := domain.ReconcilePending(pending, nil)
	require.Equal(t, pending, kept)
}
