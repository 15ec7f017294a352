package bridge

import (
	"context"

	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
)

// SignedOperation is the outcome of a signing session: the optimistic
// operation to record locally, the device signature and the serialized
// payload to submit to the network.
type SignedOperation struct {
	Operation  domain.Operation
	Signature  []byte
	RawPayload []byte
}

// Bridge drives the lifecycle of a payment draft for one currency family,
// from creation through preparation, validation, device signing and
// broadcast, and keeps the account history synced against the network.
//
// Bridges may run concurrently across different drafts and accounts but
// callers must not invoke PrepareTransaction or GetTransactionStatus
// concurrently on the same draft; at most one call is in flight per draft.
type Bridge interface {
	// Family returns the family tag this bridge serves.
	Family() string

	// CreateTransaction returns a zero-valued draft. No side effects.
	CreateTransaction() domain.Transaction

	// UpdateTransaction merges the patch into the draft. Changing the
	// recipient invalidates every recipient-dependent resolved field.
	UpdateTransaction(
		t domain.Transaction, patch domain.TransactionPatch,
	) domain.Transaction

	// PrepareTransaction fetches the network info, fees and any
	// recipient-dependent derived field still missing from the draft. It
	// must not fetch anything when every dependent field is already
	// resolved for the current recipient, and it returns a draft equal to
	// the given one when nothing changed so callers can short-circuit.
	PrepareTransaction(
		ctx context.Context, account *domain.Account, t domain.Transaction,
	) (domain.Transaction, error)

	// GetTransactionStatus validates the draft against the account.
	// Validation failures populate the status, they are never returned as
	// an error.
	GetTransactionStatus(
		ctx context.Context, account *domain.Account, t domain.Transaction,
	) (*domain.TransactionStatus, error)

	// SignOperation builds the unsigned payload and drives the device
	// through a signing session. Cancelling the context between device
	// round-trips stops the session with context.Canceled and no further
	// device writes; the transport is released on every exit path.
	SignOperation(
		ctx context.Context, account *domain.Account, t domain.Transaction,
		transport ports.DeviceTransport,
	) (*SignedOperation, error)

	// Broadcast submits the signed payload. A structured rejection is
	// surfaced with the provider's stated reason; on success the returned
	// operation carries the final transaction hash.
	Broadcast(
		ctx context.Context, account *domain.Account, signed *SignedOperation,
	) (*domain.Operation, error)

	// Sync fetches the confirmed history and balances and merges them
	// into the account. Safe to call repeatedly: merging is idempotent.
	Sync(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
