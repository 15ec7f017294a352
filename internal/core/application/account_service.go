// Package application wires the family bridges, the account store and the
// device connector into the operations the daemon exposes.
package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/walletd-network/walletd/internal/core/application/bridge"
	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/core/ports"
)

// maxConcurrentSyncs bounds how many accounts a full sync drives at once.
const maxConcurrentSyncs = 4

// ValidationError is returned when a draft is blocked by validation
// errors; the full status is attached for display.
type ValidationError struct {
	Status *domain.TransactionStatus
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Status.Errors))
	for key := range e.Status.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Status.Errors[key]))
	}
	return fmt.Sprintf("transaction is not valid (%s)", strings.Join(parts, "; "))
}

// SendRequest describes an outgoing payment to be prepared, validated,
// signed on the device and broadcast. The patch carries the user-chosen
// draft fields, typically produced by the family's option inference.
type SendRequest struct {
	AccountId string
	Patch     domain.TransactionPatch
}

// AccountService drives the tracked accounts through their lifecycle:
// creation, syncing, history projection and outgoing payments.
type AccountService struct {
	repo       domain.AccountRepository
	registry   *bridge.Registry
	connector  ports.DeviceConnector
	deviceAddr string
}

// NewAccountService returns an AccountService after validating its
// collaborators. The device connector may be nil for a watch-only setup;
// SendFunds then fails.
func NewAccountService(
	repo domain.AccountRepository, registry *bridge.Registry,
	connector ports.DeviceConnector, deviceAddr string,
) (*AccountService, error) {
	if repo == nil {
		return nil, fmt.Errorf("missing account repository")
	}
	if registry == nil {
		return nil, fmt.Errorf("missing bridge registry")
	}
	return &AccountService{
		repo:       repo,
		registry:   registry,
		connector:  connector,
		deviceAddr: deviceAddr,
	}, nil
}

// CreateAccount registers an address for tracking. Registering an already
// tracked address returns the stored account unchanged.
func (s *AccountService) CreateAccount(
	ctx context.Context, family, currency, address, derivationPath, publicKey string,
) (*domain.Account, error) {
	if _, err := s.registry.Get(family); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, fmt.Errorf("missing address")
	}

	account := domain.NewAccount(family, currency, address, derivationPath)
	account.PublicKey = publicKey
	stored, err := s.repo.GetOrCreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account": stored.Id,
		"family":  family,
	}).Info("account registered")
	return stored, nil
}

// ListAccounts returns every tracked account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx)
}

// GetAccount returns the tracked account with the given id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// DeleteAccount stops tracking the account and drops its history.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	return s.repo.DeleteAccount(ctx, id)
}

// SyncAccount refreshes the account against the network and persists the
// merged result.
func (s *AccountService) SyncAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.registry.Get(account.Family)
	if err != nil {
		return nil, err
	}

	synced, err := b.Sync(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("syncing %s: %w", id, err)
	}

	if err := s.repo.UpdateAccount(ctx, id,
		func(_ *domain.Account) (*domain.Account, error) {
			return synced, nil
		},
	); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account":    id,
		"operations": len(synced.Operations),
		"pending":    len(synced.PendingOperations),
	}).Debug("account synced")
	return synced, nil
}

// SyncAllAccounts refreshes every tracked account, a few at a time. The
// first failure cancels the remaining syncs.
func (s *AccountService) SyncAllAccounts(ctx context.Context) error {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSyncs)
	for i := range accounts {
		id := accounts[i].Id
		g.Go(func() error {
			_, err := s.SyncAccount(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// GetHistory projects the account history into calendar-day sections,
// newest first, materializing at most count operations.
func (s *AccountService) GetHistory(
	ctx context.Context, accountId string, count int,
) (*domain.DailyOperations, error) {
	account, err := s.repo.GetAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}

	history := domain.GroupOperationsByDay(account, count)
	return &history, nil
}

// buildDraft assembles and prepares the transaction draft described by the
// request against its account and bridge.
func (s *AccountService) buildDraft(
	ctx context.Context, req SendRequest,
) (*domain.Account, bridge.Bridge, domain.Transaction, error) {
	account, err := s.repo.GetAccount(ctx, req.AccountId)
	if err != nil {
		return nil, nil, domain.Transaction{}, err
	}
	b, err := s.registry.Get(account.Family)
	if err != nil {
		return nil, nil, domain.Transaction{}, err
	}

	tx := b.UpdateTransaction(b.CreateTransaction(), req.Patch)
	tx, err = b.PrepareTransaction(ctx, account, tx)
	if err != nil {
		return nil, nil, domain.Transaction{}, fmt.Errorf("preparing transaction: %w", err)
	}
	return account, b, tx, nil
}

// ValidateTransaction prepares the draft described by the request and
// returns its validation status without touching the device.
func (s *AccountService) ValidateTransaction(
	ctx context.Context, req SendRequest,
) (*domain.TransactionStatus, error) {
	account, b, tx, err := s.buildDraft(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.GetTransactionStatus(ctx, account, tx)
}

// SendFunds runs the full outgoing payment flow: draft, prepare, validate,
// sign on the device and broadcast. On success the operation is recorded
// as pending on the account and returned.
func (s *AccountService) SendFunds(
	ctx context.Context, req SendRequest,
) (*domain.Operation, error) {
	if s.connector == nil {
		return nil, fmt.Errorf("no signing device configured")
	}

	account, b, tx, err := s.buildDraft(ctx, req)
	if err != nil {
		return nil, err
	}
	status, err := b.GetTransactionStatus(ctx, account, tx)
	if err != nil {
		return nil, fmt.Errorf("validating transaction: %w", err)
	}
	if status.Blocked() {
		return nil, &ValidationError{Status: status}
	}

	transport, err := s.connector.Open(ctx, s.deviceAddr)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	signed, err := b.SignOperation(ctx, account, tx, transport)
	if err != nil {
		return nil, err
	}

	op, err := b.Broadcast(ctx, account, signed)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAccount(ctx, account.Id,
		func(a *domain.Account) (*domain.Account, error) {
			return recordPending(a, tx.SubAccountId, *op), nil
		},
	); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account": account.Id,
		"hash":    op.Hash,
	}).Info("transaction broadcast")
	return op, nil
}

// recordPending appends the freshly broadcast operation to the pending
// collection it belongs to.
func recordPending(
	account *domain.Account, subAccountId string, op domain.Operation,
) *domain.Account {
	next := *account
	if subAccountId != "" {
		subs := make([]domain.SubAccount, len(account.SubAccounts))
		copy(subs, account.SubAccounts)
		next.SubAccounts = subs
		for i := range next.SubAccounts {
			if next.SubAccounts[i].Id == subAccountId {
				next.SubAccounts[i].PendingOperations = append(
					next.SubAccounts[i].PendingOperations, op,
				)
				return &next
			}
		}
	}
	next.PendingOperations = append(account.PendingOperations, op)
	return &next
}
