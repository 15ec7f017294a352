package domain

import "context"

// AccountRepository is the interface to be implemented by any repository
// holding the synced accounts and their operation history.
type AccountRepository interface {
	// GetOrCreateAccount returns the stored account with the given id, or
	// persists and returns the provided one if none exists yet.
	GetOrCreateAccount(ctx context.Context, account *Account) (*Account, error)
	// GetAccount returns the account with the given id, or
	// ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*Account, error)
	// ListAccounts returns every stored account.
	ListAccounts(ctx context.Context) ([]Account, error)
	// UpdateAccount atomically applies updateFn to the stored account with
	// the given id and persists the result.
	UpdateAccount(
		ctx context.Context, id string,
		updateFn func(a *Account) (*Account, error),
	) error
	// DeleteAccount tears down the account and its history.
	DeleteAccount(ctx context.Context, id string) error
}
