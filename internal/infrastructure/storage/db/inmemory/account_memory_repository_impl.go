package inmemory

import (
	"context"
	"sort"

	"github.com/walletd-network/walletd/internal/core/domain"
)

type AccountRepositoryImpl struct {
	store *accountInmemoryStore
}

// NewAccountRepositoryImpl returns a new empty AccountRepositoryImpl
func NewAccountRepositoryImpl(db *DbManager) domain.AccountRepository {
	return AccountRepositoryImpl{db.accountStore}
}

func (r AccountRepositoryImpl) GetOrCreateAccount(
	_ context.Context, account *domain.Account,
) (*domain.Account, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if stored, ok := r.store.accounts[account.Id]; ok {
		return &stored, nil
	}
	r.store.accounts[account.Id] = *account

	return account, nil
}

func (r AccountRepositoryImpl) GetAccount(
	_ context.Context, id string,
) (*domain.Account, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	account, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r AccountRepositoryImpl) ListAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	accounts := make([]domain.Account, 0, len(r.store.accounts))
	for _, account := range r.store.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Id < accounts[j].Id
	})

	return accounts, nil
}

func (r AccountRepositoryImpl) UpdateAccount(
	_ context.Context, id string,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	account, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	updated, err := updateFn(&account)
	if err != nil {
		return err
	}
	r.store.accounts[id] = *updated

	return nil
}

func (r AccountRepositoryImpl) DeleteAccount(_ context.Context, id string) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.store.accounts, id)

	return nil
}
