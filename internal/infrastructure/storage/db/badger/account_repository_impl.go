package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/walletd-network/walletd/internal/core/domain"
)

type accountRepositoryImpl struct {
	store *badgerhold.Store
}

// NewAccountRepositoryImpl initialize a badger implementation of the
// domain.AccountRepository
func NewAccountRepositoryImpl(store *badgerhold.Store) domain.AccountRepository {
	return accountRepositoryImpl{store}
}

func (r accountRepositoryImpl) GetOrCreateAccount(
	ctx context.Context, account *domain.Account,
) (*domain.Account, error) {
	if err := r.store.Insert(account.Id, account); err != nil {
		if err != badgerhold.ErrKeyExists {
			return nil, err
		}
		return r.GetAccount(ctx, account.Id)
	}
	return account, nil
}

func (r accountRepositoryImpl) GetAccount(
	_ context.Context, id string,
) (*domain.Account, error) {
	var account domain.Account
	if err := r.store.Get(id, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r accountRepositoryImpl) ListAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	accounts := []domain.Account{}
	if err := r.store.Find(&accounts, nil); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r accountRepositoryImpl) UpdateAccount(
	_ context.Context, id string,
	updateFn func(a *domain.Account) (*domain.Account, error),
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var account domain.Account
		if err := r.store.TxGet(tx, id, &account); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrAccountNotFound
			}
			return err
		}

		updated, err := updateFn(&account)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, id, updated)
	})
}

func (r accountRepositoryImpl) DeleteAccount(_ context.Context, id string) error {
	if err := r.store.Delete(id, &domain.Account{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.ErrAccountNotFound
		}
		return err
	}
	return nil
}
