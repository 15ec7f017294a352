// Package inmemory provides a volatile implementation of the storage
// layer, used by tests and by setups that do not need persistence.
package inmemory

import (
	"sync"

	"github.com/walletd-network/walletd/internal/core/domain"
)

// DbManager holds the in-memory stores in a single data structure.
type DbManager struct {
	accountStore *accountInmemoryStore
}

type accountInmemoryStore struct {
	locker   sync.RWMutex
	accounts map[string]domain.Account
}

// NewDbManager returns an empty in-memory DbManager.
func NewDbManager() *DbManager {
	return &DbManager{
		accountStore: &accountInmemoryStore{
			accounts: make(map[string]domain.Account),
		},
	}
}
