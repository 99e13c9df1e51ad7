// Package memory provides in-process implementations of the repository
// interfaces. Nothing survives a restart; it exists for tests and for
// running the server with KV_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/repository"
)

// KV is a mutex-guarded map.
type KV struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ repository.KVStore = (*KV)(nil)

func NewKV() *KV {
	return &KV{data: make(map[string]string)}
}

func (k *KV) Get(_ context.Context, key string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	if !ok {
		return "", apperror.NotFound("key", key)
	}
	return v, nil
}

func (k *KV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *KV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

// Accounts keeps accounts in insertion order.
type Accounts struct {
	mu       sync.RWMutex
	accounts []model.Account
}

var _ repository.AccountRepository = (*Accounts)(nil)

func NewAccounts() *Accounts {
	return &Accounts{}
}

func (a *Accounts) Create(_ context.Context, account *model.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.accounts {
		if existing.ID == account.ID {
			return apperror.Conflict("account", account.ID)
		}
	}
	a.accounts = append(a.accounts, *account)
	return nil
}

// GetByEmail returns the newest account for email. Later insertions win ties.
func (a *Accounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var matches []model.Account
	for _, acc := range a.accounts {
		if acc.Email == email {
			matches = append(matches, acc)
		}
	}
	if len(matches) == 0 {
		return nil, apperror.NotFound("account", email)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	acc := matches[len(matches)-1]
	return &acc, nil
}

func (a *Accounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, acc := range a.accounts {
		if acc.ID == id {
			found := acc
			return &found, nil
		}
	}
	return nil, apperror.NotFound("account", id)
}
