// Package repository defines the storage contracts used by the core.
//
// INTERFACES LIVE WITH THE CONSUMER:
// The services only know about these interfaces. The concrete backends
// (sqlite, redis, memory) live in sub-packages and are chosen in main,
// so a test can swap in the memory backend without touching service code.
package repository

import (
	"context"

	"github.com/sakif/country-explorer/internal/model"
)

// KVStore is a small string key/value store. It backs both the favorites
// sets (key favorites_<userId>) and the CLI's persisted session token.
//
// Get returns apperror.ErrNotFound when the key has never been set or has
// been deleted. Set overwrites unconditionally: there is no compare-and-swap,
// so concurrent writers to the same key resolve as last writer wins.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// AccountRepository stores demo-backend credentials.
// Create assigns nothing: the caller sets ID and CreatedAt.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	// GetByEmail returns the most recently created account for email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
}
