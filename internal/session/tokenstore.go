package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/repository"
)

// TokenKey is the KV key holding the persisted token.
const TokenKey = "auth_token"

// KVTokenStore keeps the token in a repository.KVStore. The CLI uses it
// with the sqlite file in ~/.atlas.
type KVTokenStore struct {
	kv repository.KVStore
}

var _ TokenStore = (*KVTokenStore)(nil)

func NewKVTokenStore(kv repository.KVStore) *KVTokenStore {
	return &KVTokenStore{kv: kv}
}

func (s *KVTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("session: loading token: %w", err)
	}
	return token, nil
}

func (s *KVTokenStore) Save(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("session: saving token: %w", err)
	}
	return nil
}

func (s *KVTokenStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("session: clearing token: %w", err)
	}
	return nil
}
