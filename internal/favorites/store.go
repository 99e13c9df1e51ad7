// Package favorites keeps the signed-in user's favorite countries.
//
// A Store is scoped to at most one user at a time (its namespace). The
// session manager calls Activate when someone signs in and Deactivate when
// they sign out; without an active namespace every mutation is a no-op and
// every query is empty.
//
// STORAGE:
// The whole set lives under one key, favorites_<userId>, as a JSON array of
// model.FavoriteEntry. Each change rewrites the full array, including the
// empty array "[]" after the last removal. There is no cross-process
// locking, so two processes writing the same user's set resolve as last
// writer wins.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/metrics"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/repository"
)

const keyPrefix = "favorites_"

// Key returns the storage key for userID's favorites.
func Key(userID string) string {
	return keyPrefix + userID
}

// Store is the favorites set of the active user. Safe for concurrent use.
type Store struct {
	kv      repository.KVStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	gen     uint64 // bumped on every Activate/Deactivate
	userID  string
	active  bool
	entries []model.FavoriteEntry
}

// NewStore creates an inactive store over kv. m may be nil.
func NewStore(kv repository.KVStore, logger *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{kv: kv, logger: logger, metrics: m}
}

// Activate scopes the store to userID and loads that user's set (empty when
// nothing is stored yet). The previous user's entries are dropped before the
// load starts, so they are never visible under the new namespace. If a
// later Activate or Deactivate overtakes this one, its result is discarded.
//
// On a storage or decoding error the store stays inactive.
func (s *Store) Activate(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.ValidationFailed("userID", "user id is required")
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.clearLocked()
	s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.logger.Debug("favorites activation superseded", slog.String("userID", userID))
		return nil
	}
	s.userID = userID
	s.active = true
	s.entries = entries
	return nil
}

// Deactivate drops the active namespace. Stored data is untouched.
func (s *Store) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.userID = ""
	s.active = false
	s.entries = nil
}

// UserID returns the active namespace, if any.
func (s *Store) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.active
}

// Add stores the projection of country. It is a no-op without an active
// namespace or when the code is already a favorite. If persisting fails the
// set is left as it was and the error is returned.
func (s *Store) Add(ctx context.Context, country *model.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.indexLocked(country.Code) >= 0 {
		return nil
	}

	next := append(slices.Clone(s.entries), country.AsFavorite())
	if err := s.persist(ctx, s.userID, next); err != nil {
		return err
	}
	s.entries = next
	s.metrics.FavoriteMutation("add")
	return nil
}

// Remove deletes code from the set and persists the result, even when the
// set becomes empty. It is a no-op without an active namespace or when code
// is not a favorite. On a persistence error the set is left as it was.
func (s *Store) Remove(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	i := s.indexLocked(code)
	if i < 0 {
		return nil
	}

	next := slices.Delete(slices.Clone(s.entries), i, i+1)
	if err := s.persist(ctx, s.userID, next); err != nil {
		return err
	}
	s.entries = next
	s.metrics.FavoriteMutation("remove")
	return nil
}

// Has reports whether code is a favorite of the active user.
func (s *Store) Has(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.indexLocked(code) >= 0
}

// List returns the favorites in the order they were added.
func (s *Store) List() []model.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Sorted returns the favorites ordered by country name.
func (s *Store) Sorted() []model.FavoriteEntry {
	out := s.List()
	col := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

func (s *Store) indexLocked(code string) int {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, e := range s.entries {
		if e.Code == code {
			return i
		}
	}
	return -1
}

func (s *Store) load(ctx context.Context, userID string) ([]model.FavoriteEntry, error) {
	raw, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.FavoriteEntry{}, nil
		}
		return nil, fmt.Errorf("favorites: loading %s: %w", Key(userID), err)
	}

	var entries []model.FavoriteEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("favorites: decoding %s: %w", Key(userID), err)
	}
	if entries == nil {
		entries = []model.FavoriteEntry{}
	}
	return entries, nil
}

func (s *Store) persist(ctx context.Context, userID string, entries []model.FavoriteEntry) error {
	if entries == nil {
		entries = []model.FavoriteEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("favorites: encoding set: %w", err)
	}
	if err := s.kv.Set(ctx, Key(userID), string(raw)); err != nil {
		s.logger.Error("persisting favorites failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("favorites: saving %s: %w", Key(userID), err)
	}
	return nil
}
