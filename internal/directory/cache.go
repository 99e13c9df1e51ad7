// Package directory holds the in-memory country directory: the full list
// loaded once from the countries API, a code index that lookups read through,
// and the filter pipeline that derives views from the list.
//
// LIFECYCLE:
//
//	NewCache → (Lookup works, View reports "loading")
//	LoadAll ok   → sorted list + index, View reports "ready"; later LoadAll calls are no-ops
//	LoadAll fail → nothing kept, View reports "failed" until a later LoadAll succeeds
//
// The index is append-only. LoadAll adds the snapshot, Lookup adds whatever
// it fetched on a miss, and nothing is ever removed or replaced.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/metrics"
	"github.com/sakif/country-explorer/internal/model"
)

// Source is the remote side of the directory.
// FetchByCode returns an error matching apperror.ErrNotFound when the code
// does not exist.
type Source interface {
	FetchAll(ctx context.Context) ([]model.Country, error)
	FetchByCode(ctx context.Context, code string) (*model.Country, error)
}

// regions is the fixed region filter list.
var regions = []string{"Africa", "Americas", "Asia", "Europe", "Oceania"}

// DefaultLookupTimeout bounds a remote fetch-by-code.
const DefaultLookupTimeout = 15 * time.Second

// Cache is the process-wide country directory. Safe for concurrent use.
type Cache struct {
	source        Source
	logger        *slog.Logger
	metrics       *metrics.Metrics
	lookupTimeout time.Duration

	// loadMu serializes LoadAll so two callers never fetch the list twice.
	loadMu sync.Mutex

	mu        sync.RWMutex
	countries []model.Country           // sorted by CommonName; nil until loaded
	index     map[string]*model.Country // cca3 → country
	alias     map[string]string         // cca2 → cca3
	loaded    bool
	loadErr   error

	lookups singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLookupTimeout bounds each remote fetch-by-code.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

// NewCache creates an empty cache over source.
func NewCache(source Source, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		source:        source,
		logger:        logger,
		lookupTimeout: DefaultLookupTimeout,
		index:         make(map[string]*model.Country),
		alias:         make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// LoadAll fetches the full directory once. After a success every further
// call returns nil without touching the network. A failure leaves the cache
// empty and is returned as (and remembered as) an apperror.ErrLoadFailure.
func (c *Cache) LoadAll(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if c.Loaded() {
		return nil
	}

	start := time.Now()
	countries, err := c.source.FetchAll(ctx)
	c.metrics.RemoteFetch("all", start)
	if err != nil {
		loadErr := apperror.LoadFailed(fmt.Errorf("directory: fetching all countries: %w", err))
		c.mu.Lock()
		c.loadErr = loadErr
		c.mu.Unlock()

		c.metrics.Loaded(false, 0)
		c.logger.Error("directory load failed", slog.String("error", err.Error()))
		return loadErr
	}

	sortByName(countries)

	c.mu.Lock()
	c.countries = countries
	for i := range countries {
		c.insertLocked(&countries[i])
	}
	c.loaded = true
	c.loadErr = nil
	size := len(c.index)
	c.mu.Unlock()

	c.metrics.Loaded(true, size)
	c.logger.Info("directory loaded",
		slog.Int("countries", len(countries)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// sortByName orders countries by CommonName using English collation, so
// "Åland Islands" sorts next to "Albania" rather than after "Zimbabwe".
func sortByName(countries []model.Country) {
	col := collate.New(language.English)
	sort.SliceStable(countries, func(i, j int) bool {
		return col.CompareString(countries[i].CommonName, countries[j].CommonName) < 0
	})
}

// Loaded reports whether a LoadAll has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// LoadError returns the sticky failure of the last LoadAll, or nil.
func (c *Cache) LoadError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Status reports the directory state as seen by the filter pipeline.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.loaded:
		return StatusReady
	case c.loadErr != nil:
		return StatusFailed
	default:
		return StatusLoading
	}
}

// Countries returns a copy of the sorted directory (nil before a load).
// The records' maps and slices are shared with the index and must not be
// modified.
func (c *Cache) Countries() []model.Country {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.countries)
}

// Cached returns a copy of the indexed country for code without any remote
// call.
func (c *Cache) Cached(code string) (*model.Country, bool) {
	key := normalizeCode(code)
	c.mu.RLock()
	defer c.mu.RUnlock()
	country, ok := c.getLocked(key)
	if !ok {
		return nil, false
	}
	return country.Clone(), true
}

// Lookup returns a copy of the country for a cca3 or cca2 code,
// case-insensitively.
//
// A miss issues one remote fetch-by-code. Concurrent lookups of the same code
// share that fetch. The fetch is detached from ctx: if the caller gives up,
// Lookup returns ctx.Err() but the fetch still completes and its result is
// written into the index for the next caller.
//
// Both remote absence and remote failure come back as LookupNotFound; a
// failure additionally matches apperror.ErrRemote.
func (c *Cache) Lookup(ctx context.Context, code string) (*model.Country, error) {
	key := normalizeCode(code)
	if key == "" {
		c.metrics.Lookup(metrics.LookupNotFound)
		return nil, apperror.LookupNotFound(code, nil)
	}

	if country, ok := c.Cached(key); ok {
		c.metrics.Lookup(metrics.LookupHit)
		return country, nil
	}
	c.metrics.Lookup(metrics.LookupMiss)

	ch := c.lookups.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		start := time.Now()
		country, err := c.source.FetchByCode(fetchCtx, key)
		c.metrics.RemoteFetch("alpha", start)
		if err != nil {
			return nil, err
		}
		return c.insert(country), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.metrics.Lookup(metrics.LookupNotFound)
			if !errors.Is(res.Err, apperror.ErrNotFound) {
				c.logger.Warn("country lookup failed",
					slog.String("code", key),
					slog.String("error", res.Err.Error()),
				)
			}
			return nil, apperror.LookupNotFound(key, res.Err)
		}
		return res.Val.(*model.Country).Clone(), nil
	}
}

// Neighbors resolves country.Borders through Lookup concurrently and returns
// them in border order. Codes that cannot be found are skipped; any other
// failure (the caller cancelling, for instance) fails the whole call.
func (c *Cache) Neighbors(ctx context.Context, country *model.Country) ([]model.Neighbor, error) {
	if len(country.Borders) == 0 {
		return []model.Neighbor{}, nil
	}

	found := make([]*model.Country, len(country.Borders))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range country.Borders {
		i, code := i, code
		g.Go(func() error {
			n, err := c.Lookup(gctx, code)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("directory: resolving neighbor %s: %w", code, err)
			}
			found[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	neighbors := make([]model.Neighbor, 0, len(found))
	for _, n := range found {
		if n != nil {
			neighbors = append(neighbors, n.AsNeighbor())
		}
	}
	return neighbors, nil
}

// LanguageOptions returns every language display name in the directory,
// de-duplicated and sorted.
func (c *Cache) LanguageOptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	for i := range c.countries {
		for _, name := range c.countries[i].Languages {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Regions returns the fixed region filter options.
func (c *Cache) Regions() []string {
	return slices.Clone(regions)
}

// insert adds country to the index unless its code is already present and
// returns the indexed entry.
func (c *Cache) insert(country *model.Country) *model.Country {
	c.mu.Lock()
	defer c.mu.Unlock()
	indexed := c.insertLocked(country)
	c.metrics.Indexed(len(c.index))
	return indexed
}

func (c *Cache) insertLocked(country *model.Country) *model.Country {
	key := normalizeCode(country.Code)
	if existing, ok := c.index[key]; ok {
		return existing
	}
	c.index[key] = country
	if a2 := normalizeCode(country.Alpha2Code); a2 != "" {
		if _, taken := c.alias[a2]; !taken {
			c.alias[a2] = key
		}
	}
	return country
}

func (c *Cache) getLocked(key string) (*model.Country, bool) {
	if country, ok := c.index[key]; ok {
		return country, true
	}
	if target, ok := c.alias[key]; ok {
		country, ok := c.index[target]
		return country, ok
	}
	return nil, false
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
