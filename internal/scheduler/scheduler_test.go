package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyLoader fails the first failures calls.
type flakyLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   bool
}

func (f *flakyLoader) LoadAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("countries API unavailable")
	}
	f.loaded = true
	return nil
}

func (f *flakyLoader) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *flakyLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestScheduler_RetriesUntilLoaded(t *testing.T) {
	loader := &flakyLoader{failures: 2}
	s := New(loader, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, loader.Loaded, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, loader.callCount())

	// Further ticks do not touch the loader.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, loader.callCount())
}
