package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-ai/agentpool/pkg/a2a"
)

type stubHandler struct {
	id string
}

func (s *stubHandler) Card() *a2a.AgentCard { return &a2a.AgentCard{Name: s.id} }

func (s *stubHandler) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	return s.id, nil
}

func (s *stubHandler) Probe(ctx context.Context) error { return nil }

func TestTable_ApplyAndGet(t *testing.T) {
	table := NewTable()

	entry, err := table.Apply("calc", &stubHandler{id: "v1"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, entry.Status)
	assert.Equal(t, uint64(1), entry.Generation)
	assert.Equal(t, "/calc", entry.PathPrefix)
	assert.False(t, entry.LoadedAt.IsZero())

	got, ok := table.Get("calc")
	require.True(t, ok)
	assert.True(t, got.Routable())
	assert.Same(t, entry, got)

	_, ok = table.Get("ghost")
	assert.False(t, ok)
}

func TestTable_GenerationAdvancesPerReload(t *testing.T) {
	table := NewTable()

	for want := uint64(1); want <= 3; want++ {
		gen := table.Generation("calc")
		entry, err := table.Apply("calc", &stubHandler{}, nil, gen)
		require.NoError(t, err)
		assert.Equal(t, want, entry.Generation)
	}
}

func TestTable_FailedReloadKeepsWorkingHandler(t *testing.T) {
	table := NewTable()

	working := &stubHandler{id: "v1"}
	_, err := table.Apply("calc", working, nil, 0)
	require.NoError(t, err)

	entry, err := table.Apply("calc", nil, errors.New("module broke"), 1)
	require.NoError(t, err)

	// Old handler keeps serving; generation does not advance on failure.
	assert.Equal(t, StatusLoaded, entry.Status)
	assert.Same(t, a2a.Handler(working), entry.Handler)
	assert.Equal(t, uint64(1), entry.Generation)
	assert.Equal(t, "module broke", entry.LastError)
	assert.True(t, entry.Routable())
}

func TestTable_InitialFailureMountsPlaceholder(t *testing.T) {
	table := NewTable()

	entry, err := table.Apply("calc", nil, errors.New("no such module"), 0)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, entry.Status)
	assert.Equal(t, "no such module", entry.Reason)
	assert.Equal(t, uint64(0), entry.Generation)
	assert.False(t, entry.Routable())

	// The failed placeholder is visible in listings.
	got, ok := table.Get("calc")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestTable_StaleApplyRejected(t *testing.T) {
	table := NewTable()

	_, err := table.Apply("calc", &stubHandler{id: "a"}, nil, 0)
	require.NoError(t, err)

	// Two reloads both observed generation 1; the first to apply wins.
	_, err = table.Apply("calc", &stubHandler{id: "b"}, nil, 1)
	require.NoError(t, err)

	_, err = table.Apply("calc", &stubHandler{id: "c"}, nil, 1)
	assert.ErrorIs(t, err, ErrStaleGeneration)

	entry, _ := table.Get("calc")
	assert.Equal(t, "b", entry.Handler.(*stubHandler).id)
	assert.Equal(t, uint64(2), entry.Generation)
}

func TestTable_Unmount(t *testing.T) {
	table := NewTable()

	_, err := table.Apply("calc", &stubHandler{}, nil, 0)
	require.NoError(t, err)

	assert.True(t, table.Unmount("calc"))
	assert.False(t, table.Unmount("calc"))

	_, ok := table.Get("calc")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())

	// Remount after unmount starts generations over.
	entry, err := table.Apply("calc", &stubHandler{}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Generation)
}

func TestTable_ListPreservesMountOrder(t *testing.T) {
	table := NewTable()

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		_, err := table.Apply(name, &stubHandler{}, nil, 0)
		require.NoError(t, err)
	}

	// Reloading an existing entry must not move it.
	_, err := table.Apply("zeta", &stubHandler{}, nil, 1)
	require.NoError(t, err)

	entries := table.List()
	require.Len(t, entries, 3)
	for i, name := range names {
		assert.Equal(t, name, entries[i].Name)
	}
}

func TestTable_ConcurrentReadersAndWriters(t *testing.T) {
	table := NewTable()
	_, err := table.Apply("calc", &stubHandler{}, nil, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if entry, ok := table.Get("calc"); ok && entry.Routable() {
					_, _ = entry.Handler.Dispatch(context.Background(), "noop", nil)
				}
				_ = table.List()
			}
		}()
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("agent-%d", n)
			for j := 0; j < 20; j++ {
				gen := table.Generation(name)
				_, _ = table.Apply(name, &stubHandler{}, nil, gen)
			}
		}(i)
	}
	wg.Wait()

	entry, ok := table.Get("calc")
	require.True(t, ok)
	assert.True(t, entry.Routable())
}
