// Package pool implements the agent pool core: the mount table that routes
// names to live handlers, the reload coordinator that rebuilds entries from
// configuration, and the health aggregator.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodus-ai/agentpool/pkg/a2a"
)

// LoadStatus is the load state of a mount entry.
type LoadStatus string

const (
	StatusLoaded    LoadStatus = "loaded"
	StatusFailed    LoadStatus = "failed"
	StatusUnmounted LoadStatus = "unmounted"
)

// ErrStaleGeneration is returned by Apply when the write is based on an
// entry generation that has since moved. The later of two concurrent reloads
// of the same name loses.
var ErrStaleGeneration = errors.New("mount entry generation is stale")

// MountEntry is the runtime record for one mounted agent. Entries are
// immutable once published: a reload installs a new entry, it never mutates
// a live one, so an in-flight request keeps the handler reference it read.
type MountEntry struct {
	Name       string      `json:"name"`
	PathPrefix string      `json:"path_prefix"`
	Handler    a2a.Handler `json:"-"`
	Status     LoadStatus  `json:"load_status"`
	Reason     string      `json:"reason,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	LoadedAt   time.Time   `json:"loaded_at"`
	Generation uint64      `json:"generation"`
}

// Routable reports whether requests can be dispatched to this entry.
func (e *MountEntry) Routable() bool {
	return e.Handler != nil
}

// tableSnapshot is one immutable published state of the table. The entries
// map is never mutated after publication; order preserves mount order for
// introspection listings.
type tableSnapshot struct {
	entries map[string]*MountEntry
	order   []string
}

// Table is the mount table: the single structure shared between request
// dispatch and the reload coordinator. Reads are lock-free snapshot loads;
// writes are serialized through one mutex and publish a fresh snapshot
// atomically, so a lookup never observes a half-updated entry.
type Table struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[tableSnapshot]
}

// NewTable creates an empty mount table.
func NewTable() *Table {
	t := &Table{}
	t.snapshot.Store(&tableSnapshot{entries: map[string]*MountEntry{}})
	return t
}

// Get returns the current entry for name, if mounted.
func (t *Table) Get(name string) (*MountEntry, bool) {
	snap := t.snapshot.Load()
	entry, ok := snap.entries[name]
	return entry, ok
}

// List returns all entries in mount order.
func (t *Table) List() []*MountEntry {
	snap := t.snapshot.Load()
	out := make([]*MountEntry, 0, len(snap.order))
	for _, name := range snap.order {
		out = append(out, snap.entries[name])
	}
	return out
}

// Len returns the number of mounted entries.
func (t *Table) Len() int {
	return len(t.snapshot.Load().entries)
}

// Generation returns the current generation for name, or 0 if not mounted.
// Reload captures this before loading and passes it back to Apply as the
// stale-write witness.
func (t *Table) Generation(name string) uint64 {
	if entry, ok := t.Get(name); ok {
		return entry.Generation
	}
	return 0
}

// Apply installs a load outcome for name, based on the generation the caller
// observed before loading.
//
// On success the entry carries the new handler and a generation incremented
// from the prior entry's. On failure a previously working handler is kept
// serving (the failure is recorded on the entry); a Failed placeholder is
// installed only when no prior handler exists. A write whose basedOn no
// longer matches the live generation returns ErrStaleGeneration.
func (t *Table) Apply(name string, handler a2a.Handler, loadErr error, basedOn uint64) (*MountEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.snapshot.Load()
	prev := cur.entries[name]

	var prevGen uint64
	if prev != nil {
		prevGen = prev.Generation
	}
	if prevGen != basedOn {
		return nil, ErrStaleGeneration
	}

	var entry *MountEntry
	switch {
	case loadErr == nil:
		entry = &MountEntry{
			Name:       name,
			PathPrefix: "/" + name,
			Handler:    handler,
			Status:     StatusLoaded,
			LoadedAt:   time.Now(),
			Generation: prevGen + 1,
		}
	case prev != nil && prev.Handler != nil:
		// Failed reload of a working agent: keep the old handler and
		// generation, record what went wrong.
		clone := *prev
		clone.LastError = loadErr.Error()
		entry = &clone
	default:
		entry = &MountEntry{
			Name:       name,
			PathPrefix: "/" + name,
			Status:     StatusFailed,
			Reason:     loadErr.Error(),
			Generation: prevGen,
		}
	}

	t.publish(cur, name, entry)
	return entry, nil
}

// Unmount removes the entry for name. Returns false if it was not mounted.
func (t *Table) Unmount(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.snapshot.Load()
	if _, ok := cur.entries[name]; !ok {
		return false
	}

	entries := make(map[string]*MountEntry, len(cur.entries))
	for k, v := range cur.entries {
		if k != name {
			entries[k] = v
		}
	}
	order := make([]string, 0, len(cur.order))
	for _, n := range cur.order {
		if n != name {
			order = append(order, n)
		}
	}
	t.snapshot.Store(&tableSnapshot{entries: entries, order: order})
	return true
}

// publish copies the current snapshot with entry set and swaps it in.
// Caller holds t.mu.
func (t *Table) publish(cur *tableSnapshot, name string, entry *MountEntry) {
	entries := make(map[string]*MountEntry, len(cur.entries)+1)
	for k, v := range cur.entries {
		entries[k] = v
	}
	_, existed := cur.entries[name]
	entries[name] = entry

	order := cur.order
	if !existed {
		order = append(append([]string{}, cur.order...), name)
	}
	t.snapshot.Store(&tableSnapshot{entries: entries, order: order})
}
