package pool

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nodus-ai/agentpool/pkg/config"
	"github.com/nodus-ai/agentpool/pkg/loader"
)

// ErrNotInConfig is returned by ReloadOne for a name absent from (or disabled
// in) the current configuration.
var ErrNotInConfig = errors.New("agent not found in configuration")

// LoadResult is the per-agent outcome of a mount or reload operation.
type LoadResult struct {
	Status     LoadStatus `json:"status"`
	Generation uint64     `json:"generation,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Coordinator rebuilds mount table entries from configuration. Reloads read
// the configuration fresh each time, load each enabled agent through the
// module loader, and apply each outcome independently: one agent's failure
// neither blocks nor rolls back the others. Safe to run concurrently with
// request dispatch; concurrent reloads of the same name are serialized by the
// table's generation check.
type Coordinator struct {
	cfgLoader *config.Loader
	modules   *loader.Loader
	table     *Table
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfgLoader *config.Loader, modules *loader.Loader, table *Table) *Coordinator {
	return &Coordinator{
		cfgLoader: cfgLoader,
		modules:   modules,
		table:     table,
	}
}

// MountAll performs the initial load of every enabled agent in cfg. Used at
// bootstrap with the already-loaded startup configuration.
func (c *Coordinator) MountAll(ctx context.Context, cfg *config.Config) map[string]LoadResult {
	results := make(map[string]LoadResult)
	for _, spec := range cfg.EnabledAgents() {
		results[spec.Name] = c.reload(spec)
	}
	return results
}

// ReloadAll re-reads the configuration and rebuilds every enabled agent.
// Agents that disappeared from (or were disabled in) the fresh configuration
// are unmounted; the unmount happens only after the fresh read succeeded, so
// a broken config file never tears down a serving pool. Returns an error only
// when the configuration itself cannot be read; per-agent failures land in
// the result mapping.
func (c *Coordinator) ReloadAll(ctx context.Context) (map[string]LoadResult, error) {
	cfg, err := c.cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	active := make(map[string]bool)
	results := make(map[string]LoadResult)

	for _, spec := range cfg.EnabledAgents() {
		active[spec.Name] = true
		results[spec.Name] = c.reload(spec)
	}

	// Absence confirmed by the successful fresh read above.
	for _, entry := range c.table.List() {
		if !active[entry.Name] {
			c.table.Unmount(entry.Name)
			slog.Info("Agent unmounted", "agent", entry.Name)
			results[entry.Name] = LoadResult{Status: StatusUnmounted}
		}
	}

	return results, nil
}

// ReloadOne re-reads the configuration and rebuilds the single named agent.
func (c *Coordinator) ReloadOne(ctx context.Context, name string) (LoadResult, error) {
	cfg, err := c.cfgLoader.Load(ctx)
	if err != nil {
		return LoadResult{}, err
	}

	spec, ok := cfg.FindAgent(name)
	if !ok || !spec.IsEnabled() {
		return LoadResult{}, ErrNotInConfig
	}

	return c.reload(*spec), nil
}

// reload loads one spec and applies the outcome to the table. The generation
// observed before loading serializes concurrent reloads of the same name.
func (c *Coordinator) reload(spec config.AgentSpec) LoadResult {
	basedOn := c.table.Generation(spec.Name)

	handler, loadErr := c.modules.Load(spec)
	if loadErr != nil {
		slog.Error("Agent load failed", "agent", spec.Name, "module", spec.ModulePath, "error", loadErr)
	}

	entry, applyErr := c.table.Apply(spec.Name, handler, loadErr, basedOn)
	if applyErr != nil {
		// A concurrent reload won the race; its result stands.
		slog.Warn("Reload superseded", "agent", spec.Name, "error", applyErr)
		return LoadResult{Status: StatusFailed, Error: applyErr.Error()}
	}

	result := LoadResult{Status: entry.Status, Generation: entry.Generation}
	if loadErr != nil {
		result.Status = StatusFailed
		result.Error = loadErr.Error()
	} else {
		slog.Info("Agent mounted", "agent", spec.Name, "module", spec.ModulePath, "generation", entry.Generation)
	}
	return result
}
