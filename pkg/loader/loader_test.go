package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

// stubAgent satisfies the full handler contract.
type stubAgent struct {
	name string
}

func (s *stubAgent) Card() *a2a.AgentCard {
	return &a2a.AgentCard{Name: s.name, Capabilities: []string{"noop"}}
}

func (s *stubAgent) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	return "ok", nil
}

func (s *stubAgent) Probe(ctx context.Context) error { return nil }

// cardOnlyAgent is missing dispatch and probe.
type cardOnlyAgent struct{}

func (c *cardOnlyAgent) Card() *a2a.AgentCard { return &a2a.AgentCard{Name: "partial"} }

func newTestLoader(t *testing.T, factories map[string]Factory) *Loader {
	t.Helper()
	reg := NewRegistry()
	for ref, factory := range factories {
		require.NoError(t, reg.Register(ref, factory))
	}
	return New(reg)
}

func TestLoader_Load(t *testing.T) {
	l := newTestLoader(t, map[string]Factory{
		"test.stub": func(spec config.AgentSpec) (any, error) {
			return &stubAgent{name: spec.Name}, nil
		},
	})

	handler, err := l.Load(config.AgentSpec{Name: "alpha", ModulePath: "test.stub"})
	require.NoError(t, err)
	require.NotNil(t, handler)
	assert.Equal(t, "alpha", handler.Card().Name)
}

func TestLoader_UnknownModule(t *testing.T) {
	l := newTestLoader(t, nil)

	handler, err := l.Load(config.AgentSpec{Name: "x", ModulePath: "no.such.module"})
	assert.Nil(t, handler)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "x", loadErr.Agent)
	assert.Equal(t, "no.such.module", loadErr.Module)
}

func TestLoader_FactoryError(t *testing.T) {
	l := newTestLoader(t, map[string]Factory{
		"test.broken": func(spec config.AgentSpec) (any, error) {
			return nil, fmt.Errorf("bad options")
		},
	})

	_, err := l.Load(config.AgentSpec{Name: "x", ModulePath: "test.broken"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Contains(t, err.Error(), "bad options")
}

func TestLoader_FactoryPanic(t *testing.T) {
	l := newTestLoader(t, map[string]Factory{
		"test.panicky": func(spec config.AgentSpec) (any, error) {
			panic("constructor exploded")
		},
	})

	handler, err := l.Load(config.AgentSpec{Name: "x", ModulePath: "test.panicky"})
	assert.Nil(t, handler)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Contains(t, err.Error(), "constructor exploded")
}

func TestLoader_FactoryReturnsNil(t *testing.T) {
	l := newTestLoader(t, map[string]Factory{
		"test.nil": func(spec config.AgentSpec) (any, error) {
			return nil, nil
		},
	})

	_, err := l.Load(config.AgentSpec{Name: "x", ModulePath: "test.nil"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestLoader_MissingCapabilities(t *testing.T) {
	l := newTestLoader(t, map[string]Factory{
		"test.partial": func(spec config.AgentSpec) (any, error) {
			return &cardOnlyAgent{}, nil
		},
	})

	handler, err := l.Load(config.AgentSpec{Name: "x", ModulePath: "test.partial"})
	assert.Nil(t, handler)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCapability)
	assert.Contains(t, err.Error(), "a2a dispatch")
	assert.Contains(t, err.Error(), "liveness probe")
	assert.False(t, errors.Is(err, ErrResolutionFailed))
}

func TestRegistry_DuplicateModule(t *testing.T) {
	reg := NewRegistry()
	factory := func(spec config.AgentSpec) (any, error) { return &stubAgent{}, nil }

	require.NoError(t, reg.Register("test.stub", factory))
	assert.Error(t, reg.Register("test.stub", factory))
}
