// Package loader resolves agent module references to live handlers.
//
// Module references are resolved against a static factory registry populated
// at build time: the configuration only selects which registered constructors
// to activate. This preserves hot-reload-by-name semantics without runtime
// code loading.
package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
	"github.com/nodus-ai/agentpool/pkg/registry"
)

// Factory constructs an agent from its spec. The returned value must satisfy
// the three handler capabilities (a2a.CardProvider, a2a.Dispatcher,
// a2a.Prober); the loader verifies this at load time.
type Factory func(spec config.AgentSpec) (any, error)

// Load failure kinds. A *LoadError unwraps to one of these.
var (
	// ErrResolutionFailed marks a module reference that could not be
	// resolved or a factory that faulted during construction.
	ErrResolutionFailed = errors.New("module resolution failed")

	// ErrMissingCapability marks a constructed value that does not expose
	// the full handler contract.
	ErrMissingCapability = errors.New("module missing capability")
)

// LoadError describes why a single agent failed to load. Failures are
// isolated per agent and never abort pool startup or a wider reload.
type LoadError struct {
	Agent  string
	Module string
	Kind   error
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load agent %q (module %q): %v: %s", e.Agent, e.Module, e.Kind, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Kind
}

// Registry maps module references to factories registered at build time.
type Registry struct {
	*registry.BaseRegistry[Factory]
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Factory]()}
}

// Loader turns agent specs into live handlers. Loading mutates no shared
// state; installing the result into the mount table is the caller's step.
type Loader struct {
	factories *Registry
}

// New creates a Loader backed by the given factory registry.
func New(factories *Registry) *Loader {
	return &Loader{factories: factories}
}

// Load resolves spec.ModulePath and constructs a handler. A panicking factory
// is contained and reported as a resolution failure.
func (l *Loader) Load(spec config.AgentSpec) (handler a2a.Handler, err error) {
	factory, ok := l.factories.Get(spec.ModulePath)
	if !ok {
		return nil, &LoadError{
			Agent:  spec.Name,
			Module: spec.ModulePath,
			Kind:   ErrResolutionFailed,
			Reason: "no such module registered",
		}
	}

	defer func() {
		if r := recover(); r != nil {
			handler = nil
			err = &LoadError{
				Agent:  spec.Name,
				Module: spec.ModulePath,
				Kind:   ErrResolutionFailed,
				Reason: fmt.Sprintf("factory panicked: %v", r),
			}
		}
	}()

	value, ferr := factory(spec)
	if ferr != nil {
		return nil, &LoadError{
			Agent:  spec.Name,
			Module: spec.ModulePath,
			Kind:   ErrResolutionFailed,
			Reason: ferr.Error(),
		}
	}
	if value == nil {
		return nil, &LoadError{
			Agent:  spec.Name,
			Module: spec.ModulePath,
			Kind:   ErrResolutionFailed,
			Reason: "factory returned nil",
		}
	}

	return asHandler(spec, value)
}

// asHandler verifies the constructed value exposes all three capabilities and
// composes them into a Handler.
func asHandler(spec config.AgentSpec, value any) (a2a.Handler, error) {
	var missing []string

	if _, ok := value.(a2a.CardProvider); !ok {
		missing = append(missing, "agent card provider")
	}
	if _, ok := value.(a2a.Dispatcher); !ok {
		missing = append(missing, "a2a dispatch")
	}
	if _, ok := value.(a2a.Prober); !ok {
		missing = append(missing, "liveness probe")
	}

	if len(missing) > 0 {
		return nil, &LoadError{
			Agent:  spec.Name,
			Module: spec.ModulePath,
			Kind:   ErrMissingCapability,
			Reason: strings.Join(missing, ", "),
		}
	}

	// Holding all three capabilities is exactly the Handler contract.
	return value.(a2a.Handler), nil
}
