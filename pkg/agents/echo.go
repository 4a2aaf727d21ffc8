package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
)

// Echo returns what it is sent. Useful as a smoke-test agent for pool wiring.
type Echo struct {
	name   string
	prefix string
}

type echoOptions struct {
	// Prefix is prepended to every echoed message.
	Prefix string `mapstructure:"prefix"`
}

// NewEcho is the builtin.echo factory.
func NewEcho(spec config.AgentSpec) (any, error) {
	var opts echoOptions
	if err := decodeOptions(spec.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid echo options: %w", err)
	}
	return &Echo{name: spec.Name, prefix: opts.Prefix}, nil
}

func (a *Echo) Card() *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:         a.name,
		Description:  "Echoes messages back to the caller",
		Version:      "1.0.0",
		Capabilities: []string{"echo", "ping"},
	}
}

func (a *Echo) Probe(ctx context.Context) error {
	return nil
}

func (a *Echo) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	switch method {
	case "echo":
		var args struct {
			Message string `mapstructure:"message"`
		}
		if err := decodeParams(params, &args); err != nil {
			return nil, err
		}
		return map[string]any{
			"message":   a.prefix + args.Message,
			"echoed_at": time.Now(),
		}, nil

	case "ping":
		return "pong", nil

	default:
		return nil, a2a.NewMethodNotFound(method)
	}
}
