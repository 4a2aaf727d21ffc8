// Package agents holds the built-in agent modules the pool configuration can
// select. Each agent is registered under a module reference at build time;
// the configuration picks which ones to mount and under what name.
package agents

import (
	"github.com/mitchellh/mapstructure"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/loader"
)

// Built-in module references.
const (
	ModuleCalculator = "builtin.calculator"
	ModuleWeather    = "builtin.weather"
	ModuleEcho       = "builtin.echo"
)

// RegisterBuiltins registers every built-in agent factory.
func RegisterBuiltins(reg *loader.Registry) error {
	for ref, factory := range map[string]loader.Factory{
		ModuleCalculator: NewCalculator,
		ModuleWeather:    NewWeather,
		ModuleEcho:       NewEcho,
	} {
		if err := reg.Register(ref, factory); err != nil {
			return err
		}
	}
	return nil
}

// decodeParams decodes an open params mapping into a typed argument struct.
// Numeric values are converted weakly since JSON callers send every number as
// float64.
func decodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		return a2a.NewInvalidParams(err.Error())
	}
	return nil
}

// decodeOptions decodes agent-specific configuration options.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
