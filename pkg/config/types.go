// Copyright 2026 Nodus AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the pool configuration schema and its loading
// pipeline. The on-disk contract is the JSON object
// {pool: {...}, agents: [{name, module_path, enabled, config}]}; YAML is
// accepted as an equivalent encoding of the same schema.
package config

import (
	"fmt"
	"regexp"
)

// Config is the root pool configuration.
type Config struct {
	Pool   PoolConfig  `json:"pool" yaml:"pool" mapstructure:"pool"`
	Agents []AgentSpec `json:"agents" yaml:"agents" mapstructure:"agents"`
}

// PoolConfig identifies the pool itself.
type PoolConfig struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty" mapstructure:"version"`
}

// AgentSpec declares one agent: its pool-unique name (used as the mount path
// segment), the module reference resolved by the loader, and agent-specific
// options passed opaquely to the module factory.
type AgentSpec struct {
	Name       string         `json:"name" yaml:"name" mapstructure:"name"`
	ModulePath string         `json:"module_path" yaml:"module_path" mapstructure:"module_path"`
	Enabled    *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty" mapstructure:"enabled"`
	Options    map[string]any `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
}

// IsEnabled reports whether the spec is active. Enabled defaults to true when
// omitted.
func (s *AgentSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// agentNamePattern restricts names to path-segment-safe characters.
var agentNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedNames are path segments claimed by the pool's own HTTP surface.
var reservedNames = map[string]bool{
	"agents":  true,
	"health":  true,
	"reload":  true,
	"metrics": true,
}

// SetDefaults fills in defaults for omitted fields.
func (c *Config) SetDefaults() {
	if c.Pool.Name == "" {
		c.Pool.Name = "agent-pool"
	}
	if c.Pool.Version == "" {
		c.Pool.Version = "1.0.0"
	}
}

// Validate checks the schema invariants: unique, non-empty, path-safe,
// non-reserved agent names and a module reference per agent.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		spec := &c.Agents[i]
		if spec.Name == "" {
			return fmt.Errorf("agents[%d]: name is required", i)
		}
		if !agentNamePattern.MatchString(spec.Name) {
			return fmt.Errorf("agent %q: name must match %s", spec.Name, agentNamePattern)
		}
		if reservedNames[spec.Name] {
			return fmt.Errorf("agent %q: name is reserved by the pool", spec.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("agent %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true
		if spec.ModulePath == "" {
			return fmt.Errorf("agent %q: module_path is required", spec.Name)
		}
	}
	return nil
}

// EnabledAgents returns the active specs in configuration order.
func (c *Config) EnabledAgents() []AgentSpec {
	out := make([]AgentSpec, 0, len(c.Agents))
	for _, spec := range c.Agents {
		if spec.IsEnabled() {
			out = append(out, spec)
		}
	}
	return out
}

// FindAgent returns the spec with the given name, enabled or not.
func (c *Config) FindAgent(name string) (*AgentSpec, bool) {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i], true
		}
	}
	return nil, false
}
