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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/nodus-ai/agentpool/pkg/config"
)

// SchemaCmd generates a JSON Schema for the pool configuration. Output goes to
// stdout so it can be redirected.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})

	schema.ID = "https://nodus-ai.dev/schemas/agentpool.json"
	schema.Title = "Agent Pool Configuration Schema"
	schema.Description = "Configuration schema for the agent pool manager"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"pool": map[string]interface{}{
				"name":        "demo-pool",
				"description": "Calculator, weather and echo agents",
			},
			"agents": []interface{}{
				map[string]interface{}{
					"name":        "calculator",
					"module_path": "builtin.calculator",
				},
				map[string]interface{}{
					"name":        "weather",
					"module_path": "builtin.weather",
					"config":      map[string]interface{}{"timeout_seconds": 10},
				},
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	return nil
}
