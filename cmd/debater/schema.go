package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/debate"
)

// SchemaCmd prints the JSON Schema of the process config, or of the debate
// setup accepted by POST /api/debate/start.
type SchemaCmd struct {
	Debate  bool `help:"Emit the debate config schema instead of the process config."`
	Compact bool `short:"C" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run() error {
	schema := c.build()

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

func (c *SchemaCmd) build() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var schema *jsonschema.Schema
	if c.Debate {
		schema = reflector.Reflect(&debate.Config{})
		schema.ID = "https://github.com/kadirpekel/debater/schemas/debate.json"
		schema.Title = "Debate Configuration"
		schema.Description = "Topic, debaters and pacing of a single debate"
		schema.Examples = []any{
			map[string]any{
				"topic":     "Remote work is better than office work",
				"debater_a": map[string]any{"provider": "openai", "model": "gpt-4o-mini", "position": "For"},
				"debater_b": map[string]any{"provider": "ollama", "model": "llama3.2", "position": "Against"},
				"mode":      "auto",
				"max_turns": 6,
			},
		}
	} else {
		schema = reflector.Reflect(&config.Config{})
		schema.ID = "https://github.com/kadirpekel/debater/schemas/config.json"
		schema.Title = "Debater Configuration"
		schema.Description = "Server, logging, provider and observability settings"
	}
	schema.Version = "http://json-schema.org/draft-07/schema#"
	return schema
}
