// Package debater runs debates between two text generation models.
//
// Two debaters, each bound to a provider (OpenAI, Anthropic, Gemini or a
// local Ollama server), argue opposite positions on a topic. Turns alternate
// strictly and stream as they are generated.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/kadirpekel/debater/cmd/debater@latest
//
// Serve the HTTP API (providers are configured through the environment or a
// config file):
//
//	export OPENAI_API_KEY=...
//	debater serve --port 8000
//
// Or run a debate in the terminal:
//
//	debater run --topic "Remote work beats the office" \
//	  --a openai:gpt-4o-mini:"Remote work wins" \
//	  --b ollama:llama3.2:"The office wins" --mode auto --turns 6
//
// # Packages
//
//   - pkg/debate: the turn loop, events, export and import
//   - pkg/model: the generation capability and its backends
//   - pkg/provider: the shared provider registry
//   - pkg/server: the HTTP, WebSocket and SSE API
//   - pkg/config: YAML and environment configuration
package debater
