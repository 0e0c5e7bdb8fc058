package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read when a value is not set in the config file.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvAnthropicKey  = "ANTHROPIC_API_KEY"
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvGoogleKey     = "GOOGLE_API_KEY"
	EnvOllamaBaseURL = "OLLAMA_BASE_URL"
	EnvHost          = "HOST"
	EnvPort          = "PORT"
	EnvDebug         = "DEBUG"
	EnvCORSOrigins   = "CORS_ORIGINS"
)

// LoadDotEnv loads .env files without overwriting existing variables.
//
// Search order (first definition wins):
//  1. Explicit paths
//  2. .env in the current directory
//  3. .env in the home directory
func LoadDotEnv(paths ...string) {
	for _, path := range paths {
		if path != "" {
			loadIfExists(path)
		}
	}
	loadIfExists(".env")
	if home, err := os.UserHomeDir(); err == nil {
		loadIfExists(filepath.Join(home, ".env"))
	}
}

// LoadDotEnvForConfig loads .env from the config file's directory first.
func LoadDotEnvForConfig(configPath string) {
	if configPath == "" {
		LoadDotEnv()
		return
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		LoadDotEnv()
		return
	}
	LoadDotEnv(filepath.Join(filepath.Dir(abs), ".env"))
}

func loadIfExists(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Debug("Failed to load .env file", "path", path, "error", err)
		return
	}
	slog.Debug("Loaded environment from .env", "path", path)
}

// placeholder matches ${VAR}, ${VAR:-default} and bare $VAR.
var placeholder = regexp.MustCompile(`\$(?:\{([^}:]+)(?::-([^}]*))?\}|([A-Za-z_][A-Za-z0-9_]*))`)

// substitute replaces placeholders in s. A default applies when the
// variable is unset or empty.
func substitute(s string) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		g := placeholder.FindStringSubmatch(m)
		if g[3] != "" {
			return os.Getenv(g[3])
		}
		if v := os.Getenv(g[1]); v != "" {
			return v
		}
		return g[2]
	})
}

// expand walks a decoded YAML tree and substitutes every string leaf.
func expand(node any) any {
	switch n := node.(type) {
	case string:
		return substitute(n)
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = expand(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = expand(n[i])
		}
		return out
	}
	return node
}

// applyEnv fills unset fields from the process environment.
func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.Providers.OpenAI.APIKey, os.Getenv(EnvOpenAIKey))
	setIfEmpty(&cfg.Providers.Anthropic.APIKey, os.Getenv(EnvAnthropicKey))
	setIfEmpty(&cfg.Providers.Gemini.APIKey, os.Getenv(EnvGeminiKey))
	setIfEmpty(&cfg.Providers.Gemini.APIKey, os.Getenv(EnvGoogleKey))
	setIfEmpty(&cfg.Providers.Ollama.BaseURL, os.Getenv(EnvOllamaBaseURL))
	setIfEmpty(&cfg.Server.Host, os.Getenv(EnvHost))

	if cfg.Server.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv(EnvPort)); err == nil {
			cfg.Server.Port = p
		}
	}
	if !cfg.Server.Debug {
		cfg.Server.Debug, _ = strconv.ParseBool(os.Getenv(EnvDebug))
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = parseList(os.Getenv(EnvCORSOrigins))
	}
}

// parseList accepts a JSON array or a comma separated list.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
