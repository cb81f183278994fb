package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          "8080",
			AllowedOrigin: "http://localhost:3000",
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		OpenAI: OpenAIConfig{
			APIKey:         "${OPENAI_API_KEY}",
			Model:          "gpt-4-turbo-preview",
			Temperature:    0.7,
			MaxTokens:      4000,
			RequestTimeout: 120 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Enabled:   true,
			Scheme:    "http",
			Host:      "localhost:8081",
			ClassName: "ReferenceDocument",
			TopK:      3,
		},
		Prompt: PromptConfig{
			MaxChars: 24000,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reviewer/data"
	}
	return home + "/.reviewer/data"
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Design reviewer configuration
# The OpenAI key uses ${ENV_VAR} syntax to reference an environment variable.
# Set it in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
