// Package config loads service configuration through viper with defaults,
// environment overrides, and hot reload. Core components never read the
// environment themselves; everything is resolved here and injected.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// StoreConfig configures the embedded template store.
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// OpenAIConfig configures the generative-model client. APIKey supports
// ${ENV_VAR} references resolved at use time.
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RetrievalConfig configures the reference knowledge base connection.
type RetrievalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Scheme    string `mapstructure:"scheme"`
	Host      string `mapstructure:"host"`
	ClassName string `mapstructure:"class_name"`
	TopK      int    `mapstructure:"top_k"`
}

// PromptConfig tunes prompt assembly.
type PromptConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

// initViper sets up defaults, env binding, and the config file.
func (m *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("server", defaults.Server)
	viper.SetDefault("store", defaults.Store)
	viper.SetDefault("openai", defaults.OpenAI)
	viper.SetDefault("retrieval", defaults.Retrieval)
	viper.SetDefault("prompt", defaults.Prompt)

	// Environment variables with REVIEWER_ prefix
	viper.SetEnvPrefix("REVIEWER")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.reviewer")
	}

	// Config file is optional; defaults plus env are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot-reloading of the config file.
func (m *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// envVarPattern matches ${ENV_VAR} references.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ResolveAPIKey returns the OpenAI credential with env references expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.OpenAI.APIKey)
}
