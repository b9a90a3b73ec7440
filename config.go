package askai

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/askai/default"
)

// Backend names accepted in engine.backend.
const (
	BackendLlamaCpp = "llamacpp"
	BackendOllama   = "ollama"
)

// Config represents the user's askai configuration.
type Config struct {
	Version     int          `toml:"version"`
	ContextPath string       `toml:"context_path"`
	LogLevel    string       `toml:"log_level"`
	Engine      EngineConfig `toml:"engine"`
	Prompt      PromptConfig `toml:"prompt"`
}

// EngineConfig holds settings for the inference engine.
type EngineConfig struct {
	Backend                string `toml:"backend"`
	BaseURL                string `toml:"base_url"`
	Model                  string `toml:"model"`
	ModelPath              string `toml:"model_path"`
	ServerBinary           string `toml:"server_binary"`
	StartupTimeoutSeconds  int    `toml:"startup_timeout_seconds"`
	MaxLength              int    `toml:"max_length"`
	SharePastPresentBuffer bool   `toml:"share_past_present_buffer"`
}

// PromptConfig holds settings for prompt construction.
type PromptConfig struct {
	System        string `toml:"system"`
	RedactSecrets bool   `toml:"redact_secrets"`
}

// ConfigDir returns the config directory path.
// Resolution order: $ASKAI_CONFIG_DIR > $XDG_CONFIG_HOME/askai > ~/.config/askai
func ConfigDir() string {
	if dir := os.Getenv("ASKAI_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "askai")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "askai-config")
	}
	return filepath.Join(home, ".config", "askai")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SystemPromptPath returns the path of the optional custom system prompt.
func SystemPromptPath() string {
	return filepath.Join(ConfigDir(), "system_prompt.md")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("askai: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.ContextPath == "" {
		cfg.ContextPath = defaults.ContextPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Engine.Backend == "" {
		cfg.Engine.Backend = defaults.Engine.Backend
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = defaults.Engine.Model
	}
	if cfg.Engine.ServerBinary == "" {
		cfg.Engine.ServerBinary = defaults.Engine.ServerBinary
	}
	if cfg.Engine.StartupTimeoutSeconds == 0 {
		cfg.Engine.StartupTimeoutSeconds = defaults.Engine.StartupTimeoutSeconds
	}
	if cfg.Engine.MaxLength == 0 {
		cfg.Engine.MaxLength = defaults.Engine.MaxLength
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	switch ResolveBackend(cfg) {
	case BackendLlamaCpp:
	case BackendOllama:
		if ResolveModel(cfg) == "" {
			warnings = append(warnings, "ollama backend selected but engine.model is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown engine.backend %q; expected %q or %q", cfg.Engine.Backend, BackendLlamaCpp, BackendOllama))
	}
	if cfg.Engine.MaxLength <= 0 {
		warnings = append(warnings, fmt.Sprintf("engine.max_length is %d; the default will be used", cfg.Engine.MaxLength))
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log_level %q", cfg.LogLevel))
	}
	return warnings
}

// ResolveContextPath returns the transcript file path.
// Priority: $ASKAI_CONTEXT_PATH env > config value.
func ResolveContextPath(cfg *Config) string {
	if path := os.Getenv("ASKAI_CONTEXT_PATH"); path != "" {
		return path
	}
	if cfg != nil && cfg.ContextPath != "" {
		return cfg.ContextPath
	}
	return "context.txt"
}

// ResolveBackend returns the inference backend name, lower-cased.
// Priority: $ASKAI_BACKEND env > config value.
func ResolveBackend(cfg *Config) string {
	if backend := os.Getenv("ASKAI_BACKEND"); backend != "" {
		return strings.ToLower(backend)
	}
	if cfg != nil {
		return strings.ToLower(cfg.Engine.Backend)
	}
	return ""
}

// ResolveEngineURL returns the inference server base URL.
// Priority: $ASKAI_ENGINE_URL env > config value.
func ResolveEngineURL(cfg *Config) string {
	if url := os.Getenv("ASKAI_ENGINE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Engine.BaseURL
	}
	return ""
}

// ResolveModel returns the model name.
// Priority: $ASKAI_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("ASKAI_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Engine.Model
	}
	return ""
}

// ResolveModelPath returns the model file handed to a locally started engine.
// Priority: $ASKAI_MODEL_PATH env > config value.
func ResolveModelPath(cfg *Config) string {
	if path := os.Getenv("ASKAI_MODEL_PATH"); path != "" {
		return path
	}
	if cfg != nil {
		return cfg.Engine.ModelPath
	}
	return ""
}

// ResolveServerBinary returns the llama-server executable.
// Priority: $ASKAI_LLAMA_SERVER env > config value.
func ResolveServerBinary(cfg *Config) string {
	if bin := os.Getenv("ASKAI_LLAMA_SERVER"); bin != "" {
		return bin
	}
	if cfg != nil && cfg.Engine.ServerBinary != "" {
		return cfg.Engine.ServerBinary
	}
	return "llama-server"
}

// ResolveMaxLength returns the generation length bound in tokens.
func ResolveMaxLength(cfg *Config) int {
	if cfg != nil && cfg.Engine.MaxLength > 0 {
		return cfg.Engine.MaxLength
	}
	return 2048
}

// Verbose reports whether debug logging is requested.
// $ASKAI_VERBOSE set to anything but "", "0" or "false" wins over log_level.
func Verbose(cfg *Config) bool {
	switch strings.ToLower(os.Getenv("ASKAI_VERBOSE")) {
	case "", "0", "false":
	default:
		return true
	}
	return cfg != nil && strings.EqualFold(cfg.LogLevel, "debug")
}
