package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	LLMProviders map[string]ProviderConfig `json:"llm_providers"`
	Search       SearchConfig              `json:"search"`
	Data         DataConfig                `json:"data"`
}

// ProviderConfig represents LLM provider configuration
type ProviderConfig struct {
	DisplayName  string   `json:"display_name,omitempty"` // Display name for UI
	APIKey       string   `json:"api_key"`
	BaseURL      string   `json:"base_url"`
	DefaultModel string   `json:"default_model"`
	Models       []string `json:"models,omitempty"` // Available models list
	Enabled      bool     `json:"enabled"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`
}

// SearchConfig represents web enrichment configuration
type SearchConfig struct {
	Enabled         bool   `json:"enabled"`
	EngineBaseURL   string `json:"engine_base_url,omitempty"`
	MaxResults      int    `json:"max_results,omitempty"`
	FetchTimeoutSec int    `json:"fetch_timeout_sec,omitempty"`
	FetchMaxBytes   int64  `json:"fetch_max_bytes,omitempty"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath     string `json:"db_path"`
	BlobDir    string `json:"blob_dir"`
	MaxHistory int    `json:"max_history"`
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths
	if config.Data.DBPath != "" {
		config.Data.DBPath = expandPath(config.Data.DBPath)
	}
	if config.Data.BlobDir != "" {
		config.Data.BlobDir = expandPath(config.Data.BlobDir)
	}

	return &config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	// Make absolute
	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	// Try to get user config directory
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to current directory
		return "./config/default.json"
	}

	return filepath.Join(configDir, "light-chat-engine", "config.json")
}

// EnsureDefaultConfig creates a default config file if it doesn't exist
func EnsureDefaultConfig() (string, error) {
	configPath := GetConfigPath()

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	// Create default config
	defaultConfig := &Config{
		LLMProviders: map[string]ProviderConfig{
			"openai": {
				DisplayName:  "OpenAI",
				APIKey:       "",
				BaseURL:      "https://api.openai.com/v1",
				DefaultModel: "gpt-4o",
				Models: []string{
					"gpt-4o",
					"gpt-4-turbo",
					"gpt-3.5-turbo",
				},
				Enabled: true,
			},
			"claude": {
				DisplayName:  "Claude",
				APIKey:       "",
				BaseURL:      "https://api.anthropic.com/v1",
				DefaultModel: "claude-3-5-sonnet-20241022",
				Models: []string{
					"claude-3-5-sonnet-20241022",
					"claude-3-5-haiku-20241022",
				},
				MaxTokens:   4096,
				Temperature: 0.7,
				Enabled:     false,
			},
			"gemini": {
				DisplayName:  "Gemini",
				APIKey:       "",
				BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
				DefaultModel: "gemini-1.5-flash",
				Models: []string{
					"gemini-1.5-flash",
					"gemini-1.5-pro",
				},
				MaxTokens:   8192,
				Temperature: 0.7,
				Enabled:     false,
			},
			"ollama": {
				DisplayName:  "Ollama",
				BaseURL:      "http://localhost:11434",
				DefaultModel: "llama3",
				Models: []string{
					"llama3",
					"mistral",
					"deepseek-r1",
				},
				Enabled: false,
			},
		},
		Search: SearchConfig{
			Enabled:         true,
			MaxResults:      5,
			FetchTimeoutSec: 30,
			FetchMaxBytes:   5 * 1024 * 1024,
		},
		Data: DataConfig{
			DBPath:     "./data/chat.db",
			BlobDir:    "./data/blobs",
			MaxHistory: 1000,
		},
	}

	if err := SaveConfig(configPath, defaultConfig); err != nil {
		return "", err
	}

	return configPath, nil
}
