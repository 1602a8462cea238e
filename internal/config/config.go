// Package config holds all replydesk configuration. Settings load from a
// YAML file with environment overrides on top; a .env file beside the
// working directory is honored so API keys stay out of the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all replydesk configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Inbox   InboxConfig   `yaml:"inbox"`
	Browser BrowserConfig `yaml:"browser"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the reply-generation call.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // openai, gemini
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	Timeout        string  `yaml:"timeout"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	MaxReviewChars int     `yaml:"max_review_chars"` // truncation bound before prompting
	MaxRetries     int     `yaml:"max_retries"`
	DraftWorkers   int     `yaml:"draft_workers"` // concurrent pre-generation bound
}

// InboxConfig configures where review exports are picked up.
type InboxConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// BrowserConfig configures the posting Chrome session. The user data dir and
// profile directory point at the operator's logged-in profile so the console
// session is reused.
type BrowserConfig struct {
	ChromeBin           string `yaml:"chrome_bin"`
	UserDataDir         string `yaml:"user_data_dir"`
	ProfileDirectory    string `yaml:"profile_directory"`
	Headless            bool   `yaml:"headless"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	ElementTimeoutMs    int    `yaml:"element_timeout_ms"`
}

// JournalConfig configures the posting journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o",
			BaseURL:        "https://api.openai.com/v1",
			Timeout:        "60s",
			MaxTokens:      200,
			Temperature:    0.40,
			MaxReviewChars: 700,
			MaxRetries:     3,
			DraftWorkers:   2,
		},
		Inbox: InboxConfig{
			Dir:   "exports",
			Watch: true,
		},
		Browser: BrowserConfig{
			ProfileDirectory:    "Default",
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
			ElementTimeoutMs:    30000,
		},
		Journal: JournalConfig{
			Path: "data/replydesk.db",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load loads configuration from a YAML file, applying .env and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API key selects the provider (checked in priority order).
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		c.LLM.Model = model
	}

	if dir := os.Getenv("REPLYDESK_INBOX"); dir != "" {
		c.Inbox.Dir = dir
	}
	if dir := os.Getenv("REPLYDESK_USER_DATA_DIR"); dir != "" {
		c.Browser.UserDataDir = dir
	}
	if dir := os.Getenv("REPLYDESK_PROFILE_DIR"); dir != "" {
		c.Browser.ProfileDirectory = dir
	}
	if path := os.Getenv("REPLYDESK_JOURNAL"); path != "" {
		c.Journal.Path = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// NavigationTimeout returns the browser navigation timeout as a duration.
func (c *BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ElementTimeout returns the element-wait timeout as a duration.
func (c *BrowserConfig) ElementTimeout() time.Duration {
	if c.ElementTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ElementTimeoutMs) * time.Millisecond
}
