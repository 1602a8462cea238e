package config

import (
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_MODEL_NAME",
		"REPLYDESK_INBOX", "REPLYDESK_USER_DATA_DIR",
		"REPLYDESK_PROFILE_DIR", "REPLYDESK_JOURNAL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxReviewChars != 700 {
		t.Errorf("expected MaxReviewChars=700, got %d", cfg.LLM.MaxReviewChars)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.LLM.MaxRetries)
	}
	if cfg.LLM.Temperature != 0.40 {
		t.Errorf("expected Temperature=0.40, got %v", cfg.LLM.Temperature)
	}
	if cfg.Browser.ViewportWidth != 1920 || cfg.Browser.ViewportHeight != 1080 {
		t.Errorf("expected 1920x1080 viewport, got %dx%d",
			cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	if !cfg.Inbox.Watch {
		t.Error("expected inbox watching on by default")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "replydesk.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.0-flash"
	cfg.Inbox.Dir = "/srv/exports"
	cfg.Browser.UserDataDir = "/home/op/.config/google-chrome"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Provider != "gemini" {
		t.Errorf("expected Provider=gemini, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("expected Model=gemini-2.0-flash, got %s", loaded.LLM.Model)
	}
	if loaded.Inbox.Dir != "/srv/exports" {
		t.Errorf("expected Inbox.Dir=/srv/exports, got %s", loaded.Inbox.Dir)
	}
	if loaded.Browser.UserDataDir != "/home/op/.config/google-chrome" {
		t.Errorf("expected UserDataDir round-trip, got %s", loaded.Browser.UserDataDir)
	}
}

func TestConfig_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gm-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "gm-key" {
		t.Errorf("expected gemini via GEMINI_API_KEY, got %s/%s", cfg.LLM.Provider, cfg.LLM.APIKey)
	}

	// OpenAI key wins when both are set.
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("OPENAI_MODEL_NAME", "gpt-4o-mini")
	t.Setenv("REPLYDESK_INBOX", "/mnt/exports")
	t.Setenv("REPLYDESK_PROFILE_DIR", "Profile 2")

	cfg, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "oa-key" {
		t.Errorf("expected openai to take priority, got %s/%s", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model override, got %s", cfg.LLM.Model)
	}
	if cfg.Inbox.Dir != "/mnt/exports" {
		t.Errorf("expected inbox override, got %s", cfg.Inbox.Dir)
	}
	if cfg.Browser.ProfileDirectory != "Profile 2" {
		t.Errorf("expected profile override, got %s", cfg.Browser.ProfileDirectory)
	}
}

func TestTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetLLMTimeout(); got != 60*time.Second {
		t.Errorf("expected 60s LLM timeout, got %v", got)
	}
	cfg.LLM.Timeout = "garbage"
	if got := cfg.GetLLMTimeout(); got != 60*time.Second {
		t.Errorf("expected fallback on bad duration, got %v", got)
	}

	b := BrowserConfig{NavigationTimeoutMs: 5000, ElementTimeoutMs: 0}
	if got := b.NavigationTimeout(); got != 5*time.Second {
		t.Errorf("expected 5s navigation timeout, got %v", got)
	}
	if got := b.ElementTimeout(); got != 30*time.Second {
		t.Errorf("expected 30s default element timeout, got %v", got)
	}
}
