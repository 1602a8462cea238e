package main

import "testing"

func TestLoggerGate(t *testing.T) {
	orig := logger
	defer func() { logger = orig }()

	logger = nil
	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("pre-run failed for root: %v", err)
	}
	if logger != nil {
		t.Error("interactive root must not build the zap logger; it owns the terminal")
	}

	if err := rootCmd.PersistentPreRunE(draftCmd, nil); err != nil {
		t.Fatalf("pre-run failed for draft: %v", err)
	}
	if logger == nil {
		t.Error("non-interactive commands need the zap logger")
	}
	_ = logger.Sync()
}
