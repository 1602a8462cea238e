package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"replydesk/cmd/replydesk/ui"
	"replydesk/internal/config"
	"replydesk/internal/draft"
	"replydesk/internal/journal"
	"replydesk/internal/logging"
	"replydesk/internal/poster"
	"replydesk/internal/review"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.3.0"

var (
	// Global flags
	verbose    bool
	configPath string
	inboxDir   string
	headless   bool

	// Logger for the non-interactive commands
	logger *zap.Logger
)

// rootCmd launches the interactive review pager.
var rootCmd = &cobra.Command{
	Use:   "replydesk",
	Short: "replydesk - draft and post replies to business reviews",
	Long: `replydesk loads the newest review export from the inbox directory,
pre-generates a reply draft for every unanswered review, and opens an
interactive pager where each draft can be edited and posted into the
review console through a logged-in Chrome profile.

Run without arguments to start the interactive interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Interactive mode logs to files only; zap would fight the TUI.
		if cmd == cmd.Root() {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// draftCmd generates drafts without opening the pager.
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate reply drafts for the newest export and print them",
	Long: `Loads the newest review export, drafts a reply for every review that
has no owner answer yet, and prints the pairs to stdout. Nothing is
posted; use the interactive interface for that.`,
	RunE: runDraft,
}

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = "replydesk.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("replydesk %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: replydesk.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&inboxDir, "inbox", "", "Directory holding review exports (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the posting browser headless")

	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat("replydesk.yaml"); err == nil {
			path = "replydesk.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if inboxDir != "" {
		cfg.Inbox.Dir = inboxDir
	}
	if headless {
		cfg.Browser.Headless = true
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newDrafter builds the configured LLM client and wraps it in a generator
// seeded with the already-answered reviews as few-shot examples.
func newDrafter(ctx context.Context, cfg *config.Config, reviews []review.Review) (*draft.Generator, error) {
	opts := draft.DefaultOptions()
	opts.MaxReviewChars = cfg.LLM.MaxReviewChars
	opts.MaxRetries = cfg.LLM.MaxRetries
	opts.Workers = cfg.LLM.DraftWorkers

	var client draft.LLMClient
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := draft.NewGeminiClient(ctx, draft.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, err
		}
		client = c
	case "openai", "":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("no API key configured; set OPENAI_API_KEY or GEMINI_API_KEY")
		}
		client = draft.NewOpenAIClientWithConfig(draft.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.GetLLMTimeout(),
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	return draft.NewGenerator(client, opts, reviews), nil
}

func posterConfig(cfg *config.Config) poster.Config {
	return poster.Config{
		ChromeBin:        cfg.Browser.ChromeBin,
		UserDataDir:      cfg.Browser.UserDataDir,
		ProfileDirectory: cfg.Browser.ProfileDirectory,
		Headless:         cfg.Browser.Headless,
		ViewportWidth:    cfg.Browser.ViewportWidth,
		ViewportHeight:   cfg.Browser.ViewportHeight,
		NavTimeout:       cfg.Browser.NavigationTimeout(),
		ElemTimeout:      cfg.Browser.ElementTimeout(),
	}
}

// runInteractive wires the full pipeline and hands control to the pager.
func runInteractive() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.CloseAll()
	logging.Boot("replydesk %s starting, inbox=%s", version, cfg.Inbox.Dir)

	loader := review.NewLoader(cfg.Inbox.Dir)
	business, reviews, err := loader.LoadLatest()
	if err != nil {
		if errors.Is(err, review.ErrNoExport) {
			return fmt.Errorf("no .xlsx review export in %s; download one from the review console first", cfg.Inbox.Dir)
		}
		return err
	}
	logging.Inbox("loaded %d reviews for %q", len(reviews), business.Name)

	ctx := context.Background()
	drafter, err := newDrafter(ctx, cfg, reviews)
	if err != nil {
		return err
	}

	session := poster.NewSession(posterConfig(cfg))
	defer session.Shutdown()

	jn, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		// The journal is a convenience; posting still works without it.
		logging.JournalError("open failed, continuing without journal: %v", err)
		jn = nil
	} else {
		defer jn.Close()
	}

	uiCfg := ui.Config{
		Business: business,
		Reviews:  reviews,
		Drafter:  drafter,
		Poster:   session,
		Reload:   loader.LoadLatest,
	}
	if jn != nil {
		uiCfg.Journal = jn
	}

	var watcher *review.Watcher
	if cfg.Inbox.Watch {
		watcher, err = review.NewWatcher(cfg.Inbox.Dir)
		if err != nil {
			logging.InboxError("watcher unavailable: %v", err)
		} else if err := watcher.Start(); err != nil {
			logging.InboxError("watcher start failed: %v", err)
			watcher = nil
		} else {
			defer watcher.Stop()
			uiCfg.Events = watcher.Events()
		}
	}

	p := tea.NewProgram(ui.New(uiCfg), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// runDraft is the headless batch path: load, draft, print.
func runDraft(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetLLMTimeout()*10)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	loader := review.NewLoader(cfg.Inbox.Dir)
	business, reviews, err := loader.LoadLatest()
	if err != nil {
		if errors.Is(err, review.ErrNoExport) {
			return fmt.Errorf("no .xlsx review export in %s", cfg.Inbox.Dir)
		}
		return err
	}
	logger.Info("Loaded export",
		zap.String("business", business.Name),
		zap.Int("reviews", len(reviews)))

	drafter, err := newDrafter(ctx, cfg, reviews)
	if err != nil {
		return err
	}

	drafts, err := drafter.DraftAll(ctx, reviews)
	if err != nil {
		return err
	}

	for i, r := range reviews {
		if drafts[i] == "" {
			continue
		}
		fmt.Printf("--- %s (%.0f stars)\n%s\n\nDraft:\n%s\n\n", r.Author, r.Rating, r.Text, drafts[i])
	}
	logger.Info("Drafting complete", zap.Int("drafted", countNonEmpty(drafts)))
	return nil
}

func countNonEmpty(ss []string) int {
	n := 0
	for _, s := range ss {
		if s != "" {
			n++
		}
	}
	return n
}
