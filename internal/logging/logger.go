// Package logging provides categorized file-based logging for replydesk.
// Each category writes to its own date-stamped file under the log directory,
// keeping browser click-through noise out of the drafting logs. The TUI owns
// the terminal, so nothing here writes to stdout or stderr after startup.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, config resolution
	CategoryInbox   Category = "inbox"   // export discovery and parsing
	CategoryDraft   Category = "draft"   // reply generation API calls
	CategoryBrowser Category = "browser" // posting click-through
	CategoryJournal Category = "journal" // posting journal writes
	CategoryUI      Category = "ui"      // interface state transitions
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	logLevel  = LevelInfo
)

// Initialize sets the log directory and minimum level. Call once at startup;
// before it runs every logger is a no-op.
func Initialize(dir, level string) error {
	if dir == "" {
		return fmt.Errorf("log directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	loggersMu.Lock()
	logsDir = dir
	logLevel = parseLevel(level)
	loggersMu.Unlock()

	Boot("logging initialized dir=%s level=%s", dir, level)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Get returns (or creates) the logger for a category. A no-op logger is
// returned before Initialize or when the log file cannot be opened.
func Get(category Category) *Logger {
	loggersMu.RLock()
	dir := logsDir
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message. Always written if the logger exists.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions per category. No-ops when logging is uninitialized.

func Boot(format string, args ...interface{})  { Get(CategoryBoot).Info(format, args...) }
func Inbox(format string, args ...interface{}) { Get(CategoryInbox).Info(format, args...) }
func Draft(format string, args ...interface{}) { Get(CategoryDraft).Info(format, args...) }

func Browser(format string, args ...interface{}) { Get(CategoryBrowser).Info(format, args...) }
func Journal(format string, args ...interface{}) { Get(CategoryJournal).Info(format, args...) }
func UI(format string, args ...interface{})      { Get(CategoryUI).Info(format, args...) }

func BootError(format string, args ...interface{})  { Get(CategoryBoot).Error(format, args...) }
func InboxError(format string, args ...interface{}) { Get(CategoryInbox).Error(format, args...) }
func DraftDebug(format string, args ...interface{}) { Get(CategoryDraft).Debug(format, args...) }
func DraftWarn(format string, args ...interface{})  { Get(CategoryDraft).Warn(format, args...) }
func DraftError(format string, args ...interface{}) { Get(CategoryDraft).Error(format, args...) }

func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }
func BrowserError(format string, args ...interface{}) { Get(CategoryBrowser).Error(format, args...) }

func JournalError(format string, args ...interface{}) { Get(CategoryJournal).Error(format, args...) }

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
