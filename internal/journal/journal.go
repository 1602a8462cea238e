// Package journal persists posting outcomes to a local SQLite file so the
// operator can see which reviews were already answered in previous runs.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"replydesk/internal/logging"
	"replydesk/internal/review"
)

// Outcome of one posting attempt.
const (
	OutcomePosted = "posted"
	OutcomeFailed = "failed"
)

// Entry is one recorded posting attempt.
type Entry struct {
	ID        string
	Reviewer  string
	Rating    float64
	Reply     string
	Outcome   string
	ErrorText string
	CreatedAt time.Time
}

// Journal wraps the SQLite file recording posting attempts.
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the journal database at the given path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db, dbPath: path}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS post_attempts (
		id TEXT PRIMARY KEY,
		reviewer TEXT NOT NULL,
		rating REAL DEFAULT 0,
		reply TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error_text TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_post_attempts_reviewer ON post_attempts(reviewer);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record writes one posting attempt. errText is empty for successes.
func (j *Journal) Record(reviewer string, rating float64, reply, outcome, errText string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO post_attempts (id, reviewer, rating, reply, outcome, error_text) VALUES (?, ?, ?, ?, ?, ?)`,
		id, reviewer, rating, reply, outcome, errText,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record attempt: %w", err)
	}
	logging.Journal("recorded %s for %q (id=%s)", outcome, reviewer, id)
	return id, nil
}

// PostedReviewers returns the set of reviewer names with at least one
// successful post, keyed by review.NormalizeAuthor form.
func (j *Journal) PostedReviewers() (map[string]bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`SELECT DISTINCT reviewer FROM post_attempts WHERE outcome = ?`, OutcomePosted)
	if err != nil {
		return nil, fmt.Errorf("failed to query posted reviewers: %w", err)
	}
	defer rows.Close()

	posted := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		posted[review.NormalizeAuthor(name)] = true
	}
	return posted, rows.Err()
}

// Recent returns the most recent attempts, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(
		`SELECT id, reviewer, rating, reply, outcome, error_text, created_at
		 FROM post_attempts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Reviewer, &e.Rating, &e.Reply, &e.Outcome, &e.ErrorText, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
