package review

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"replydesk/internal/logging"
)

// ErrNoExport is returned when the inbox directory holds no spreadsheet file.
var ErrNoExport = errors.New("no review export found")

// Loader reads review exports from an inbox directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at the given inbox directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LatestExport returns the path of the most recently modified .xlsx file in
// the inbox directory. Temporary Office lock files ("~$...") are skipped.
func (l *Loader) LatestExport() (string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", fmt.Errorf("read inbox %s: %w", l.dir, err)
	}

	var (
		newest     string
		newestMod  int64
		foundAnyXL bool
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if !foundAnyXL || mod > newestMod {
			newest = filepath.Join(l.dir, name)
			newestMod = mod
			foundAnyXL = true
		}
	}

	if !foundAnyXL {
		return "", fmt.Errorf("%w in %s", ErrNoExport, l.dir)
	}
	logging.Inbox("latest export: %s", newest)
	return newest, nil
}

// Load parses an export file into the business summary and its review rows.
// Column order is operator-defined; the header row drives the mapping and
// unknown columns are ignored.
func (l *Loader) Load(path string) (Business, []Review, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Business{}, nil, fmt.Errorf("open export %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Business{}, nil, fmt.Errorf("export %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Business{}, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Business{}, nil, fmt.Errorf("export %s: sheet %q is empty", path, sheet)
	}

	cols := headerIndex(rows[0])
	reviews := make([]Review, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r := Review{
			Author:     cell(row, cols, "author_title"),
			Text:       cell(row, cols, "review_text"),
			PostedAt:   cell(row, cols, "review_datetime_utc"),
			OwnerReply: cell(row, cols, "owner_answer"),
			Link:       cell(row, cols, "review_link"),
			PageLink:   cell(row, cols, "reviews_link"),
			Row:        i + 2,
		}
		if raw := cell(row, cols, "review_rating"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				r.Rating = v
			}
		}
		reviews = append(reviews, r)
	}

	biz := Business{}
	if len(reviews) > 0 {
		first := rows[1]
		biz = Business{
			Name:        cell(first, cols, "name"),
			ReviewCount: cell(first, cols, "reviews"),
			Rating:      cell(first, cols, "rating"),
			PageLink:    cell(first, cols, "reviews_link"),
		}
	}

	logging.Inbox("loaded %d reviews from %s (sheet %q)", len(reviews), path, sheet)
	return biz, reviews, nil
}

// LoadLatest combines LatestExport and Load.
func (l *Loader) LoadLatest() (Business, []Review, error) {
	path, err := l.LatestExport()
	if err != nil {
		return Business{}, nil, err
	}
	return l.Load(path)
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
