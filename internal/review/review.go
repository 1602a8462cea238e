// Package review loads customer review records from spreadsheet exports.
// Each record corresponds to exactly one row of the export; records are
// read-only input for drafting and posting.
package review

import "strings"

// Review is a single customer review drawn from one spreadsheet row.
type Review struct {
	Author     string  // reviewer display name (author_title)
	Text       string  // review body (review_text)
	Rating     float64 // star rating (review_rating)
	PostedAt   string  // UTC timestamp as exported (review_datetime_utc)
	OwnerReply string  // existing owner answer, if any (owner_answer)
	Link       string  // deep link to this review (review_link)
	PageLink   string  // link to the all-reviews page (reviews_link)

	Row int // 1-based spreadsheet row this record came from
}

// Business summarizes the reviewed business, read from the first data row.
type Business struct {
	Name        string
	ReviewCount string
	Rating      string
	PageLink    string
}

// Answered reports whether the review already carries an owner reply.
// Exports produced through pandas serialize missing cells as the literal
// string "nan", so that counts as unanswered.
func (r Review) Answered() bool {
	reply := strings.TrimSpace(r.OwnerReply)
	return reply != "" && !strings.EqualFold(reply, "nan")
}

// HasText reports whether the review carries usable body text.
func (r Review) HasText() bool {
	text := strings.TrimSpace(r.Text)
	return text != "" && !strings.EqualFold(text, "nan")
}

// NormalizeAuthor canonicalizes a reviewer name for comparison: lower-cased
// with runs of whitespace collapsed to single spaces. Export cells, journal
// rows, and on-page anchor text all go through this before matching.
func NormalizeAuthor(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
