// Package poster submits approved replies into the Google Business review
// console through a live Chrome session. The click-through is coupled to the
// console's current markup; selectors are collected here so breakage lands
// in one place.
package poster

import (
	"fmt"
	"strings"

	"replydesk/internal/review"
)

// Selectors name the console elements the click-through depends on.
type Selectors struct {
	SortNewest    string   // control that re-sorts reviews newest first
	AuthorAnchor  string   // reviewer profile links inside review cards
	ReviewList    string   // scrollable review list container
	ReplyLabels   []string // localized labels on the per-review reply button
	ConsoleFrame  string   // business-console iframe hosting the reply form
	ReplyTextarea string   // public reply textarea inside the frame
	SubmitButton  string   // submit button inside the frame
}

// DefaultSelectors match the console markup current at time of writing.
func DefaultSelectors() Selectors {
	return Selectors{
		SortNewest:   `div[data-sort-id="newestFirst"]`,
		AuthorAnchor: `a[href*="google.com/maps/contrib/"]`,
		ReviewList:   `div.review-dialog-list`,
		ReplyLabels:  []string{"Reply", "Responder"},
		ConsoleFrame: `iframe[src*="/local/business"]`,
		ReplyTextarea: `textarea[aria-label="Your public reply"], ` +
			`textarea[aria-label="Tu respuesta pública"]`,
		SubmitButton: `button.VfPpkd-LgbsSe.VfPpkd-LgbsSe-OWXEXe-k8QpJ.VfPpkd-LgbsSe-OWXEXe-dgl2Hf.nCP5yc.AjY5Oe.DuMIQc.LQeN7.FwaX8`,
	}
}

// replyButtonXPath builds the XPath locating the reply button within a
// review card for any of the configured labels.
func (s Selectors) replyButtonXPath() string {
	parts := make([]string, 0, len(s.ReplyLabels))
	for _, label := range s.ReplyLabels {
		parts = append(parts, fmt.Sprintf("contains(text(), %q)", label))
	}
	if len(parts) == 0 {
		parts = append(parts, `contains(text(), "Reply")`)
	}
	return ".//*[" + strings.Join(parts, " or ") + "]"
}

// NormalizeAuthor canonicalizes a reviewer name for comparison. The journal
// and the "already answered" badge use the same canonical form.
func NormalizeAuthor(name string) string {
	return review.NormalizeAuthor(name)
}

// MatchAuthor reports whether an on-page anchor text identifies the wanted
// reviewer.
func MatchAuthor(want, got string) bool {
	w := NormalizeAuthor(want)
	if w == "" {
		return false
	}
	return w == NormalizeAuthor(got)
}

// StepError names the click-through step that failed so the operator sees
// where the console traversal broke.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("posting failed at %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
