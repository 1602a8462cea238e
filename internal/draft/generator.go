package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"replydesk/internal/logging"
	"replydesk/internal/review"
)

const (
	// PlaceholderText substitutes for empty or "nan" review bodies before
	// prompting.
	PlaceholderText = "Thank you for your business."

	// FallbackText is returned when every generation attempt has failed.
	FallbackText = "Response unavailable at this time."

	systemPrompt = "You are a business owner responding to customer google my business reviews " +
		"in a helpful and professional tone. Respond in the same language as the review. " +
		"Responses should be varied but be similar length to previous responses."
)

// Options bound the generation call.
type Options struct {
	MaxReviewChars int           // truncation bound for review text
	MaxRetries     int           // total attempts before falling back
	Workers        int           // concurrent pre-generation bound
	BackoffBase    time.Duration // first retry delay, doubled per attempt
}

// DefaultOptions mirror the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxReviewChars: 700,
		MaxRetries:     3,
		Workers:        2,
		BackoffBase:    time.Second,
	}
}

func (o Options) normalized() Options {
	if o.MaxReviewChars <= 0 {
		o.MaxReviewChars = 700
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	return o
}

// Generator drafts replies for reviews, seeding the prompt with the
// operator's previously answered reviews as few-shot examples.
type Generator struct {
	client   LLMClient
	opts     Options
	examples string
}

// NewGenerator creates a generator. Answered reviews among the input feed
// the examples block; unanswered ones are ignored here.
func NewGenerator(client LLMClient, opts Options, reviews []review.Review) *Generator {
	return &Generator{
		client:   client,
		opts:     opts.normalized(),
		examples: BuildExamples(reviews),
	}
}

// BuildExamples renders "Review: …\nAnswer: …" pairs from already-answered
// reviews. Returns "" when no usable pair exists.
func BuildExamples(reviews []review.Review) string {
	var pairs []string
	for _, r := range reviews {
		if !r.Answered() || !r.HasText() {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("Review: %s\nAnswer: %s",
			strings.TrimSpace(r.Text), strings.TrimSpace(r.OwnerReply)))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "Here are some previous examples of how you have responded:\n\n" +
		strings.Join(pairs, "\n\n")
}

// Truncate bounds review text to at most limit runes.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// prompt builds the user content for one review.
func (g *Generator) prompt(r review.Review) string {
	text := Truncate(strings.TrimSpace(r.Text), g.opts.MaxReviewChars)
	if text == "" || strings.EqualFold(text, "nan") {
		text = PlaceholderText
	}

	author := strings.TrimSpace(r.Author)
	if author == "" {
		author = "Anonymous"
	}

	var sb strings.Builder
	if g.examples != "" {
		sb.WriteString(g.examples)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Now respond to a review from '%s' who said:\n\n%q", author, text)
	return sb.String()
}

// Draft generates a reply for one review. Call failures are retried with
// exponential backoff up to the configured bound; exhaustion yields the
// fixed fallback text rather than an error, so the operator can proceed
// manually. Only context cancellation propagates.
func (g *Generator) Draft(ctx context.Context, r review.Review) (string, error) {
	userPrompt := g.prompt(r)

	var lastErr error
	for attempt := 0; attempt < g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.opts.BackoffBase << uint(attempt-1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := g.client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
		if err == nil {
			logging.Draft("drafted reply for %q (row %d, attempt %d)", r.Author, r.Row, attempt+1)
			return strings.TrimSpace(text), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		logging.DraftWarn("generation attempt %d for %q failed: %v", attempt+1, r.Author, err)
	}

	logging.DraftError("generation exhausted for %q (row %d): %v", r.Author, r.Row, lastErr)
	return FallbackText, nil
}

// DraftAll pre-generates replies for every unanswered review, bounded by the
// worker limit. The result slice is index-aligned with the input; answered
// rows keep an empty draft.
func (g *Generator) DraftAll(ctx context.Context, reviews []review.Review) ([]string, error) {
	drafts := make([]string, len(reviews))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)

	for i, r := range reviews {
		if r.Answered() {
			continue
		}
		eg.Go(func() error {
			text, err := g.Draft(ctx, r)
			if err != nil {
				return err
			}
			drafts[i] = text
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return drafts, nil
}
