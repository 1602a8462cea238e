package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"replydesk/internal/review"
)

// Drafter generates candidate replies.
type Drafter interface {
	Draft(ctx context.Context, r review.Review) (string, error)
	DraftAll(ctx context.Context, reviews []review.Review) ([]string, error)
}

// Poster submits an approved reply into the review console.
type Poster interface {
	Post(ctx context.Context, r review.Review, reply string) error
}

// Recorder persists posting outcomes.
type Recorder interface {
	Record(reviewer string, rating float64, reply, outcome, errText string) (string, error)
	PostedReviewers() (map[string]bool, error)
}

// Config wires the review pager to its collaborators. Journal and Events are
// optional.
type Config struct {
	Business review.Business
	Reviews  []review.Review
	Drafter  Drafter
	Poster   Poster
	Journal  Recorder
	Events   <-chan string
	Reload   func() (review.Business, []review.Review, error)
}

// Model is the review pager: one review at a time, an editable draft, and
// post/navigate controls. Drafting and posting run off the event loop as tea
// commands; only messages mutate state.
type Model struct {
	cfg    Config
	styles Styles

	business review.Business
	reviews  []review.Review
	drafts   []string
	posted   []bool          // posted during this run
	already  map[string]bool // posted in previous runs, per the journal

	idx     int
	editing bool
	busy    bool
	showHelp bool

	drafting bool // initial batch generation in flight
	status   string
	statErr  bool

	pendingExport string // new export path reported by the watcher

	reviewVP viewport.Model
	replyTA  textarea.Model
	spinner  spinner.Model
	helpText string

	width  int
	height int
	ready  bool
}

// New creates the review pager model.
func New(cfg Config) Model {
	styles := NewStyles(DetectTheme())

	ta := textarea.New()
	ta.Placeholder = "Generated reply will appear here..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Blur()

	vp := viewport.New(80, 8)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Label

	already := map[string]bool{}
	if cfg.Journal != nil {
		if posted, err := cfg.Journal.PostedReviewers(); err == nil {
			already = posted
		}
	}

	m := Model{
		cfg:      cfg,
		styles:   styles,
		business: cfg.Business,
		reviews:  cfg.Reviews,
		drafts:   make([]string, len(cfg.Reviews)),
		posted:   make([]bool, len(cfg.Reviews)),
		already:  already,
		reviewVP: vp,
		replyTA:  ta,
		spinner:  sp,
		drafting: len(cfg.Reviews) > 0,
		helpText: renderHelp(styles),
	}
	m.syncReview()
	return m
}

// Init starts the spinner, the draft batch, and the inbox watch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if len(m.reviews) > 0 {
		cmds = append(cmds, draftAllCmd(m.cfg.Drafter, m.reviews))
	}
	if m.cfg.Events != nil {
		cmds = append(cmds, watchCmd(m.cfg.Events))
	}
	return tea.Batch(cmds...)
}

// Current returns the review under the cursor.
func (m Model) Current() (review.Review, bool) {
	if m.idx < 0 || m.idx >= len(m.reviews) {
		return review.Review{}, false
	}
	return m.reviews[m.idx], true
}

// answeredBefore reports whether the current review was answered in the
// export itself or posted in an earlier run.
func (m Model) answeredBefore(r review.Review) bool {
	if r.Answered() {
		return true
	}
	return m.already[review.NormalizeAuthor(r.Author)]
}

// syncReview pushes the current review into the viewport and textarea.
func (m *Model) syncReview() {
	r, ok := m.Current()
	if !ok {
		m.reviewVP.SetContent(m.styles.Muted.Render("No reviews loaded."))
		m.replyTA.SetValue("")
		return
	}
	text := r.Text
	if !r.HasText() {
		text = m.styles.Muted.Render("(no review text)")
	}
	m.reviewVP.SetContent(text)
	m.reviewVP.GotoTop()
	m.replyTA.SetValue(m.drafts[m.idx])
}

// stashDraft preserves operator edits before leaving the current review.
func (m *Model) stashDraft() {
	if m.idx >= 0 && m.idx < len(m.drafts) {
		m.drafts[m.idx] = m.replyTA.Value()
	}
}
