package poster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"replydesk/internal/logging"
	"replydesk/internal/review"
)

// Config holds browser configuration for the posting session.
type Config struct {
	ChromeBin        string
	UserDataDir      string // operator's Chrome profile root; reuses the console login
	ProfileDirectory string
	Headless         bool
	ViewportWidth    int
	ViewportHeight   int
	NavTimeout       time.Duration
	ElemTimeout      time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProfileDirectory: "Default",
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		NavTimeout:       30 * time.Second,
		ElemTimeout:      30 * time.Second,
	}
}

func (c Config) navTimeout() time.Duration {
	if c.NavTimeout <= 0 {
		return 30 * time.Second
	}
	return c.NavTimeout
}

func (c Config) elemTimeout() time.Duration {
	if c.ElemTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ElemTimeout
}

// Session owns the Chrome instance used for posting replies. One session
// serves the whole run; posts happen one at a time, driven by the operator.
type Session struct {
	cfg Config
	sel Selectors

	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
}

// NewSession creates a posting session with default selectors.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, sel: DefaultSelectors()}
}

// Start launches (or re-launches) Chrome and connects. Safe to call again
// after a dead connection.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection detected, reconnecting")
		_ = s.browser.Close()
		s.browser = nil
		s.controlURL = ""
	}

	launch := launcher.New().Headless(s.cfg.Headless).Leakless(true)
	if s.cfg.ChromeBin != "" {
		launch = launch.Bin(s.cfg.ChromeBin)
	}
	if s.cfg.UserDataDir != "" {
		launch = launch.Set(flags.UserDataDir, s.cfg.UserDataDir)
	}
	if s.cfg.ProfileDirectory != "" {
		launch = launch.Set(flags.Flag("profile-directory"), s.cfg.ProfileDirectory)
	}
	launch = launch.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", s.cfg.ViewportWidth, s.cfg.ViewportHeight))

	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	s.controlURL = controlURL
	logging.Browser("chrome connected url=%s profile=%s", controlURL, s.cfg.ProfileDirectory)
	return nil
}

// IsConnected reports whether the browser is connected.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

// Shutdown closes the browser.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.controlURL = ""
	return err
}

// Post locates the review in the console by reviewer name and submits the
// reply. Element failures surface with the failing step named; there is no
// structured recovery beyond that.
func (s *Session) Post(ctx context.Context, r review.Review, reply string) error {
	if err := s.Start(ctx); err != nil {
		return stepErr("start browser", err)
	}

	link := r.PageLink
	if link == "" {
		link = r.Link
	}
	if link == "" {
		return stepErr("resolve review link", errors.New("review carries no link"))
	}

	timer := logging.StartTimer(logging.CategoryBrowser, fmt.Sprintf("post reply for %q", r.Author))
	defer timer.Stop()

	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()

	page, err := browser.Page(proto.TargetCreateTarget{URL: link})
	if err != nil {
		return stepErr("open review page", err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		logging.BrowserWarn("failed to set viewport: %v", err)
	}

	if err := page.Timeout(s.cfg.navTimeout()).WaitLoad(); err != nil {
		return stepErr("open review page", err)
	}
	logging.Browser("opened %s", link)

	// Sort newest first so fresh reviews are within scroll range.
	sortBtn, err := page.Timeout(s.cfg.elemTimeout()).Element(s.sel.SortNewest)
	if err != nil {
		return stepErr("find newest-first sort control", err)
	}
	if err := sortBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return stepErr("click newest-first sort control", err)
	}

	if _, err := page.Timeout(s.cfg.elemTimeout()).Element(s.sel.AuthorAnchor); err != nil {
		return stepErr("wait for review list", err)
	}

	anchor, err := s.findAuthor(page, r.Author)
	if err != nil {
		return stepErr("locate review by author", err)
	}
	logging.Browser("matched reviewer %q", r.Author)

	card, err := climb(anchor, 4)
	if err != nil {
		return stepErr("resolve review card", err)
	}

	replyBtn, err := card.ElementX(s.sel.replyButtonXPath())
	if err != nil {
		return stepErr("find reply button", err)
	}
	if err := replyBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return stepErr("click reply button", err)
	}

	frameEl, err := page.Timeout(s.cfg.elemTimeout()).Element(s.sel.ConsoleFrame)
	if err != nil {
		return stepErr("wait for reply frame", err)
	}
	frame, err := frameEl.Frame()
	if err != nil {
		return stepErr("enter reply frame", err)
	}

	textarea, err := frame.Timeout(s.cfg.elemTimeout()).Element(s.sel.ReplyTextarea)
	if err != nil {
		return stepErr("find reply textarea", err)
	}
	if err := textarea.Input(reply); err != nil {
		return stepErr("type reply", err)
	}

	submit, err := frame.Timeout(s.cfg.elemTimeout()).Element(s.sel.SubmitButton)
	if err != nil {
		return stepErr("find submit button", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return stepErr("click submit", err)
	}

	logging.Browser("submitted reply for %q (%d chars)", r.Author, len(reply))
	return nil
}

// findAuthor scans the rendered anchors for the reviewer, scrolling the
// review list between passes. The pass count is bounded; older reviews past
// it are considered not locatable.
func (s *Session) findAuthor(page *rod.Page, author string) (*rod.Element, error) {
	const maxScrollPasses = 10

	for pass := 0; pass < maxScrollPasses; pass++ {
		anchors, err := page.Timeout(s.cfg.elemTimeout()).Elements(s.sel.AuthorAnchor)
		if err != nil {
			return nil, err
		}
		for _, a := range anchors {
			text, err := a.Text()
			if err != nil {
				continue
			}
			if MatchAuthor(author, text) {
				return a, nil
			}
		}

		logging.BrowserDebug("reviewer %q not visible, scroll pass %d", author, pass+1)
		if list, err := page.Timeout(2 * time.Second).Element(s.sel.ReviewList); err == nil {
			_, _ = list.Eval(`() => { this.scrollTop = this.scrollHeight }`)
		} else {
			_, _ = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
		}
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("reviewer %q not found after %d scroll passes", author, maxScrollPasses)
}

// climb walks up n parent elements from el.
func climb(el *rod.Element, n int) (*rod.Element, error) {
	cur := el
	for i := 0; i < n; i++ {
		parent, err := cur.Parent()
		if err != nil {
			return nil, fmt.Errorf("parent %d of %d: %w", i+1, n, err)
		}
		cur = parent
	}
	return cur, nil
}
