package ui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"replydesk/internal/journal"
	"replydesk/internal/review"
)

type fakeDrafter struct {
	reply string
	err   error
}

func (f *fakeDrafter) Draft(ctx context.Context, r review.Review) (string, error) {
	return f.reply, f.err
}

func (f *fakeDrafter) DraftAll(ctx context.Context, reviews []review.Review) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(reviews))
	for i, r := range reviews {
		if !r.Answered() {
			out[i] = f.reply
		}
	}
	return out, nil
}

type fakePoster struct {
	mu     sync.Mutex
	err    error
	posted []string
}

func (f *fakePoster) Post(ctx context.Context, r review.Review, reply string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, r.Author+": "+reply)
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []string
	already  map[string]bool
}

func (f *fakeRecorder) Record(reviewer string, rating float64, reply, outcome, errText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, reviewer+"="+outcome)
	return "id", nil
}

func (f *fakeRecorder) PostedReviewers() (map[string]bool, error) {
	return f.already, nil
}

func testReviews() []review.Review {
	return []review.Review{
		{Author: "Ana", Text: "Great coffee", Rating: 5, Row: 2},
		{Author: "Bob", Text: "Slow service", Rating: 2, Row: 3, OwnerReply: "Sorry, Bob"},
		{Author: "Cara", Text: "Nice place", Rating: 4, Row: 4},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := New(Config{
		Business: review.Business{Name: "Cafe Uno", ReviewCount: "3", Rating: "4.2"},
		Reviews:  testReviews(),
		Drafter:  &fakeDrafter{reply: "Thanks!"},
		Poster:   &fakePoster{},
	})
	// Simulate the initial window size so the model is laid out.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNavigation(t *testing.T) {
	m := newTestModel(t)
	if m.idx != 0 {
		t.Fatalf("expected to start at review 0, got %d", m.idx)
	}

	updated, _ := m.Update(keyRunes("n"))
	m = updated.(Model)
	if m.idx != 1 {
		t.Errorf("expected idx=1 after next, got %d", m.idx)
	}

	updated, _ = m.Update(keyRunes("p"))
	m = updated.(Model)
	if m.idx != 0 {
		t.Errorf("expected idx=0 after prev, got %d", m.idx)
	}

	// Can't go below zero.
	updated, _ = m.Update(keyRunes("p"))
	m = updated.(Model)
	if m.idx != 0 {
		t.Errorf("expected idx to stay at 0, got %d", m.idx)
	}
}

func TestDraftsMsg_FillsOnlyEmptySlots(t *testing.T) {
	m := newTestModel(t)
	m.drafts[0] = "operator edit kept"

	updated, _ := m.Update(draftsMsg{drafts: []string{"gen A", "", "gen C"}})
	m = updated.(Model)

	if m.drafts[0] != "operator edit kept" {
		t.Errorf("existing draft overwritten: %q", m.drafts[0])
	}
	if m.drafts[2] != "gen C" {
		t.Errorf("expected generated draft, got %q", m.drafts[2])
	}
	if m.drafting {
		t.Error("drafting flag should clear")
	}
}

func TestPostFlow(t *testing.T) {
	poster := &fakePoster{}
	recorder := &fakeRecorder{already: map[string]bool{}}
	m := New(Config{
		Reviews: testReviews(),
		Drafter: &fakeDrafter{reply: "Thanks!"},
		Poster:  poster,
		Journal: recorder,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)
	m.drafts[0] = "Thanks for the stars, Ana!"
	m.syncReview()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m = updated.(Model)
	if !m.busy {
		t.Fatal("posting should mark the model busy")
	}
	if cmd == nil {
		t.Fatal("expected a posting command")
	}

	// Run the batched command and find the post result.
	msg := drainCmd(t, cmd)
	result, ok := msg.(postResultMsg)
	if !ok {
		t.Fatalf("expected postResultMsg, got %T", msg)
	}
	if result.err != nil {
		t.Fatalf("post failed: %v", result.err)
	}

	updated, _ = m.Update(result)
	m = updated.(Model)
	if !m.posted[0] {
		t.Error("review should be marked posted")
	}
	if m.status != "Answered!" {
		t.Errorf("expected Answered! status, got %q", m.status)
	}
	if len(poster.posted) != 1 || poster.posted[0] != "Ana: Thanks for the stars, Ana!" {
		t.Errorf("unexpected poster calls: %v", poster.posted)
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0] != "Ana="+journal.OutcomePosted {
		t.Errorf("unexpected journal records: %v", recorder.recorded)
	}
}

func TestPost_EmptyDraftRefused(t *testing.T) {
	m := newTestModel(t)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m = updated.(Model)
	if m.busy {
		t.Error("empty draft must not start a post")
	}
	if cmd != nil {
		t.Error("no command expected for an empty draft")
	}
	if !m.statErr {
		t.Error("expected an error status")
	}
}

func TestPost_FailureRecordedAndSurfaced(t *testing.T) {
	poster := &fakePoster{err: errors.New("reply button not found")}
	recorder := &fakeRecorder{already: map[string]bool{}}
	m := New(Config{
		Reviews: testReviews(),
		Drafter: &fakeDrafter{reply: "Thanks!"},
		Poster:  poster,
		Journal: recorder,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)
	m.drafts[0] = "draft"
	m.syncReview()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	msg := drainCmd(t, cmd)
	result, ok := msg.(postResultMsg)
	if !ok {
		t.Fatalf("expected postResultMsg, got %T", msg)
	}
	if result.err == nil {
		t.Fatal("expected post error")
	}

	updated, _ = m.Update(result)
	m = updated.(Model)
	if m.posted[0] {
		t.Error("failed post must not mark the review answered")
	}
	if !m.statErr {
		t.Error("expected error status after failed post")
	}
	if len(recorder.recorded) != 1 || recorder.recorded[0] != "Ana="+journal.OutcomeFailed {
		t.Errorf("unexpected journal records: %v", recorder.recorded)
	}
}

func TestAlreadyAnswered(t *testing.T) {
	recorder := &fakeRecorder{already: map[string]bool{"cara": true}}
	m := New(Config{
		Reviews: testReviews(),
		Drafter: &fakeDrafter{reply: "Thanks!"},
		Poster:  &fakePoster{},
		Journal: recorder,
	})

	if m.answeredBefore(review.Review{Author: "Ana"}) {
		t.Error("Ana was never posted")
	}
	if !m.answeredBefore(review.Review{Author: "  Cara "}) {
		t.Error("journal hits should match case- and space-insensitively")
	}
}

func TestAlreadyAnswered_CollapsedWhitespace(t *testing.T) {
	// Journal keys come through review.NormalizeAuthor; a name posted with
	// doubled spaces must still light the badge for the export's form.
	recorder := &fakeRecorder{already: map[string]bool{
		review.NormalizeAuthor("Ana   García"): true,
	}}
	m := New(Config{
		Reviews: testReviews(),
		Drafter: &fakeDrafter{reply: "Thanks!"},
		Poster:  &fakePoster{},
		Journal: recorder,
	})

	if !m.answeredBefore(review.Review{Author: "Ana García"}) {
		t.Error("badge lookup must use the same canonical form as the journal")
	}
}

func TestEditToggle(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if !m.editing {
		t.Fatal("tab should enter edit mode")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.editing {
		t.Fatal("esc should leave edit mode")
	}
}

func TestEditStashesDraft(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	m.replyTA.SetValue("hand-written reply")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.drafts[0] != "hand-written reply" {
		t.Errorf("edit not stashed: %q", m.drafts[0])
	}

	// Navigating away and back keeps the edit.
	updated, _ = m.Update(keyRunes("n"))
	m = updated.(Model)
	updated, _ = m.Update(keyRunes("p"))
	m = updated.(Model)
	if m.replyTA.Value() != "hand-written reply" {
		t.Errorf("edit lost on navigation: %q", m.replyTA.Value())
	}
}

func TestNewExportNotice(t *testing.T) {
	events := make(chan string, 1)
	m := New(Config{
		Reviews: testReviews(),
		Drafter: &fakeDrafter{reply: "Thanks!"},
		Poster:  &fakePoster{},
		Events:  events,
	})

	updated, cmd := m.Update(newExportMsg{path: "/inbox/reviews-2.xlsx"})
	m = updated.(Model)
	if m.pendingExport != "/inbox/reviews-2.xlsx" {
		t.Errorf("pending export not tracked: %q", m.pendingExport)
	}
	if cmd == nil {
		t.Error("watch command should be re-issued")
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(keyRunes("?"))
	m = updated.(Model)
	if !m.showHelp {
		t.Fatal("? should open help")
	}

	updated, _ = m.Update(keyRunes("x"))
	m = updated.(Model)
	if m.showHelp {
		t.Fatal("any key should dismiss help")
	}
}

// drainCmd executes a command tree and returns the first domain message.
func drainCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case postResultMsg, draftsMsg, draftMsg, reloadMsg, newExportMsg:
			return msg
		}
	}
	t.Fatal("no domain message produced")
	return nil
}
