package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"replydesk/internal/journal"
	"replydesk/internal/logging"
	"replydesk/internal/review"
)

// Messages delivered back to the event loop by background commands.

type draftsMsg struct {
	drafts []string
	err    error
}

type draftMsg struct {
	idx  int
	text string
	err  error
}

type postResultMsg struct {
	idx int
	err error
}

type newExportMsg struct {
	path string
}

type reloadMsg struct {
	business review.Business
	reviews  []review.Review
	err      error
}

// draftAllCmd pre-generates replies for every unanswered review.
func draftAllCmd(d Drafter, reviews []review.Review) tea.Cmd {
	return func() tea.Msg {
		drafts, err := d.DraftAll(context.Background(), reviews)
		return draftsMsg{drafts: drafts, err: err}
	}
}

// regenCmd re-drafts a single review.
func regenCmd(d Drafter, idx int, r review.Review) tea.Cmd {
	return func() tea.Msg {
		text, err := d.Draft(context.Background(), r)
		return draftMsg{idx: idx, text: text, err: err}
	}
}

// postCmd submits the reply through the browser session and records the
// outcome. This is the single background worker the interface waits on.
func postCmd(p Poster, rec Recorder, idx int, r review.Review, reply string) tea.Cmd {
	return func() tea.Msg {
		err := p.Post(context.Background(), r, reply)
		if rec != nil {
			outcome := journal.OutcomePosted
			errText := ""
			if err != nil {
				outcome = journal.OutcomeFailed
				errText = err.Error()
			}
			if _, recErr := rec.Record(r.Author, r.Rating, reply, outcome, errText); recErr != nil {
				logging.JournalError("record failed: %v", recErr)
			}
		}
		return postResultMsg{idx: idx, err: err}
	}
}

// watchCmd waits for the next inbox event. Re-issued after each receive.
func watchCmd(events <-chan string) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-events
		if !ok {
			return nil
		}
		return newExportMsg{path: path}
	}
}

// reloadCmd re-reads the latest export.
func reloadCmd(reload func() (review.Business, []review.Review, error)) tea.Cmd {
	return func() tea.Msg {
		biz, reviews, err := reload()
		return reloadMsg{business: biz, reviews: reviews, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		if !m.busy && !m.drafting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case draftsMsg:
		m.drafting = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("drafting failed: %v", msg.err), true)
			return m, nil
		}
		for i, text := range msg.drafts {
			if i < len(m.drafts) && m.drafts[i] == "" {
				m.drafts[i] = text
			}
		}
		m.syncReview()
		m.setStatus("drafts ready", false)
		return m, nil

	case draftMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("draft failed: %v", msg.err), true)
			return m, nil
		}
		if msg.idx >= 0 && msg.idx < len(m.drafts) {
			m.drafts[msg.idx] = msg.text
			if msg.idx == m.idx {
				m.replyTA.SetValue(msg.text)
			}
		}
		m.setStatus("draft regenerated", false)
		return m, nil

	case postResultMsg:
		m.busy = false
		if msg.err != nil {
			logging.UI("post failed for row %d: %v", msg.idx, msg.err)
			m.setStatus(fmt.Sprintf("post failed: %v", msg.err), true)
			return m, nil
		}
		if msg.idx >= 0 && msg.idx < len(m.posted) {
			m.posted[msg.idx] = true
		}
		m.setStatus("Answered!", false)
		return m, nil

	case newExportMsg:
		m.pendingExport = msg.path
		m.setStatus("new export detected; press ctrl+r to reload", false)
		return m, watchCmd(m.cfg.Events)

	case reloadMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("reload failed: %v", msg.err), true)
			return m, nil
		}
		m.business = msg.business
		m.reviews = msg.reviews
		m.drafts = make([]string, len(msg.reviews))
		m.posted = make([]bool, len(msg.reviews))
		m.idx = 0
		m.pendingExport = ""
		m.drafting = len(msg.reviews) > 0
		m.syncReview()
		m.setStatus(fmt.Sprintf("reloaded %d reviews", len(msg.reviews)), false)
		return m, tea.Batch(m.spinner.Tick, draftAllCmd(m.cfg.Drafter, m.reviews))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.reviewVP, cmd = m.reviewVP.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// While editing, everything except focus/quit keys belongs to the
	// textarea.
	if m.editing {
		switch msg.String() {
		case "esc", "tab":
			m.editing = false
			m.replyTA.Blur()
			m.stashDraft()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+p":
			return m.startPost()
		}
		var cmd tea.Cmd
		m.replyTA, cmd = m.replyTA.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "tab":
		m.editing = true
		return m, m.replyTA.Focus()

	case "right", "n":
		if m.idx+1 < len(m.reviews) {
			m.stashDraft()
			m.idx++
			m.syncReview()
		}
		return m, nil

	case "left", "p":
		if m.idx > 0 {
			m.stashDraft()
			m.idx--
			m.syncReview()
		}
		return m, nil

	case "r":
		if m.busy {
			return m, nil
		}
		r, ok := m.Current()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.setStatus("regenerating draft...", false)
		return m, tea.Batch(m.spinner.Tick, regenCmd(m.cfg.Drafter, m.idx, r))

	case "o":
		r, ok := m.Current()
		if ok && r.Link != "" {
			if err := openURL(r.Link); err != nil {
				m.setStatus(fmt.Sprintf("open link: %v", err), true)
			}
		}
		return m, nil

	case "ctrl+r":
		if m.cfg.Reload == nil || m.busy {
			return m, nil
		}
		m.busy = true
		m.setStatus("reloading...", false)
		return m, tea.Batch(m.spinner.Tick, reloadCmd(m.cfg.Reload))

	case "ctrl+p":
		return m.startPost()
	}

	var cmd tea.Cmd
	m.reviewVP, cmd = m.reviewVP.Update(msg)
	return m, cmd
}

// startPost kicks off the posting command for the current review.
func (m Model) startPost() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	r, ok := m.Current()
	if !ok {
		return m, nil
	}
	m.stashDraft()
	reply := m.drafts[m.idx]
	if reply == "" {
		m.setStatus("nothing to post: draft is empty", true)
		return m, nil
	}

	m.busy = true
	m.setStatus(fmt.Sprintf("posting reply for %s...", r.Author), false)
	return m, tea.Batch(m.spinner.Tick, postCmd(m.cfg.Poster, m.cfg.Journal, m.idx, r, reply))
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statErr = isErr
	logging.UI("status: %s", text)
}

// layout recomputes component sizes for the current terminal.
func (m *Model) layout() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	// Header, meta block, labels, status, and footer take a fixed slice;
	// the rest splits between review text and the reply editor.
	avail := m.height - 12
	if avail < 6 {
		avail = 6
	}
	m.reviewVP.Width = w
	m.reviewVP.Height = avail / 2
	m.replyTA.SetWidth(w)
	m.replyTA.SetHeight(avail - avail/2)
}
