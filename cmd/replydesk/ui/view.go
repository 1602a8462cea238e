package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the pager.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.showHelp {
		return m.helpText
	}

	var sb strings.Builder

	title := m.business.Name
	if title == "" {
		title = "replydesk"
	}
	header := fmt.Sprintf("%s  •  %s reviews  •  rating %s", title, orDash(m.business.ReviewCount), orDash(m.business.Rating))
	sb.WriteString(m.styles.Header.Width(m.width).Render(header))
	sb.WriteString("\n")

	r, ok := m.Current()
	if !ok {
		sb.WriteString(m.styles.Muted.Render("\nNo reviews to show.\n"))
		sb.WriteString(m.footer())
		return sb.String()
	}

	meta := fmt.Sprintf("%s %s   %s %s   %s %s",
		m.styles.Label.Render("Author:"), r.Author,
		m.styles.Label.Render("Stars:"), stars(r.Rating),
		m.styles.Label.Render("Date:"), orDash(r.PostedAt),
	)
	pos := m.styles.Muted.Render(fmt.Sprintf("review %d/%d", m.idx+1, len(m.reviews)))
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, meta, "   ", pos))
	sb.WriteString("\n")

	if m.posted[m.idx] {
		sb.WriteString(m.styles.Answered.Render("Answered!"))
		sb.WriteString("\n")
	} else if m.answeredBefore(r) {
		sb.WriteString(m.styles.Badge.Render("already answered"))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.Label.Render("Review"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Panel.Render(m.reviewVP.View()))
	sb.WriteString("\n")

	replyLabel := "Generated reply"
	if m.editing {
		replyLabel = "Generated reply (editing)"
	}
	sb.WriteString(m.styles.Label.Render(replyLabel))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Panel.Render(m.replyTA.View()))
	sb.WriteString("\n")

	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(m.footer())
	return sb.String()
}

func (m Model) statusLine() string {
	if m.busy || m.drafting {
		note := m.status
		if note == "" {
			note = "working..."
		}
		return m.spinner.View() + " " + m.styles.Muted.Render(note)
	}
	if m.status == "" {
		return ""
	}
	if m.statErr {
		return m.styles.Error.Render(m.status)
	}
	return m.styles.Body.Render(m.status)
}

func (m Model) footer() string {
	keys := "←/→ navigate  tab edit  ctrl+p post  r redraft  o open link  ? help  q quit"
	return m.styles.Footer.Render(keys)
}

func stars(rating float64) string {
	n := int(rating + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
