// Package ui provides the interactive review-and-reply interface for
// replydesk, rendered with bubbletea.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode colors
	LightForeground = lipgloss.Color("#1b2733")
	LightPrimary    = lipgloss.Color("#1b4965")
	LightAccent     = lipgloss.Color("#5fa8d3")
	LightMuted      = lipgloss.Color("#8a99a8")
	LightBorder     = lipgloss.Color("#cad8e0")

	// Dark mode colors
	DarkForeground = lipgloss.Color("#e8edf2")
	DarkPrimary    = lipgloss.Color("#5fa8d3")
	DarkAccent     = lipgloss.Color("#1b4965")
	DarkMuted      = lipgloss.Color("#5c6b7a")
	DarkBorder     = lipgloss.Color("#31404f")

	// Semantic colors (same in both modes)
	Success = lipgloss.Color("#7cb342")
	Failure = lipgloss.Color("#e53935")
	Warning = lipgloss.Color("#ffc107")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from terminal hints, defaulting to light.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		// Format is usually "foreground;background".
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("REPLYDESK_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds the styled components used by the review pager.
type Styles struct {
	Theme Theme

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Body     lipgloss.Style
	Panel    lipgloss.Style
	Badge    lipgloss.Style
	Answered lipgloss.Style
	Error    lipgloss.Style
	Warn     lipgloss.Style
}

// NewStyles creates a Styles instance for the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(theme.Primary).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Badge: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Answered: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Failure),

		Warn: lipgloss.NewStyle().
			Foreground(Warning),
	}
}
