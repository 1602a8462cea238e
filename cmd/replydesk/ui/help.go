package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# replydesk keys

## Browsing

| Key | Action |
|-----|--------|
| ` + "`→` / `n`" + ` | next review |
| ` + "`←` / `p`" + ` | previous review |
| ` + "`o`" + ` | open the review in your browser |
| ` + "`ctrl+r`" + ` | reload the newest export |

## Replying

| Key | Action |
|-----|--------|
| ` + "`tab`" + ` | edit the reply (tab or esc to finish) |
| ` + "`r`" + ` | regenerate the draft |
| ` + "`ctrl+p`" + ` | post the reply to the review console |

Posting runs in the background. The status line reports "Answered!" when
the reply lands, or the step that failed when it does not.

Press any key to close this help.
`

func renderHelp(styles Styles) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}

// openURL hands the link to the desktop's default browser.
func openURL(url string) error {
	if url == "" {
		return fmt.Errorf("review has no link")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
