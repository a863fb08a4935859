package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minWrapWidth keeps narrow terminals readable.
const minWrapWidth = 24

// markdownRenderer renders task descriptions for the detail pane. The last
// result is memoized because View runs on every message.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer

	lastSource string
	lastWidth  int
	lastOutput string
}

// render converts markdown to ANSI text wrapped at width. Rendering failures
// fall back to the raw source.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minWrapWidth)
	if r.lastOutput != "" && r.lastSource == markdown && r.lastWidth == wrapWidth {
		return r.lastOutput
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	r.lastSource = markdown
	r.lastWidth = wrapWidth
	r.lastOutput = strings.TrimRight(rendered, "\n")
	return r.lastOutput
}
