package tui

import (
	"github.com/atotto/clipboard"

	"github.com/hylla/kanmap/internal/app"
)

// Option configures a Model.
type Option func(*Model)

// WithView selects the view shown at startup.
func WithView(v app.View) Option {
	return func(m *Model) {
		switch v {
		case app.ViewKanban, app.ViewMindMap:
			m.view = v
		}
	}
}

// WithClipboard replaces the system clipboard writer used by the copy key.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copy = write
		}
	}
}

// writeClipboard copies text to the system clipboard.
func writeClipboard(text string) error {
	return clipboard.WriteAll(text)
}
