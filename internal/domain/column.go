package domain

import (
	"fmt"
	"strings"
)

// DefaultColumnTitle is the title given to freshly added columns before de-duplication.
const DefaultColumnTitle = "New column"

// Column represents a kanban lane positioned on the canvas.
type Column struct {
	ID           string
	Title        string
	X            float64
	Y            float64
	Width        float64
	Height       float64
	IsDoneColumn bool
	// IsEditing is transient UI state and is never persisted.
	IsEditing bool
}

// NewColumn constructs a new value for this package.
func NewColumn(id, title string, x, y, width float64) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	return Column{
		ID:    id,
		Title: title,
		X:     x,
		Y:     y,
		Width: width,
	}, nil
}

// UniqueTitle returns base when no other column uses it, otherwise "base (n)" for the smallest free n.
func UniqueTitle(base string, columns []Column, excludeID string) string {
	base = strings.TrimSpace(base)
	taken := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c.ID == excludeID {
			continue
		}
		taken[c.Title] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// SetDoneColumn rewrites the whole set so only the column with id carries the done flag.
func SetDoneColumn(columns []Column, id string) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		c.IsDoneColumn = c.ID == id
		out[i] = c
	}
	return out
}

// DoneColumnID returns the id of the flagged done column, if any.
func DoneColumnID(columns []Column) (string, bool) {
	for _, c := range columns {
		if c.IsDoneColumn {
			return c.ID, true
		}
	}
	return "", false
}

// ColumnTitle resolves a column id to its title, falling back to the id for dangling references.
func ColumnTitle(columns []Column, id string) string {
	for _, c := range columns {
		if c.ID == id {
			return c.Title
		}
	}
	return id
}

// CloneColumns copies a column slice.
func CloneColumns(columns []Column) []Column {
	if columns == nil {
		return nil
	}
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}
