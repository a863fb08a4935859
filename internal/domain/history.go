package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChangeKind tags a history change variant.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeRenamed  ChangeKind = "renamed"
	ChangeStatus   ChangeKind = "status_changed"
	ChangePriority ChangeKind = "priority_changed"
	ChangeDeadline ChangeKind = "deadline_changed"
	ChangeAssignee ChangeKind = "assignee_changed"
)

// Change is one field transition inside a history entry.
// For status changes From and To carry column ids and the labels carry column titles.
type Change struct {
	Kind      ChangeKind
	From      string
	To        string
	FromLabel string
	ToLabel   string
}

// Describe renders the change as display text.
func (c Change) Describe() string {
	switch c.Kind {
	case ChangeCreated:
		return "task created"
	case ChangeRenamed:
		return fmt.Sprintf("title: %q → %q", c.From, c.To)
	case ChangeStatus:
		return fmt.Sprintf("status: %s → %s", orLabel(c.FromLabel, c.From), orLabel(c.ToLabel, c.To))
	case ChangePriority:
		return fmt.Sprintf("priority: %s → %s", orNone(c.From), orNone(c.To))
	case ChangeDeadline:
		return fmt.Sprintf("deadline: %s → %s", orNone(c.From), orNone(c.To))
	case ChangeAssignee:
		return fmt.Sprintf("assignee: %s → %s", orNone(c.From), orNone(c.To))
	default:
		return string(c.Kind)
	}
}

// HistoryEntry is one append-only audit record on a task.
type HistoryEntry struct {
	UpdatedAt time.Time
	ChangedBy string
	Changes   []Change
	// Note keeps free-text actions imported from hosts that predate tagged changes.
	Note string
}

// Action renders the entry the way it is shown to users.
func (e HistoryEntry) Action() string {
	if len(e.Changes) == 0 {
		return e.Note
	}
	parts := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		parts = append(parts, c.Describe())
	}
	return strings.Join(parts, "; ")
}

// HasKind reports whether the entry contains a change of kind.
func (e HistoryEntry) HasKind(kind ChangeKind) bool {
	for _, c := range e.Changes {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// LabelStatusChanges fills column titles into status changes.
func LabelStatusChanges(changes []Change, columns []Column) {
	for i := range changes {
		if changes[i].Kind != ChangeStatus {
			continue
		}
		changes[i].FromLabel = ColumnTitle(columns, changes[i].From)
		changes[i].ToLabel = ColumnTitle(columns, changes[i].To)
	}
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

func orLabel(label, fallback string) string {
	if label != "" {
		return label
	}
	return orNone(fallback)
}
