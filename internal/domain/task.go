package domain

import (
	"slices"
	"strings"
	"time"
)

// Priority is the optional ranked importance of a task.
type Priority string

const (
	PriorityNone    Priority = ""
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

var validPriorities = []Priority{PriorityLowest, PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest}

// Weight ranks priorities from highest=5 down to lowest=1; an absent priority weighs 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityHighest:
		return 5
	case PriorityHigh:
		return 4
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 2
	case PriorityLowest:
		return 1
	default:
		return 0
	}
}

// ParsePriority normalizes raw input into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == PriorityNone {
		return PriorityNone, nil
	}
	if !slices.Contains(validPriorities, p) {
		return PriorityNone, ErrInvalidPriority
	}
	return p, nil
}

// DeadlineLayout is the wire format of task deadlines.
const DeadlineLayout = "2006-01-02"

// ParseDeadline parses a YYYY-MM-DD date. Empty input yields nil.
func ParseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(DeadlineLayout, raw)
	if err != nil {
		return nil, ErrInvalidDeadline
	}
	return &ts, nil
}

// FormatDeadline renders a deadline, or "" when unset.
func FormatDeadline(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DeadlineLayout)
}

// Task represents a unit of work on the board.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    Priority
	Deadline    *time.Time
	Username    string
	ParentID    string
	CreatedAt   time.Time
	History     []HistoryEntry
}

// TaskInput holds the editable fields of a task as submitted by a form.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    Priority
	Deadline    *time.Time
	Username    string
	ParentID    string
}

// InputFromTask returns the editable fields of an existing task.
func InputFromTask(t Task) TaskInput {
	return TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Deadline:    normalizeDeadline(t.Deadline),
		Username:    t.Username,
		ParentID:    t.ParentID,
	}
}

func (in TaskInput) normalized() (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	in.Username = strings.TrimSpace(in.Username)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if in.Title == "" {
		return TaskInput{}, ErrInvalidTitle
	}
	p, err := ParsePriority(string(in.Priority))
	if err != nil {
		return TaskInput{}, err
	}
	in.Priority = p
	in.Deadline = normalizeDeadline(in.Deadline)
	return in, nil
}

// NewTask constructs a new value for this package.
func NewTask(id string, in TaskInput, changedBy string, now time.Time) (Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, ErrInvalidID
	}
	in, err := in.normalized()
	if err != nil {
		return Task{}, err
	}
	if in.ParentID == id {
		in.ParentID = ""
	}
	ts := now.UTC()
	return Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Deadline:    in.Deadline,
		Username:    in.Username,
		ParentID:    in.ParentID,
		CreatedAt:   ts,
		History: []HistoryEntry{{
			UpdatedAt: ts,
			ChangedBy: strings.TrimSpace(changedBy),
			Changes:   []Change{{Kind: ChangeCreated}},
		}},
	}, nil
}

// Apply returns the task with in merged over it, plus the tracked field changes.
// A parent equal to the task's own id is dropped.
func (t Task) Apply(in TaskInput) (Task, []Change, error) {
	in, err := in.normalized()
	if err != nil {
		return Task{}, nil, err
	}
	if in.ParentID == t.ID {
		in.ParentID = ""
	}
	next := t.Clone()
	next.Title = in.Title
	next.Description = in.Description
	next.Status = in.Status
	next.Priority = in.Priority
	next.Deadline = in.Deadline
	next.Username = in.Username
	next.ParentID = in.ParentID
	return next, t.Diff(next), nil
}

// Diff compares the history-tracked fields of t and next independently.
func (t Task) Diff(next Task) []Change {
	var changes []Change
	if t.Title != next.Title {
		changes = append(changes, Change{Kind: ChangeRenamed, From: t.Title, To: next.Title})
	}
	if t.Status != next.Status {
		changes = append(changes, Change{Kind: ChangeStatus, From: t.Status, To: next.Status})
	}
	if prev, cur := FormatDeadline(t.Deadline), FormatDeadline(next.Deadline); prev != cur {
		changes = append(changes, Change{Kind: ChangeDeadline, From: prev, To: cur})
	}
	if t.Priority != next.Priority {
		changes = append(changes, Change{Kind: ChangePriority, From: string(t.Priority), To: string(next.Priority)})
	}
	if t.Username != next.Username {
		changes = append(changes, Change{Kind: ChangeAssignee, From: t.Username, To: next.Username})
	}
	return changes
}

// Record appends one history entry summarizing changes. It is a no-op for an empty diff.
func (t *Task) Record(changes []Change, changedBy string, now time.Time) {
	if len(changes) == 0 {
		return
	}
	ts := now.UTC()
	if n := len(t.History); n > 0 && ts.Before(t.History[n-1].UpdatedAt) {
		ts = t.History[n-1].UpdatedAt
	}
	t.History = append(t.History, HistoryEntry{
		UpdatedAt: ts,
		ChangedBy: strings.TrimSpace(changedBy),
		Changes:   slices.Clone(changes),
	})
}

// Clone deep-copies the task.
func (t Task) Clone() Task {
	out := t
	out.Deadline = normalizeDeadline(t.Deadline)
	if t.History != nil {
		out.History = make([]HistoryEntry, len(t.History))
		for i, h := range t.History {
			h.Changes = slices.Clone(h.Changes)
			out.History[i] = h
		}
	}
	return out
}

// CloneTasks deep-copies a task slice.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

func normalizeDeadline(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	u := d.UTC()
	ts := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &ts
}
