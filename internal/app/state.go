package app

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/hylla/kanmap/internal/domain"
)

// View names one of the two task collections.
type View string

// ViewKanban and related constants define package defaults.
const (
	ViewKanban  View = "kanban"
	ViewMindMap View = "mindmap"
)

// ParseView normalizes a view name; empty input means kanban.
func ParseView(raw string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ViewKanban:
		return ViewKanban, nil
	case ViewMindMap, "mind-map", "mind_map":
		return ViewMindMap, nil
	default:
		return "", ErrInvalidView
	}
}

// HostBinding holds what the embedding host last pushed.
type HostBinding struct {
	WidgetID string
	UserID   string
	Role     string
	Users    []string
	Measures json.RawMessage
	// Passthrough keeps config keys this package does not interpret so they survive a save.
	Passthrough map[string]json.RawMessage
}

// State is the complete board: one shared column set and two task collections.
type State struct {
	Columns        []domain.Column
	KanbanTasks    []domain.Task
	MindMapTasks   []domain.Task
	IsSynced       bool
	MindMapVisible bool
	Host           HostBinding
}

// Tasks returns the collection backing v.
func (s State) Tasks(v View) []domain.Task {
	if v == ViewMindMap {
		return s.MindMapTasks
	}
	return s.KanbanTasks
}

func (s *State) setTasks(v View, tasks []domain.Task) {
	if v == ViewMindMap {
		s.MindMapTasks = tasks
		return
	}
	s.KanbanTasks = tasks
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := s
	out.Columns = domain.CloneColumns(s.Columns)
	out.KanbanTasks = domain.CloneTasks(s.KanbanTasks)
	out.MindMapTasks = domain.CloneTasks(s.MindMapTasks)
	out.Host.Users = slices.Clone(s.Host.Users)
	out.Host.Measures = slices.Clone(s.Host.Measures)
	if s.Host.Passthrough != nil {
		out.Host.Passthrough = make(map[string]json.RawMessage, len(s.Host.Passthrough))
		for k, v := range s.Host.Passthrough {
			out.Host.Passthrough[k] = slices.Clone(v)
		}
	}
	return out
}

// PassthroughKeys lists the uninterpreted host config keys in sorted order.
func (h HostBinding) PassthroughKeys() []string {
	return slices.Sorted(maps.Keys(h.Passthrough))
}

func findTask(tasks []domain.Task, id string) (int, bool) {
	for i, t := range tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

func findColumn(columns []domain.Column, id string) (int, bool) {
	for i, c := range columns {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// breakCycles clears any parent link that makes a task its own ancestor.
func breakCycles(tasks []domain.Task) []domain.Task {
	for i := range tasks {
		if tasks[i].ParentID == tasks[i].ID {
			tasks[i].ParentID = ""
			continue
		}
		if domain.IsAncestorOf(tasks, tasks[i].ID, tasks[i].ID) {
			tasks[i].ParentID = ""
		}
	}
	return tasks
}
