package app

import (
	"time"

	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// NodeKind distinguishes canvas node types.
type NodeKind string

// NodeColumn and related constants define package defaults.
const (
	NodeColumn  NodeKind = "column"
	NodeTask    NodeKind = "task"
	NodeMindMap NodeKind = "mindmap"
)

// Node is one renderable canvas node.
type Node struct {
	ID        string          `json:"id"`
	Kind      NodeKind        `json:"kind"`
	ParentID  string          `json:"parent_id,omitempty"`
	Title     string          `json:"title"`
	Priority  domain.Priority `json:"priority,omitempty"`
	Username  string          `json:"username,omitempty"`
	Deadline  string          `json:"deadline,omitempty"`
	Depth     int             `json:"depth,omitempty"`
	Overdue   bool            `json:"overdue,omitempty"`
	Done      bool            `json:"done,omitempty"`
	IsEditing bool            `json:"is_editing,omitempty"`
	TaskCount int             `json:"task_count,omitempty"`
	layout.Rect
}

// Projection is everything the canvas needs to render both views.
type Projection struct {
	Kanban         []Node        `json:"kanban"`
	MindMap        []Node        `json:"mindmap"`
	Edges          []layout.Edge `json:"edges"`
	IsSynced       bool          `json:"is_synced"`
	MindMapVisible bool          `json:"mindmap_visible"`
}

// Nodes projects view v as kanban nodes: columns first, then their tasks in
// display order. Task nodes carry their column as ParentID.
func (s *Service) Nodes(v View, heights map[string]float64) []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kanbanNodesLocked(v, heights)
}

// MindMapNodes projects the mind-map collection as a positioned tree.
func (s *Service) MindMapNodes() ([]Node, []layout.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mindMapNodesLocked()
}

// Project builds the full projection in one consistent read.
func (s *Service) Project(heights map[string]float64) Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	mm, edges := s.mindMapNodesLocked()
	return Projection{
		Kanban:         s.kanbanNodesLocked(ViewKanban, heights),
		MindMap:        mm,
		Edges:          edges,
		IsSynced:       s.state.IsSynced,
		MindMapVisible: s.state.MindMapVisible,
	}
}

func (s *Service) kanbanNodesLocked(v View, heights map[string]float64) []Node {
	cols := s.state.Columns
	tasks := s.state.Tasks(v)
	board := layout.Board(s.metrics, cols, tasks, heights)
	today := s.clock()

	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	colByID := make(map[string]domain.Column, len(cols))
	for _, c := range cols {
		colByID[c.ID] = c
	}

	nodes := make([]Node, 0, len(board.Columns)+len(board.Tasks))
	for _, cb := range board.Columns {
		col := colByID[cb.ColumnID]
		nodes = append(nodes, Node{
			ID:        cb.ColumnID,
			Kind:      NodeColumn,
			Title:     cb.Title,
			Done:      cb.IsDone,
			IsEditing: col.IsEditing,
			TaskCount: len(cb.TaskIDs),
			Rect:      cb.Rect,
		})
	}
	for _, tb := range board.Tasks {
		t := byID[tb.TaskID]
		nodes = append(nodes, taskNode(t, NodeTask, tb.ColumnID, 0, tb.Rect, cols, today))
	}
	return nodes
}

func (s *Service) mindMapNodesLocked() ([]Node, []layout.Edge) {
	tasks := s.state.MindMapTasks
	boxes, edges := layout.MindMap(s.metrics, tasks)
	today := s.clock()
	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	nodes := make([]Node, 0, len(boxes))
	for _, b := range boxes {
		nodes = append(nodes, taskNode(byID[b.TaskID], NodeMindMap, b.ParentID, b.Depth, b.Rect, s.state.Columns, today))
	}
	return nodes, edges
}

func taskNode(t domain.Task, kind NodeKind, parentID string, depth int, rect layout.Rect, cols []domain.Column, today time.Time) Node {
	return Node{
		ID:       t.ID,
		Kind:     kind,
		ParentID: parentID,
		Title:    t.Title,
		Priority: t.Priority,
		Username: t.Username,
		Deadline: domain.FormatDeadline(t.Deadline),
		Depth:    depth,
		Overdue:  layout.IsOverdue(t, cols, today),
		Done:     layout.IsDone(t, cols),
		Rect:     rect,
	}
}
