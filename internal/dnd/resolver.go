// Package dnd resolves drag-and-drop releases on the kanban canvas into placements.
package dnd

import (
	"slices"

	"github.com/hylla/kanmap/internal/layout"
)

// TaskDrop describes a task node released at a canvas position.
// Width and Height default to the task's laid-out size when zero.
type TaskDrop struct {
	TaskID string  `json:"task_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Placement is a resolved drop target.
type Placement struct {
	TaskID       string `json:"task_id"`
	FromColumnID string `json:"from_column_id"`
	ColumnID     string `json:"column_id"`
	Index        int    `json:"index"`
	// BeforeTaskID is the sibling the task lands in front of, empty when appended.
	BeforeTaskID string `json:"before_task_id,omitempty"`
}

// Moved reports whether the drop changes the task's column.
func (p Placement) Moved() bool {
	return p.FromColumnID != p.ColumnID
}

// HitColumn returns the first column whose box contains p.
func HitColumn(columns []layout.ColumnBox, p layout.Point) (string, bool) {
	for _, c := range columns {
		if c.Contains(p) {
			return c.ColumnID, true
		}
	}
	return "", false
}

// InsertionIndex places centerY among siblings sorted by ascending top edge. The
// task goes before the first sibling whose top plus half its height-and-gap lies
// below centerY, otherwise it is appended.
func InsertionIndex(siblings []layout.Rect, centerY, gap float64) int {
	sorted := slices.Clone(siblings)
	slices.SortStableFunc(sorted, byTop)
	for i, s := range sorted {
		if centerY < s.Y+(s.Height+gap)/2 {
			return i
		}
	}
	return len(sorted)
}

// Resolve maps a drop onto the board. It reports false when the drop is a no-op:
// the center lies outside every column, or the task was released where it started.
func Resolve(board layout.BoardLayout, drop TaskDrop, gap float64) (Placement, bool) {
	box, known := board.Task(drop.TaskID)
	w, h := drop.Width, drop.Height
	if known {
		if drop.X == box.X && drop.Y == box.Y {
			return Placement{}, false
		}
		if w <= 0 {
			w = box.Width
		}
		if h <= 0 {
			h = box.Height
		}
	}
	center := layout.Rect{X: drop.X, Y: drop.Y, Width: w, Height: h}.Center()
	colID, ok := HitColumn(board.Columns, center)
	if !ok {
		return Placement{}, false
	}

	var siblings []layout.TaskBox
	for _, t := range board.TasksIn(colID) {
		if t.TaskID != drop.TaskID {
			siblings = append(siblings, t)
		}
	}
	slices.SortStableFunc(siblings, func(a, b layout.TaskBox) int { return byTop(a.Rect, b.Rect) })
	rects := make([]layout.Rect, len(siblings))
	for i, s := range siblings {
		rects[i] = s.Rect
	}
	idx := InsertionIndex(rects, center.Y, gap)

	p := Placement{
		TaskID:   drop.TaskID,
		ColumnID: colID,
		Index:    idx,
	}
	if known {
		p.FromColumnID = box.ColumnID
	}
	if idx < len(siblings) {
		p.BeforeTaskID = siblings[idx].TaskID
	}
	return p, true
}

func byTop(a, b layout.Rect) int {
	switch {
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	default:
		return 0
	}
}
