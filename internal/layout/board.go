package layout

import "github.com/hylla/kanmap/internal/domain"

// ColumnBox is a positioned column and the ids of its tasks in display order.
type ColumnBox struct {
	ColumnID string   `json:"column_id"`
	Title    string   `json:"title"`
	IsDone   bool     `json:"is_done"`
	TaskIDs  []string `json:"task_ids"`
	Rect
}

// TaskBox is a positioned task card.
type TaskBox struct {
	TaskID   string `json:"task_id"`
	ColumnID string `json:"column_id"`
	Index    int    `json:"index"`
	Rect
}

// BoardLayout is the full kanban geometry.
type BoardLayout struct {
	Columns []ColumnBox `json:"columns"`
	Tasks   []TaskBox   `json:"tasks"`
}

// Column looks up a column box by id.
func (b BoardLayout) Column(id string) (ColumnBox, bool) {
	for _, c := range b.Columns {
		if c.ColumnID == id {
			return c, true
		}
	}
	return ColumnBox{}, false
}

// Task looks up a task box by id.
func (b BoardLayout) Task(id string) (TaskBox, bool) {
	for _, t := range b.Tasks {
		if t.TaskID == id {
			return t, true
		}
	}
	return TaskBox{}, false
}

// TasksIn returns the task boxes of a column in display order.
func (b BoardLayout) TasksIn(columnID string) []TaskBox {
	var out []TaskBox
	for _, t := range b.Tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	return out
}

// Board computes column boxes and stacked task boxes. heights carries measured
// task heights by id; missing or non-positive entries use m.TaskHeight.
// Tasks whose status matches no column are left out.
func Board(m Metrics, columns []domain.Column, tasks []domain.Task, heights map[string]float64) BoardLayout {
	ordered := ColumnsByX(columns)
	out := BoardLayout{
		Columns: make([]ColumnBox, 0, len(ordered)),
	}
	for _, col := range ordered {
		in := TasksInColumn(tasks, col.ID)
		width := col.Width
		if width <= 0 {
			width = m.ColumnWidth
		}

		taskHeights := make([]float64, len(in))
		ids := make([]string, len(in))
		cursor := col.Y + m.HeaderHeight + m.Padding
		for i, t := range in {
			h := taskHeight(m, heights, t.ID)
			taskHeights[i] = h
			ids[i] = t.ID
			out.Tasks = append(out.Tasks, TaskBox{
				TaskID:   t.ID,
				ColumnID: col.ID,
				Index:    i,
				Rect: Rect{
					X:      col.X + m.Padding,
					Y:      cursor,
					Width:  m.TaskWidth(width),
					Height: h,
				},
			})
			cursor += h + m.TaskGap
		}

		out.Columns = append(out.Columns, ColumnBox{
			ColumnID: col.ID,
			Title:    col.Title,
			IsDone:   col.IsDoneColumn,
			TaskIDs:  ids,
			Rect: Rect{
				X:      col.X,
				Y:      col.Y,
				Width:  width,
				Height: m.ColumnHeight(taskHeights),
			},
		})
	}
	return out
}

func taskHeight(m Metrics, heights map[string]float64, id string) float64 {
	if h, ok := heights[id]; ok && h > 0 {
		return h
	}
	return m.TaskHeight
}
