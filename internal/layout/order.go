package layout

import (
	"slices"
	"time"

	"github.com/hylla/kanmap/internal/domain"
)

// ComparePriority orders tasks by descending priority weight.
func ComparePriority(a, b domain.Task) int {
	return b.Priority.Weight() - a.Priority.Weight()
}

// SortTasks returns tasks ordered by descending priority, keeping the original
// relative order among equal weights.
func SortTasks(tasks []domain.Task) []domain.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, ComparePriority)
	return out
}

// SortByY orders tasks by descending priority and breaks ties by the vertical
// position each task currently occupies on screen. Tasks missing from ys keep
// their relative order after positioned peers of the same weight.
func SortByY(tasks []domain.Task, ys map[string]float64) []domain.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		if c := ComparePriority(a, b); c != 0 {
			return c
		}
		ay, aok := ys[a.ID]
		by, bok := ys[b.ID]
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case ay < by:
			return -1
		case ay > by:
			return 1
		default:
			return 0
		}
	})
	return out
}

// TasksInColumn returns the tasks whose status is columnID, in display order.
func TasksInColumn(tasks []domain.Task, columnID string) []domain.Task {
	var in []domain.Task
	for _, t := range tasks {
		if t.Status == columnID {
			in = append(in, t)
		}
	}
	return SortTasks(in)
}

// ColumnsByX returns columns ordered left to right by their stored x.
func ColumnsByX(columns []domain.Column) []domain.Column {
	out := slices.Clone(columns)
	slices.SortStableFunc(out, func(a, b domain.Column) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		default:
			return 0
		}
	})
	return out
}

// IsOverdue reports whether the task's deadline is before today and it is not in the done column.
func IsOverdue(task domain.Task, columns []domain.Column, today time.Time) bool {
	if task.Deadline == nil {
		return false
	}
	if IsDone(task, columns) {
		return false
	}
	t := today.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return task.Deadline.Before(day)
}

// IsDone reports whether the task sits in the flagged done column.
func IsDone(task domain.Task, columns []domain.Column) bool {
	doneID, ok := domain.DoneColumnID(columns)
	return ok && task.Status == doneID
}
