package app

import (
	"context"
	"strings"

	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// CreateColumn appends a "New column" to the right of the rightmost column and
// leaves it in editing mode.
func (s *Service) CreateColumn(_ context.Context) (domain.Column, error) {
	s.mu.Lock()
	x, y := 0.0, 0.0
	if len(s.state.Columns) > 0 {
		last := s.state.Columns[0]
		for _, c := range s.state.Columns[1:] {
			if c.X > last.X {
				last = c
			}
		}
		width := last.Width
		if width <= 0 {
			width = s.metrics.ColumnWidth
		}
		x = s.metrics.NextColumnX(layout.Rect{X: last.X, Y: last.Y, Width: width})
		y = last.Y
	}
	title := domain.UniqueTitle(domain.DefaultColumnTitle, s.state.Columns, "")
	col, err := domain.NewColumn(s.idGen(), title, x, y, s.metrics.ColumnWidth)
	if err != nil {
		s.mu.Unlock()
		return domain.Column{}, err
	}
	col.IsEditing = true
	s.state.Columns = append(domain.CloneColumns(s.state.Columns), col)
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeColumns})
	return col, nil
}

// BeginColumnEdit puts a column title into editing mode.
func (s *Service) BeginColumnEdit(_ context.Context, id string) (domain.Column, error) {
	return s.updateColumn(id, func(cols []domain.Column, idx int) {
		cols[idx].IsEditing = true
	})
}

// RenameColumn commits a title edit. A blank title reverts the edit and keeps the
// old title; a title taken by another column gets a " (n)" suffix.
func (s *Service) RenameColumn(_ context.Context, id, title string) (domain.Column, error) {
	return s.updateColumn(id, func(cols []domain.Column, idx int) {
		renameColumn(cols, idx, title)
	})
}

// ColumnPatch carries the optional parts of one column edit. A nil field is left as is.
type ColumnPatch struct {
	Title *string
	X     *float64
	Y     *float64
}

// PatchColumn applies a move and a rename as one mutation with one change event.
func (s *Service) PatchColumn(_ context.Context, id string, patch ColumnPatch) (domain.Column, error) {
	return s.updateColumn(id, func(cols []domain.Column, idx int) {
		if patch.X != nil {
			cols[idx].X = *patch.X
		}
		if patch.Y != nil {
			cols[idx].Y = *patch.Y
		}
		if patch.Title != nil {
			renameColumn(cols, idx, *patch.Title)
		}
	})
}

func renameColumn(cols []domain.Column, idx int, title string) {
	cols[idx].IsEditing = false
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	cols[idx].Title = domain.UniqueTitle(title, cols, cols[idx].ID)
}

// MoveColumn stores a dragged column's new canvas position. Tasks are untouched.
func (s *Service) MoveColumn(_ context.Context, id string, x, y float64) (domain.Column, error) {
	return s.updateColumn(id, func(cols []domain.Column, idx int) {
		cols[idx].X = x
		cols[idx].Y = y
	})
}

// SetDoneColumn flags id as the single done column.
func (s *Service) SetDoneColumn(_ context.Context, id string) ([]domain.Column, error) {
	s.mu.Lock()
	if _, ok := findColumn(s.state.Columns, id); !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.state.Columns = domain.SetDoneColumn(s.state.Columns, id)
	out := domain.CloneColumns(s.state.Columns)
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeColumns})
	return out, nil
}

// DeleteColumn removes a column. Under the blocking policy a column that still
// holds tasks in either collection is refused with a *domain.ColumnNotEmptyError.
// Under the cascading policy its tasks are deleted too and their children orphaned.
func (s *Service) DeleteColumn(_ context.Context, id string) error {
	s.mu.Lock()
	idx, ok := findColumn(s.state.Columns, id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	views := []View{ViewKanban, ViewMindMap}
	if s.deletePolicy == ColumnDeleteBlocking {
		if n := s.countInColumnLocked(id, views); n > 0 {
			s.mu.Unlock()
			return &domain.ColumnNotEmptyError{ColumnID: id, Count: n}
		}
	}

	for _, v := range views {
		tasks := s.state.Tasks(v)
		removed := map[string]struct{}{}
		for _, t := range tasks {
			if t.Status == id {
				removed[t.ID] = struct{}{}
			}
		}
		s.state.setTasks(v, removeTasks(tasks, removed))
	}
	cols := domain.CloneColumns(s.state.Columns)
	s.state.Columns = append(cols[:idx], cols[idx+1:]...)
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeColumns, Views: views})
	return nil
}

func (s *Service) countInColumnLocked(id string, views []View) int {
	seen := map[string]struct{}{}
	for _, v := range views {
		for _, t := range s.state.Tasks(v) {
			if t.Status == id {
				seen[t.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}

func (s *Service) updateColumn(id string, fn func([]domain.Column, int)) (domain.Column, error) {
	s.mu.Lock()
	idx, ok := findColumn(s.state.Columns, id)
	if !ok {
		s.mu.Unlock()
		return domain.Column{}, ErrNotFound
	}
	cols := domain.CloneColumns(s.state.Columns)
	fn(cols, idx)
	s.state.Columns = cols
	out := cols[idx]
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeColumns})
	return out, nil
}
