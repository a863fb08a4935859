package app

import (
	"context"
	"strings"

	"github.com/hylla/kanmap/internal/dnd"
	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// SaveTask creates a task when editingID is empty and otherwise updates the task
// with that id from the full form input. The write is routed by source and the
// sync flag.
func (s *Service) SaveTask(ctx context.Context, source View, in domain.TaskInput, editingID string) (domain.Task, error) {
	s.mu.Lock()
	var (
		task  domain.Task
		views []View
		err   error
	)
	if strings.TrimSpace(editingID) == "" {
		task, views, err = s.createTaskLocked(ctx, source, in)
	} else {
		task, views, err = s.updateTaskLocked(ctx, source, strings.TrimSpace(editingID), in)
	}
	s.mu.Unlock()
	if err != nil {
		return domain.Task{}, err
	}

	s.notify(ChangeEvent{Kind: ChangeTasks, Views: views})
	return task, nil
}

// UpdateTask merges a validated patch over an existing task.
func (s *Service) UpdateTask(ctx context.Context, source View, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	s.mu.Lock()
	tasks := s.state.Tasks(source)
	idx, ok := findTask(tasks, id)
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, ErrNotFound
	}
	in := patch.ApplyTo(domain.InputFromTask(tasks[idx]))
	task, views, err := s.updateTaskLocked(ctx, source, id, in)
	s.mu.Unlock()
	if err != nil {
		return domain.Task{}, err
	}

	s.notify(ChangeEvent{Kind: ChangeTasks, Views: views})
	return task, nil
}

func (s *Service) createTaskLocked(ctx context.Context, source View, in domain.TaskInput) (domain.Task, []View, error) {
	if strings.TrimSpace(in.Status) == "" {
		if ordered := layout.ColumnsByX(s.state.Columns); len(ordered) > 0 {
			in.Status = ordered[0].ID
		}
	}
	task, err := domain.NewTask(s.idGen(), in, s.actorLocked(ctx), s.clock())
	if err != nil {
		return domain.Task{}, nil, err
	}
	views, err := s.mutateTasksLocked(source, func(_ View, tasks []domain.Task) ([]domain.Task, error) {
		return append(tasks, task.Clone()), nil
	})
	if err != nil {
		return domain.Task{}, nil, err
	}
	return task, views, nil
}

func (s *Service) updateTaskLocked(ctx context.Context, source View, id string, in domain.TaskInput) (domain.Task, []View, error) {
	changedBy := s.actorLocked(ctx)
	now := s.clock()
	var saved domain.Task
	views, err := s.mutateTasksLocked(source, func(v View, tasks []domain.Task) ([]domain.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, ErrNotFound
		}
		next, changes, err := tasks[idx].Apply(in)
		if err != nil {
			return nil, err
		}
		if next.ParentID != tasks[idx].ParentID && domain.WouldCycle(tasks, id, next.ParentID) {
			return nil, domain.ErrCyclicParent
		}
		domain.LabelStatusChanges(changes, s.state.Columns)
		next.Record(changes, changedBy, now)
		tasks[idx] = next
		if v == source {
			saved = next.Clone()
		}
		return tasks, nil
	})
	if err != nil {
		return domain.Task{}, nil, err
	}
	return saved, views, nil
}

// DeleteTask removes a task. With cascade its direct children go too; otherwise
// they become roots. Any task left pointing at a removed parent is orphaned.
func (s *Service) DeleteTask(_ context.Context, source View, id string, cascade bool) error {
	s.mu.Lock()
	if _, ok := findTask(s.state.Tasks(source), id); !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	views, err := s.mutateTasksLocked(source, func(_ View, tasks []domain.Task) ([]domain.Task, error) {
		removed := map[string]struct{}{id: {}}
		if cascade {
			for _, c := range domain.Children(tasks, id) {
				removed[c.ID] = struct{}{}
			}
		}
		return removeTasks(tasks, removed), nil
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(ChangeEvent{Kind: ChangeTasks, Views: views})
	return nil
}

// DropTask resolves a drag release against view source's layout. A drop outside
// every column, or without movement, changes nothing and reports false. A drop
// into another column updates the status through the history-recording path.
func (s *Service) DropTask(ctx context.Context, source View, drop dnd.TaskDrop, heights map[string]float64) (dnd.Placement, bool, error) {
	s.mu.Lock()
	if _, ok := findTask(s.state.Tasks(source), drop.TaskID); !ok {
		s.mu.Unlock()
		return dnd.Placement{}, false, ErrNotFound
	}
	board := layout.Board(s.metrics, s.state.Columns, s.state.Tasks(source), heights)
	placement, ok := dnd.Resolve(board, drop, s.metrics.TaskGap)
	if !ok {
		s.mu.Unlock()
		return dnd.Placement{}, false, nil
	}

	changedBy := s.actorLocked(ctx)
	now := s.clock()
	views, err := s.mutateTasksLocked(source, func(_ View, tasks []domain.Task) ([]domain.Task, error) {
		idx, ok := findTask(tasks, drop.TaskID)
		if !ok {
			return nil, ErrNotFound
		}
		task := tasks[idx]
		if placement.Moved() {
			in := domain.InputFromTask(task)
			in.Status = placement.ColumnID
			next, changes, err := task.Apply(in)
			if err != nil {
				return nil, err
			}
			domain.LabelStatusChanges(changes, s.state.Columns)
			next.Record(changes, changedBy, now)
			task = next
		}
		return reorder(tasks, idx, task, placement), nil
	})
	s.mu.Unlock()
	if err != nil {
		return dnd.Placement{}, false, err
	}

	s.notify(ChangeEvent{Kind: ChangeTasks, Views: views})
	return placement, true, nil
}

// reorder moves tasks[idx] (replaced by task) in front of the placement's
// BeforeTaskID, or behind the last task of the target column when appending.
func reorder(tasks []domain.Task, idx int, task domain.Task, p dnd.Placement) []domain.Task {
	rest := make([]domain.Task, 0, len(tasks))
	rest = append(rest, tasks[:idx]...)
	rest = append(rest, tasks[idx+1:]...)

	at := len(rest)
	if p.BeforeTaskID != "" {
		if i, ok := findTask(rest, p.BeforeTaskID); ok {
			at = i
		}
	} else {
		for i := len(rest) - 1; i >= 0; i-- {
			if rest[i].Status == p.ColumnID {
				at = i + 1
				break
			}
		}
	}

	out := make([]domain.Task, 0, len(tasks))
	out = append(out, rest[:at]...)
	out = append(out, task)
	out = append(out, rest[at:]...)
	return out
}

// removeTasks drops every task in removed and clears dangling parent links.
func removeTasks(tasks []domain.Task, removed map[string]struct{}) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, gone := removed[t.ID]; gone {
			continue
		}
		if _, gone := removed[t.ParentID]; gone && t.ParentID != "" {
			t.ParentID = ""
		}
		out = append(out, t)
	}
	return out
}
