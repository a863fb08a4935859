package common

import (
	"context"
	"errors"
	"strings"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/bridge"
	"github.com/hylla/kanmap/internal/dnd"
	"github.com/hylla/kanmap/internal/domain"
)

// ErrorCode classifies failures for transport responses.
type ErrorCode string

// CodeValidation and related constants name the transport error classes.
const (
	CodeValidation     ErrorCode = "validation"
	CodeNotFound       ErrorCode = "not_found"
	CodeCyclicParent   ErrorCode = "cyclic_parent"
	CodeColumnNotEmpty ErrorCode = "column_not_empty"
	CodePersistence    ErrorCode = "persistence"
	CodeUnavailable    ErrorCode = "service_unavailable"
	CodeInternal       ErrorCode = "internal_error"
)

// Classify maps app, domain and bridge errors onto one transport error class.
func Classify(err error) ErrorCode {
	var persistErr *bridge.PersistenceError
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, domain.ErrCyclicParent):
		return CodeCyclicParent
	case errors.Is(err, domain.ErrColumnNotEmpty):
		return CodeColumnNotEmpty
	case errors.As(err, &persistErr):
		return CodePersistence
	case errors.Is(err, app.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, app.ErrInvalidView),
		errors.Is(err, ErrInvalidRequest):
		return CodeValidation
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// MapColumn converts one domain column.
func MapColumn(c domain.Column) ColumnPayload {
	return ColumnPayload{
		ID:           c.ID,
		Title:        c.Title,
		X:            c.X,
		Y:            c.Y,
		Width:        c.Width,
		Height:       c.Height,
		IsDoneColumn: c.IsDoneColumn,
		IsEditing:    c.IsEditing,
	}
}

// MapColumns converts a column set, never returning nil.
func MapColumns(cols []domain.Column) []ColumnPayload {
	out := make([]ColumnPayload, 0, len(cols))
	for _, c := range cols {
		out = append(out, MapColumn(c))
	}
	return out
}

// MapTask converts one domain task.
func MapTask(t domain.Task) TaskPayload {
	out := TaskPayload{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    string(t.Priority),
		Deadline:    domain.FormatDeadline(t.Deadline),
		Username:    t.Username,
		ParentID:    t.ParentID,
		CreatedAt:   t.CreatedAt,
		History:     make([]HistoryPayload, 0, len(t.History)),
	}
	for _, h := range t.History {
		out.History = append(out.History, HistoryPayload{
			UpdatedAt: h.UpdatedAt,
			ChangedBy: h.ChangedBy,
			Action:    h.Action(),
		})
	}
	return out
}

// MapTasks converts a task collection, never returning nil.
func MapTasks(tasks []domain.Task) []TaskPayload {
	out := make([]TaskPayload, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, MapTask(t))
	}
	return out
}

// Board reads one view of the board in a single consistent snapshot.
func Board(svc BoardService, v app.View) BoardPayload {
	st := svc.State()
	return BoardPayload{
		View:           v,
		Columns:        MapColumns(st.Columns),
		Tasks:          MapTasks(st.Tasks(v)),
		IsSynced:       st.IsSynced,
		MindMapVisible: st.MindMapVisible,
	}
}

// SaveTask creates a task, or fully updates editingID when it is set.
func SaveTask(ctx context.Context, svc BoardService, v app.View, req TaskRequest, editingID string) (TaskPayload, error) {
	in, err := req.Input()
	if err != nil {
		return TaskPayload{}, err
	}
	task, err := svc.SaveTask(ctx, v, in, editingID)
	if err != nil {
		return TaskPayload{}, err
	}
	return MapTask(task), nil
}

// PatchTask merges a partial update over one task.
func PatchTask(ctx context.Context, svc BoardService, v app.View, id string, req TaskPatchRequest) (TaskPayload, error) {
	patch, err := req.Patch()
	if err != nil {
		return TaskPayload{}, err
	}
	task, err := svc.UpdateTask(ctx, v, id, patch)
	if err != nil {
		return TaskPayload{}, err
	}
	return MapTask(task), nil
}

// PatchColumn applies a rename and/or a move as one commit. A move with only one
// coordinate keeps the other one where it was.
func PatchColumn(ctx context.Context, svc BoardService, id string, req ColumnPatchRequest) (ColumnPayload, error) {
	id = strings.TrimSpace(id)
	if req.Title == nil && req.X == nil && req.Y == nil {
		return ColumnPayload{}, errors.Join(ErrInvalidRequest, errors.New("title, x or y is required"))
	}
	col, err := svc.PatchColumn(ctx, id, app.ColumnPatch{Title: req.Title, X: req.X, Y: req.Y})
	if err != nil {
		return ColumnPayload{}, err
	}
	return MapColumn(col), nil
}

// DropTask resolves a drag release for one task.
func DropTask(ctx context.Context, svc BoardService, v app.View, id string, req DropRequest) (DropResult, error) {
	placement, ok, err := svc.DropTask(ctx, v, dnd.TaskDrop{
		TaskID: id,
		X:      req.X,
		Y:      req.Y,
		Width:  req.Width,
		Height: req.Height,
	}, req.Heights)
	if err != nil {
		return DropResult{}, err
	}
	if !ok {
		return DropResult{Applied: false}, nil
	}
	out := DropResult{
		Applied:      true,
		FromColumnID: placement.FromColumnID,
		ColumnID:     placement.ColumnID,
		Index:        placement.Index,
		Moved:        placement.Moved(),
	}
	if task, err := svc.Task(v, id); err == nil {
		payload := MapTask(task)
		out.Task = &payload
	}
	return out, nil
}
