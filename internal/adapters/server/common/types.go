// Package common provides transport-agnostic server contracts used by HTTP, MCP and WebSocket adapters.
package common

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/dnd"
	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrUnavailable reports an optional backing service that is not configured.
var ErrUnavailable = errors.New("service unavailable")

// BoardService captures the app operations exposed by transport adapters.
type BoardService interface {
	State() app.State
	Columns() []domain.Column
	Tasks(app.View) []domain.Task
	Task(app.View, string) (domain.Task, error)
	AvailableParents(app.View, string) []domain.Task
	Nodes(app.View, map[string]float64) []app.Node
	MindMapNodes() ([]app.Node, []layout.Edge)
	Project(map[string]float64) app.Projection

	CreateColumn(context.Context) (domain.Column, error)
	PatchColumn(context.Context, string, app.ColumnPatch) (domain.Column, error)
	MoveColumn(context.Context, string, float64, float64) (domain.Column, error)
	SetDoneColumn(context.Context, string) ([]domain.Column, error)
	DeleteColumn(context.Context, string) error

	SaveTask(context.Context, app.View, domain.TaskInput, string) (domain.Task, error)
	UpdateTask(context.Context, app.View, string, domain.TaskPatch) (domain.Task, error)
	DeleteTask(context.Context, app.View, string, bool) error
	DropTask(context.Context, app.View, dnd.TaskDrop, map[string]float64) (dnd.Placement, bool, error)

	ToggleSync(context.Context) bool
	SetMindMapVisible(context.Context, bool)
	ApplyHostEvent(context.Context, app.HostEvent) (bool, error)
	ExportConfig() app.WidgetConfig
}

// BoardSaver pushes the current board to the host store on demand.
type BoardSaver interface {
	SaveNow(context.Context) error
}

// ColumnPayload is the transport shape of one column.
type ColumnPayload struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height,omitempty"`
	IsDoneColumn bool    `json:"is_done_column,omitempty"`
	IsEditing    bool    `json:"is_editing,omitempty"`
}

// HistoryPayload is the transport shape of one history entry.
type HistoryPayload struct {
	UpdatedAt time.Time `json:"updated_at"`
	ChangedBy string    `json:"changed_by,omitempty"`
	Action    string    `json:"action"`
}

// TaskPayload is the transport shape of one task.
type TaskPayload struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority,omitempty"`
	Deadline    string           `json:"deadline,omitempty"`
	Username    string           `json:"username,omitempty"`
	ParentID    string           `json:"parent_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	History     []HistoryPayload `json:"history"`
}

// BoardPayload is one view's columns and tasks plus the sync flags.
type BoardPayload struct {
	View           app.View        `json:"view"`
	Columns        []ColumnPayload `json:"columns"`
	Tasks          []TaskPayload   `json:"tasks"`
	IsSynced       bool            `json:"is_synced"`
	MindMapVisible bool            `json:"mindmap_visible"`
}

// TaskRequest carries the full task form for create and full-update paths.
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Username    string `json:"username,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

// TaskPatchRequest carries a partial task update. An empty priority, deadline or
// parent_id clears that field.
type TaskPatchRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Username    *string `json:"username,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// ColumnPatchRequest renames and/or moves a column.
type ColumnPatchRequest struct {
	Title *string  `json:"title,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
}

// DropRequest is a drag release in canvas coordinates. Heights optionally carries
// measured task heights for the view.
type DropRequest struct {
	X       float64            `json:"x"`
	Y       float64            `json:"y"`
	Width   float64            `json:"width"`
	Height  float64            `json:"height"`
	Heights map[string]float64 `json:"heights,omitempty"`
}

// DropResult reports how a drop resolved.
type DropResult struct {
	Applied      bool         `json:"applied"`
	FromColumnID string       `json:"from_column_id,omitempty"`
	ColumnID     string       `json:"column_id,omitempty"`
	Index        int          `json:"index"`
	Moved        bool         `json:"moved"`
	Task         *TaskPayload `json:"task,omitempty"`
}

// ParseView maps a transport view value onto app.View.
func ParseView(raw string) (app.View, error) {
	v, err := app.ParseView(raw)
	if err != nil {
		return "", errors.Join(ErrInvalidRequest, err)
	}
	return v, nil
}

// Input validates the form and converts it into a domain input.
func (r TaskRequest) Input() (domain.TaskInput, error) {
	priority, err := domain.ParsePriority(r.Priority)
	if err != nil {
		return domain.TaskInput{}, err
	}
	deadline, err := domain.ParseDeadline(r.Deadline)
	if err != nil {
		return domain.TaskInput{}, err
	}
	return domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      strings.TrimSpace(r.Status),
		Priority:    priority,
		Deadline:    deadline,
		Username:    r.Username,
		ParentID:    strings.TrimSpace(r.ParentID),
	}, nil
}

// Patch converts the request into a domain patch.
func (r TaskPatchRequest) Patch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Username:    r.Username,
	}
	if r.Priority != nil {
		p, err := domain.ParsePriority(*r.Priority)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		if p == domain.PriorityNone {
			patch.ClearPriority = true
		} else {
			patch.Priority = &p
		}
	}
	if r.Deadline != nil {
		d, err := domain.ParseDeadline(*r.Deadline)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		if d == nil {
			patch.ClearDeadline = true
		} else {
			patch.Deadline = d
		}
	}
	if r.ParentID != nil {
		if id := strings.TrimSpace(*r.ParentID); id == "" {
			patch.ClearParent = true
		} else {
			patch.ParentID = &id
		}
	}
	if patch.Empty() {
		return domain.TaskPatch{}, errors.Join(ErrInvalidRequest, errors.New("patch changes nothing"))
	}
	return patch, nil
}
