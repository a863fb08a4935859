package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hylla/kanmap/internal/domain"
)

// Config keys interpreted by this package; everything else is passthrough.
const (
	keyTasks        = "tasks"
	keyKanbanTasks  = "kanbanTasks"
	keyMindMapTasks = "mindMapTasks"
	keyColumns      = "columns"
	keyUsers        = "users"
	keyMeasures     = "measures"
	keyIsSynced     = "isSynced"
	keyUpdatedAt    = "updatedAt"
)

type wireTask struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority,omitempty"`
	Deadline    string        `json:"deadline,omitempty"`
	Username    string        `json:"username,omitempty"`
	ParentID    string        `json:"parentId,omitempty"`
	CreatedAt   int64         `json:"createdAt"`
	History     []wireHistory `json:"history"`
}

type wireHistory struct {
	UpdatedAt int64        `json:"updatedAt"`
	Action    string       `json:"action"`
	ChangedBy string       `json:"changedBy,omitempty"`
	Changes   []wireChange `json:"changes,omitempty"`
}

type wireChange struct {
	Kind      string `json:"kind"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	FromLabel string `json:"fromLabel,omitempty"`
	ToLabel   string `json:"toLabel,omitempty"`
}

type wireColumn struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height,omitempty"`
	IsDoneColumn bool    `json:"isDoneColumn,omitempty"`
}

// MarshalJSON encodes the config with passthrough keys merged at the top level.
// Keys come out sorted, so identical configs encode to identical bytes.
func (c WidgetConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Passthrough)+7)
	for k, v := range c.Passthrough {
		out[k] = v
	}
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}
	if c.Tasks != nil {
		if err := put(keyTasks, tasksToWire(c.Tasks)); err != nil {
			return nil, err
		}
	}
	if c.MindMapTasks != nil {
		if err := put(keyMindMapTasks, tasksToWire(c.MindMapTasks)); err != nil {
			return nil, err
		}
	}
	if c.Columns != nil {
		if err := put(keyColumns, columnsToWire(c.Columns)); err != nil {
			return nil, err
		}
	}
	if c.Users != nil {
		if err := put(keyUsers, c.Users); err != nil {
			return nil, err
		}
	}
	if c.Measures != nil {
		out[keyMeasures] = c.Measures
	}
	if c.IsSynced != nil {
		if err := put(keyIsSynced, *c.IsSynced); err != nil {
			return nil, err
		}
	}
	if !c.UpdatedAt.IsZero() {
		if err := put(keyUpdatedAt, c.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a host config, keeping unknown keys as passthrough.
func (c *WidgetConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode widget config: %w", err)
	}
	var cfg WidgetConfig
	for key, value := range raw {
		if string(value) == "null" {
			continue
		}
		var err error
		switch key {
		case keyTasks:
			cfg.Tasks, err = decodeTasks(value)
		case keyMindMapTasks:
			cfg.MindMapTasks, err = decodeTasks(value)
		case keyColumns:
			cfg.Columns, err = decodeColumns(value)
		case keyUsers:
			cfg.Users = []string{}
			err = json.Unmarshal(value, &cfg.Users)
		case keyMeasures:
			cfg.Measures = append(json.RawMessage(nil), value...)
		case keyIsSynced:
			var b bool
			err = json.Unmarshal(value, &b)
			cfg.IsSynced = &b
		case keyUpdatedAt:
			var ts string
			if err = json.Unmarshal(value, &ts); err == nil {
				cfg.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts)
			}
		default:
			if cfg.Passthrough == nil {
				cfg.Passthrough = map[string]json.RawMessage{}
			}
			cfg.Passthrough[key] = append(json.RawMessage(nil), value...)
		}
		if err != nil {
			return fmt.Errorf("decode widget config %s: %w", key, err)
		}
	}
	// Boards stored by older hosts name the kanban list kanbanTasks.
	if legacy, ok := cfg.Passthrough[keyKanbanTasks]; ok {
		if cfg.Tasks == nil {
			tasks, err := decodeTasks(legacy)
			if err != nil {
				return fmt.Errorf("decode widget config %s: %w", keyKanbanTasks, err)
			}
			cfg.Tasks = tasks
		}
		delete(cfg.Passthrough, keyKanbanTasks)
		if len(cfg.Passthrough) == 0 {
			cfg.Passthrough = nil
		}
	}
	*c = cfg
	return nil
}

func tasksToWire(tasks []domain.Task) []wireTask {
	out := make([]wireTask, 0, len(tasks))
	for _, t := range tasks {
		wt := wireTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    string(t.Priority),
			Deadline:    domain.FormatDeadline(t.Deadline),
			Username:    t.Username,
			ParentID:    t.ParentID,
			CreatedAt:   t.CreatedAt.UnixMilli(),
			History:     make([]wireHistory, 0, len(t.History)),
		}
		for _, h := range t.History {
			wh := wireHistory{
				UpdatedAt: h.UpdatedAt.UnixMilli(),
				Action:    h.Action(),
				ChangedBy: h.ChangedBy,
			}
			for _, ch := range h.Changes {
				wh.Changes = append(wh.Changes, wireChange{
					Kind:      string(ch.Kind),
					From:      ch.From,
					To:        ch.To,
					FromLabel: ch.FromLabel,
					ToLabel:   ch.ToLabel,
				})
			}
			wt.History = append(wt.History, wh)
		}
		out = append(out, wt)
	}
	return out
}

func decodeTasks(raw json.RawMessage) ([]domain.Task, error) {
	var wire []wireTask
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(wire))
	for _, wt := range wire {
		priority, err := domain.ParsePriority(wt.Priority)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", wt.ID, err)
		}
		deadline, err := domain.ParseDeadline(wt.Deadline)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", wt.ID, err)
		}
		t := domain.Task{
			ID:          wt.ID,
			Title:       wt.Title,
			Description: wt.Description,
			Status:      wt.Status,
			Priority:    priority,
			Deadline:    deadline,
			Username:    wt.Username,
			ParentID:    wt.ParentID,
			CreatedAt:   time.UnixMilli(wt.CreatedAt).UTC(),
		}
		for _, wh := range wt.History {
			h := domain.HistoryEntry{
				UpdatedAt: time.UnixMilli(wh.UpdatedAt).UTC(),
				ChangedBy: wh.ChangedBy,
			}
			for _, wc := range wh.Changes {
				h.Changes = append(h.Changes, domain.Change{
					Kind:      domain.ChangeKind(wc.Kind),
					From:      wc.From,
					To:        wc.To,
					FromLabel: wc.FromLabel,
					ToLabel:   wc.ToLabel,
				})
			}
			if len(h.Changes) == 0 {
				h.Note = wh.Action
			}
			t.History = append(t.History, h)
		}
		out = append(out, t)
	}
	return out, nil
}

func columnsToWire(columns []domain.Column) []wireColumn {
	out := make([]wireColumn, 0, len(columns))
	for _, c := range columns {
		out = append(out, wireColumn{
			ID:           c.ID,
			Title:        c.Title,
			X:            c.X,
			Y:            c.Y,
			Width:        c.Width,
			Height:       c.Height,
			IsDoneColumn: c.IsDoneColumn,
		})
	}
	return out
}

func decodeColumns(raw json.RawMessage) ([]domain.Column, error) {
	var wire []wireColumn
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Column, 0, len(wire))
	for _, wc := range wire {
		out = append(out, domain.Column{
			ID:           wc.ID,
			Title:        wc.Title,
			X:            wc.X,
			Y:            wc.Y,
			Width:        wc.Width,
			Height:       wc.Height,
			IsDoneColumn: wc.IsDoneColumn,
		})
	}
	return out, nil
}
