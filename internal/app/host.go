package app

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hylla/kanmap/internal/domain"
)

// WidgetConfig is the config object exchanged with the embedding host.
// Nil slices and a nil IsSynced mean the field was omitted.
type WidgetConfig struct {
	Tasks        []domain.Task
	MindMapTasks []domain.Task
	Columns      []domain.Column
	Users        []string
	Measures     json.RawMessage
	IsSynced     *bool
	UpdatedAt    time.Time
	Passthrough  map[string]json.RawMessage
}

// HostEvent is the single inbound push from the host.
type HostEvent struct {
	WidgetID string       `json:"widgetId"`
	UserID   string       `json:"userId"`
	Role     string       `json:"role"`
	Config   WidgetConfig `json:"config"`
}

// ApplyHostEvent replaces board state with the event payload when the event targets
// this widget, binding the widget id on first contact. Omitted fields are left as
// they are. It reports whether the event was applied.
func (s *Service) ApplyHostEvent(_ context.Context, ev HostEvent) (bool, error) {
	if err := validateConfig(ev.Config); err != nil {
		return false, err
	}
	widgetID := strings.TrimSpace(ev.WidgetID)

	s.mu.Lock()
	bound := s.state.Host.WidgetID
	if bound != "" && widgetID != bound {
		s.mu.Unlock()
		return false, nil
	}
	if bound == "" {
		s.state.Host.WidgetID = widgetID
	}
	if v := strings.TrimSpace(ev.UserID); v != "" {
		s.state.Host.UserID = v
	}
	if v := strings.TrimSpace(ev.Role); v != "" {
		s.state.Host.Role = v
	}
	s.applyConfigLocked(ev.Config)
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeHost, Views: []View{ViewKanban, ViewMindMap}})
	return true, nil
}

// ImportConfig replaces board state with cfg regardless of widget binding.
func (s *Service) ImportConfig(_ context.Context, cfg WidgetConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.applyConfigLocked(cfg)
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeHost, Views: []View{ViewKanban, ViewMindMap}})
	return nil
}

// ExportConfig serializes the board for an outbound save. Host keys this package
// does not interpret are carried through untouched.
func (s *Service) ExportConfig() WidgetConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := s.state.IsSynced
	cfg := WidgetConfig{
		Tasks:     nonNilTasks(domain.CloneTasks(s.state.KanbanTasks)),
		Columns:   domain.CloneColumns(s.state.Columns),
		Users:     slices.Clone(s.state.Host.Users),
		Measures:  slices.Clone(s.state.Host.Measures),
		IsSynced:  &synced,
		UpdatedAt: s.clock().UTC(),
	}
	if cfg.Columns == nil {
		cfg.Columns = []domain.Column{}
	}
	if !synced {
		cfg.MindMapTasks = nonNilTasks(domain.CloneTasks(s.state.MindMapTasks))
	}
	if len(s.state.Host.Passthrough) > 0 {
		cfg.Passthrough = maps.Clone(s.state.Host.Passthrough)
	}
	return cfg
}

func (s *Service) applyConfigLocked(cfg WidgetConfig) {
	if cfg.IsSynced != nil {
		s.state.IsSynced = *cfg.IsSynced
	}
	if cfg.Tasks != nil {
		tasks := breakCycles(domain.CloneTasks(cfg.Tasks))
		s.state.KanbanTasks = tasks
		if s.state.IsSynced || cfg.MindMapTasks == nil {
			s.state.MindMapTasks = domain.CloneTasks(tasks)
		}
	}
	if cfg.MindMapTasks != nil && !s.state.IsSynced {
		s.state.MindMapTasks = breakCycles(domain.CloneTasks(cfg.MindMapTasks))
	}
	if cfg.Columns != nil {
		cols := domain.CloneColumns(cfg.Columns)
		for i := range cols {
			cols[i].IsEditing = false
		}
		s.state.Columns = cols
	}
	if cfg.Users != nil {
		s.state.Host.Users = slices.Clone(cfg.Users)
	}
	if cfg.Measures != nil {
		s.state.Host.Measures = slices.Clone(cfg.Measures)
	}
	if len(cfg.Passthrough) > 0 {
		if s.state.Host.Passthrough == nil {
			s.state.Host.Passthrough = map[string]json.RawMessage{}
		}
		maps.Copy(s.state.Host.Passthrough, cfg.Passthrough)
	}
}

// validateConfig refuses a payload that could not be stored: every id must be
// present and unique within its own collection.
func validateConfig(cfg WidgetConfig) error {
	seen := make(map[string]struct{}, len(cfg.Columns))
	for _, c := range cfg.Columns {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return domain.ErrInvalidColumnID
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: column %q", domain.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	for _, set := range [][]domain.Task{cfg.Tasks, cfg.MindMapTasks} {
		clear(seen)
		for _, t := range set {
			id := strings.TrimSpace(t.ID)
			if id == "" {
				return domain.ErrInvalidID
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: task %q", domain.ErrDuplicateID, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

func nonNilTasks(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}
