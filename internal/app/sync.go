package app

import (
	"context"

	"github.com/hylla/kanmap/internal/domain"
)

// ToggleSync flips sync mode and returns the new value. Turning sync on replaces the
// mind-map collection with a copy of the kanban collection and reveals the mind map;
// turning it off moves no data.
func (s *Service) ToggleSync(_ context.Context) bool {
	s.mu.Lock()
	s.state.IsSynced = !s.state.IsSynced
	on := s.state.IsSynced
	if on {
		s.state.MindMapTasks = domain.CloneTasks(s.state.KanbanTasks)
		if s.state.MindMapTasks == nil {
			s.state.MindMapTasks = []domain.Task{}
		}
		s.state.MindMapVisible = true
	}
	s.mu.Unlock()

	s.notify(ChangeEvent{Kind: ChangeSync, Views: []View{ViewKanban, ViewMindMap}})
	return on
}

// SetMindMapVisible shows or hides the mind-map view.
func (s *Service) SetMindMapVisible(_ context.Context, visible bool) {
	s.mu.Lock()
	changed := s.state.MindMapVisible != visible
	s.state.MindMapVisible = visible
	s.mu.Unlock()

	if changed {
		s.notify(ChangeEvent{Kind: ChangeSync})
	}
}
