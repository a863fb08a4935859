package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// ColumnDeletePolicy selects how deleting a non-empty column behaves.
type ColumnDeletePolicy string

// ColumnDeleteBlocking and related constants define package defaults.
const (
	ColumnDeleteBlocking  ColumnDeletePolicy = "blocking"
	ColumnDeleteCascading ColumnDeletePolicy = "cascading"
)

// ParseColumnDeletePolicy normalizes a policy name; empty input means blocking.
func ParseColumnDeletePolicy(raw string) (ColumnDeletePolicy, error) {
	switch p := ColumnDeletePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return ColumnDeleteBlocking, nil
	case ColumnDeleteBlocking, ColumnDeleteCascading:
		return p, nil
	default:
		return "", ErrInvalidColumnDeletePolicy
	}
}

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	CurrentUser        string
	WidgetID           string
	ColumnDeletePolicy ColumnDeletePolicy
	Metrics            layout.Metrics
	// DefaultColumns seeds an empty board on first load.
	DefaultColumns []ColumnTemplate
}

// ColumnTemplate describes a column seeded on first load.
type ColumnTemplate struct {
	ID     string
	Title  string
	IsDone bool
}

// DefaultColumnTemplates returns the stock board lanes.
func DefaultColumnTemplates() []ColumnTemplate {
	return []ColumnTemplate{
		{ID: "todo", Title: "To do"},
		{ID: "in-progress", Title: "In progress"},
		{ID: "review", Title: "Review"},
		{ID: "done", Title: "Done", IsDone: true},
	}
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns one board's state and applies every mutation to it.
// Calls are serialized; each mutation builds all target collections before
// committing them together.
type Service struct {
	mu        sync.Mutex
	repo      Repository
	idGen     IDGenerator
	clock     Clock
	listeners []ChangeListener

	currentUser    string
	deletePolicy   ColumnDeletePolicy
	metrics        layout.Metrics
	defaultColumns []ColumnTemplate

	state State
}

// NewService constructs a new value for this package. repo may be nil when the
// board is purely in-memory.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.ColumnDeletePolicy == "" {
		cfg.ColumnDeletePolicy = ColumnDeleteBlocking
	}
	if cfg.Metrics == (layout.Metrics{}) {
		cfg.Metrics = layout.DefaultMetrics()
	}
	svc := &Service{
		repo:           repo,
		idGen:          idGen,
		clock:          clock,
		currentUser:    strings.TrimSpace(cfg.CurrentUser),
		deletePolicy:   cfg.ColumnDeletePolicy,
		metrics:        cfg.Metrics,
		defaultColumns: cfg.DefaultColumns,
	}
	svc.state.Host.WidgetID = strings.TrimSpace(cfg.WidgetID)
	return svc
}

// Subscribe registers a listener for committed mutations.
func (s *Service) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(ev ChangeEvent) {
	s.mu.Lock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Metrics returns the geometry the service lays boards out with.
func (s *Service) Metrics() layout.Metrics {
	return s.metrics
}

// Load restores persisted state. Default columns are seeded only when nothing was
// saved yet.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		s.mu.Lock()
		s.seedLocked()
		s.mu.Unlock()
		return nil
	}
	st, err := s.repo.LoadState(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load board state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.seedLocked()
		return nil
	}
	// A saved board keeps its columns as stored, even when the user removed all of them.
	st.KanbanTasks = breakCycles(st.KanbanTasks)
	st.MindMapTasks = breakCycles(st.MindMapTasks)
	if st.Host.WidgetID == "" {
		st.Host.WidgetID = s.state.Host.WidgetID
	}
	s.state = st
	return nil
}

func (s *Service) seedLocked() {
	if len(s.state.Columns) > 0 || len(s.defaultColumns) == 0 {
		return
	}
	x := 0.0
	for i, tpl := range s.defaultColumns {
		if i > 0 {
			x += s.metrics.ColumnWidth + s.metrics.ColumnGap
		}
		id := strings.TrimSpace(tpl.ID)
		if id == "" {
			id = s.idGen()
		}
		col, err := domain.NewColumn(id, domain.UniqueTitle(tpl.Title, s.state.Columns, ""), x, 0, s.metrics.ColumnWidth)
		if err != nil {
			continue
		}
		col.IsDoneColumn = tpl.IsDone
		s.state.Columns = append(s.state.Columns, col)
	}
}

// Persist writes the current state through the repository.
func (s *Service) Persist(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveState(ctx, s.State()); err != nil {
		return fmt.Errorf("save board state: %w", err)
	}
	return nil
}

// State returns a deep copy of the board.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Columns returns the shared column set.
func (s *Service) Columns() []domain.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneColumns(s.state.Columns)
}

// Tasks returns a copy of the collection backing v.
func (s *Service) Tasks(v View) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneTasks(s.state.Tasks(v))
}

// Task returns one task from the collection backing v.
func (s *Service) Task(v View, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.state.Tasks(v)
	idx, ok := findTask(tasks, id)
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return tasks[idx].Clone(), nil
}

// AvailableParents lists the tasks id may be reparented under in view v.
// An empty id lists candidates for a new task.
func (s *Service) AvailableParents(v View, id string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneTasks(domain.AvailableParents(s.state.Tasks(v), id))
}

// IsSynced reports whether both views share one logical collection.
func (s *Service) IsSynced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsSynced
}

// Board lays out view v's collection. heights carries measured task heights.
func (s *Service) Board(v View, heights map[string]float64) layout.BoardLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.Board(s.metrics, s.state.Columns, s.state.Tasks(v), heights)
}

// targetsLocked returns the collections a mutation from source applies to.
func (s *Service) targetsLocked(source View) []View {
	if s.state.IsSynced {
		return []View{ViewKanban, ViewMindMap}
	}
	return []View{source}
}

// mutateTasksLocked runs fn over a copy of every target collection and commits
// the results only when all of them succeed.
func (s *Service) mutateTasksLocked(source View, fn func(View, []domain.Task) ([]domain.Task, error)) ([]View, error) {
	views := s.targetsLocked(source)
	next := make([][]domain.Task, len(views))
	for i, v := range views {
		out, err := fn(v, domain.CloneTasks(s.state.Tasks(v)))
		if err != nil {
			return nil, err
		}
		next[i] = out
	}
	for i, v := range views {
		s.state.setTasks(v, next[i])
	}
	return views, nil
}
