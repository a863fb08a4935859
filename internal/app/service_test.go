package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hylla/kanmap/internal/dnd"
	"github.com/hylla/kanmap/internal/domain"
)

type fakeRepo struct {
	state   *State
	saves   int
	loadErr error
}

func (f *fakeRepo) LoadState(context.Context) (State, error) {
	if f.loadErr != nil {
		return State{}, f.loadErr
	}
	if f.state == nil {
		return State{}, ErrNotFound
	}
	return f.state.Clone(), nil
}

func (f *fakeRepo) SaveState(_ context.Context, st State) error {
	cp := st.Clone()
	f.state = &cp
	f.saves++
	return nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock() (Clock, *time.Time) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, &now
}

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, *time.Time) {
	t.Helper()
	clock, now := fixedClock()
	if cfg.DefaultColumns == nil {
		cfg.DefaultColumns = DefaultColumnTemplates()
	}
	svc := NewService(nil, sequentialIDs(), clock, cfg)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc, now
}

func mustSave(t *testing.T, svc *Service, source View, in domain.TaskInput, editingID string) domain.Task {
	t.Helper()
	task, err := svc.SaveTask(context.Background(), source, in, editingID)
	if err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	return task
}

func TestLoadSeedsDefaultColumns(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	cols := svc.Columns()
	if len(cols) != 4 {
		t.Fatalf("expected 4 seeded columns, got %d", len(cols))
	}
	if cols[1].X != 320 || !cols[3].IsDoneColumn {
		t.Fatalf("unexpected seeded columns %#v", cols)
	}
}

func TestCreateColumnDeduplicatesAndAppends(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{DefaultColumns: []ColumnTemplate{}})
	ctx := context.Background()

	first, err := svc.CreateColumn(ctx)
	if err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if first.Title != "New column" || !first.IsEditing || first.X != 0 {
		t.Fatalf("unexpected first column %#v", first)
	}
	if _, err := svc.RenameColumn(ctx, first.ID, "Todo"); err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	second, err := svc.CreateColumn(ctx)
	if err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if second.X != 320 {
		t.Fatalf("expected second column right of the first, got x=%v", second.X)
	}
	renamed, err := svc.RenameColumn(ctx, second.ID, " Todo ")
	if err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	if renamed.Title != "Todo (1)" || renamed.IsEditing {
		t.Fatalf("expected de-duplicated title, got %#v", renamed)
	}

	third, _ := svc.CreateColumn(ctx)
	fourth, _ := svc.CreateColumn(ctx)
	if third.Title != "New column" || fourth.Title != "New column (1)" {
		t.Fatalf("unexpected new column titles %q %q", third.Title, fourth.Title)
	}
	seen := map[string]bool{}
	for _, c := range svc.Columns() {
		if seen[c.Title] {
			t.Fatalf("duplicate column title %q", c.Title)
		}
		seen[c.Title] = true
	}
}

func TestRenameColumnBlankReverts(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	if _, err := svc.BeginColumnEdit(ctx, "todo"); err != nil {
		t.Fatalf("BeginColumnEdit() error = %v", err)
	}
	col, err := svc.RenameColumn(ctx, "todo", "   ")
	if err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	if col.Title != "To do" || col.IsEditing {
		t.Fatalf("expected revert to viewing with old title, got %#v", col)
	}
	if _, err := svc.RenameColumn(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetDoneColumnIsExclusive(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	cols, err := svc.SetDoneColumn(context.Background(), "review")
	if err != nil {
		t.Fatalf("SetDoneColumn() error = %v", err)
	}
	done := 0
	for _, c := range cols {
		if c.IsDoneColumn {
			done++
			if c.ID != "review" {
				t.Fatalf("unexpected done column %q", c.ID)
			}
		}
	}
	if done != 1 {
		t.Fatalf("expected one done column, got %d", done)
	}
}

func TestDeleteColumnBlockingPolicy(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A", Status: "todo"}, "")
	mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "B", Status: "todo"}, "")

	err := svc.DeleteColumn(ctx, "todo")
	var notEmpty *domain.ColumnNotEmptyError
	if !errors.As(err, &notEmpty) || notEmpty.Count != 2 {
		t.Fatalf("expected ColumnNotEmptyError with count 2, got %v", err)
	}
	if len(svc.Columns()) != 4 {
		t.Fatal("expected blocked delete to keep the column")
	}
	if err := svc.DeleteColumn(ctx, "review"); err != nil {
		t.Fatalf("DeleteColumn(empty) error = %v", err)
	}
	if len(svc.Columns()) != 3 {
		t.Fatal("expected empty column to be deleted")
	}
}

func TestDeleteColumnCascadingOrphansChildren(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{ColumnDeletePolicy: ColumnDeleteCascading})
	parent := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "P", Status: "todo"}, "")
	child := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "C", Status: "review", ParentID: parent.ID}, "")

	if err := svc.DeleteColumn(context.Background(), "todo"); err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	tasks := svc.Tasks(ViewKanban)
	if len(tasks) != 1 || tasks[0].ID != child.ID || tasks[0].ParentID != "" {
		t.Fatalf("expected orphaned child to remain, got %#v", tasks)
	}
}

func TestSaveTaskCreateDefaultsAndHistory(t *testing.T) {
	svc, now := newTestService(t, ServiceConfig{CurrentUser: "ann"})
	task := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "Write docs"}, "")
	if task.Status != "todo" {
		t.Fatalf("expected first column as default status, got %q", task.Status)
	}
	if !task.CreatedAt.Equal(*now) || len(task.History) != 1 || task.History[0].ChangedBy != "ann" {
		t.Fatalf("unexpected created task %#v", task)
	}

	_, err := svc.SaveTask(context.Background(), ViewKanban, domain.TaskInput{Title: "  "}, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveTaskUpdateAppendsOneEntry(t *testing.T) {
	svc, now := newTestService(t, ServiceConfig{})
	ctx := WithActor(context.Background(), "bob")
	task := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A", Status: "todo"}, "")

	*now = now.Add(time.Hour)
	in := domain.InputFromTask(task)
	in.Title = "B"
	in.Status = "done"
	in.Priority = domain.PriorityHigh
	updated, err := svc.SaveTask(ctx, ViewKanban, in, task.ID)
	if err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if len(updated.History) != 2 {
		t.Fatalf("expected exactly one appended entry, got %d", len(updated.History))
	}
	last := updated.History[1]
	if last.ChangedBy != "bob" || len(last.Changes) != 3 {
		t.Fatalf("unexpected history entry %#v", last)
	}
	if got := last.Action(); got != `title: "A" → "B"; status: To do → Done; priority: none → high` {
		t.Fatalf("Action() = %q", got)
	}

	same, err := svc.SaveTask(ctx, ViewKanban, domain.InputFromTask(updated), task.ID)
	if err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if len(same.History) != 2 {
		t.Fatal("expected no history for an unchanged save")
	}
}

func TestSaveTaskSelfParentDropped(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	task := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A"}, "")
	in := domain.InputFromTask(task)
	in.ParentID = task.ID
	saved := mustSave(t, svc, ViewKanban, in, task.ID)
	if saved.ParentID != "" {
		t.Fatalf("expected self parent to be dropped, got %q", saved.ParentID)
	}
}

func TestReparentToDescendantRejected(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	a := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A"}, "")
	b := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "B", ParentID: a.ID}, "")
	c := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "C", ParentID: b.ID}, "")

	parent := c.ID
	_, err := svc.UpdateTask(context.Background(), ViewKanban, a.ID, domain.TaskPatch{ParentID: &parent})
	if !errors.Is(err, domain.ErrCyclicParent) {
		t.Fatalf("expected ErrCyclicParent, got %v", err)
	}
	got, _ := svc.Task(ViewKanban, a.ID)
	if got.ParentID != "" || len(got.History) != 1 {
		t.Fatalf("expected rejected write to leave A untouched, got %#v", got)
	}

	avail := svc.AvailableParents(ViewKanban, a.ID)
	for _, p := range avail {
		if p.ID == a.ID || p.ID == b.ID || p.ID == c.ID {
			t.Fatalf("unexpected available parent %q", p.ID)
		}
	}
}

func TestDeleteTaskOrphanAndCascade(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	p := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "P", Priority: domain.PriorityHigh}, "")
	c1 := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "C1", ParentID: p.ID, Priority: domain.PriorityLow}, "")
	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "C2", ParentID: p.ID}, "")

	if err := svc.DeleteTask(ctx, ViewKanban, p.ID, false); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	tasks := svc.Tasks(ViewKanban)
	if len(tasks) != 2 {
		t.Fatalf("expected both children to remain, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.ParentID != "" {
			t.Fatalf("expected orphaned child, got parent %q", task.ParentID)
		}
	}
	got, _ := svc.Task(ViewKanban, c1.ID)
	if got.Title != "C1" || got.Priority != domain.PriorityLow || got.Status != c1.Status {
		t.Fatalf("expected other fields untouched, got %#v", got)
	}

	q := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "Q"}, "")
	d1 := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "D1", ParentID: q.ID}, "")
	grand := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "G", ParentID: d1.ID}, "")
	if err := svc.DeleteTask(ctx, ViewKanban, q.ID, true); err != nil {
		t.Fatalf("DeleteTask(cascade) error = %v", err)
	}
	if _, err := svc.Task(ViewKanban, d1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected direct child to be removed, got %v", err)
	}
	g, err := svc.Task(ViewKanban, grand.ID)
	if err != nil || g.ParentID != "" {
		t.Fatalf("expected grandchild kept as root, got %#v %v", g, err)
	}
	if err := svc.DeleteTask(ctx, ViewKanban, "missing", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncDivergenceAndFanOut(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "T1"}, "")
	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "T2"}, "")
	mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "T3"}, "")
	if len(svc.Tasks(ViewMindMap)) != 1 || len(svc.Tasks(ViewKanban)) != 2 {
		t.Fatal("expected unsynced writes to stay in their source collection")
	}

	if !svc.ToggleSync(ctx) {
		t.Fatal("expected sync to turn on")
	}
	if !reflect.DeepEqual(svc.Tasks(ViewMindMap), svc.Tasks(ViewKanban)) {
		t.Fatal("expected mind map to equal kanban after enabling sync")
	}
	if !svc.State().MindMapVisible {
		t.Fatal("expected enabling sync to reveal the mind map")
	}

	created := mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "T4"}, "")
	title := "T4 renamed"
	if _, err := svc.UpdateTask(ctx, ViewKanban, created.ID, domain.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if !reflect.DeepEqual(svc.Tasks(ViewMindMap), svc.Tasks(ViewKanban)) {
		t.Fatal("expected synced mutations to fan out to both collections")
	}

	if svc.ToggleSync(ctx) {
		t.Fatal("expected sync to turn off")
	}
	if err := svc.DeleteTask(ctx, ViewKanban, created.ID, false); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := svc.Task(ViewMindMap, created.ID); err != nil {
		t.Fatalf("expected mind map untouched by kanban delete, got %v", err)
	}
}

func TestSyncedDeleteAndDropFanOut(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	svc.ToggleSync(ctx)

	p := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "P", Status: "todo"}, "")
	c := mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "C", ParentID: p.ID}, "")
	q := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "Q", Status: "todo"}, "")
	d := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "D", ParentID: q.ID}, "")
	g := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "G", ParentID: d.ID}, "")
	assertSynced := func(step string) {
		t.Helper()
		if !reflect.DeepEqual(svc.Tasks(ViewMindMap), svc.Tasks(ViewKanban)) {
			t.Fatalf("%s: expected both collections to stay identical", step)
		}
	}

	if err := svc.DeleteTask(ctx, ViewMindMap, p.ID, false); err != nil {
		t.Fatalf("DeleteTask(orphan) error = %v", err)
	}
	assertSynced("orphan delete")
	if got, err := svc.Task(ViewKanban, c.ID); err != nil || got.ParentID != "" {
		t.Fatalf("expected orphaned child in kanban, got %#v %v", got, err)
	}

	if err := svc.DeleteTask(ctx, ViewKanban, q.ID, true); err != nil {
		t.Fatalf("DeleteTask(cascade) error = %v", err)
	}
	assertSynced("cascade delete")
	if _, err := svc.Task(ViewMindMap, d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cascaded child gone from mind map, got %v", err)
	}
	if got, err := svc.Task(ViewMindMap, g.ID); err != nil || got.ParentID != "" {
		t.Fatalf("expected grandchild kept as root, got %#v %v", got, err)
	}

	done, _ := svc.Board(ViewKanban, nil).Column("done")
	if _, ok, err := svc.DropTask(ctx, ViewKanban, dnd.TaskDrop{TaskID: c.ID, X: done.X + 16, Y: done.Y + 80}, nil); err != nil || !ok {
		t.Fatalf("DropTask() ok=%t err=%v", ok, err)
	}
	assertSynced("drop")
	if got, _ := svc.Task(ViewMindMap, c.ID); got.Status != "done" {
		t.Fatalf("expected drop to reach the mind map, got status %q", got.Status)
	}
}

func TestSyncedRejectedWriteChangesNeither(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	svc.ToggleSync(ctx)
	a := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A"}, "")
	b := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "B", ParentID: a.ID}, "")
	parent := b.ID
	if _, err := svc.UpdateTask(ctx, ViewMindMap, a.ID, domain.TaskPatch{ParentID: &parent}); !errors.Is(err, domain.ErrCyclicParent) {
		t.Fatalf("expected ErrCyclicParent, got %v", err)
	}
	if !reflect.DeepEqual(svc.Tasks(ViewMindMap), svc.Tasks(ViewKanban)) {
		t.Fatal("expected collections to stay identical")
	}
}

func TestDropTaskMovesAndRecordsHistory(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	task := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A", Status: "todo"}, "")
	board := svc.Board(ViewKanban, nil)
	done, _ := board.Column("done")

	p, ok, err := svc.DropTask(ctx, ViewKanban, dnd.TaskDrop{TaskID: task.ID, X: done.X + 16, Y: done.Y + 80}, nil)
	if err != nil || !ok {
		t.Fatalf("DropTask() = %v, %t, %v", p, ok, err)
	}
	got, _ := svc.Task(ViewKanban, task.ID)
	if got.Status != "done" || len(got.History) != 2 {
		t.Fatalf("expected status change with one history entry, got %#v", got)
	}
	if action := got.History[1].Action(); action != "status: To do → Done" {
		t.Fatalf("unexpected action %q", action)
	}

	_, ok, err = svc.DropTask(ctx, ViewKanban, dnd.TaskDrop{TaskID: task.ID, X: -5000, Y: -5000}, nil)
	if err != nil || ok {
		t.Fatalf("expected drop outside columns to be a no-op, got ok=%t err=%v", ok, err)
	}
	again, _ := svc.Task(ViewKanban, task.ID)
	if len(again.History) != 2 {
		t.Fatal("expected no-op drop to leave history untouched")
	}
}

func TestDropTaskReordersWithinColumn(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	a := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A", Status: "todo"}, "")
	b := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "B", Status: "todo"}, "")
	board := svc.Board(ViewKanban, nil)
	boxA, _ := board.Task(a.ID)

	_, ok, err := svc.DropTask(ctx, ViewKanban, dnd.TaskDrop{TaskID: b.ID, X: boxA.X, Y: boxA.Y - 30}, nil)
	if err != nil || !ok {
		t.Fatalf("DropTask() ok=%t err=%v", ok, err)
	}
	todo, _ := svc.Board(ViewKanban, nil).Column("todo")
	if !reflect.DeepEqual(todo.TaskIDs, []string{b.ID, a.ID}) {
		t.Fatalf("expected B above A, got %v", todo.TaskIDs)
	}
	got, _ := svc.Task(ViewKanban, b.ID)
	if len(got.History) != 1 {
		t.Fatal("expected same-column reorder to skip history")
	}
}

func TestMoveColumnLeavesTasks(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	task := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A", Status: "todo"}, "")
	col, err := svc.MoveColumn(ctx, "todo", 900, 40)
	if err != nil {
		t.Fatalf("MoveColumn() error = %v", err)
	}
	if col.X != 900 || col.Y != 40 {
		t.Fatalf("unexpected column position %#v", col)
	}
	got, _ := svc.Task(ViewKanban, task.ID)
	if !reflect.DeepEqual(got, task) {
		t.Fatal("expected column drag to leave tasks untouched")
	}
}

func TestHostEventBindingAndPassthrough(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	raw := `{"widgetId":"w1","userId":"u1","role":"editor","config":{
		"tasks":[{"id":"1","title":"Design","status":"todo","priority":"high","deadline":"2026-02-23","createdAt":1771675200000,
			"history":[{"updatedAt":1771675200000,"action":"created by host"}]}],
		"columns":[{"id":"todo","title":"Todo","x":0,"y":0,"width":300}],
		"measures":{"points":[1,2]},
		"theme":"dark"}}`
	var ev HostEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	applied, err := svc.ApplyHostEvent(ctx, ev)
	if err != nil || !applied {
		t.Fatalf("ApplyHostEvent() = %t, %v", applied, err)
	}
	if len(svc.Columns()) != 1 || len(svc.Tasks(ViewKanban)) != 1 || len(svc.Tasks(ViewMindMap)) != 1 {
		t.Fatal("expected state replaced from host payload")
	}

	ev.WidgetID = "other"
	ev.Config.Columns = []domain.Column{}
	applied, err = svc.ApplyHostEvent(ctx, ev)
	if err != nil || applied {
		t.Fatalf("expected mismatched widget event to be ignored, got %t %v", applied, err)
	}

	created := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "New"}, "")
	if created.History[0].ChangedBy != "u1" {
		t.Fatalf("expected host user attribution, got %q", created.History[0].ChangedBy)
	}

	out, err := json.Marshal(svc.ExportConfig())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(decoded["theme"]) != `"dark"` || string(decoded["measures"]) != `{"points":[1,2]}` {
		t.Fatalf("expected passthrough and measures preserved, got %s", out)
	}
	if _, ok := decoded["updatedAt"]; !ok {
		t.Fatal("expected updatedAt in export")
	}
}

func TestHostEventRejectsDuplicateIDs(t *testing.T) {
	cases := []struct {
		name string
		cfg  WidgetConfig
	}{
		{
			name: "tasks",
			cfg:  WidgetConfig{Tasks: []domain.Task{{ID: "t1", Title: "A"}, {ID: "t1", Title: "B"}}},
		},
		{
			name: "mind map tasks",
			cfg:  WidgetConfig{MindMapTasks: []domain.Task{{ID: "m1", Title: "A"}, {ID: " m1 ", Title: "B"}}},
		},
		{
			name: "columns",
			cfg:  WidgetConfig{Columns: []domain.Column{{ID: "todo", Title: "A"}, {ID: "todo", Title: "B"}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			clock, _ := fixedClock()
			svc := NewService(repo, sequentialIDs(), clock, ServiceConfig{DefaultColumns: DefaultColumnTemplates()})
			ctx := context.Background()
			if err := svc.Load(ctx); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			before := svc.State()

			applied, err := svc.ApplyHostEvent(ctx, HostEvent{WidgetID: "w1", Config: tc.cfg})
			if applied || !errors.Is(err, domain.ErrDuplicateID) || !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected duplicate id rejection, got applied=%t err=%v", applied, err)
			}
			if !reflect.DeepEqual(svc.State(), before) {
				t.Fatal("expected rejected event to leave the board untouched")
			}
			if err := svc.ImportConfig(ctx, tc.cfg); !errors.Is(err, domain.ErrDuplicateID) {
				t.Fatalf("expected import to reject duplicates, got %v", err)
			}
			if err := svc.Persist(ctx); err != nil {
				t.Fatalf("Persist() error = %v", err)
			}
		})
	}

	same := WidgetConfig{
		Tasks:        []domain.Task{{ID: "t1", Title: "A"}},
		MindMapTasks: []domain.Task{{ID: "t1", Title: "A"}},
	}
	if err := validateConfig(same); err != nil {
		t.Fatalf("expected one id per collection to be accepted, got %v", err)
	}
}

func TestWidgetConfigAcceptsKanbanTasksKey(t *testing.T) {
	raw := `{"kanbanTasks":[{"id":"1","title":"Legacy","status":"todo","createdAt":1,"history":[]}],"theme":"dark"}`
	var cfg WidgetConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Title != "Legacy" {
		t.Fatalf("expected kanbanTasks loaded as tasks, got %#v", cfg.Tasks)
	}
	if _, ok := cfg.Passthrough["kanbanTasks"]; ok {
		t.Fatal("expected kanbanTasks not to be carried as passthrough")
	}
	if string(cfg.Passthrough["theme"]) != `"dark"` {
		t.Fatalf("expected other keys kept, got %#v", cfg.Passthrough)
	}

	both := `{"tasks":[{"id":"new","title":"Current","status":"todo","createdAt":1,"history":[]}],"kanbanTasks":[{"id":"old","title":"Stale","status":"todo","createdAt":1,"history":[]}]}`
	if err := json.Unmarshal([]byte(both), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0].ID != "new" || cfg.Passthrough != nil {
		t.Fatalf("expected tasks to win over kanbanTasks, got %#v %#v", cfg.Tasks, cfg.Passthrough)
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(out), "kanbanTasks") {
		t.Fatalf("expected stale kanbanTasks dropped on export, got %s", out)
	}
}

func TestWidgetConfigRoundTrip(t *testing.T) {
	raw := `{"columns":[{"id":"todo","title":"Todo","x":0,"y":0,"width":300,"isDoneColumn":true}],"extra":{"a":1},"tasks":[{"id":"1","title":"T","status":"todo","priority":"low","parentId":"9","createdAt":1,"history":[{"updatedAt":1,"action":"created"},{"updatedAt":2,"action":"status: A → B","changedBy":"u","changes":[{"kind":"status_changed","from":"a","to":"b","fromLabel":"A","toLabel":"B"}]}]}]}`
	var cfg WidgetConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != raw {
		t.Fatalf("round trip mismatch\n got: %s\nwant: %s", out, raw)
	}
}

func TestPersistAndLoadThroughRepository(t *testing.T) {
	repo := &fakeRepo{}
	clock, _ := fixedClock()
	svc := NewService(repo, sequentialIDs(), clock, ServiceConfig{DefaultColumns: DefaultColumnTemplates(), WidgetID: "w1"})
	ctx := context.Background()
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A"}, "")
	if err := svc.Persist(ctx); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	other := NewService(repo, sequentialIDs(), clock, ServiceConfig{})
	if err := other.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(other.State(), svc.State()) {
		t.Fatal("expected reloaded state to match")
	}

	failing := NewService(&fakeRepo{loadErr: errors.New("boom")}, nil, nil, ServiceConfig{})
	if err := failing.Load(ctx); err == nil {
		t.Fatal("expected load error")
	}
}

func TestLoadKeepsSavedBoardWithoutColumns(t *testing.T) {
	repo := &fakeRepo{state: &State{}}
	clock, _ := fixedClock()
	svc := NewService(repo, sequentialIDs(), clock, ServiceConfig{DefaultColumns: DefaultColumnTemplates()})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cols := svc.Columns(); len(cols) != 0 {
		t.Fatalf("expected saved empty board to stay empty, got %#v", cols)
	}

	fresh := NewService(&fakeRepo{}, sequentialIDs(), clock, ServiceConfig{DefaultColumns: DefaultColumnTemplates()})
	if err := fresh.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(fresh.Columns()) != 4 {
		t.Fatalf("expected first load to seed defaults, got %d", len(fresh.Columns()))
	}
}

func TestPatchColumnMovesAndRenamesTogether(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	ctx := context.Background()
	events := 0
	svc.Subscribe(func(ChangeEvent) { events++ })

	x := 700.0
	title := "Done"
	col, err := svc.PatchColumn(ctx, "review", ColumnPatch{Title: &title, X: &x})
	if err != nil {
		t.Fatalf("PatchColumn() error = %v", err)
	}
	if col.Title != "Done (1)" || col.X != 700 || col.Y != 0 || events != 1 {
		t.Fatalf("unexpected patch result %#v events=%d", col, events)
	}
	if _, err := svc.PatchColumn(ctx, "missing", ColumnPatch{X: &x}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListenersFireAfterCommit(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	var events []ChangeEvent
	svc.Subscribe(func(ev ChangeEvent) {
		events = append(events, ev)
		_ = svc.IsSynced()
	})
	mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "A"}, "")
	if _, err := svc.SaveTask(context.Background(), ViewKanban, domain.TaskInput{}, ""); err == nil {
		t.Fatal("expected validation error")
	}
	if len(events) != 1 || events[0].Kind != ChangeTasks {
		t.Fatalf("expected one task change event, got %#v", events)
	}
}

func TestProjectionMarksOverdueAndDone(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	late := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "Late", Status: "todo", Deadline: &past}, "")
	finished := mustSave(t, svc, ViewKanban, domain.TaskInput{Title: "Finished", Status: "done", Deadline: &past}, "")
	child := mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "Root"}, "")
	mustSave(t, svc, ViewMindMap, domain.TaskInput{Title: "Leaf", ParentID: child.ID}, "")

	proj := svc.Project(nil)
	nodes := map[string]Node{}
	for _, n := range proj.Kanban {
		nodes[n.ID] = n
	}
	if !nodes[late.ID].Overdue || nodes[finished.ID].Overdue || !nodes[finished.ID].Done {
		t.Fatalf("unexpected overdue/done flags %#v %#v", nodes[late.ID], nodes[finished.ID])
	}
	if nodes["todo"].Kind != NodeColumn || nodes["todo"].TaskCount != 1 {
		t.Fatalf("unexpected column node %#v", nodes["todo"])
	}
	if len(proj.MindMap) != 2 || len(proj.Edges) != 1 || proj.MindMap[1].Depth != 1 {
		t.Fatalf("unexpected mind map projection %#v", proj.MindMap)
	}
}
