package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUniqueTitleSuffixes(t *testing.T) {
	cols := []Column{{ID: "a", Title: "Todo"}}
	if got := UniqueTitle("Todo", cols, ""); got != "Todo (1)" {
		t.Fatalf("UniqueTitle() = %q, want Todo (1)", got)
	}
	cols = append(cols, Column{ID: "b", Title: "Todo (1)"})
	if got := UniqueTitle("Todo", cols, ""); got != "Todo (2)" {
		t.Fatalf("UniqueTitle() = %q, want Todo (2)", got)
	}
	if got := UniqueTitle("Todo", cols, "a"); got != "Todo" {
		t.Fatalf("expected excluded column to free its title, got %q", got)
	}
	if got := UniqueTitle("  Doing ", cols, ""); got != "Doing" {
		t.Fatalf("expected trimmed title, got %q", got)
	}
}

func TestSetDoneColumnExclusive(t *testing.T) {
	cols := []Column{{ID: "a", IsDoneColumn: true}, {ID: "b"}, {ID: "c", IsDoneColumn: true}}
	out := SetDoneColumn(cols, "b")
	count := 0
	for _, c := range out {
		if c.IsDoneColumn {
			count++
			if c.ID != "b" {
				t.Fatalf("unexpected done column %q", c.ID)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one done column, got %d", count)
	}
	if !cols[0].IsDoneColumn {
		t.Fatal("expected input slice to stay untouched")
	}
	again := SetDoneColumn(out, "b")
	if id, ok := DoneColumnID(again); !ok || id != "b" {
		t.Fatalf("DoneColumnID() = %q, %t", id, ok)
	}
}

func TestNewColumnValidation(t *testing.T) {
	if _, err := NewColumn("", "x", 0, 0, 300); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewColumn("c1", "  ", 0, 0, 300); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestPriorityWeightAndParse(t *testing.T) {
	cases := []struct {
		raw    string
		want   Priority
		weight int
	}{
		{"highest", PriorityHighest, 5},
		{" High ", PriorityHigh, 4},
		{"medium", PriorityMedium, 3},
		{"low", PriorityLow, 2},
		{"lowest", PriorityLowest, 1},
		{"", PriorityNone, 0},
	}
	for _, tc := range cases {
		p, err := ParsePriority(tc.raw)
		if err != nil {
			t.Fatalf("ParsePriority(%q) error = %v", tc.raw, err)
		}
		if p != tc.want || p.Weight() != tc.weight {
			t.Fatalf("ParsePriority(%q) = %q/%d, want %q/%d", tc.raw, p, p.Weight(), tc.want, tc.weight)
		}
	}
	if _, err := ParsePriority("urgent"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewTaskRecordsCreation(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := NewTask("t1", TaskInput{Title: "  Write docs ", Status: "todo", ParentID: "t1"}, "ann", now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Title != "Write docs" || task.ParentID != "" {
		t.Fatalf("unexpected task %#v", task)
	}
	if len(task.History) != 1 || !task.History[0].HasKind(ChangeCreated) || task.History[0].ChangedBy != "ann" {
		t.Fatalf("unexpected history %#v", task.History)
	}
	if _, err := NewTask("t2", TaskInput{Title: "   "}, "", now); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestTaskApplyDiffsTrackedFields(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := NewTask("t1", TaskInput{Title: "A", Status: "todo"}, "", now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	deadline := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	next, changes, err := task.Apply(TaskInput{Title: "B", Status: "todo", Priority: PriorityHigh, Deadline: &deadline, Description: "only description"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected rename, deadline and priority changes, got %#v", changes)
	}
	if FormatDeadline(next.Deadline) != "2026-03-01" {
		t.Fatalf("expected date-only deadline, got %v", next.Deadline)
	}
	next.Record(changes, "bob", now.Add(time.Hour))
	if len(next.History) != 2 {
		t.Fatalf("expected one appended entry, got %d", len(next.History))
	}
	want := `title: "A" → "B"; deadline: none → 2026-03-01; priority: none → high`
	if got := next.History[1].Action(); got != want {
		t.Fatalf("Action() = %q, want %q", got, want)
	}

	_, none, err := next.Apply(InputFromTask(next))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty diff, got %#v", none)
	}
}

func TestRecordKeepsHistoryMonotonic(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, _ := NewTask("t1", TaskInput{Title: "A"}, "", now)
	task.Record([]Change{{Kind: ChangeRenamed, From: "A", To: "B"}}, "", now.Add(-time.Hour))
	if task.History[1].UpdatedAt.Before(task.History[0].UpdatedAt) {
		t.Fatal("expected non-decreasing history timestamps")
	}
	task.Record(nil, "", now)
	if len(task.History) != 2 {
		t.Fatalf("expected empty diff to skip history, got %d entries", len(task.History))
	}
}

func TestStatusChangeLabels(t *testing.T) {
	changes := []Change{{Kind: ChangeStatus, From: "todo", To: "done"}}
	LabelStatusChanges(changes, []Column{{ID: "todo", Title: "To do"}, {ID: "done", Title: "Done"}})
	if got := changes[0].Describe(); got != "status: To do → Done" {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestOwnershipGraph(t *testing.T) {
	tasks := []Task{
		{ID: "a"},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "b"},
		{ID: "d"},
		{ID: "e", ParentID: "missing"},
	}
	if !IsAncestorOf(tasks, "a", "c") {
		t.Fatal("expected a to be an ancestor of c")
	}
	if IsAncestorOf(tasks, "c", "a") {
		t.Fatal("expected c not to be an ancestor of a")
	}
	if !WouldCycle(tasks, "a", "c") || !WouldCycle(tasks, "a", "a") {
		t.Fatal("expected cycle detection for descendant and self")
	}
	if WouldCycle(tasks, "c", "d") {
		t.Fatal("expected unrelated parent to be allowed")
	}

	avail := AvailableParents(tasks, "a")
	ids := map[string]bool{}
	for _, task := range avail {
		ids[task.ID] = true
	}
	if ids["a"] || ids["b"] || ids["c"] || !ids["d"] || !ids["e"] {
		t.Fatalf("unexpected available parents %#v", ids)
	}
	if got := len(Children(tasks, "a")); got != 1 {
		t.Fatalf("Children() len = %d", got)
	}
	roots := Roots(tasks)
	if len(roots) != 3 {
		t.Fatalf("expected a, d and dangling e as roots, got %#v", roots)
	}
}

func TestIsAncestorOfTerminatesOnCorruptCycle(t *testing.T) {
	tasks := []Task{{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"}}
	if IsAncestorOf(tasks, "x", "a") {
		t.Fatal("expected false for absent ancestor")
	}
}

func TestTaskPatch(t *testing.T) {
	empty := ""
	if err := (TaskPatch{Title: &empty}).Validate(); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	bad := Priority("urgent")
	if err := (TaskPatch{Priority: &bad}).Validate(); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	if !(TaskPatch{}).Empty() {
		t.Fatal("expected zero patch to be empty")
	}
	title := "New"
	in := TaskPatch{Title: &title, ClearParent: true, ClearPriority: true}.ApplyTo(TaskInput{Title: "Old", ParentID: "p", Priority: PriorityHigh, Username: "ann"})
	if in.Title != "New" || in.ParentID != "" || in.Priority != PriorityNone || in.Username != "ann" {
		t.Fatalf("unexpected merged input %#v", in)
	}
}

func TestColumnNotEmptyErrorIs(t *testing.T) {
	var err error = &ColumnNotEmptyError{ColumnID: "todo", Count: 2}
	if !errors.Is(err, ErrColumnNotEmpty) {
		t.Fatal("expected errors.Is to match ErrColumnNotEmpty")
	}
	var typed *ColumnNotEmptyError
	if !errors.As(err, &typed) || typed.Count != 2 {
		t.Fatalf("expected typed error with count, got %v", err)
	}
}
