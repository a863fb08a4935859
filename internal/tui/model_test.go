package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/domain"
)

func newBoard(t *testing.T) *app.Service {
	t.Helper()
	n := 0
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	svc := app.NewService(nil, func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}, func() time.Time { return now }, app.ServiceConfig{
		CurrentUser:    "ana",
		DefaultColumns: app.DefaultColumnTemplates(),
	})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc
}

func seedTask(t *testing.T, svc *app.Service, in domain.TaskInput) domain.Task {
	t.Helper()
	task, err := svc.SaveTask(context.Background(), app.ViewKanban, in, "")
	if err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	return task
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 160, Height: 48})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func viewText(m Model) string {
	return ansi.Strip(m.render())
}

func TestModelLoadAndNavigation(t *testing.T) {
	svc := newBoard(t)
	seedTask(t, svc, domain.TaskInput{Title: "Low", Priority: domain.PriorityLow})
	seedTask(t, svc, domain.TaskInput{Title: "Urgent", Priority: domain.PriorityHighest})

	m := loadReadyModel(t, NewModel(svc))
	if len(m.columns) != 4 || len(m.tasks["todo"]) != 2 {
		t.Fatalf("unexpected loaded board: columns=%d todo=%d", len(m.columns), len(m.tasks["todo"]))
	}
	if node, _ := m.selectedTaskNode(); node.Title != "Urgent" {
		t.Fatalf("expected highest priority first, got %q", node.Title)
	}
	m = applyMsg(t, m, keyRune('j'))
	if node, _ := m.selectedTaskNode(); node.Title != "Low" {
		t.Fatalf("expected cursor on Low, got %q", node.Title)
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.selectedTask != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.selectedTask)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if m.selectedColumn != 1 || m.selectedTask != 0 {
		t.Fatalf("expected column 1 task 0, got %d/%d", m.selectedColumn, m.selectedTask)
	}
	m = applyMsg(t, m, keyRune('h'))
	if m.selectedColumn != 0 {
		t.Fatalf("expected selectedColumn=0, got %d", m.selectedColumn)
	}

	out := viewText(m)
	for _, want := range []string{"kanmap", "To do (2)", "Urgent", "highest", "Done (0)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestModelMoveTaskRecordsHistory(t *testing.T) {
	svc := newBoard(t)
	task := seedTask(t, svc, domain.TaskInput{Title: "Ship"})
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	got, err := svc.Task(app.ViewKanban, task.ID)
	if err != nil {
		t.Fatalf("Task() error = %v", err)
	}
	if got.Status != "in-progress" {
		t.Fatalf("expected in-progress, got %q", got.Status)
	}
	if len(got.History) != 2 || got.History[1].Action() != "status: To do → In progress" {
		t.Fatalf("unexpected history %#v", got.History)
	}
	if m.selectedColumn != 1 {
		t.Fatalf("expected cursor to follow task into column 1, got %d", m.selectedColumn)
	}

	m = applyMsg(t, m, keyRune('['))
	if got, _ = svc.Task(app.ViewKanban, task.ID); got.Status != "todo" {
		t.Fatalf("expected task back in todo, got %q", got.Status)
	}
	m = applyMsg(t, m, keyRune('['))
	if !strings.Contains(m.status, "moved to To do") {
		t.Fatalf("moving past the first column should be a no-op, status %q", m.status)
	}
}

func TestModelQuickAddDeleteAndColumns(t *testing.T) {
	svc := newBoard(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('a'))
	if m.mode != modeAddTask {
		t.Fatalf("expected add-task mode, got %v", m.mode)
	}
	for _, r := range "Write docs" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	tasks := svc.Tasks(app.ViewKanban)
	if len(tasks) != 1 || tasks[0].Title != "Write docs" || tasks[0].Status != "in-progress" {
		t.Fatalf("unexpected tasks after quick add %#v", tasks)
	}
	if node, ok := m.selectedTaskNode(); !ok || node.ID != tasks[0].ID {
		t.Fatalf("expected cursor on new task, got %#v", node)
	}

	m = applyMsg(t, m, keyRune('D'))
	if id, _ := domain.DoneColumnID(svc.Columns()); id != "in-progress" {
		t.Fatalf("expected in-progress to be done column, got %q", id)
	}

	m = applyMsg(t, m, keyRune('x'))
	if len(svc.Tasks(app.ViewKanban)) != 0 {
		t.Fatal("expected task deleted")
	}

	m = applyMsg(t, m, keyRune('n'))
	if len(svc.Columns()) != 5 || len(m.columns) != 5 {
		t.Fatalf("expected 5 columns, got service=%d model=%d", len(svc.Columns()), len(m.columns))
	}
	if !strings.Contains(m.status, "New column") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelQuickAddCancel(t *testing.T) {
	svc := newBoard(t)
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, keyRune('a'))
	m = applyMsg(t, m, keyRune('z'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || m.status != "cancelled" {
		t.Fatalf("expected cancelled quick add, mode=%v status=%q", m.mode, m.status)
	}
	if len(svc.Tasks(app.ViewKanban)) != 0 {
		t.Fatal("expected no task created")
	}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = applyMsg(t, m, keyRune(r))
	}
	return m
}

func clearInput(t *testing.T, m Model) Model {
	t.Helper()
	for range []rune(m.input.Value()) {
		m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	}
	return m
}

func TestModelColumnRenameFlow(t *testing.T) {
	svc := newBoard(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeRenameColumn || m.selectedColumn != 4 {
		t.Fatalf("expected rename prompt on the new column, mode=%v column=%d", m.mode, m.selectedColumn)
	}
	created := svc.Columns()[4]
	if !created.IsEditing || m.editColumnID != created.ID || m.input.Value() != "New column" {
		t.Fatalf("unexpected edit state %#v input=%q", created, m.input.Value())
	}
	if !strings.Contains(viewText(m), "column: ") {
		t.Fatalf("expected column prompt in view:\n%s", viewText(m))
	}

	m = typeText(t, clearInput(t, m), "Blocked")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	renamed := svc.Columns()[4]
	if m.mode != modeNone || renamed.Title != "Blocked" || renamed.IsEditing {
		t.Fatalf("expected committed rename, mode=%v column=%#v", m.mode, renamed)
	}

	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeRenameColumn || !svc.Columns()[4].IsEditing {
		t.Fatalf("expected e to reopen editing, mode=%v", m.mode)
	}
	m = typeText(t, m, " soon")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	reverted := svc.Columns()[4]
	if m.mode != modeNone || reverted.Title != "Blocked" || reverted.IsEditing {
		t.Fatalf("expected esc to revert, mode=%v column=%#v", m.mode, reverted)
	}
	if m.status != "kept Blocked" {
		t.Fatalf("unexpected status %q", m.status)
	}

	m = applyMsg(t, m, keyRune('e'))
	m = typeText(t, clearInput(t, m), "Done")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got := svc.Columns()[4].Title; got != "Done (1)" {
		t.Fatalf("expected de-duplicated title, got %q", got)
	}
	if m.status != "renamed to Done (1)" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelSyncAndMindMap(t *testing.T) {
	svc := newBoard(t)
	parent := seedTask(t, svc, domain.TaskInput{Title: "Epic"})
	seedTask(t, svc, domain.TaskInput{Title: "Story", ParentID: parent.ID})
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('s'))
	if !svc.IsSynced() || !m.synced {
		t.Fatal("expected sync on")
	}
	m = applyMsg(t, m, keyRune('m'))
	if m.view != app.ViewMindMap || len(m.tree) != 2 {
		t.Fatalf("expected mind map with 2 nodes, view=%q nodes=%d", m.view, len(m.tree))
	}
	out := viewText(m)
	if !strings.Contains(out, "• Epic") || !strings.Contains(out, "  • Story") {
		t.Fatalf("expected indented outline, got:\n%s", out)
	}

	m = applyMsg(t, m, keyRune(']'))
	if m.status != "switch to kanban to move tasks" {
		t.Fatalf("unexpected status %q", m.status)
	}

	m = applyMsg(t, m, keyRune('x'))
	if len(svc.Tasks(app.ViewMindMap)) != 1 || len(svc.Tasks(app.ViewKanban)) != 1 {
		t.Fatal("expected synced delete from both collections")
	}
	remaining := svc.Tasks(app.ViewMindMap)[0]
	if remaining.ParentID != "" {
		t.Fatalf("expected orphaned child to become a root, got parent %q", remaining.ParentID)
	}
}

func TestModelDetailPaneAndCopy(t *testing.T) {
	svc := newBoard(t)
	task := seedTask(t, svc, domain.TaskInput{Title: "Draft", Description: "Needs **review**", Username: "bo"})
	var copied string
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(text string) error {
		copied = text
		return nil
	})))

	m = applyMsg(t, m, keyRune('i'))
	if !m.showDetail {
		t.Fatal("expected detail pane open")
	}
	out := viewText(m)
	for _, want := range []string{"id: " + task.ID, "assignee: bo", "review", "task created"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in detail pane:\n%s", want, out)
		}
	}

	m = applyMsg(t, m, keyRune('y'))
	if copied != task.ID || m.status != "copied "+task.ID {
		t.Fatalf("expected task id copied, got %q status %q", copied, m.status)
	}

	failing := loadReadyModel(t, NewModel(svc, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	})))
	failing = applyMsg(t, failing, keyRune('y'))
	if failing.status != "copy failed: no clipboard" {
		t.Fatalf("unexpected status %q", failing.status)
	}
}

func TestModelErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: &domain.ColumnNotEmptyError{ColumnID: "todo", Count: 3}, want: "column still holds 3 tasks"},
		{err: domain.ErrCyclicParent, want: "that parent would create a cycle"},
		{err: app.ErrNotFound, want: "task no longer exists"},
		{err: errors.New("boom"), want: "error: boom"},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("errorStatus(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestModelQuitAndHelp(t *testing.T) {
	m := NewModel(newBoard(t))
	if v := m.View(); !v.AltScreen {
		t.Fatal("expected alt-screen loading view")
	}
	updated, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if updated == nil || cmd == nil {
		t.Fatal("expected quit cmd")
	}
	m = loadReadyModel(t, m)
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll {
		t.Fatal("expected full help")
	}
}
