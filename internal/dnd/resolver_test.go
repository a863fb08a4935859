package dnd

import (
	"testing"

	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

func TestInsertionIndexBetweenSiblings(t *testing.T) {
	siblings := []layout.Rect{
		{Y: 220, Height: 80},
		{Y: 100, Height: 80},
	}
	cases := []struct {
		centerY float64
		want    int
	}{
		{centerY: 50, want: 0},
		{centerY: 145, want: 0},
		{centerY: 146, want: 1},
		{centerY: 216, want: 1},
		{centerY: 266, want: 2},
		{centerY: 500, want: 2},
	}
	for _, tc := range cases {
		if got := InsertionIndex(siblings, tc.centerY, 12); got != tc.want {
			t.Fatalf("InsertionIndex(%v) = %d, want %d", tc.centerY, got, tc.want)
		}
	}
	if got := InsertionIndex(nil, 10, 12); got != 0 {
		t.Fatalf("InsertionIndex(empty) = %d, want 0", got)
	}
}

func TestHitColumnInclusiveBounds(t *testing.T) {
	cols := []layout.ColumnBox{
		{ColumnID: "a", Rect: layout.Rect{X: 0, Y: 0, Width: 300, Height: 200}},
		{ColumnID: "b", Rect: layout.Rect{X: 320, Y: 0, Width: 300, Height: 200}},
	}
	if id, ok := HitColumn(cols, layout.Point{X: 300, Y: 200}); !ok || id != "a" {
		t.Fatalf("HitColumn(edge) = %q, %t", id, ok)
	}
	if _, ok := HitColumn(cols, layout.Point{X: 310, Y: 10}); ok {
		t.Fatal("expected gap between columns to miss")
	}
}

func fixtureBoard() layout.BoardLayout {
	cols := []domain.Column{
		{ID: "todo", Title: "Todo", X: 0, Width: 300},
		{ID: "done", Title: "Done", X: 320, Width: 300},
	}
	tasks := []domain.Task{
		{ID: "t1", Status: "todo"},
		{ID: "t2", Status: "todo"},
		{ID: "t3", Status: "done"},
	}
	return layout.Board(layout.DefaultMetrics(), cols, tasks, nil)
}

func TestResolveCrossColumn(t *testing.T) {
	b := fixtureBoard()
	t1, _ := b.Task("t1")
	t3, _ := b.Task("t3")
	p, ok := Resolve(b, TaskDrop{TaskID: "t1", X: t3.X, Y: t3.Y - 40}, 12)
	if !ok {
		t.Fatal("expected drop to resolve")
	}
	if p.ColumnID != "done" || p.FromColumnID != "todo" || !p.Moved() {
		t.Fatalf("unexpected placement %#v", p)
	}
	if p.Index != 0 || p.BeforeTaskID != "t3" {
		t.Fatalf("expected insertion before t3, got %#v", p)
	}
	if t1.ColumnID != "todo" {
		t.Fatalf("unexpected source column %q", t1.ColumnID)
	}
}

func TestResolveSameColumnReorder(t *testing.T) {
	b := fixtureBoard()
	t2, _ := b.Task("t2")
	p, ok := Resolve(b, TaskDrop{TaskID: "t1", X: t2.X, Y: t2.Y + 70}, 12)
	if !ok {
		t.Fatal("expected drop to resolve")
	}
	if p.Moved() || p.Index != 1 || p.BeforeTaskID != "" {
		t.Fatalf("expected t1 appended after t2, got %#v", p)
	}
}

func TestResolveNoOps(t *testing.T) {
	b := fixtureBoard()
	if _, ok := Resolve(b, TaskDrop{TaskID: "t1", X: 5000, Y: 5000}, 12); ok {
		t.Fatal("expected drop outside columns to be a no-op")
	}
	t1, _ := b.Task("t1")
	if _, ok := Resolve(b, TaskDrop{TaskID: "t1", X: t1.X, Y: t1.Y}, 12); ok {
		t.Fatal("expected release without movement to be a no-op")
	}
}
