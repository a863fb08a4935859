package layout

import "github.com/hylla/kanmap/internal/domain"

// NodeBox is a positioned mind-map node.
type NodeBox struct {
	TaskID   string `json:"task_id"`
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`
	Rect
}

// Edge links a parent node to a child node.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MindMap lays the task forest out as top-down trees. Parents are centered over
// their children, children keep collection order, and roots sit side by side.
// Nodes come back in pre-order.
func MindMap(m Metrics, tasks []domain.Task) ([]NodeBox, []Edge) {
	children := make(map[string][]domain.Task, len(tasks))
	for _, t := range tasks {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t)
		}
	}

	tl := treeLayout{m: m, children: children, widths: map[string]float64{}}
	roots := domain.Roots(tasks)

	// Tasks caught in a corrupt parent cycle have no root; lay them out as roots too.
	reached := map[string]struct{}{}
	for _, r := range roots {
		tl.mark(r.ID, reached)
	}
	for _, t := range tasks {
		if _, ok := reached[t.ID]; !ok {
			roots = append(roots, t)
			tl.mark(t.ID, reached)
		}
	}

	x := 0.0
	for i, r := range roots {
		if i > 0 {
			x += m.RootGap
		}
		w := tl.width(r.ID, map[string]struct{}{})
		tl.place(r, "", 0, x, map[string]struct{}{})
		x += w
	}
	return tl.nodes, tl.edges
}

type treeLayout struct {
	m        Metrics
	children map[string][]domain.Task
	widths   map[string]float64
	nodes    []NodeBox
	edges    []Edge
}

func (tl *treeLayout) mark(id string, seen map[string]struct{}) {
	if _, ok := seen[id]; ok {
		return
	}
	seen[id] = struct{}{}
	for _, c := range tl.children[id] {
		tl.mark(c.ID, seen)
	}
}

func (tl *treeLayout) width(id string, path map[string]struct{}) float64 {
	if w, ok := tl.widths[id]; ok {
		return w
	}
	path[id] = struct{}{}
	defer delete(path, id)

	sum := 0.0
	n := 0
	for _, c := range tl.children[id] {
		if _, loop := path[c.ID]; loop {
			continue
		}
		if n > 0 {
			sum += tl.m.SiblingGap
		}
		sum += tl.width(c.ID, path)
		n++
	}
	w := max(tl.m.NodeWidth, sum)
	tl.widths[id] = w
	return w
}

func (tl *treeLayout) childrenWidth(id string, path map[string]struct{}) float64 {
	sum := 0.0
	n := 0
	for _, c := range tl.children[id] {
		if _, loop := path[c.ID]; loop {
			continue
		}
		if n > 0 {
			sum += tl.m.SiblingGap
		}
		sum += tl.widths[c.ID]
		n++
	}
	return sum
}

func (tl *treeLayout) place(t domain.Task, parentID string, depth int, left float64, path map[string]struct{}) {
	path[t.ID] = struct{}{}
	defer delete(path, t.ID)

	w := tl.widths[t.ID]
	tl.nodes = append(tl.nodes, NodeBox{
		TaskID:   t.ID,
		ParentID: parentID,
		Depth:    depth,
		Rect: Rect{
			X:      left + (w-tl.m.NodeWidth)/2,
			Y:      float64(depth) * (tl.m.NodeHeight + tl.m.LevelGap),
			Width:  tl.m.NodeWidth,
			Height: tl.m.NodeHeight,
		},
	})

	cursor := left + (w-tl.childrenWidth(t.ID, path))/2
	first := true
	for _, c := range tl.children[t.ID] {
		if _, loop := path[c.ID]; loop {
			continue
		}
		if !first {
			cursor += tl.m.SiblingGap
		}
		first = false
		tl.edges = append(tl.edges, Edge{From: t.ID, To: c.ID})
		tl.place(c, t.ID, depth+1, cursor, path)
		cursor += tl.widths[c.ID]
	}
}
