package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/dnd"
	"github.com/hylla/kanmap/internal/domain"
	"github.com/hylla/kanmap/internal/layout"
)

// Service is the board surface the terminal view drives.
type Service interface {
	Columns() []domain.Column
	Task(app.View, string) (domain.Task, error)
	Nodes(app.View, map[string]float64) []app.Node
	MindMapNodes() ([]app.Node, []layout.Edge)
	IsSynced() bool
	Metrics() layout.Metrics
	CreateColumn(context.Context) (domain.Column, error)
	BeginColumnEdit(context.Context, string) (domain.Column, error)
	RenameColumn(context.Context, string, string) (domain.Column, error)
	SetDoneColumn(context.Context, string) ([]domain.Column, error)
	SaveTask(context.Context, app.View, domain.TaskInput, string) (domain.Task, error)
	DeleteTask(context.Context, app.View, string, bool) error
	DropTask(context.Context, app.View, dnd.TaskDrop, map[string]float64) (dnd.Placement, bool, error)
	ToggleSync(context.Context) bool
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeRenameColumn
)

// detailHistoryLimit caps history rows in the detail pane.
const detailHistoryLimit = 5

// Model is the bubbletea board viewer.
type Model struct {
	svc  Service
	keys keyMap
	help help.Model
	md   *markdownRenderer
	copy func(string) error

	view    app.View
	columns []app.Node
	tasks   map[string][]app.Node
	tree    []app.Node
	synced  bool

	selectedColumn int
	selectedTask   int
	selectedNode   int
	showDetail     bool

	mode  inputMode
	input textinput.Model
	// editColumnID is the column whose title the prompt commits to.
	editColumnID string

	ready  bool
	width  int
	height int
	status string
}

// loadedMsg carries a fresh board projection.
type loadedMsg struct {
	columns []app.Node
	tasks   map[string][]app.Node
	tree    []app.Node
	synced  bool
	// focusTaskID moves the cursor onto a task once loaded.
	focusTaskID   string
	focusColumnID string
}

// actionMsg reports the outcome of one mutation.
type actionMsg struct {
	err         error
	status      string
	focusTaskID string
}

// columnEditMsg opens the title prompt for a column that entered editing mode.
type columnEditMsg struct {
	err    error
	column domain.Column
	status string
	// board is the projection taken right after the edit began.
	board loadedMsg
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	input := textinput.New()
	input.CharLimit = 200
	m := Model{
		svc:    svc,
		keys:   newKeyMap(),
		help:   h,
		md:     &markdownRenderer{},
		copy:   writeClipboard,
		view:   app.ViewKanban,
		tasks:  map[string][]app.Node{},
		input:  input,
		status: "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.applyLoaded(msg)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = errorStatus(msg.err)
			return m, m.loadData
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, m.loadFocused(msg.focusTaskID)

	case columnEditMsg:
		if msg.err != nil {
			m.status = errorStatus(msg.err)
			return m, m.loadData
		}
		m.status = msg.status
		m.applyLoaded(msg.board)
		m.mode = modeRenameColumn
		m.editColumnID = msg.column.ID
		return m, m.openPrompt("column: ", "column title", msg.column.Title)

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// handleNormalModeKey dispatches board navigation and actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "reloaded"
		return m, m.loadData
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.switchView):
		if m.view == app.ViewKanban {
			m.view = app.ViewMindMap
			m.status = "mind map"
		} else {
			m.view = app.ViewKanban
			m.status = "kanban"
		}
		m.showDetail = false
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		if m.view == app.ViewKanban && m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.view == app.ViewKanban && m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			m.selectedTask = 0
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.taskInfo):
		if _, ok := m.selectedTaskNode(); ok {
			m.showDetail = !m.showDetail
		}
		return m, nil
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m, m.moveSelectedTask(-1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m, m.moveSelectedTask(1)
	case key.Matches(msg, m.keys.addTask):
		m.mode = modeAddTask
		return m, m.openPrompt("title: ", "new task title", "")
	case key.Matches(msg, m.keys.addColumn):
		return m, m.createColumn()
	case key.Matches(msg, m.keys.editColumn):
		return m, m.beginColumnEdit()
	case key.Matches(msg, m.keys.toggleSync):
		return m, m.toggleSync()
	case key.Matches(msg, m.keys.deleteTask):
		return m, m.deleteSelectedTask()
	case key.Matches(msg, m.keys.setDone):
		return m, m.setDoneColumn()
	case key.Matches(msg, m.keys.copyID):
		node, ok := m.selectedTaskNode()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.copy(node.ID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + node.ID
		return m, nil
	default:
		return m, nil
	}
}

// handleInputModeKey routes keys to the active prompt.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		mode, columnID := m.closePrompt()
		m.status = "cancelled"
		if mode == modeRenameColumn {
			// A blank commit reverts the title and leaves editing mode.
			return m, m.renameColumn(columnID, "")
		}
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		mode, columnID := m.closePrompt()
		if mode == modeRenameColumn {
			return m, m.renameColumn(columnID, title)
		}
		if title == "" {
			m.status = "title required"
			return m, nil
		}
		return m, m.createTask(title)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openPrompt focuses the shared text input with a fresh prompt.
func (m *Model) openPrompt(prompt, placeholder, value string) tea.Cmd {
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

// closePrompt leaves input mode and reports what the prompt was for.
func (m *Model) closePrompt() (inputMode, string) {
	mode, columnID := m.mode, m.editColumnID
	m.mode = modeNone
	m.editColumnID = ""
	m.input.Blur()
	return mode, columnID
}

// loadData projects the service state for rendering.
func (m Model) loadData() tea.Msg {
	return m.project("")
}

// loadFocused reloads and then focuses taskID.
func (m Model) loadFocused(taskID string) tea.Cmd {
	return func() tea.Msg {
		return m.project(taskID)
	}
}

// applyLoaded swaps in a fresh projection and keeps the cursors valid.
func (m *Model) applyLoaded(msg loadedMsg) {
	m.columns = msg.columns
	m.tasks = msg.tasks
	m.tree = msg.tree
	m.synced = msg.synced
	if msg.focusTaskID != "" {
		m.focusTask(msg.focusTaskID)
	}
	if msg.focusColumnID != "" {
		m.focusColumn(msg.focusColumnID)
	}
	m.clampSelections()
	if m.status == "loading..." {
		m.status = "ready"
	}
}

// columnEdited packages a column that entered editing mode with a projection
// focused on it.
func (m Model) columnEdited(col domain.Column, status string) columnEditMsg {
	board := m.project("")
	board.focusColumnID = col.ID
	return columnEditMsg{column: col, status: status, board: board}
}

func (m Model) project(focusTaskID string) loadedMsg {
	nodes := m.svc.Nodes(m.view, nil)
	out := loadedMsg{
		tasks:       map[string][]app.Node{},
		synced:      m.svc.IsSynced(),
		focusTaskID: focusTaskID,
	}
	for _, node := range nodes {
		switch node.Kind {
		case app.NodeColumn:
			out.columns = append(out.columns, node)
		case app.NodeTask:
			out.tasks[node.ParentID] = append(out.tasks[node.ParentID], node)
		}
	}
	if m.view == app.ViewMindMap {
		out.tree, _ = m.svc.MindMapNodes()
	}
	return out
}

// createTask adds a task to the selected column.
func (m Model) createTask(title string) tea.Cmd {
	status := ""
	if col, ok := m.selectedColumnNode(); ok && m.view == app.ViewKanban {
		status = col.ID
	}
	view := m.view
	return func() tea.Msg {
		task, err := m.svc.SaveTask(context.Background(), view, domain.TaskInput{Title: title, Status: status}, "")
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "task added", focusTaskID: task.ID}
	}
}

// createColumn appends a new column and opens its title prompt.
func (m Model) createColumn() tea.Cmd {
	return func() tea.Msg {
		col, err := m.svc.CreateColumn(context.Background())
		if err != nil {
			return columnEditMsg{err: err}
		}
		return m.columnEdited(col, "added "+col.Title)
	}
}

// beginColumnEdit puts the selected column into editing mode.
func (m Model) beginColumnEdit() tea.Cmd {
	col, ok := m.selectedColumnNode()
	if !ok || m.view != app.ViewKanban {
		return nil
	}
	return func() tea.Msg {
		edited, err := m.svc.BeginColumnEdit(context.Background(), col.ID)
		if err != nil {
			return columnEditMsg{err: err}
		}
		return m.columnEdited(edited, "editing "+edited.Title)
	}
}

// renameColumn commits a column title. A blank title keeps the old one.
func (m Model) renameColumn(id, title string) tea.Cmd {
	if id == "" {
		return nil
	}
	return func() tea.Msg {
		col, err := m.svc.RenameColumn(context.Background(), id, title)
		if err != nil {
			return actionMsg{err: err}
		}
		if title == "" {
			return actionMsg{status: "kept " + col.Title}
		}
		return actionMsg{status: "renamed to " + col.Title}
	}
}

// toggleSync flips dual-view sync.
func (m Model) toggleSync() tea.Cmd {
	return func() tea.Msg {
		if m.svc.ToggleSync(context.Background()) {
			return actionMsg{status: "sync on"}
		}
		return actionMsg{status: "sync off"}
	}
}

// deleteSelectedTask removes the selected task; its children become roots.
func (m Model) deleteSelectedTask() tea.Cmd {
	node, ok := m.selectedTaskNode()
	if !ok {
		return nil
	}
	view := m.view
	return func() tea.Msg {
		if err := m.svc.DeleteTask(context.Background(), view, node.ID, false); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted " + truncate(node.Title, 32)}
	}
}

// setDoneColumn flags the selected column as done.
func (m Model) setDoneColumn() tea.Cmd {
	col, ok := m.selectedColumnNode()
	if !ok || m.view != app.ViewKanban {
		return nil
	}
	return func() tea.Msg {
		if _, err := m.svc.SetDoneColumn(context.Background(), col.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: col.Title + " is the done column"}
	}
}

// moveSelectedTask drops the selected task onto the neighbouring column so the
// move is recorded in its history like a pointer drag.
func (m Model) moveSelectedTask(delta int) tea.Cmd {
	if m.view != app.ViewKanban {
		return func() tea.Msg { return actionMsg{status: "switch to kanban to move tasks"} }
	}
	node, ok := m.selectedTaskNode()
	if !ok {
		return nil
	}
	target := m.selectedColumn + delta
	if target < 0 || target >= len(m.columns) {
		return nil
	}
	col := m.columns[target]
	metrics := m.svc.Metrics()
	drop := dnd.TaskDrop{
		TaskID: node.ID,
		X:      col.X + metrics.Padding,
		Y:      col.Y + metrics.HeaderHeight,
	}
	return func() tea.Msg {
		placement, applied, err := m.svc.DropTask(context.Background(), app.ViewKanban, drop, nil)
		if err != nil {
			return actionMsg{err: err}
		}
		if !applied || !placement.Moved() {
			return actionMsg{status: "task not moved"}
		}
		return actionMsg{status: "moved to " + col.Title, focusTaskID: node.ID}
	}
}

// moveCursor moves the task cursor within the active view.
func (m *Model) moveCursor(delta int) {
	if m.view == app.ViewMindMap {
		m.selectedNode = clamp(m.selectedNode+delta, 0, len(m.tree)-1)
		return
	}
	col, ok := m.selectedColumnNode()
	if !ok {
		return
	}
	m.selectedTask = clamp(m.selectedTask+delta, 0, len(m.tasks[col.ID])-1)
}

// focusTask moves the cursor onto taskID when it is visible.
func (m *Model) focusTask(taskID string) {
	if m.view == app.ViewMindMap {
		for idx, node := range m.tree {
			if node.ID == taskID {
				m.selectedNode = idx
				return
			}
		}
		return
	}
	for colIdx, col := range m.columns {
		for taskIdx, node := range m.tasks[col.ID] {
			if node.ID == taskID {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return
			}
		}
	}
}

// focusColumn selects columnID when it is visible.
func (m *Model) focusColumn(columnID string) {
	for idx, col := range m.columns {
		if col.ID == columnID {
			m.selectedColumn = idx
			m.selectedTask = 0
			return
		}
	}
}

// clampSelections keeps cursors inside the loaded board.
func (m *Model) clampSelections() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns)-1)
	m.selectedNode = clamp(m.selectedNode, 0, len(m.tree)-1)
	if col, ok := m.selectedColumnNode(); ok {
		m.selectedTask = clamp(m.selectedTask, 0, len(m.tasks[col.ID])-1)
	} else {
		m.selectedTask = 0
	}
	if _, ok := m.selectedTaskNode(); !ok {
		m.showDetail = false
	}
}

func (m Model) selectedColumnNode() (app.Node, bool) {
	if m.selectedColumn < 0 || m.selectedColumn >= len(m.columns) {
		return app.Node{}, false
	}
	return m.columns[m.selectedColumn], true
}

// selectedTaskNode returns the task under the cursor in the active view.
func (m Model) selectedTaskNode() (app.Node, bool) {
	if m.view == app.ViewMindMap {
		if m.selectedNode < 0 || m.selectedNode >= len(m.tree) {
			return app.Node{}, false
		}
		return m.tree[m.selectedNode], true
	}
	col, ok := m.selectedColumnNode()
	if !ok {
		return app.Node{}, false
	}
	tasks := m.tasks[col.ID]
	if m.selectedTask < 0 || m.selectedTask >= len(tasks) {
		return app.Node{}, false
	}
	return tasks[m.selectedTask], true
}

// View handles view.
func (m Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	return view
}

// render draws the full screen as text.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("kanmap") + statusStyle.Render("  ["+m.viewLabel()+"]")
	if m.synced {
		header += statusStyle.Render("  synced")
	}

	var body string
	if m.view == app.ViewMindMap {
		body = m.renderTree(accent, muted)
	} else {
		body = m.renderColumns(accent, muted, dim)
	}

	sections := []string{header, "", body}
	if m.showDetail {
		if detail := m.renderDetail(accent, muted, dim); detail != "" {
			sections = append(sections, detail)
		}
	}
	if m.mode != modeNone {
		sections = append(sections, m.input.View())
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}

	return content + "\n" + helpLine
}

func (m Model) viewLabel() string {
	if m.view == app.ViewMindMap {
		return "mind map"
	}
	return "kanban"
}

// renderColumns draws kanban lanes left to right.
func (m Model) renderColumns(accent, muted, dim color.Color) string {
	if len(m.columns) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("No columns. Press n to add one.")
	}
	colWidth := m.columnWidth()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	overdueStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("71"))

	views := make([]string, 0, len(m.columns))
	for colIdx, col := range m.columns {
		title := fmt.Sprintf("%s (%d)", col.Title, col.TaskCount)
		if col.IsEditing {
			title += " ✎"
		}
		if col.Done {
			title += " " + doneStyle.Render("✓")
		}
		lines := []string{colTitle.Render(truncate(title, colWidth-2))}
		tasks := m.tasks[col.ID]
		if len(tasks) == 0 {
			lines = append(lines, subStyle.Render("(empty)"))
		}
		for taskIdx, task := range tasks {
			selected := colIdx == m.selectedColumn && taskIdx == m.selectedTask
			prefix := "  "
			if selected {
				prefix = "│ "
			}
			line := prefix + truncate(task.Title, max(1, colWidth-4))
			if selected {
				line = selectedTaskStyle.Render(line)
			}
			lines = append(lines, line)
			if meta := taskMeta(task); meta != "" {
				styled := subStyle.Render(truncate(meta, max(1, colWidth-4)))
				if task.Overdue {
					styled = overdueStyle.Render(truncate(meta, max(1, colWidth-4)))
				}
				lines = append(lines, "  "+styled)
			}
		}
		style := baseColStyle
		if colIdx == m.selectedColumn {
			style = selColStyle
		}
		views = append(views, style.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderTree draws the mind map as an indented outline.
func (m Model) renderTree(accent, muted color.Color) string {
	if len(m.tree) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("Mind map is empty. Press a to add a root task.")
	}
	selectedStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	lines := make([]string, 0, len(m.tree))
	for idx, node := range m.tree {
		marker := "•"
		if node.Done {
			marker = "✓"
		}
		line := strings.Repeat("  ", node.Depth) + marker + " " + node.Title
		if idx == m.selectedNode {
			line = selectedStyle.Render(line)
		}
		if meta := taskMeta(node); meta != "" {
			line += "  " + subStyle.Render(meta)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderDetail draws the selected task with its markdown description and recent history.
func (m Model) renderDetail(accent, muted, dim color.Color) string {
	node, ok := m.selectedTaskNode()
	if !ok {
		return ""
	}
	task, err := m.svc.Task(m.view, node.ID)
	if err != nil {
		return ""
	}
	width := max(24, m.width-6)
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render(task.Title),
		labelStyle.Render("id: ") + task.ID,
		labelStyle.Render("status: ") + domain.ColumnTitle(m.svc.Columns(), task.Status),
	}
	if task.Priority != domain.PriorityNone {
		lines = append(lines, labelStyle.Render("priority: ")+string(task.Priority))
	}
	if task.Deadline != nil {
		lines = append(lines, labelStyle.Render("deadline: ")+domain.FormatDeadline(task.Deadline))
	}
	if task.Username != "" {
		lines = append(lines, labelStyle.Render("assignee: ")+task.Username)
	}
	if desc := m.md.render(task.Description, width); desc != "" {
		lines = append(lines, "", desc)
	}
	if len(task.History) > 0 {
		lines = append(lines, "", labelStyle.Render("history"))
		start := max(0, len(task.History)-detailHistoryLimit)
		for _, entry := range task.History[start:] {
			who := entry.ChangedBy
			if who == "" {
				who = "unknown"
			}
			lines = append(lines, labelStyle.Render(entry.UpdatedAt.Format("2006-01-02 15:04")+" "+who+": ")+entry.Action())
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// columnWidth splits the terminal width across columns.
func (m Model) columnWidth() int {
	if len(m.columns) == 0 || m.width <= 0 {
		return 28
	}
	return clamp(m.width/len(m.columns)-3, 16, 40)
}

// taskMeta summarizes priority, deadline and assignee for one node.
func taskMeta(node app.Node) string {
	parts := make([]string, 0, 3)
	if node.Priority != domain.PriorityNone {
		parts = append(parts, string(node.Priority))
	}
	if node.Deadline != "" {
		due := "due " + node.Deadline
		if node.Overdue {
			due = "overdue " + node.Deadline
		}
		parts = append(parts, due)
	}
	if node.Username != "" {
		parts = append(parts, "@"+node.Username)
	}
	return strings.Join(parts, " · ")
}

// errorStatus renders service errors as short status lines.
func errorStatus(err error) string {
	var notEmpty *domain.ColumnNotEmptyError
	switch {
	case errors.As(err, &notEmpty):
		return fmt.Sprintf("column still holds %d tasks", notEmpty.Count)
	case errors.Is(err, domain.ErrCyclicParent):
		return "that parent would create a cycle"
	case errors.Is(err, app.ErrNotFound):
		return "task no longer exists"
	default:
		return "error: " + err.Error()
	}
}

// clamp bounds v to [minV, maxV]; an empty range yields minV.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
