package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	moveTaskLeft  key.Binding
	moveTaskRight key.Binding
	addTask       key.Binding
	addColumn     key.Binding
	editColumn    key.Binding
	toggleSync    key.Binding
	switchView    key.Binding
	deleteTask    key.Binding
	setDone       key.Binding
	copyID        key.Binding
	taskInfo      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		moveTaskLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveTaskRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		addTask:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		addColumn:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new column")),
		editColumn:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename column")),
		toggleSync:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle sync")),
		switchView:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "kanban/mind map")),
		deleteTask:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete task")),
		setDone:       key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "set done column")),
		copyID:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task id")),
		taskInfo:      key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "task details")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.moveTaskLeft, k.moveTaskRight, k.switchView, k.toggleSync, k.taskInfo, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveTaskLeft, k.moveTaskRight},
		{k.addTask, k.addColumn, k.editColumn, k.deleteTask, k.setDone, k.copyID, k.taskInfo},
		{k.switchView, k.toggleSync, k.reload, k.toggleHelp, k.quit},
	}
}
