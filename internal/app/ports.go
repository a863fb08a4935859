package app

import "context"

// Repository persists the whole board state.
type Repository interface {
	LoadState(context.Context) (State, error)
	SaveState(context.Context, State) error
}

// ChangeKind names what a committed mutation touched.
type ChangeKind string

// ChangeColumns and related constants define package defaults.
const (
	ChangeColumns ChangeKind = "columns"
	ChangeTasks   ChangeKind = "tasks"
	ChangeSync    ChangeKind = "sync"
	ChangeHost    ChangeKind = "host"
)

// ChangeEvent describes one committed mutation.
type ChangeEvent struct {
	Kind  ChangeKind
	Views []View
}

// ChangeListener is called after a mutation commits. Implementations must not block
// and must not call back into the Service synchronously.
type ChangeListener func(ChangeEvent)
