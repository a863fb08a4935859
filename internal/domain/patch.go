package domain

import (
	"strings"
	"time"
)

// TaskPatch lists the task fields a caller may update. Nil fields are left untouched.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *Priority
	ClearPriority bool
	Deadline      *time.Time
	ClearDeadline bool
	Username      *string
	ParentID      *string
	ClearParent   bool
}

// Validate checks the patch before it is merged.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrInvalidTitle
	}
	if p.Priority != nil {
		if _, err := ParsePriority(string(*p.Priority)); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && !p.ClearPriority &&
		p.Deadline == nil && !p.ClearDeadline &&
		p.Username == nil && p.ParentID == nil && !p.ClearParent
}

// ApplyTo merges the patch over in.
func (p TaskPatch) ApplyTo(in TaskInput) TaskInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.ClearPriority {
		in.Priority = PriorityNone
	} else if p.Priority != nil {
		in.Priority = *p.Priority
	}
	if p.ClearDeadline {
		in.Deadline = nil
	} else if p.Deadline != nil {
		in.Deadline = normalizeDeadline(p.Deadline)
	}
	if p.Username != nil {
		in.Username = *p.Username
	}
	if p.ClearParent {
		in.ParentID = ""
	} else if p.ParentID != nil {
		in.ParentID = *p.ParentID
	}
	return in
}
