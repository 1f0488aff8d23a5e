// Package audit records who changed what in the back office.
package audit

import "time"

// Action classifies an audited mutation.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionStatusChange Action = "STATUS_CHANGE"
	ActionToggle       Action = "TOGGLE"
)

func (a Action) String() string { return string(a) }

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionStatusChange, ActionToggle:
		return true
	}
	return false
}

// Record is one append-only audit entry.
type Record struct {
	ID        int64
	UserID    string
	UserName  string
	Action    Action
	Entity    string
	EntityID  string
	Details   map[string]any
	CreatedAt time.Time
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
