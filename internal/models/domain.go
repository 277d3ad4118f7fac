package models

import (
	"fmt"
	"strings"
)

// TaskState defines allowed lifecycle states for tasks.
type TaskState string

const (
	StateOpen          TaskState = "open"
	StateInProgress    TaskState = "in_progress"
	StatePendingReview TaskState = "pending_review"
	StateClosed        TaskState = "closed"
	StateFailed        TaskState = "failed"
	StateBlocked       TaskState = "blocked"
)

// KeyRole defines the access role bound to an API key.
type KeyRole string

const (
	RoleAdmin KeyRole = "admin"
	RoleBee   KeyRole = "bee"
)

// ReviewRole is the role tag assigned to auto-spawned review tasks.
const ReviewRole = "pr_review"

const (
	PriorityMin     = 0
	PriorityMax     = 4
	DefaultPriority = 2
)

var validTaskStates = map[TaskState]struct{}{
	StateOpen:          {},
	StateInProgress:    {},
	StatePendingReview: {},
	StateClosed:        {},
	StateFailed:        {},
	StateBlocked:       {},
}

func IsValidTaskState(state TaskState) bool {
	_, ok := validTaskStates[state]
	return ok
}

func ParseTaskState(raw string) (TaskState, error) {
	value := TaskState(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("state is required")
	}
	if !IsValidTaskState(value) {
		return "", fmt.Errorf("invalid state: %s", value)
	}
	return value, nil
}

func ParseKeyRole(raw string) (KeyRole, error) {
	value := KeyRole(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case RoleAdmin, RoleBee:
		return value, nil
	case "":
		return "", fmt.Errorf("role is required")
	default:
		return "", fmt.Errorf("invalid role: %s", value)
	}
}

func IsValidPriority(value int) bool {
	return value >= PriorityMin && value <= PriorityMax
}

// Claimable reports whether a task in this state can be claimed.
func (s TaskState) Claimable() bool {
	return s == StateOpen
}

// Releasable reports whether a task in this state holds a claim that can
// be released back to the pool.
func (s TaskState) Releasable() bool {
	return s == StateInProgress || s == StatePendingReview
}

// Reopenable reports whether a task in this state can be reopened.
func (s TaskState) Reopenable() bool {
	return s == StateClosed || s == StateFailed
}
