package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the task lifecycle state. Transitions only move forward:
//
//	waiting -> in_progress -> completed
//	                       \> failed
//	waiting -> failed
//
// waiting->failed covers submission-time compensation of tasks that never
// reached a worker. Completed and failed are terminal.
type TaskStatus string

const (
	TaskWaiting    TaskStatus = "waiting"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskWaiting:    {TaskInProgress, TaskFailed},
	TaskInProgress: {TaskCompleted, TaskFailed},
	TaskCompleted:  {},
	TaskFailed:     {},
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// Terminal reports whether s is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// CanTransition reports whether s -> to is a legal forward transition.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	for _, next := range taskTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for an illegal transition.
// All status writes go through this (or its SQL equivalent, a conditional
// UPDATE on the allowed source statuses) so an out-of-order write fails
// loudly instead of silently overwriting.
func ValidateTransition(from, to TaskStatus) error {
	if !from.Valid() {
		return fmt.Errorf("unknown task status %q", from)
	}
	if !to.Valid() {
		return fmt.Errorf("unknown task status %q", to)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal task transition %s -> %s", from, to)
	}
	return nil
}

// Task is one unit of paid prediction work. A task owns at most one spend
// transaction (written atomically with the row at submission) and, if it
// fails afterwards, exactly one compensating refund.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ModelID     int32      `json:"model_id"`
	Input       string     `json:"input"`
	Status      TaskStatus `json:"status"`
	Result      *string    `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
