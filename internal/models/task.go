package models

import (
	"time"

	"github.com/google/uuid"
)

// Task represents a tracked task as supplied by the task source.
//
// CompletedAt is set iff Completed is true at the time stats are computed;
// transient mismatches during an in-flight update are the source's concern.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
	LastModified time.Time  `json:"last_modified"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
	Hidden       bool       `json:"hidden"`
}
