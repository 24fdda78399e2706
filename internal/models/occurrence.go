package models

import (
	"time"

	"github.com/google/uuid"
)

// OccurrenceStatus represents the status of an occurrence
type OccurrenceStatus string

const (
	OccurrenceStatusPending   OccurrenceStatus = "pending"
	OccurrenceStatusDone      OccurrenceStatus = "done"
	OccurrenceStatusDismissed OccurrenceStatus = "dismissed"
	OccurrenceStatusCanceled  OccurrenceStatus = "canceled"
)

// ValidOccurrenceStatus reports whether s is a known status value.
func ValidOccurrenceStatus(s OccurrenceStatus) bool {
	switch s {
	case OccurrenceStatusPending, OccurrenceStatusDone, OccurrenceStatusDismissed, OccurrenceStatusCanceled:
		return true
	default:
		return false
	}
}

// Occurrence is one concrete fire time derived from a reminder. PetID and
// OwnerID are denormalized from the reminder for query efficiency.
type Occurrence struct {
	ID         uuid.UUID        `json:"id"`
	ReminderID uuid.UUID        `json:"reminder_id"`
	PetID      uuid.UUID        `json:"pet_id"`
	OwnerID    uuid.UUID        `json:"owner_id"`
	OccursAt   time.Time        `json:"occurs_at"` // UTC instant
	Status     OccurrenceStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
