package models

import (
	"time"

	"github.com/google/uuid"
)

// Pet is the tracked entity reminders are attached to.
type Pet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
