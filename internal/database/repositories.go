package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/models"
)

// PetRepositoryInterface defines the interface for pet repository operations
// This interface enables better testability by allowing mock implementations
type PetRepositoryInterface interface {
	Create(ctx context.Context, pet *models.Pet) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Pet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReminderRepositoryInterface defines the interface for reminder repository operations
type ReminderRepositoryInterface interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	GetByPetID(ctx context.Context, petID uuid.UUID) ([]*models.Reminder, error)
	Update(ctx context.Context, reminder *models.Reminder) error
	UpdateNotificationsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OccurrenceRepositoryInterface defines the interface for occurrence repository operations
type OccurrenceRepositoryInterface interface {
	InsertBatch(ctx context.Context, occurrences []*models.Occurrence) error
	ReplaceFrom(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error
	DeleteFrom(ctx context.Context, reminderID uuid.UUID, from time.Time) error
	DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
	QueryWindow(ctx context.Context, petID uuid.UUID, from, to time.Time) ([]*models.Occurrence, error)
	Upcoming(ctx context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OccurrenceStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ PetRepositoryInterface        = (*PetRepository)(nil)
	_ ReminderRepositoryInterface   = (*ReminderRepository)(nil)
	_ OccurrenceRepositoryInterface = (*OccurrenceRepository)(nil)
)
