package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/queue"
)

// mockPetRepo implements database.PetRepositoryInterface for testing
type mockPetRepo struct {
	createFunc       func(ctx context.Context, pet *models.Pet) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.Pet, error)
	getByOwnerIDFunc func(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error)
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPetRepo) Create(ctx context.Context, pet *models.Pet) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, pet)
	}
	return nil
}

func (m *mockPetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockPetRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error) {
	if m.getByOwnerIDFunc != nil {
		return m.getByOwnerIDFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockPetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockReminderRepo implements database.ReminderRepositoryInterface for testing
type mockReminderRepo struct {
	createFunc        func(ctx context.Context, reminder *models.Reminder) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	getByPetIDFunc    func(ctx context.Context, petID uuid.UUID) ([]*models.Reminder, error)
	updateFunc        func(ctx context.Context, reminder *models.Reminder) error
	updateEnabledFunc func(ctx context.Context, id uuid.UUID, enabled bool) error
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockReminderRepo) Create(ctx context.Context, reminder *models.Reminder) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, reminder)
	}
	return nil
}

func (m *mockReminderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockReminderRepo) GetByPetID(ctx context.Context, petID uuid.UUID) ([]*models.Reminder, error) {
	if m.getByPetIDFunc != nil {
		return m.getByPetIDFunc(ctx, petID)
	}
	return nil, nil
}

func (m *mockReminderRepo) Update(ctx context.Context, reminder *models.Reminder) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, reminder)
	}
	return nil
}

func (m *mockReminderRepo) UpdateNotificationsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if m.updateEnabledFunc != nil {
		return m.updateEnabledFunc(ctx, id, enabled)
	}
	return nil
}

func (m *mockReminderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockOccurrenceRepo implements database.OccurrenceRepositoryInterface for testing
type mockOccurrenceRepo struct {
	insertBatchFunc     func(ctx context.Context, occurrences []*models.Occurrence) error
	replaceFromFunc     func(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error
	deleteFromFunc      func(ctx context.Context, reminderID uuid.UUID, from time.Time) error
	deleteByRemFunc     func(ctx context.Context, reminderID uuid.UUID) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*models.Occurrence, error)
	queryWindowFunc     func(ctx context.Context, petID uuid.UUID, from, to time.Time) ([]*models.Occurrence, error)
	upcomingFunc        func(ctx context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error)
	updateStatusFunc    func(ctx context.Context, id uuid.UUID, status models.OccurrenceStatus) error
	deleteFunc          func(ctx context.Context, id uuid.UUID) error
}

func (m *mockOccurrenceRepo) InsertBatch(ctx context.Context, occurrences []*models.Occurrence) error {
	if m.insertBatchFunc != nil {
		return m.insertBatchFunc(ctx, occurrences)
	}
	return nil
}

func (m *mockOccurrenceRepo) ReplaceFrom(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error {
	if m.replaceFromFunc != nil {
		return m.replaceFromFunc(ctx, reminderID, from, occurrences)
	}
	return nil
}

func (m *mockOccurrenceRepo) DeleteFrom(ctx context.Context, reminderID uuid.UUID, from time.Time) error {
	if m.deleteFromFunc != nil {
		return m.deleteFromFunc(ctx, reminderID, from)
	}
	return nil
}

func (m *mockOccurrenceRepo) DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error {
	if m.deleteByRemFunc != nil {
		return m.deleteByRemFunc(ctx, reminderID)
	}
	return nil
}

func (m *mockOccurrenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Occurrence, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockOccurrenceRepo) QueryWindow(ctx context.Context, petID uuid.UUID, from, to time.Time) ([]*models.Occurrence, error) {
	if m.queryWindowFunc != nil {
		return m.queryWindowFunc(ctx, petID, from, to)
	}
	return nil, nil
}

func (m *mockOccurrenceRepo) Upcoming(ctx context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error) {
	if m.upcomingFunc != nil {
		return m.upcomingFunc(ctx, reminderID, from, limit)
	}
	return nil, nil
}

func (m *mockOccurrenceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OccurrenceStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockOccurrenceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// mockJobQueue implements queue.JobQueue for testing
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*queue.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

// Compile-time interface checks
var (
	_ database.PetRepositoryInterface        = (*mockPetRepo)(nil)
	_ database.ReminderRepositoryInterface   = (*mockReminderRepo)(nil)
	_ database.OccurrenceRepositoryInterface = (*mockOccurrenceRepo)(nil)
	_ queue.JobQueue                         = (*mockJobQueue)(nil)
)
