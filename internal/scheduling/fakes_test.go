package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/models"
)

// fakeReminderStore is an in-memory ReminderRepositoryInterface.
type fakeReminderStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]models.Reminder
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{reminders: make(map[uuid.UUID]models.Reminder)}
}

func (s *fakeReminderStore) Create(_ context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder.CreatedAt = time.Now()
	reminder.UpdatedAt = reminder.CreatedAt
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *fakeReminderStore) GetByID(_ context.Context, id uuid.UUID) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, database.ErrNotFound)
	}
	out := r
	return &out, nil
}

func (s *fakeReminderStore) GetByPetID(_ context.Context, petID uuid.UUID) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Reminder
	for _, r := range s.reminders {
		if r.PetID == petID {
			o := r
			out = append(out, &o)
		}
	}
	return out, nil
}

func (s *fakeReminderStore) Update(_ context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[reminder.ID]; !ok {
		return fmt.Errorf("reminder %s: %w", reminder.ID, database.ErrNotFound)
	}
	reminder.UpdatedAt = time.Now()
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *fakeReminderStore) UpdateNotificationsEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return fmt.Errorf("reminder %s: %w", id, database.ErrNotFound)
	}
	r.NotificationsEnabled = enabled
	s.reminders[id] = r
	return nil
}

func (s *fakeReminderStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return fmt.Errorf("reminder %s: %w", id, database.ErrNotFound)
	}
	delete(s.reminders, id)
	return nil
}

// fakeOccurrenceStore is an in-memory OccurrenceRepositoryInterface.
type fakeOccurrenceStore struct {
	mu          sync.Mutex
	occurrences []models.Occurrence
}

func newFakeOccurrenceStore() *fakeOccurrenceStore {
	return &fakeOccurrenceStore{}
}

func (s *fakeOccurrenceStore) InsertBatch(_ context.Context, occurrences []*models.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, occ := range occurrences {
		s.occurrences = append(s.occurrences, *occ)
	}
	return nil
}

func (s *fakeOccurrenceStore) ReplaceFrom(_ context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.occurrences[:0]
	for _, occ := range s.occurrences {
		if occ.ReminderID == reminderID && !occ.OccursAt.Before(from) {
			continue
		}
		kept = append(kept, occ)
	}
	s.occurrences = kept
	for _, occ := range occurrences {
		s.occurrences = append(s.occurrences, *occ)
	}
	return nil
}

func (s *fakeOccurrenceStore) DeleteFrom(_ context.Context, reminderID uuid.UUID, from time.Time) error {
	return s.ReplaceFrom(context.Background(), reminderID, from, nil)
}

func (s *fakeOccurrenceStore) DeleteByReminder(_ context.Context, reminderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.occurrences[:0]
	for _, occ := range s.occurrences {
		if occ.ReminderID != reminderID {
			kept = append(kept, occ)
		}
	}
	s.occurrences = kept
	return nil
}

func (s *fakeOccurrenceStore) GetByID(_ context.Context, id uuid.UUID) (*models.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, occ := range s.occurrences {
		if occ.ID == id {
			out := occ
			return &out, nil
		}
	}
	return nil, fmt.Errorf("occurrence %s: %w", id, database.ErrNotFound)
}

func (s *fakeOccurrenceStore) QueryWindow(_ context.Context, petID uuid.UUID, from, to time.Time) ([]*models.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Occurrence
	for _, occ := range s.occurrences {
		if occ.PetID == petID && !occ.OccursAt.Before(from) && occ.OccursAt.Before(to) {
			o := occ
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccursAt.Before(out[j].OccursAt) })
	return out, nil
}

func (s *fakeOccurrenceStore) Upcoming(_ context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Occurrence
	for _, occ := range s.occurrences {
		if occ.ReminderID == reminderID && occ.Status == models.OccurrenceStatusPending && !occ.OccursAt.Before(from) {
			o := occ
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccursAt.Before(out[j].OccursAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeOccurrenceStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.OccurrenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.occurrences {
		if s.occurrences[i].ID == id {
			s.occurrences[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("occurrence %s: %w", id, database.ErrNotFound)
}

func (s *fakeOccurrenceStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.occurrences {
		if s.occurrences[i].ID == id {
			s.occurrences = append(s.occurrences[:i], s.occurrences[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("occurrence %s: %w", id, database.ErrNotFound)
}

// byReminder returns the stored occurrences for one reminder sorted by time.
func (s *fakeOccurrenceStore) byReminder(reminderID uuid.UUID) []models.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Occurrence
	for _, occ := range s.occurrences {
		if occ.ReminderID == reminderID {
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccursAt.Before(out[j].OccursAt) })
	return out
}

var (
	_ database.ReminderRepositoryInterface   = (*fakeReminderStore)(nil)
	_ database.OccurrenceRepositoryInterface = (*fakeOccurrenceStore)(nil)
)
