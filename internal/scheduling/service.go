package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/schedule"
)

// Service coordinates reminder writes with occurrence expansion. All mutation
// paths funnel through here so the per-reminder lock can keep concurrent
// edits, re-expansions and reconciliations from interleaving their
// delete-and-regenerate windows.
type Service struct {
	reminders   database.ReminderRepositoryInterface
	occurrences database.OccurrenceRepositoryInterface
	locks       *lockArena
	horizonDays int
	log         *zap.Logger
	now         func() time.Time
}

// NewService creates a scheduling service. horizonDays bounds how far ahead
// occurrences are materialized; zero or negative falls back to the default.
func NewService(
	reminders database.ReminderRepositoryInterface,
	occurrences database.OccurrenceRepositoryInterface,
	horizonDays int,
	log *zap.Logger,
) *Service {
	if horizonDays <= 0 {
		horizonDays = schedule.DefaultHorizonDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		reminders:   reminders,
		occurrences: occurrences,
		locks:       newLockArena(),
		horizonDays: horizonDays,
		log:         log,
		now:         time.Now,
	}
}

// Create validates and persists a new reminder, then materializes its
// occurrence window from the start date forward.
func (s *Service) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}

	def, err := reminder.Definition()
	if err != nil {
		return err
	}

	unlock := s.locks.lock(reminder.ID)
	defer unlock()

	if err := s.reminders.Create(ctx, reminder); err != nil {
		return fmt.Errorf("failed to persist reminder: %w", err)
	}

	instants, err := schedule.Expand(def, s.horizonEnd(def))
	if err != nil {
		return err
	}

	if err := s.occurrences.InsertBatch(ctx, s.toOccurrences(reminder, instants)); err != nil {
		return fmt.Errorf("failed to materialize occurrences: %w", err)
	}

	s.log.Info("reminder_created",
		zap.String("reminder_id", reminder.ID.String()),
		zap.String("schedule_type", string(reminder.ScheduleType)),
		zap.Int("occurrences", len(instants)),
	)
	return nil
}

// Update persists an edited reminder. When any schedule-shaping field changed
// it rebuilds the future occurrence window from today forward; title, notes
// and notification-flag edits leave occurrences untouched.
func (s *Service) Update(ctx context.Context, updated *models.Reminder) (rebuilt bool, err error) {
	def, err := updated.Definition()
	if err != nil {
		return false, err
	}

	unlock := s.locks.lock(updated.ID)
	defer unlock()

	prev, err := s.reminders.GetByID(ctx, updated.ID)
	if err != nil {
		return false, err
	}
	updated.PetID = prev.PetID
	updated.OwnerID = prev.OwnerID

	if err := s.reminders.Update(ctx, updated); err != nil {
		return false, fmt.Errorf("failed to persist reminder: %w", err)
	}

	if prev.ScheduleFieldsEqual(updated) {
		return false, nil
	}

	if err := s.rebuildFrom(ctx, updated, def, s.rebuildAnchor(def)); err != nil {
		return false, err
	}
	return true, nil
}

// Reexpand recomputes a reminder's occurrence window. from picks the rebuild
// anchor; nil means "from the start of today in the reminder's timezone".
// Past occurrences before the anchor keep their statuses. The operation is
// idempotent: running it twice with the same inputs leaves the same rows.
func (s *Service) Reexpand(ctx context.Context, reminderID uuid.UUID, from *time.Time) error {
	unlock := s.locks.lock(reminderID)
	defer unlock()

	reminder, err := s.reminders.GetByID(ctx, reminderID)
	if err != nil {
		return err
	}
	def, err := reminder.Definition()
	if err != nil {
		return err
	}

	anchor := s.rebuildAnchor(def)
	if from != nil {
		anchor = from.UTC()
	}
	return s.rebuildFrom(ctx, reminder, def, anchor)
}

// Delete removes a reminder together with its whole occurrence history.
func (s *Service) Delete(ctx context.Context, reminderID uuid.UUID) error {
	unlock := s.locks.lock(reminderID)
	defer unlock()

	if err := s.reminders.Delete(ctx, reminderID); err != nil {
		return err
	}
	s.log.Info("reminder_deleted", zap.String("reminder_id", reminderID.String()))
	return nil
}

// Upcoming lists the reminder's pending occurrences from now on, soonest
// first, capped at limit.
func (s *Service) Upcoming(ctx context.Context, reminderID uuid.UUID, limit int) ([]*models.Occurrence, error) {
	return s.occurrences.Upcoming(ctx, reminderID, s.now(), limit)
}

// rebuildFrom regenerates the occurrence window at or after anchor. The new
// rows are computed in full before the store swaps them in atomically, so a
// failed expansion never leaves the reminder with a half-deleted window.
func (s *Service) rebuildFrom(ctx context.Context, reminder *models.Reminder, def schedule.Definition, anchor time.Time) error {
	instants, err := schedule.Expand(def, s.horizonEnd(def))
	if err != nil {
		return err
	}

	future := instants[:0:0]
	for _, at := range instants {
		if !at.Before(anchor) {
			future = append(future, at)
		}
	}

	if err := s.occurrences.ReplaceFrom(ctx, reminder.ID, anchor, s.toOccurrences(reminder, future)); err != nil {
		return fmt.Errorf("failed to replace occurrence window: %w", err)
	}

	s.log.Info("reminder_reexpanded",
		zap.String("reminder_id", reminder.ID.String()),
		zap.Time("anchor", anchor),
		zap.Int("occurrences", len(future)),
	)
	return nil
}

// rebuildAnchor is the default rebuild boundary: the start of today in the
// reminder's own timezone, so a late-evening edit does not wipe occurrences
// already shown as due earlier in the local day.
func (s *Service) rebuildAnchor(def schedule.Definition) time.Time {
	localToday := schedule.DateOf(s.now().In(def.Location))
	anchor := localToday.In(def.Location).UTC()
	if start := def.StartDate.In(def.Location).UTC(); start.After(anchor) {
		return start
	}
	return anchor
}

func (s *Service) horizonEnd(def schedule.Definition) schedule.Date {
	base := schedule.DateOf(s.now().In(def.Location))
	if base.Before(def.StartDate) {
		base = def.StartDate
	}
	return base.AddDays(s.horizonDays)
}

func (s *Service) toOccurrences(reminder *models.Reminder, instants []time.Time) []*models.Occurrence {
	occurrences := make([]*models.Occurrence, 0, len(instants))
	for _, at := range instants {
		occurrences = append(occurrences, &models.Occurrence{
			ID:         uuid.New(),
			ReminderID: reminder.ID,
			PetID:      reminder.PetID,
			OwnerID:    reminder.OwnerID,
			OccursAt:   at,
			Status:     models.OccurrenceStatusPending,
		})
	}
	return occurrences
}
