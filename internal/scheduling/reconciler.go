package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawkit/pet-reminders/internal/alerts"
	"github.com/pawkit/pet-reminders/internal/database"
)

// DefaultNotificationCap bounds how many alerts one reminder may hold with
// the downstream notification service at a time.
const DefaultNotificationCap = 64

// FailedAlert records one occurrence the gateway refused to schedule.
type FailedAlert struct {
	OccurrenceID uuid.UUID `json:"occurrence_id"`
	At           time.Time `json:"at"`
	Reason       string    `json:"reason"`
}

// ReconcileResult reports the outcome of one reconciliation pass.
type ReconcileResult struct {
	ReminderID uuid.UUID     `json:"reminder_id"`
	Scheduled  int           `json:"scheduled"`
	Failed     []FailedAlert `json:"failed,omitempty"`
}

// Reconciler keeps the downstream notification service in sync with stored
// occurrences. A pass is cancel-then-schedule: every alert the reminder holds
// is cancelled first, then the soonest pending occurrences are scheduled up
// to the cap. The cancel always runs, so a disabled or denied reminder ends
// a pass with zero alerts outstanding.
type Reconciler struct {
	reminders   database.ReminderRepositoryInterface
	occurrences database.OccurrenceRepositoryInterface
	gateway     alerts.Gateway
	cap         int
	log         *zap.Logger
	now         func() time.Time
}

// NewReconciler creates a reconciler. cap limits alerts per reminder; zero or
// negative falls back to the default.
func NewReconciler(
	reminders database.ReminderRepositoryInterface,
	occurrences database.OccurrenceRepositoryInterface,
	gateway alerts.Gateway,
	cap int,
	log *zap.Logger,
) *Reconciler {
	if cap <= 0 {
		cap = DefaultNotificationCap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		reminders:   reminders,
		occurrences: occurrences,
		gateway:     gateway,
		cap:         cap,
		log:         log,
		now:         time.Now,
	}
}

// Reconcile runs one pass for the reminder. It returns
// alerts.ErrAuthorizationDenied when notification permission is refused;
// individual scheduling failures do not abort the pass and are reported in
// the result instead.
func (r *Reconciler) Reconcile(ctx context.Context, reminderID uuid.UUID) (*ReconcileResult, error) {
	reminder, err := r.reminders.GetByID(ctx, reminderID)
	if err != nil {
		return nil, err
	}

	if err := r.gateway.CancelAll(ctx, reminderID); err != nil {
		return nil, fmt.Errorf("failed to cancel existing alerts: %w", err)
	}

	result := &ReconcileResult{ReminderID: reminderID}

	if !reminder.NotificationsEnabled {
		r.log.Info("reconcile_skipped_disabled", zap.String("reminder_id", reminderID.String()))
		return result, nil
	}

	if err := r.ensureAuthorized(ctx); err != nil {
		return nil, err
	}

	upcoming, err := r.occurrences.Upcoming(ctx, reminderID, r.now(), r.cap)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming occurrences: %w", err)
	}

	for _, occ := range upcoming {
		_, err := r.gateway.ScheduleAt(ctx, alerts.ScheduleRequest{
			ReminderID: reminderID,
			At:         occ.OccursAt,
			Title:      reminder.Title,
			Body:       reminder.Notes,
		})
		if errors.Is(err, alerts.ErrAuthorizationDenied) {
			// Permission was revoked mid-pass; stop rather than fail
			// the remaining occurrences one by one.
			return nil, err
		}
		if err != nil {
			result.Failed = append(result.Failed, FailedAlert{
				OccurrenceID: occ.ID,
				At:           occ.OccursAt,
				Reason:       err.Error(),
			})
			continue
		}
		result.Scheduled++
	}

	r.log.Info("reconcile_completed",
		zap.String("reminder_id", reminderID.String()),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (r *Reconciler) ensureAuthorized(ctx context.Context) error {
	state, err := r.gateway.AuthorizationState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read authorization state: %w", err)
	}
	switch state {
	case alerts.AuthorizationAuthorized:
		return nil
	case alerts.AuthorizationDenied:
		return alerts.ErrAuthorizationDenied
	case alerts.AuthorizationNotDetermined:
		granted, err := r.gateway.RequestAuthorization(ctx)
		if err != nil {
			return fmt.Errorf("failed to request authorization: %w", err)
		}
		if !granted {
			return alerts.ErrAuthorizationDenied
		}
		return nil
	default:
		return fmt.Errorf("unknown authorization state %q", state)
	}
}
