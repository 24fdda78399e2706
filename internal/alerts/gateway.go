package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAuthorizationDenied is returned when the device-side notification
// service has been explicitly denied permission to deliver alerts. Callers
// distinguish it from transient delivery failures: there is no point
// retrying until the user changes the permission.
var ErrAuthorizationDenied = errors.New("notification authorization denied")

// AuthorizationState is the permission state of the downstream notification
// service.
type AuthorizationState string

const (
	// AuthorizationNotDetermined means permission has never been requested.
	AuthorizationNotDetermined AuthorizationState = "not_determined"
	// AuthorizationDenied means the user refused notification permission.
	AuthorizationDenied AuthorizationState = "denied"
	// AuthorizationAuthorized means alerts may be scheduled.
	AuthorizationAuthorized AuthorizationState = "authorized"
)

// ScheduleRequest describes a single alert to be delivered at a fixed instant.
type ScheduleRequest struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	At         time.Time `json:"at"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
}

// Gateway abstracts the device notification service. The reconciler drives it
// with a cancel-then-schedule protocol, so implementations must make CancelAll
// a no-op when the reminder has no scheduled alerts.
type Gateway interface {
	// CancelAll removes every scheduled alert belonging to the reminder.
	CancelAll(ctx context.Context, reminderID uuid.UUID) error
	// ScheduleAt registers one alert and returns its gateway-assigned ID.
	ScheduleAt(ctx context.Context, req ScheduleRequest) (string, error)
	// AuthorizationState reports the current permission state.
	AuthorizationState(ctx context.Context) (AuthorizationState, error)
	// RequestAuthorization prompts for permission and reports whether it
	// was granted.
	RequestAuthorization(ctx context.Context) (bool, error)
}
