package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/schedule"
)

// Reminder is the stored form of a recurrence definition. Schedule-specific
// parameters are nullable columns here; Definition() turns them back into the
// tagged rule the engine consumes, rejecting combinations the type system of
// schedule.Rule would never allow.
type Reminder struct {
	ID                   uuid.UUID              `json:"id"`
	PetID                uuid.UUID              `json:"pet_id"`
	OwnerID              uuid.UUID              `json:"owner_id"`
	Title                string                 `json:"title"`
	Notes                string                 `json:"notes,omitempty"`
	ScheduleType         schedule.Kind          `json:"schedule_type"`
	TimesOfDay           []schedule.TimeOfDay   `json:"times_of_day"`
	AnchorDate           *schedule.Date         `json:"anchor_date,omitempty"`
	WeekdayMask          *schedule.WeekdayMask  `json:"weekday_mask,omitempty"`
	StepDays             *int                   `json:"step_days,omitempty"`
	StartDate            schedule.Date          `json:"start_date"`
	EndDate              *schedule.Date         `json:"end_date,omitempty"`
	Timezone             string                 `json:"timezone"`
	NotificationsEnabled bool                   `json:"notifications_enabled"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// Rule builds the tagged recurrence rule from the stored columns.
func (r *Reminder) Rule() (schedule.Rule, error) {
	switch r.ScheduleType {
	case schedule.KindOnce:
		if r.AnchorDate == nil {
			return nil, fmt.Errorf("%w: once schedule requires anchor_date", schedule.ErrInvalidDefinition)
		}
		return schedule.Once{Anchor: *r.AnchorDate}, nil
	case schedule.KindDaily:
		return schedule.Daily{}, nil
	case schedule.KindWeekly:
		if r.WeekdayMask == nil {
			return nil, fmt.Errorf("%w: weekly schedule requires weekday_mask", schedule.ErrInvalidDefinition)
		}
		return schedule.Weekly{Mask: *r.WeekdayMask}, nil
	case schedule.KindInterval:
		if r.StepDays == nil {
			return nil, fmt.Errorf("%w: interval schedule requires step_days", schedule.ErrInvalidDefinition)
		}
		return schedule.Interval{StepDays: *r.StepDays}, nil
	case schedule.KindMonthly:
		return schedule.Monthly{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", schedule.ErrInvalidDefinition, r.ScheduleType)
	}
}

// Definition resolves the reminder into the engine-facing definition,
// loading the IANA timezone and validating all schedule fields.
func (r *Reminder) Definition() (schedule.Definition, error) {
	rule, err := r.Rule()
	if err != nil {
		return schedule.Definition{}, err
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return schedule.Definition{}, fmt.Errorf("%w: unknown timezone %q", schedule.ErrInvalidDefinition, r.Timezone)
	}
	def := schedule.Definition{
		ID:                   r.ID,
		PetID:                r.PetID,
		Title:                r.Title,
		Notes:                r.Notes,
		Rule:                 rule,
		Times:                r.TimesOfDay,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		Location:             loc,
		NotificationsEnabled: r.NotificationsEnabled,
	}
	if err := def.Validate(); err != nil {
		return schedule.Definition{}, err
	}
	return def, nil
}

// ScheduleFieldsEqual reports whether the fields that affect expansion are
// unchanged between r and o. Title, notes and the notifications flag are
// deliberately excluded: editing them must not trigger re-expansion.
func (r *Reminder) ScheduleFieldsEqual(o *Reminder) bool {
	if r.ScheduleType != o.ScheduleType ||
		r.StartDate != o.StartDate ||
		r.Timezone != o.Timezone {
		return false
	}
	if !datePtrEqual(r.EndDate, o.EndDate) || !datePtrEqual(r.AnchorDate, o.AnchorDate) {
		return false
	}
	if !maskPtrEqual(r.WeekdayMask, o.WeekdayMask) || !intPtrEqual(r.StepDays, o.StepDays) {
		return false
	}
	if len(r.TimesOfDay) != len(o.TimesOfDay) {
		return false
	}
	for i := range r.TimesOfDay {
		if r.TimesOfDay[i] != o.TimesOfDay[i] {
			return false
		}
	}
	return true
}

func datePtrEqual(a, b *schedule.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func maskPtrEqual(a, b *schedule.WeekdayMask) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
