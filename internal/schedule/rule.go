package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a recurrence rule variant.
type Kind string

const (
	KindOnce     Kind = "once"
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindInterval Kind = "interval"
	KindMonthly  Kind = "monthly"
)

// ValidKind reports whether k is one of the five rule kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindOnce, KindDaily, KindWeekly, KindInterval, KindMonthly:
		return true
	}
	return false
}

// WeekdayMask is a 7-bit set of weekdays, bit 0 = Monday .. bit 6 = Sunday.
type WeekdayMask uint8

// WeekdayMaskAll selects every day of the week.
const WeekdayMaskAll WeekdayMask = 0x7F

// Contains reports whether the weekday index (Monday=0) is set.
func (m WeekdayMask) Contains(weekday int) bool {
	if weekday < 0 || weekday > 6 {
		return false
	}
	return m&(1<<uint(weekday)) != 0
}

// Validate checks that at least one bit is set and no bit beyond Sunday is.
func (m WeekdayMask) Validate() error {
	if m == 0 {
		return fmt.Errorf("%w: weekday mask has no days set", ErrInvalidDefinition)
	}
	if m > WeekdayMaskAll {
		return fmt.Errorf("%w: weekday mask %#x has bits beyond Sunday", ErrInvalidDefinition, uint8(m))
	}
	return nil
}

// Rule is the closed set of recurrence variants. Each variant carries exactly
// the parameters it needs, so "which fields are required" is enforced by the
// type rather than checked at runtime.
type Rule interface {
	Kind() Kind
	validate(start Date) error
}

// Once fires on a single anchor date.
type Once struct {
	Anchor Date `json:"anchor_date"`
}

// Daily fires every calendar day.
type Daily struct{}

// Weekly fires on the days selected by Mask.
type Weekly struct {
	Mask WeekdayMask `json:"weekday_mask"`
}

// Interval fires every StepDays days counted from the start date.
type Interval struct {
	StepDays int `json:"step_days"`
}

// Monthly fires once a month on the start date's day of month, clamped to
// shorter months.
type Monthly struct{}

func (Once) Kind() Kind     { return KindOnce }
func (Daily) Kind() Kind    { return KindDaily }
func (Weekly) Kind() Kind   { return KindWeekly }
func (Interval) Kind() Kind { return KindInterval }
func (Monthly) Kind() Kind  { return KindMonthly }

func (r Once) validate(start Date) error {
	if r.Anchor.IsZero() {
		return fmt.Errorf("%w: once rule requires an anchor date", ErrInvalidDefinition)
	}
	return nil
}

func (Daily) validate(Date) error { return nil }

func (r Weekly) validate(Date) error { return r.Mask.Validate() }

func (r Interval) validate(Date) error {
	if r.StepDays < 1 {
		return fmt.Errorf("%w: interval step must be >= 1 day, got %d", ErrInvalidDefinition, r.StepDays)
	}
	return nil
}

func (Monthly) validate(Date) error { return nil }

// Definition is a fully resolved recurrence definition as consumed by Expand.
// It is the engine-facing form of a stored reminder: the tagged rule replaces
// the flat nullable columns, and the timezone is already loaded.
type Definition struct {
	ID                   uuid.UUID
	PetID                uuid.UUID
	Title                string
	Notes                string
	Rule                 Rule
	Times                []TimeOfDay
	StartDate            Date
	EndDate              *Date
	Location             *time.Location
	NotificationsEnabled bool
}

// Validate checks the definition's schedule fields. Title and notes are
// caller-owned free text and are not interpreted here.
func (d Definition) Validate() error {
	if d.Rule == nil {
		return fmt.Errorf("%w: missing rule", ErrInvalidDefinition)
	}
	if d.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidDefinition)
	}
	if len(d.Times) == 0 {
		return fmt.Errorf("%w: at least one time of day is required", ErrInvalidDefinition)
	}
	seen := make(map[TimeOfDay]bool, len(d.Times))
	for _, tod := range d.Times {
		if err := tod.Validate(); err != nil {
			return err
		}
		if seen[tod] {
			return fmt.Errorf("%w: duplicate time of day %s", ErrInvalidDefinition, tod)
		}
		seen[tod] = true
	}
	if d.EndDate != nil && d.EndDate.Before(d.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidDefinition, d.EndDate, d.StartDate)
	}
	if d.Location == nil {
		return fmt.Errorf("%w: missing timezone", ErrInvalidDefinition)
	}
	return d.Rule.validate(d.StartDate)
}
