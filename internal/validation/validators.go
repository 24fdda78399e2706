package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/schedule"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("schedule_type", validateScheduleType); err != nil {
		panic(fmt.Sprintf("failed to register schedule_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("occurrence_status", validateOccurrenceStatus); err != nil {
		panic(fmt.Sprintf("failed to register occurrence_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("timezone", validateTimezone); err != nil {
		panic(fmt.Sprintf("failed to register timezone validator: %v", err))
	}
}

// validateScheduleType validates that a string is a valid schedule kind
func validateScheduleType(fl validator.FieldLevel) bool {
	return schedule.ValidKind(schedule.Kind(fl.Field().String()))
}

// validateOccurrenceStatus validates that a string is a valid OccurrenceStatus enum value
func validateOccurrenceStatus(fl validator.FieldLevel) bool {
	return models.ValidOccurrenceStatus(models.OccurrenceStatus(fl.Field().String()))
}

// validateTimezone validates that a string is a resolvable IANA zone name
func validateTimezone(fl validator.FieldLevel) bool {
	return ValidateTimezone(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateScheduleType validates a schedule kind string value
func ValidateScheduleType(value string) error {
	if !schedule.ValidKind(schedule.Kind(value)) {
		return fmt.Errorf("invalid schedule_type: %s (must be 'once', 'daily', 'weekly', 'interval', or 'monthly')", value)
	}
	return nil
}

// ValidateOccurrenceStatus validates an OccurrenceStatus string value
func ValidateOccurrenceStatus(value string) error {
	if !models.ValidOccurrenceStatus(models.OccurrenceStatus(value)) {
		return fmt.Errorf("invalid status: %s (must be 'pending', 'done', 'dismissed', or 'canceled')", value)
	}
	return nil
}

// ValidateTimezone validates an IANA timezone name
func ValidateTimezone(value string) error {
	if value == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("invalid timezone: %s", value)
	}
	return nil
}

// ParseTimesOfDay parses and validates a list of HH:MM strings, rejecting
// duplicates.
func ParseTimesOfDay(values []string) ([]schedule.TimeOfDay, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one time of day is required")
	}
	times := make([]schedule.TimeOfDay, 0, len(values))
	seen := make(map[schedule.TimeOfDay]bool, len(values))
	for _, v := range values {
		tod, err := schedule.ParseTimeOfDay(v)
		if err != nil {
			return nil, err
		}
		if seen[tod] {
			return nil, fmt.Errorf("duplicate time of day: %s", tod)
		}
		seen[tod] = true
		times = append(times, tod)
	}
	return times, nil
}

// ValidateWeekdayMask validates a weekday bitmask (bit 0 = Monday)
func ValidateWeekdayMask(mask int) error {
	if mask <= 0 || mask > int(schedule.WeekdayMaskAll) {
		return fmt.Errorf("invalid weekday_mask: %d (must select at least one weekday)", mask)
	}
	return nil
}
