package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/models"
	"github.com/pawkit/pet-reminders/internal/schedule"
)

// ReminderRepository handles reminder (recurrence definition) database operations
type ReminderRepository struct {
	db *DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// reminderColumns is the column list shared by every reminder select.
const reminderColumns = `
	id, pet_id, owner_id, title, notes, schedule_type, times_of_day,
	anchor_date, weekday_mask, step_days, start_date, end_date, timezone,
	notifications_enabled, created_at, updated_at
`

// Create creates a new reminder
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	query := `
		INSERT INTO reminders (
			id, pet_id, owner_id, title, notes, schedule_type, times_of_day,
			anchor_date, weekday_mask, step_days, start_date, end_date, timezone,
			notifications_enabled, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	timesJSON, err := json.Marshal(reminder.TimesOfDay)
	if err != nil {
		return fmt.Errorf("failed to marshal times of day: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		reminder.ID,
		reminder.PetID,
		reminder.OwnerID,
		reminder.Title,
		reminder.Notes,
		reminder.ScheduleType,
		timesJSON,
		nullDate(reminder.AnchorDate),
		nullMask(reminder.WeekdayMask),
		nullInt(reminder.StepDays),
		reminder.StartDate.In(time.UTC),
		nullDate(reminder.EndDate),
		reminder.Timezone,
		reminder.NotificationsEnabled,
		now,
		now,
	).Scan(&reminder.CreatedAt, &reminder.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

// GetByID retrieves a reminder by ID
func (r *ReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	reminder, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

// GetByPetID retrieves all reminders for a pet
func (r *ReminderRepository) GetByPetID(ctx context.Context, petID uuid.UUID) ([]*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE pet_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}

// Update updates an existing reminder
func (r *ReminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	query := `
		UPDATE reminders
		SET title = $2, notes = $3, schedule_type = $4, times_of_day = $5,
			anchor_date = $6, weekday_mask = $7, step_days = $8, start_date = $9,
			end_date = $10, timezone = $11, notifications_enabled = $12, updated_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	timesJSON, err := json.Marshal(reminder.TimesOfDay)
	if err != nil {
		return fmt.Errorf("failed to marshal times of day: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		reminder.ID,
		reminder.Title,
		reminder.Notes,
		reminder.ScheduleType,
		timesJSON,
		nullDate(reminder.AnchorDate),
		nullMask(reminder.WeekdayMask),
		nullInt(reminder.StepDays),
		reminder.StartDate.In(time.UTC),
		nullDate(reminder.EndDate),
		reminder.Timezone,
		reminder.NotificationsEnabled,
		now,
	).Scan(&reminder.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("reminder %s: %w", reminder.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}

	return nil
}

// UpdateNotificationsEnabled writes back only the notifications flag. The
// reconciliation path never touches any other reminder field.
func (r *ReminderRepository) UpdateNotificationsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET notifications_enabled = $2, updated_at = $3 WHERE id = $1
	`, id, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update notifications flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete deletes a reminder and cascades deletion of all its occurrences.
func (r *ReminderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE reminder_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reminder occurrences: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reminder delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	var (
		timesJSON   []byte
		anchorDate  sql.NullTime
		weekdayMask sql.NullInt64
		stepDays    sql.NullInt64
		startDate   time.Time
		endDate     sql.NullTime
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.PetID,
		&reminder.OwnerID,
		&reminder.Title,
		&reminder.Notes,
		&reminder.ScheduleType,
		&timesJSON,
		&anchorDate,
		&weekdayMask,
		&stepDays,
		&startDate,
		&endDate,
		&reminder.Timezone,
		&reminder.NotificationsEnabled,
		&reminder.CreatedAt,
		&reminder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(timesJSON, &reminder.TimesOfDay); err != nil {
		return nil, fmt.Errorf("failed to unmarshal times of day: %w", err)
	}

	reminder.StartDate = schedule.DateOf(startDate.UTC())
	if anchorDate.Valid {
		d := schedule.DateOf(anchorDate.Time.UTC())
		reminder.AnchorDate = &d
	}
	if endDate.Valid {
		d := schedule.DateOf(endDate.Time.UTC())
		reminder.EndDate = &d
	}
	if weekdayMask.Valid {
		m := schedule.WeekdayMask(weekdayMask.Int64)
		reminder.WeekdayMask = &m
	}
	if stepDays.Valid {
		n := int(stepDays.Int64)
		reminder.StepDays = &n
	}

	return reminder, nil
}

func nullDate(d *schedule.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.In(time.UTC), Valid: true}
}

func nullMask(m *schedule.WeekdayMask) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
