package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/models"
)

// OccurrenceRepository handles occurrence database operations
type OccurrenceRepository struct {
	db *DB
}

// NewOccurrenceRepository creates a new occurrence repository
func NewOccurrenceRepository(db *DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

const occurrenceColumns = `
	id, reminder_id, pet_id, owner_id, occurs_at, status, created_at, updated_at
`

// InsertBatch inserts a batch of occurrences inside a single transaction.
func (r *OccurrenceRepository) InsertBatch(ctx context.Context, occurrences []*models.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOccurrencesTx(ctx, tx, occurrences); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit occurrence insert: %w", err)
	}
	return nil
}

// ReplaceFrom atomically deletes every occurrence of the reminder at or after
// from and inserts the given replacements. Occurrences before from are left
// untouched, whatever their status. Either both steps land or neither does.
func (r *OccurrenceRepository) ReplaceFrom(ctx context.Context, reminderID uuid.UUID, from time.Time, occurrences []*models.Occurrence) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM occurrences WHERE reminder_id = $1 AND occurs_at >= $2
	`, reminderID, from.UTC())
	if err != nil {
		return fmt.Errorf("failed to delete future occurrences: %w", err)
	}

	if err := insertOccurrencesTx(ctx, tx, occurrences); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit occurrence replace: %w", err)
	}
	return nil
}

// DeleteFrom removes every occurrence of the reminder at or after from.
func (r *OccurrenceRepository) DeleteFrom(ctx context.Context, reminderID uuid.UUID, from time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM occurrences WHERE reminder_id = $1 AND occurs_at >= $2
	`, reminderID, from.UTC())
	if err != nil {
		return fmt.Errorf("failed to delete occurrences: %w", err)
	}
	return nil
}

// DeleteByReminder removes every occurrence of the reminder, past included.
func (r *OccurrenceRepository) DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM occurrences WHERE reminder_id = $1`, reminderID)
	if err != nil {
		return fmt.Errorf("failed to delete occurrences: %w", err)
	}
	return nil
}

// GetByID retrieves an occurrence by ID
func (r *OccurrenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = $1`
	occ, err := scanOccurrence(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("occurrence %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence: %w", err)
	}
	return occ, nil
}

// QueryWindow retrieves all occurrences for a pet within [from, to),
// ascending by time.
func (r *OccurrenceRepository) QueryWindow(ctx context.Context, petID uuid.UUID, from, to time.Time) ([]*models.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM occurrences
		WHERE pet_id = $1 AND occurs_at >= $2 AND occurs_at < $3
		ORDER BY occurs_at, id
	`
	return r.queryOccurrences(ctx, query, petID, from.UTC(), to.UTC())
}

// Upcoming retrieves the reminder's pending occurrences at or after from,
// soonest first, capped at limit.
func (r *OccurrenceRepository) Upcoming(ctx context.Context, reminderID uuid.UUID, from time.Time, limit int) ([]*models.Occurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM occurrences
		WHERE reminder_id = $1 AND occurs_at >= $2 AND status = $3
		ORDER BY occurs_at, id
		LIMIT $4
	`
	return r.queryOccurrences(ctx, query, reminderID, from.UTC(), models.OccurrenceStatusPending, limit)
}

// UpdateStatus transitions an occurrence to the given status.
func (r *OccurrenceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OccurrenceStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE occurrences SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update occurrence status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("occurrence %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a single occurrence.
func (r *OccurrenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM occurrences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete occurrence: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("occurrence %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *OccurrenceRepository) queryOccurrences(ctx context.Context, query string, args ...any) ([]*models.Occurrence, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []*models.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		occurrences = append(occurrences, occ)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}

	return occurrences, nil
}

func insertOccurrencesTx(ctx context.Context, tx *sql.Tx, occurrences []*models.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occurrences (id, reminder_id, pet_id, owner_id, occurs_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare occurrence insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, occ := range occurrences {
		if occ.ID == uuid.Nil {
			occ.ID = uuid.New()
		}
		if occ.Status == "" {
			occ.Status = models.OccurrenceStatusPending
		}
		occ.CreatedAt = now
		occ.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx,
			occ.ID, occ.ReminderID, occ.PetID, occ.OwnerID,
			occ.OccursAt.UTC(), occ.Status, occ.CreatedAt, occ.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert occurrence: %w", err)
		}
	}
	return nil
}

func scanOccurrence(row rowScanner) (*models.Occurrence, error) {
	occ := &models.Occurrence{}
	err := row.Scan(
		&occ.ID,
		&occ.ReminderID,
		&occ.PetID,
		&occ.OwnerID,
		&occ.OccursAt,
		&occ.Status,
		&occ.CreatedAt,
		&occ.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	occ.OccursAt = occ.OccursAt.UTC()
	return occ, nil
}
