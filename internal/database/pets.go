package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawkit/pet-reminders/internal/models"
)

// PetRepository handles pet database operations
type PetRepository struct {
	db *DB
}

// NewPetRepository creates a new pet repository
func NewPetRepository(db *DB) *PetRepository {
	return &PetRepository{db: db}
}

// Create creates a new pet
func (r *PetRepository) Create(ctx context.Context, pet *models.Pet) error {
	query := `
		INSERT INTO pets (id, owner_id, name, species, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		pet.ID,
		pet.OwnerID,
		pet.Name,
		pet.Species,
		now,
		now,
	).Scan(&pet.CreatedAt, &pet.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create pet: %w", err)
	}

	return nil
}

// GetByID retrieves a pet by ID
func (r *PetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	pet := &models.Pet{}
	query := `
		SELECT id, owner_id, name, species, created_at, updated_at
		FROM pets
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}

	return pet, nil
}

// GetByOwnerID retrieves all pets for an owner
func (r *PetRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error) {
	query := `
		SELECT id, owner_id, name, species, created_at, updated_at
		FROM pets
		WHERE owner_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pets: %w", err)
	}
	defer rows.Close()

	var pets []*models.Pet
	for rows.Next() {
		pet := &models.Pet{}
		if err := rows.Scan(&pet.ID, &pet.OwnerID, &pet.Name, &pet.Species, &pet.CreatedAt, &pet.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pet: %w", err)
		}
		pets = append(pets, pet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pets: %w", err)
	}

	return pets, nil
}

// Delete deletes a pet and cascades to its reminders and occurrences.
func (r *PetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE pet_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete pet occurrences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE pet_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete pet reminders: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pet %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pet delete: %w", err)
	}
	return nil
}
