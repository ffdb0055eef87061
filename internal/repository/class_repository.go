package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-transfer-api/internal/models"
)

// ClassRepository reads class directory data. Enrollment counts are only
// mutated through the transfer store, inside its transaction.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, grade, status, capacity, current_enrollment, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListEligibleDestinations returns every other ACTIVE class of the same
// grade with at least one free seat, sorted by name. NULL capacity means
// unlimited.
func (r *ClassRepository) ListEligibleDestinations(ctx context.Context, sourceClassID, grade string) ([]models.EligibleClass, error) {
	const query = `SELECT id, name, grade, capacity, current_enrollment
        FROM classes
        WHERE id <> $1
          AND grade = $2
          AND status = $3
          AND (capacity IS NULL OR current_enrollment < capacity)
        ORDER BY name ASC`
	classes := []models.EligibleClass{}
	if err := r.db.SelectContext(ctx, &classes, query, sourceClassID, grade, models.ClassStatusActive); err != nil {
		return nil, err
	}
	return classes, nil
}
