package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classpulse/attendance-core/internal/models"
)

// RosterRepository reads the student directory. The directory is owned by
// an external system; only the scoping reads needed for reconciliation and
// risk rosters live here.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

const rosterColumns = `id, full_name, class_id, mentor_id`

// FindStudent returns one directory row.
func (r *RosterRepository) FindStudent(ctx context.Context, id string) (*models.RosterStudent, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, rosterColumns)
	var student models.RosterStudent
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListByClass returns the students enrolled in a class.
func (r *RosterRepository) ListByClass(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE class_id = $1 ORDER BY full_name ASC`, rosterColumns)
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// ListByMentor returns the students assigned to a mentor.
func (r *RosterRepository) ListByMentor(ctx context.Context, mentorID string) ([]models.RosterStudent, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE mentor_id = $1 ORDER BY full_name ASC`, rosterColumns)
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, mentorID); err != nil {
		return nil, fmt.Errorf("list students by mentor: %w", err)
	}
	return students, nil
}
