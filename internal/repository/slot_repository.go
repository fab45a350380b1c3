package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classpulse/attendance-core/internal/models"
)

// SlotRepository reads the timetable slot catalogue. Slots are maintained
// by curriculum administration; this service never writes them.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, class_id, course_id, teacher_id, weekday, to_char(start_time, 'HH24:MI') AS start_clock, to_char(end_time, 'HH24:MI') AS end_clock, room`

// FindByID returns a single slot.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE id = $1`, slotColumns)
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return &slot, nil
}

// ListByClass returns the weekly slots for a class ordered by day and start.
func (r *SlotRepository) ListByClass(ctx context.Context, classID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE class_id = $1 ORDER BY weekday ASC, start_time ASC`, slotColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list slots by class: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns the weekly slots taught by one teacher.
func (r *SlotRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE teacher_id = $1 ORDER BY weekday ASC, start_time ASC`, slotColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list slots by teacher: %w", err)
	}
	return slots, nil
}
