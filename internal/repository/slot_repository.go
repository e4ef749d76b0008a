package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

const slotColumns = `es.id, es.start_date, es.end_date, es.physical_capacity, es.online_capacity, es.created_at, es.updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*model.ExamSlot, error) {
	var s model.ExamSlot
	err := row.Scan(&s.ID, &s.StartDate, &s.EndDate, &s.PhysicalCapacity, &s.OnlineCapacity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetSlot returns a slot by id or ErrNotFound.
func (s *MySQLStore) GetSlot(ctx context.Context, id uint64) (*model.ExamSlot, error) {
	return scanSlot(s.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM exam_slot es WHERE es.id = ?`, id))
}

// AvailableSlotsForCourse lists the slots linked to a course that still
// have free seats across their batches, earliest first.
func (s *MySQLStore) AvailableSlotsForCourse(ctx context.Context, courseID uint64) ([]model.SlotAvailability, error) {
	const q = `SELECT es.id, es.start_date, es.end_date, es.physical_capacity,
	                  COALESCE((SELECT SUM(b.capacity) FROM exam_batches b WHERE b.slot_id = es.id), 0) AS total_seats,
	                  (SELECT COUNT(*) FROM student_schedule ss WHERE ss.slot_id = es.id) AS scheduled
	           FROM course_slot cs
	           JOIN exam_slot es ON es.id = cs.slot_id
	           WHERE cs.course_id = ?
	           HAVING total_seats - scheduled > 0
	           ORDER BY es.start_date, es.id`
	rows, err := s.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SlotAvailability{}
	for rows.Next() {
		var a model.SlotAvailability
		if err := rows.Scan(&a.SlotID, &a.StartDate, &a.EndDate, &a.PhysicalCapacity, &a.TotalSeats, &a.Scheduled); err != nil {
			return nil, err
		}
		a.AvailableSeats = a.TotalSeats - a.Scheduled
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestSlotForCourse locks and returns the most recently created slot
// linked to the course, or ErrNotFound when the course has none.
func (r *txRepo) LatestSlotForCourse(ctx context.Context, courseID uint64) (*model.ExamSlot, error) {
	const q = `SELECT ` + slotColumns + `
	           FROM exam_slot es
	           JOIN course_slot cs ON cs.slot_id = es.id
	           WHERE cs.course_id = ?
	           ORDER BY es.id DESC
	           LIMIT 1
	           FOR UPDATE`
	return scanSlot(r.tx.QueryRowContext(ctx, q, courseID))
}

// ShareLockSlot takes a shared lock on the slot row.  Allocations hold it
// while they insert so that regeneration, which locks the slot exclusively,
// can never run between a capacity check and the insert.
func (r *txRepo) ShareLockSlot(ctx context.Context, slotID uint64) error {
	var id uint64
	err := r.tx.QueryRowContext(ctx, `SELECT id FROM exam_slot WHERE id = ? LOCK IN SHARE MODE`, slotID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CountBookingsForSlot counts bookings referencing the slot with a locking
// read, so the result reflects every committed booking.
func (r *txRepo) CountBookingsForSlot(ctx context.Context, slotID uint64) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_schedule WHERE slot_id = ? LOCK IN SHARE MODE`, slotID).Scan(&n)
	return n, err
}

// CreateSlot inserts s and fills in its id.
func (r *txRepo) CreateSlot(ctx context.Context, s *model.ExamSlot) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO exam_slot (start_date, end_date, physical_capacity, online_capacity) VALUES (?, ?, ?, ?)`,
		s.StartDate.UTC(), s.EndDate.UTC(), s.PhysicalCapacity, s.OnlineCapacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateSlot rewrites the window and capacities of an existing slot.
func (r *txRepo) UpdateSlot(ctx context.Context, s *model.ExamSlot) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE exam_slot SET start_date = ?, end_date = ?, physical_capacity = ?, online_capacity = ? WHERE id = ?`,
		s.StartDate.UTC(), s.EndDate.UTC(), s.PhysicalCapacity, s.OnlineCapacity, s.ID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows when nothing changed, so only a
	// missing row is an error here.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var id uint64
		if err := r.tx.QueryRowContext(ctx, `SELECT id FROM exam_slot WHERE id = ?`, s.ID).Scan(&id); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
	}
	return nil
}

// LinkSlotToCourse records that the slot serves the course.
func (r *txRepo) LinkSlotToCourse(ctx context.Context, courseID, slotID uint64) error {
	_, err := r.tx.ExecContext(ctx, `INSERT INTO course_slot (course_id, slot_id) VALUES (?, ?)`, courseID, slotID)
	return err
}

// SlotLinkedToCourse reports whether the slot serves the course.
func (r *txRepo) SlotLinkedToCourse(ctx context.Context, courseID, slotID uint64) (bool, error) {
	var n int
	err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_slot WHERE course_id = ? AND slot_id = ?`, courseID, slotID).Scan(&n)
	return n > 0, err
}
