package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

const bookingColumns = `id, student_id, course_id, slot_id, batch_id, seat_number, mode, rescheduled, created_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.StudentBooking, error) {
	var (
		b     model.StudentBooking
		batch sql.NullInt64
		seat  sql.NullInt32
		mode  string
	)
	err := row.Scan(&b.ID, &b.StudentID, &b.CourseID, &b.SlotID, &batch, &seat, &mode, &b.Rescheduled, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Mode = model.Mode(mode)
	if batch.Valid {
		id := uint64(batch.Int64)
		b.BatchID = &id
	}
	if seat.Valid {
		n := int(seat.Int32)
		b.SeatNumber = &n
	}
	return &b, nil
}

// ListBookingsByStudent returns a student's timetable ordered by slot start.
func (s *MySQLStore) ListBookingsByStudent(ctx context.Context, studentID uint64) ([]model.BookingDetail, error) {
	const q = `SELECT ss.id, c.id, c.code, c.title,
	                  es.id, es.start_date, es.end_date,
	                  b.id, b.batch_number, b.start_time, b.end_time,
	                  ss.seat_number, ss.mode, ss.rescheduled, ss.created_at
	           FROM student_schedule ss
	           JOIN course c ON c.id = ss.course_id
	           JOIN exam_slot es ON es.id = ss.slot_id
	           LEFT JOIN exam_batches b ON b.id = ss.batch_id
	           WHERE ss.student_id = ?
	           ORDER BY es.start_date, b.start_time, ss.id`
	rows, err := s.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d          model.BookingDetail
			batchID    sql.NullInt64
			batchNum   sql.NullInt32
			batchStart sql.NullTime
			batchEnd   sql.NullTime
			seat       sql.NullInt32
			mode       string
		)
		if err := rows.Scan(&d.ID, &d.CourseID, &d.CourseCode, &d.CourseTitle,
			&d.SlotID, &d.SlotStart, &d.SlotEnd,
			&batchID, &batchNum, &batchStart, &batchEnd,
			&seat, &mode, &d.Rescheduled, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Mode = model.Mode(mode)
		if batchID.Valid {
			id := uint64(batchID.Int64)
			d.BatchID = &id
		}
		if batchNum.Valid {
			n := int(batchNum.Int32)
			d.BatchNumber = &n
		}
		if batchStart.Valid {
			t := batchStart.Time
			d.BatchStart = &t
		}
		if batchEnd.Valid {
			t := batchEnd.Time
			d.BatchEnd = &t
		}
		if seat.Valid {
			n := int(seat.Int32)
			d.SeatNumber = &n
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindBooking locks and returns the student's booking for the course, or
// ErrNotFound.
func (r *txRepo) FindBooking(ctx context.Context, studentID, courseID uint64) (*model.StudentBooking, error) {
	return scanBooking(r.tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM student_schedule WHERE student_id = ? AND course_id = ? FOR UPDATE`,
		studentID, courseID))
}

// CreateBooking inserts b and fills in its id.  The unique keys of
// student_schedule surface as ErrAlreadyBooked or ErrSeatTaken.
func (r *txRepo) CreateBooking(ctx context.Context, b *model.StudentBooking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO student_schedule (student_id, course_id, slot_id, batch_id, seat_number, mode, rescheduled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.StudentID, b.CourseID, b.SlotID, b.BatchID, b.SeatNumber, string(b.Mode), b.Rescheduled, b.CreatedAt.UTC())
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// MoveBooking points the booking at a new slot, batch and seat and marks
// it rescheduled.
func (r *txRepo) MoveBooking(ctx context.Context, bookingID, slotID, batchID uint64, seat int) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE student_schedule SET slot_id = ?, batch_id = ?, seat_number = ?, rescheduled = TRUE WHERE id = ?`,
		slotID, batchID, seat, bookingID)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
