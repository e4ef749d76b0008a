package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

const requestColumns = `id, student_id, course_id, reason, status, admin_reason, payment_ref,
	old_slot_id, new_slot_id, new_batch_id, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*model.RescheduleRequest, error) {
	var (
		r                      model.RescheduleRequest
		status                 string
		reason, admin, payment sql.NullString
		oldSlot, newSlot       sql.NullInt64
		newBatch               sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.StudentID, &r.CourseID, &reason, &status, &admin, &payment,
		&oldSlot, &newSlot, &newBatch, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Status = model.RescheduleStatus(status)
	r.Reason = nullString(reason)
	r.AdminReason = nullString(admin)
	r.PaymentRef = nullString(payment)
	r.OldSlotID = nullID(oldSlot)
	r.NewSlotID = nullID(newSlot)
	r.NewBatchID = nullID(newBatch)
	return &r, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

// ListRescheduleRequests returns requests newest first, optionally
// filtered by status.  An empty status returns every request.
func (s *MySQLStore) ListRescheduleRequests(ctx context.Context, status model.RescheduleStatus) ([]model.RescheduleRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM reschedule_requests`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RescheduleRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetRescheduleRequest returns a request by id or ErrNotFound.
func (s *MySQLStore) GetRescheduleRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error) {
	return scanRequest(s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM reschedule_requests WHERE id = ?`, id))
}

// FindActiveRequest locks the student's pending or approved request for
// the course, or returns ErrNotFound.
func (r *txRepo) FindActiveRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error) {
	return scanRequest(r.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM reschedule_requests
		 WHERE student_id = ? AND course_id = ? AND status IN ('pending', 'approved')
		 ORDER BY id DESC LIMIT 1 FOR UPDATE`,
		studentID, courseID))
}

// FindExecutableRequest locks the newest approved or paid request for the
// student and course, or returns ErrNotFound.
func (r *txRepo) FindExecutableRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error) {
	return scanRequest(r.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM reschedule_requests
		 WHERE student_id = ? AND course_id = ? AND status IN ('approved', 'paid')
		 ORDER BY id DESC LIMIT 1 FOR UPDATE`,
		studentID, courseID))
}

// LockRequest reads a request FOR UPDATE.
func (r *txRepo) LockRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error) {
	return scanRequest(r.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM reschedule_requests WHERE id = ? FOR UPDATE`, id))
}

// CreateRequest inserts req and reloads it so timestamps are populated.
func (r *txRepo) CreateRequest(ctx context.Context, req *model.RescheduleRequest) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO reschedule_requests (student_id, course_id, reason, status) VALUES (?, ?, ?, ?)`,
		req.StudentID, req.CourseID, req.Reason, string(req.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanRequest(r.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM reschedule_requests WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*req = *created
	return nil
}

// UpdateRequest persists the mutable fields of req.
func (r *txRepo) UpdateRequest(ctx context.Context, req *model.RescheduleRequest) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE reschedule_requests
		 SET status = ?, admin_reason = ?, payment_ref = ?, old_slot_id = ?, new_slot_id = ?, new_batch_id = ?
		 WHERE id = ?`,
		string(req.Status), req.AdminReason, req.PaymentRef, req.OldSlotID, req.NewSlotID, req.NewBatchID, req.ID)
	return err
}
