package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

const batchColumns = `id, slot_id, batch_number, start_time, end_time, capacity`

func scanBatch(row interface{ Scan(...any) error }) (*model.ExamBatch, error) {
	var b model.ExamBatch
	if err := row.Scan(&b.ID, &b.SlotID, &b.BatchNumber, &b.StartTime, &b.EndTime, &b.Capacity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// AvailableBatchesForSlot lists a slot's batches that still have at least
// one free seat, ordered by start time.  "Free" uses the same
// scheduled < capacity rule as the allocator.
func (s *MySQLStore) AvailableBatchesForSlot(ctx context.Context, slotID uint64) ([]model.BatchAvailability, error) {
	const q = `SELECT b.id, b.batch_number, b.start_time, b.end_time, b.capacity, COUNT(ss.id) AS scheduled
	           FROM exam_batches b
	           LEFT JOIN student_schedule ss ON ss.batch_id = b.id
	           WHERE b.slot_id = ?
	           GROUP BY b.id, b.batch_number, b.start_time, b.end_time, b.capacity
	           HAVING b.capacity - scheduled > 0
	           ORDER BY b.start_time, b.batch_number`
	rows, err := s.db.QueryContext(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BatchAvailability{}
	for rows.Next() {
		var a model.BatchAvailability
		if err := rows.Scan(&a.BatchID, &a.BatchNumber, &a.StartTime, &a.EndTime, &a.Capacity, &a.Scheduled); err != nil {
			return nil, err
		}
		a.AvailableSeats = a.Capacity - a.Scheduled
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetBatch reads a batch without locking it.
func (r *txRepo) GetBatch(ctx context.Context, id uint64) (*model.ExamBatch, error) {
	return scanBatch(r.tx.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM exam_batches WHERE id = ?`, id))
}

// LockBatch reads the batch FOR UPDATE.  Seat assignment within a batch is
// serialized on this lock.
func (r *txRepo) LockBatch(ctx context.Context, id uint64) (*model.ExamBatch, error) {
	return scanBatch(r.tx.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM exam_batches WHERE id = ? FOR UPDATE`, id))
}

// DeleteBatchesForSlot removes every batch of the slot.
func (r *txRepo) DeleteBatchesForSlot(ctx context.Context, slotID uint64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM exam_batches WHERE slot_id = ?`, slotID)
	return err
}

// CreateBatches inserts all batches in a single statement.  An empty slice
// is a no-op.
func (r *txRepo) CreateBatches(ctx context.Context, batches []model.ExamBatch) error {
	if len(batches) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO exam_batches (slot_id, batch_number, start_time, end_time, capacity) VALUES `)
	args := make([]any, 0, len(batches)*5)
	for i, b := range batches {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, b.SlotID, b.BatchNumber, b.StartTime.UTC(), b.EndTime.UTC(), b.Capacity)
	}
	_, err := r.tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// OccupiedSeats returns the seat numbers in use in the batch, ascending.
// The read is locking so it sees bookings committed after the transaction
// started.
func (r *txRepo) OccupiedSeats(ctx context.Context, batchID uint64) ([]int, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT seat_number FROM student_schedule WHERE batch_id = ? AND seat_number IS NOT NULL ORDER BY seat_number LOCK IN SHARE MODE`,
		batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}
