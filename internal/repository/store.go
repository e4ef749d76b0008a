package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

// Store is the read side of the scheduler plus the entry point for
// transactional work.  Reads outside WithinTx are plain consistent reads
// and may be stale by the time the caller acts on them.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	ListCourses(ctx context.Context) ([]model.Course, error)
	GetCourse(ctx context.Context, id uint64) (*model.Course, error)
	GetSlot(ctx context.Context, id uint64) (*model.ExamSlot, error)
	AvailableBatchesForSlot(ctx context.Context, slotID uint64) ([]model.BatchAvailability, error)
	AvailableSlotsForCourse(ctx context.Context, courseID uint64) ([]model.SlotAvailability, error)
	ListBookingsByStudent(ctx context.Context, studentID uint64) ([]model.BookingDetail, error)
	ListRescheduleRequests(ctx context.Context, status model.RescheduleStatus) ([]model.RescheduleRequest, error)
	GetRescheduleRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error)
}

// Tx is the write side.  Every method runs inside the transaction opened by
// WithinTx.  Lock* and Find* methods take row locks that are held until the
// transaction ends.  Callers lock in the order booking, course, request,
// slot, batch.
type Tx interface {
	CreateCourse(ctx context.Context, c *model.Course) error
	LockCourse(ctx context.Context, id uint64) (*model.Course, error)

	LatestSlotForCourse(ctx context.Context, courseID uint64) (*model.ExamSlot, error)
	ShareLockSlot(ctx context.Context, slotID uint64) error
	CountBookingsForSlot(ctx context.Context, slotID uint64) (int, error)
	CreateSlot(ctx context.Context, s *model.ExamSlot) error
	UpdateSlot(ctx context.Context, s *model.ExamSlot) error
	LinkSlotToCourse(ctx context.Context, courseID, slotID uint64) error
	SlotLinkedToCourse(ctx context.Context, courseID, slotID uint64) (bool, error)

	GetBatch(ctx context.Context, id uint64) (*model.ExamBatch, error)
	LockBatch(ctx context.Context, id uint64) (*model.ExamBatch, error)
	DeleteBatchesForSlot(ctx context.Context, slotID uint64) error
	CreateBatches(ctx context.Context, batches []model.ExamBatch) error
	OccupiedSeats(ctx context.Context, batchID uint64) ([]int, error)

	FindBooking(ctx context.Context, studentID, courseID uint64) (*model.StudentBooking, error)
	CreateBooking(ctx context.Context, b *model.StudentBooking) error
	MoveBooking(ctx context.Context, bookingID, slotID, batchID uint64, seat int) error

	FindActiveRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error)
	FindExecutableRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error)
	LockRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error)
	CreateRequest(ctx context.Context, r *model.RescheduleRequest) error
	UpdateRequest(ctx context.Context, r *model.RescheduleRequest) error
}

// MySQLStore implements Store on top of database/sql and InnoDB.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithinTx runs fn in a READ COMMITTED transaction.  The transaction is
// committed when fn returns nil and rolled back on error or panic.
// Locking reads see the latest committed rows regardless of isolation, and
// row locks rather than snapshots guard every check-then-write.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = sqlTx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()
	if err := fn(&txRepo{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// txRepo implements Tx over a single *sql.Tx.
type txRepo struct {
	tx *sql.Tx
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = (*txRepo)(nil)
)
