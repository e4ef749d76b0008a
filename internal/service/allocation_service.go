package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/queue"
	"github.com/iliyamo/exam-scheduler/internal/repository"
)

// Selection is the seat a student was given.
type Selection struct {
	BookingID     uint64     `json:"bookingId"`
	SeatNumber    int        `json:"seatNumber"`
	BatchID       uint64     `json:"batchId"`
	SlotID        uint64     `json:"slotId"`
	Mode          model.Mode `json:"mode"`
	ScheduledTime time.Time  `json:"scheduledTime"`
}

// AllocationService assigns students to batches.
type AllocationService struct {
	store  repository.Store
	events queue.Publisher
	logger *zap.Logger
}

// NewAllocationService wires an AllocationService.  events may be nil.
func NewAllocationService(store repository.Store, events queue.Publisher, logger *zap.Logger) *AllocationService {
	return &AllocationService{store: store, events: events, logger: logger}
}

// ParseMode maps user input onto a Mode.  Empty input means physical.
func ParseMode(s string) (model.Mode, error) {
	if s == "" {
		return model.ModePhysical, nil
	}
	m := model.Mode(s)
	if !m.Valid() {
		return "", invalid("mode must be %q or %q", model.ModePhysical, model.ModeOnline)
	}
	return m, nil
}

// SelectBatch books a seat for the student in the batch.  The duplicate
// check, capacity check, seat assignment and insert happen under the
// booking, slot and batch locks of a single transaction.
func (s *AllocationService) SelectBatch(ctx context.Context, studentID, courseID, batchID uint64, mode model.Mode) (*Selection, error) {
	if mode == "" {
		mode = model.ModePhysical
	}
	if !mode.Valid() {
		return nil, invalid("mode must be %q or %q", model.ModePhysical, model.ModeOnline)
	}

	var sel *Selection
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.FindBooking(ctx, studentID, courseID); err == nil {
			return conflict(msgAlreadyScheduled)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find booking: %w", err)
		}

		batch, seat, err := claimSeat(ctx, tx, courseID, batchID)
		if err != nil {
			return err
		}
		booking := &model.StudentBooking{
			StudentID:  studentID,
			CourseID:   courseID,
			SlotID:     batch.SlotID,
			BatchID:    &batch.ID,
			SeatNumber: &seat,
			Mode:       mode,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			switch {
			case errors.Is(err, repository.ErrAlreadyBooked):
				return conflict(msgAlreadyScheduled)
			case errors.Is(err, repository.ErrSeatTaken):
				return conflict("seat %d in batch %d was taken, please retry", seat, batch.ID)
			}
			return fmt.Errorf("create booking: %w", err)
		}
		sel = &Selection{
			BookingID:     booking.ID,
			SeatNumber:    seat,
			BatchID:       batch.ID,
			SlotID:        batch.SlotID,
			Mode:          mode,
			ScheduledTime: batch.StartTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seat assigned",
		zap.Uint64("student_id", studentID),
		zap.Uint64("course_id", courseID),
		zap.Uint64("batch_id", sel.BatchID),
		zap.Int("seat", sel.SeatNumber))
	ev := queue.NewEvent(queue.EventBatchSelected)
	ev.StudentID, ev.CourseID, ev.SlotID, ev.BatchID, ev.SeatNumber = studentID, courseID, sel.SlotID, sel.BatchID, sel.SeatNumber
	publish(ctx, s.events, s.logger, ev)
	return sel, nil
}

// claimSeat locks the batch for courseID and picks the seat a new
// occupant gets.  The slot is share-locked before the batch so that slot
// regeneration cannot interleave.
func claimSeat(ctx context.Context, tx repository.Tx, courseID, batchID uint64) (*model.ExamBatch, int, error) {
	probe, err := tx.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, notFound(msgBatchNotFound)
		}
		return nil, 0, fmt.Errorf("get batch: %w", err)
	}
	if err := tx.ShareLockSlot(ctx, probe.SlotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, notFound(msgBatchNotFound)
		}
		return nil, 0, fmt.Errorf("lock slot: %w", err)
	}
	// The batch may have been regenerated away while we waited on the slot.
	batch, err := tx.LockBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, notFound(msgBatchNotFound)
		}
		return nil, 0, fmt.Errorf("lock batch: %w", err)
	}
	linked, err := tx.SlotLinkedToCourse(ctx, courseID, batch.SlotID)
	if err != nil {
		return nil, 0, fmt.Errorf("check course slot: %w", err)
	}
	if !linked {
		return nil, 0, invalid(msgWrongCourse)
	}
	occupied, err := tx.OccupiedSeats(ctx, batch.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("list occupied seats: %w", err)
	}
	seat, ok := lowestFreeSeat(occupied, batch.Capacity)
	if !ok {
		return nil, 0, conflict(msgBatchFull)
	}
	return batch, seat, nil
}

// lowestFreeSeat returns the smallest seat in 1..capacity not present in
// occupied, which must be sorted ascending.  With no gaps this is
// len(occupied)+1.
func lowestFreeSeat(occupied []int, capacity int) (int, bool) {
	if len(occupied) >= capacity {
		return 0, false
	}
	next := 1
	for _, n := range occupied {
		if n > next {
			break
		}
		if n == next {
			next++
		}
	}
	return next, next <= capacity
}

// AvailableBatchesForSlot lists the slot's batches that still have free
// seats, earliest first.
func (s *AllocationService) AvailableBatchesForSlot(ctx context.Context, slotID uint64) ([]model.BatchAvailability, error) {
	if _, err := s.store.GetSlot(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("slot not found")
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	out, err := s.store.AvailableBatchesForSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return out, nil
}

// AvailableSlotsForCourse lists the course's slots with free seats.
func (s *AllocationService) AvailableSlotsForCourse(ctx context.Context, courseID uint64) ([]model.SlotAvailability, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgCourseNotFound)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	out, err := s.store.AvailableSlotsForCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return out, nil
}

// StudentSchedules returns the student's timetable.
func (s *AllocationService) StudentSchedules(ctx context.Context, studentID uint64) ([]model.BookingDetail, error) {
	out, err := s.store.ListBookingsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}
