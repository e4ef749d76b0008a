package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/config"
	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/queue"
	"github.com/iliyamo/exam-scheduler/internal/repository"
)

// RescheduleService runs the request, decision, payment and execution
// steps that move an existing booking to another batch.
type RescheduleService struct {
	store  repository.Store
	cfg    config.SchedulingConfig
	events queue.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewRescheduleService wires a RescheduleService.  events may be nil.
func NewRescheduleService(store repository.Store, cfg config.SchedulingConfig, events queue.Publisher, logger *zap.Logger) *RescheduleService {
	return &RescheduleService{store: store, cfg: cfg, events: events, logger: logger, now: time.Now}
}

// ParseDecision accepts the spellings admins send for a decision.
func ParseDecision(s string) (model.RescheduleStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "accept", "accepted":
		return model.RescheduleApproved, nil
	case "reject", "rejected":
		return model.RescheduleRejected, nil
	}
	return "", invalid(`action must be "accept" or "reject"`)
}

// SubmitRequest opens a pending request for the student's booking.  A
// reason is required once the booking is older than the configured window.
func (s *RescheduleService) SubmitRequest(ctx context.Context, studentID, courseID uint64, reason string) (*model.RescheduleRequest, error) {
	reason = strings.TrimSpace(reason)
	var req *model.RescheduleRequest
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		booking, bookingErr := tx.FindBooking(ctx, studentID, courseID)
		if bookingErr != nil && !errors.Is(bookingErr, repository.ErrNotFound) {
			return fmt.Errorf("find booking: %w", bookingErr)
		}
		if _, err := tx.FindActiveRequest(ctx, studentID, courseID); err == nil {
			return conflict("a reschedule request already exists for this course")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active request: %w", err)
		}
		if bookingErr != nil {
			return notFound(msgNotScheduled)
		}
		if booking.Rescheduled {
			return precondition("booking has already been rescheduled")
		}
		if reason == "" && s.now().Sub(booking.CreatedAt) > s.cfg.RescheduleReasonAfter {
			return precondition("a reason is required more than %s after booking", humanDuration(s.cfg.RescheduleReasonAfter))
		}

		req = &model.RescheduleRequest{StudentID: studentID, CourseID: courseID, Status: model.ReschedulePending}
		if reason != "" {
			req.Reason = &reason
		}
		if err := tx.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule requested",
		zap.Uint64("request_id", req.ID),
		zap.Uint64("student_id", studentID),
		zap.Uint64("course_id", courseID))
	s.emit(ctx, queue.EventRescheduleRequested, req)
	return req, nil
}

// Decide approves or rejects a pending request.  The booking is not
// touched until the student executes the reschedule.
func (s *RescheduleService) Decide(ctx context.Context, requestID uint64, decision model.RescheduleStatus, adminReason string) (*model.RescheduleRequest, error) {
	if decision != model.RescheduleApproved && decision != model.RescheduleRejected {
		return nil, invalid(`action must be "accept" or "reject"`)
	}
	adminReason = strings.TrimSpace(adminReason)
	var req *model.RescheduleRequest
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if req, err = s.lockRequest(ctx, tx, requestID); err != nil {
			return err
		}
		if req.Status != model.ReschedulePending {
			return precondition("request is %s; only pending requests can be decided", req.Status)
		}
		req.Status = decision
		if adminReason != "" {
			req.AdminReason = &adminReason
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule decided", zap.Uint64("request_id", req.ID), zap.String("status", string(req.Status)))
	s.emit(ctx, queue.EventRescheduleDecided, req)
	return req, nil
}

// RecordPayment moves a rejected request owned by the student to paid,
// which unlocks one reschedule.
func (s *RescheduleService) RecordPayment(ctx context.Context, studentID, requestID uint64, paymentRef string) (*model.RescheduleRequest, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, invalid("paymentRef is required")
	}
	var req *model.RescheduleRequest
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if req, err = s.lockRequest(ctx, tx, requestID); err != nil {
			return err
		}
		if req.StudentID != studentID {
			return forbidden("reschedule request belongs to another student")
		}
		if req.Status != model.RescheduleRejected {
			return precondition("request is %s; payment is only accepted for rejected requests", req.Status)
		}
		req.Status = model.ReschedulePaid
		req.PaymentRef = &paymentRef
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule paid", zap.Uint64("request_id", req.ID), zap.Uint64("student_id", studentID))
	s.emit(ctx, queue.EventReschedulePaid, req)
	return req, nil
}

// ExecuteReschedule moves the student's booking into newBatchID and
// completes the newest approved or paid request in the same transaction.
func (s *RescheduleService) ExecuteReschedule(ctx context.Context, studentID, courseID, newBatchID uint64) (*model.StudentBooking, error) {
	var (
		booking *model.StudentBooking
		req     *model.RescheduleRequest
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if booking, err = findBookingForMove(ctx, tx, studentID, courseID); err != nil {
			return err
		}
		req, err = tx.FindExecutableRequest(ctx, studentID, courseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return precondition("no approved reschedule request found")
			}
			return fmt.Errorf("find executable request: %w", err)
		}
		oldSlot := booking.SlotID
		if err := moveBooking(ctx, tx, booking, courseID, newBatchID); err != nil {
			return err
		}
		req.Status = model.RescheduleCompleted
		req.OldSlotID = &oldSlot
		req.NewSlotID = &booking.SlotID
		req.NewBatchID = booking.BatchID
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule completed",
		zap.Uint64("request_id", req.ID),
		zap.Uint64("student_id", studentID),
		zap.Uint64("batch_id", newBatchID),
		zap.Int("seat", *booking.SeatNumber))
	ev := queue.NewEvent(queue.EventRescheduleCompleted)
	ev.RequestID, ev.StudentID, ev.CourseID = req.ID, studentID, courseID
	ev.SlotID, ev.BatchID, ev.SeatNumber = booking.SlotID, newBatchID, *booking.SeatNumber
	ev.Status = string(req.Status)
	publish(ctx, s.events, s.logger, ev)
	return booking, nil
}

// AdminMoveBooking moves a booking without a request.  It uses the same
// locked capacity check and seat assignment as ExecuteReschedule.
func (s *RescheduleService) AdminMoveBooking(ctx context.Context, studentID, courseID, newBatchID uint64) (*model.StudentBooking, error) {
	var booking *model.StudentBooking
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if booking, err = findBookingForMove(ctx, tx, studentID, courseID); err != nil {
			return err
		}
		return moveBooking(ctx, tx, booking, courseID, newBatchID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking moved by admin",
		zap.Uint64("student_id", studentID),
		zap.Uint64("course_id", courseID),
		zap.Uint64("batch_id", newBatchID),
		zap.Int("seat", *booking.SeatNumber))
	ev := queue.NewEvent(queue.EventRescheduleCompleted)
	ev.StudentID, ev.CourseID, ev.SlotID, ev.BatchID, ev.SeatNumber = studentID, courseID, booking.SlotID, newBatchID, *booking.SeatNumber
	ev.Action = "admin_move"
	publish(ctx, s.events, s.logger, ev)
	return booking, nil
}

// ListRequests returns requests newest first.  An empty status lists all.
func (s *RescheduleService) ListRequests(ctx context.Context, status string) ([]model.RescheduleRequest, error) {
	st := model.RescheduleStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	out, err := s.store.ListRescheduleRequests(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// GetRequest returns a single request.
func (s *RescheduleService) GetRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error) {
	req, err := s.store.GetRescheduleRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgRequestNotFound)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// GetStudentRequest returns a request owned by studentID.
func (s *RescheduleService) GetStudentRequest(ctx context.Context, studentID, id uint64) (*model.RescheduleRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.StudentID != studentID {
		return nil, forbidden("reschedule request belongs to another student")
	}
	return req, nil
}

func (s *RescheduleService) lockRequest(ctx context.Context, tx repository.Tx, id uint64) (*model.RescheduleRequest, error) {
	req, err := tx.LockRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgRequestNotFound)
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	return req, nil
}

func (s *RescheduleService) emit(ctx context.Context, eventType string, req *model.RescheduleRequest) {
	ev := queue.NewEvent(eventType)
	ev.RequestID, ev.StudentID, ev.CourseID, ev.Status = req.ID, req.StudentID, req.CourseID, string(req.Status)
	publish(ctx, s.events, s.logger, ev)
}

func findBookingForMove(ctx context.Context, tx repository.Tx, studentID, courseID uint64) (*model.StudentBooking, error) {
	booking, err := tx.FindBooking(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgNotScheduled)
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return booking, nil
}

// moveBooking claims a seat in newBatchID and points booking at it.  On
// success booking reflects the persisted row.
func moveBooking(ctx context.Context, tx repository.Tx, booking *model.StudentBooking, courseID, newBatchID uint64) error {
	if booking.BatchID != nil && *booking.BatchID == newBatchID {
		return invalid("booking is already in batch %d", newBatchID)
	}
	batch, seat, err := claimSeat(ctx, tx, courseID, newBatchID)
	if err != nil {
		return err
	}
	if err := tx.MoveBooking(ctx, booking.ID, batch.SlotID, batch.ID, seat); err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			return conflict("seat %d in batch %d was taken, please retry", seat, batch.ID)
		}
		return fmt.Errorf("move booking: %w", err)
	}
	batchID := batch.ID
	booking.SlotID = batch.SlotID
	booking.BatchID = &batchID
	booking.SeatNumber = &seat
	booking.Rescheduled = true
	return nil
}

// humanDuration renders whole hours as "6 hours" and anything else with
// time.Duration's format.
func humanDuration(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
