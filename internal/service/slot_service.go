package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/config"
	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/queue"
	"github.com/iliyamo/exam-scheduler/internal/repository"
)

// Slot actions reported by CreateOrUpdateExamSlot.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// SlotRequest is the admin input for generating a slot.  Nil optional
// fields fall back to the configured scheduling defaults.
type SlotRequest struct {
	CourseID         uint64
	StartDate        time.Time
	EndDate          time.Time
	PhysicalCapacity int
	OnlineCapacity   int
	DurationMinutes  *int
	GapMinutes       *int
	BreakStartHour   *int
	BreakEndHour     *int
}

// SlotResult reports the outcome of CreateOrUpdateExamSlot.
type SlotResult struct {
	SlotID     uint64 `json:"slotId"`
	BatchCount int    `json:"batchCount"`
	Action     string `json:"action"`
}

// SlotService generates exam slots and their batches.
type SlotService struct {
	store  repository.Store
	cfg    config.SchedulingConfig
	events queue.Publisher
	logger *zap.Logger
}

// NewSlotService wires a SlotService.  events may be nil.
func NewSlotService(store repository.Store, cfg config.SchedulingConfig, events queue.Publisher, logger *zap.Logger) *SlotService {
	return &SlotService{store: store, cfg: cfg, events: events, logger: logger}
}

func (s *SlotService) plan(req SlotRequest) BatchPlan {
	pick := func(v *int, def int) int {
		if v != nil {
			return *v
		}
		return def
	}
	return BatchPlan{
		Start:          req.StartDate,
		End:            req.EndDate,
		Capacity:       req.PhysicalCapacity,
		Duration:       time.Duration(pick(req.DurationMinutes, s.cfg.BatchDurationMinutes)) * time.Minute,
		Gap:            time.Duration(pick(req.GapMinutes, s.cfg.BatchGapMinutes)) * time.Minute,
		BreakStartHour: pick(req.BreakStartHour, s.cfg.BreakStartHour),
		BreakEndHour:   pick(req.BreakEndHour, s.cfg.BreakEndHour),
		Location:       s.cfg.Location,
		MaxBatches:     s.cfg.MaxBatchesPerSlot,
	}
}

// CreateOrUpdateExamSlot creates the course's slot, or rewrites its most
// recent slot in place, and regenerates all of the slot's batches in one
// transaction.  A slot with any booking against it is never touched.
func (s *SlotService) CreateOrUpdateExamSlot(ctx context.Context, req SlotRequest) (*SlotResult, error) {
	if req.OnlineCapacity < 0 {
		return nil, invalid("onlineCapacity must not be negative")
	}
	batches, err := PlanBatches(s.plan(req))
	if err != nil {
		return nil, err
	}

	res := &SlotResult{BatchCount: len(batches)}
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockCourse(ctx, req.CourseID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(msgCourseNotFound)
			}
			return fmt.Errorf("lock course: %w", err)
		}

		slot := &model.ExamSlot{
			StartDate:        req.StartDate.UTC(),
			EndDate:          req.EndDate.UTC(),
			PhysicalCapacity: req.PhysicalCapacity,
			OnlineCapacity:   req.OnlineCapacity,
		}
		existing, err := tx.LatestSlotForCourse(ctx, req.CourseID)
		switch {
		case err == nil:
			n, err := tx.CountBookingsForSlot(ctx, existing.ID)
			if err != nil {
				return fmt.Errorf("count slot bookings: %w", err)
			}
			if n > 0 {
				return conflict("exam slot %d has %d scheduled student(s) and cannot be regenerated", existing.ID, n)
			}
			if err := tx.DeleteBatchesForSlot(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete batches: %w", err)
			}
			slot.ID = existing.ID
			if err := tx.UpdateSlot(ctx, slot); err != nil {
				return fmt.Errorf("update slot: %w", err)
			}
			res.Action = ActionUpdated
		case errors.Is(err, repository.ErrNotFound):
			if err := tx.CreateSlot(ctx, slot); err != nil {
				return fmt.Errorf("create slot: %w", err)
			}
			if err := tx.LinkSlotToCourse(ctx, req.CourseID, slot.ID); err != nil {
				return fmt.Errorf("link slot: %w", err)
			}
			res.Action = ActionCreated
		default:
			return fmt.Errorf("find course slot: %w", err)
		}

		for i := range batches {
			batches[i].SlotID = slot.ID
		}
		if err := tx.CreateBatches(ctx, batches); err != nil {
			return fmt.Errorf("create batches: %w", err)
		}
		res.SlotID = slot.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam slot generated",
		zap.Uint64("course_id", req.CourseID),
		zap.Uint64("slot_id", res.SlotID),
		zap.Int("batches", res.BatchCount),
		zap.String("action", res.Action))
	ev := queue.NewEvent(queue.EventSlotGenerated)
	ev.CourseID, ev.SlotID, ev.BatchCount, ev.Action = req.CourseID, res.SlotID, res.BatchCount, res.Action
	publish(ctx, s.events, s.logger, ev)
	return res, nil
}
