package service

import (
	"time"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

// BatchPlan describes how an exam window is cut into batches.  Break hours
// are wall-clock hours in Location and apply to every calendar day the
// window touches.  A BreakStartHour equal to BreakEndHour disables the
// break.
type BatchPlan struct {
	Start          time.Time
	End            time.Time
	Capacity       int
	Duration       time.Duration
	Gap            time.Duration
	BreakStartHour int
	BreakEndHour   int
	Location       *time.Location
	MaxBatches     int
}

func (p BatchPlan) validate() error {
	switch {
	case !p.Start.Before(p.End):
		return invalid("startDate must be before endDate")
	case p.Capacity <= 0:
		return invalid("physicalCapacity must be greater than zero")
	case p.Duration <= 0:
		return invalid("batchDurationMinutes must be greater than zero")
	case p.Gap < 0:
		return invalid("batchGapMinutes must not be negative")
	case p.BreakStartHour < 0 || p.BreakEndHour > 24 || p.BreakStartHour > p.BreakEndHour:
		return invalid("break hours must satisfy 0 <= breakStartHour <= breakEndHour <= 24")
	case p.Duration+time.Duration(p.BreakEndHour-p.BreakStartHour)*time.Hour > 24*time.Hour:
		return invalid("batch duration plus break must fit in a day")
	}
	return nil
}

// PlanBatches walks the window from Start, emitting batches of Duration
// separated by Gap.  A batch that would overlap the daily break is moved
// to start when the break ends.  A batch is only emitted when it ends at
// or before End; the remainder of the window is discarded.  Batch numbers
// start at 1 and every batch gets Capacity seats.  Returned batches have
// no SlotID and UTC times.
func PlanBatches(p BatchPlan) ([]model.ExamBatch, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	maxBatches := p.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 500
	}

	var batches []model.ExamBatch
	cur := p.Start.In(loc)
	for {
		cur = p.skipBreak(cur, loc)
		end := cur.Add(p.Duration)
		if end.After(p.End) {
			break
		}
		if len(batches) == maxBatches {
			return nil, invalid("exam window produces more than %d batches", maxBatches)
		}
		batches = append(batches, model.ExamBatch{
			BatchNumber: len(batches) + 1,
			StartTime:   cur.UTC(),
			EndTime:     end.UTC(),
			Capacity:    p.Capacity,
		})
		cur = end.Add(p.Gap)
	}
	if len(batches) == 0 {
		return nil, invalid("exam window is too short for a single batch")
	}
	return batches, nil
}

// skipBreak returns the earliest start at or after cur whose batch does
// not overlap the break on the day it starts or the day it ends.
func (p BatchPlan) skipBreak(cur time.Time, loc *time.Location) time.Time {
	if p.BreakStartHour == p.BreakEndHour {
		return cur
	}
	// A batch spans at most two calendar days, so two moves settle it.
	for i := 0; i < 3; i++ {
		moved := false
		for _, day := range []time.Time{cur, cur.Add(p.Duration)} {
			y, m, d := day.In(loc).Date()
			bs := time.Date(y, m, d, p.BreakStartHour, 0, 0, 0, loc)
			be := time.Date(y, m, d, p.BreakEndHour, 0, 0, 0, loc)
			if cur.Before(be) && cur.Add(p.Duration).After(bs) {
				cur = be
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}
	return cur
}
