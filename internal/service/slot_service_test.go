package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/queue"
)

func workingDay() (time.Time, time.Time) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return start, start.Add(8 * time.Hour)
}

func TestCreateOrUpdateExamSlotCreatesThenUpdates(t *testing.T) {
	store := newFakeStore()
	courseID := store.addCourse("CSC201")
	pub := &recordingPublisher{}
	svc := NewSlotService(store, testSchedulingConfig(), pub, nopLogger())
	start, end := workingDay()
	req := SlotRequest{CourseID: courseID, StartDate: start, EndDate: end, PhysicalCapacity: 50}

	first, err := svc.CreateOrUpdateExamSlot(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.Action != ActionCreated || first.BatchCount != 5 {
		t.Fatalf("unexpected first result %+v", first)
	}
	before := stripIDs(store.slotBatches(first.SlotID))

	second, err := svc.CreateOrUpdateExamSlot(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.Action != ActionUpdated || second.SlotID != first.SlotID || second.BatchCount != 5 {
		t.Fatalf("unexpected second result %+v", second)
	}
	after := stripIDs(store.slotBatches(second.SlotID))
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("regenerated batches differ:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := pub.types(); !reflect.DeepEqual(got, []string{queue.EventSlotGenerated, queue.EventSlotGenerated}) {
		t.Fatalf("unexpected events %v", got)
	}
}

func stripIDs(batches []model.ExamBatch) []model.ExamBatch {
	out := make([]model.ExamBatch, len(batches))
	for i, b := range batches {
		b.ID = 0
		out[i] = b
	}
	return out
}

func TestCreateOrUpdateExamSlotRefusesWithBookings(t *testing.T) {
	store := newFakeStore()
	courseID := store.addCourse("CSC201")
	svc := NewSlotService(store, testSchedulingConfig(), nil, nopLogger())
	start, end := workingDay()

	res, err := svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{CourseID: courseID, StartDate: start, EndDate: end, PhysicalCapacity: 50})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	batches := store.slotBatches(res.SlotID)
	alloc := NewAllocationService(store, nil, nopLogger())
	if _, err := alloc.SelectBatch(context.Background(), 100, courseID, batches[0].ID, model.ModePhysical); err != nil {
		t.Fatalf("SelectBatch: %v", err)
	}

	_, err = svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{CourseID: courseID, StartDate: start, EndDate: end.Add(time.Hour), PhysicalCapacity: 10})
	if !wantKind(err, KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := store.slotBatches(res.SlotID); !reflect.DeepEqual(got, batches) {
		t.Fatalf("batches changed after refusal")
	}
	slot, _ := store.GetSlot(context.Background(), res.SlotID)
	if slot.PhysicalCapacity != 50 || !slot.EndDate.Equal(end) {
		t.Fatalf("slot changed after refusal: %+v", slot)
	}
}

func TestCreateOrUpdateExamSlotUnknownCourse(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, testSchedulingConfig(), nil, nopLogger())
	start, end := workingDay()

	_, err := svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{CourseID: 42, StartDate: start, EndDate: end, PhysicalCapacity: 50})
	if !wantKind(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateOrUpdateExamSlotRollsBackOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	courseID := store.addCourse("CSC201")
	store.failOn["CreateBatches"] = true
	svc := NewSlotService(store, testSchedulingConfig(), nil, nopLogger())
	start, end := workingDay()

	_, err := svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{CourseID: courseID, StartDate: start, EndDate: end, PhysicalCapacity: 50})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, ok := KindOf(err); ok {
		t.Fatalf("store failure must not be a domain error")
	}
	if len(store.state.slots) != 0 || len(store.state.links) != 0 {
		t.Fatalf("partial slot state left behind: %+v", store.state.slots)
	}
}

func TestCreateOrUpdateExamSlotOverrides(t *testing.T) {
	store := newFakeStore()
	courseID := store.addCourse("CSC201")
	svc := NewSlotService(store, testSchedulingConfig(), nil, nopLogger())
	start, end := workingDay()
	dur, gap, bs, be := 120, 0, 12, 12

	res, err := svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{
		CourseID: courseID, StartDate: start, EndDate: end, PhysicalCapacity: 30,
		DurationMinutes: &dur, GapMinutes: &gap, BreakStartHour: &bs, BreakEndHour: &be,
	})
	if err != nil {
		t.Fatalf("CreateOrUpdateExamSlot: %v", err)
	}
	if res.BatchCount != 4 {
		t.Fatalf("expected 4 two-hour batches, got %d", res.BatchCount)
	}
	for _, b := range store.slotBatches(res.SlotID) {
		if b.Capacity != 30 {
			t.Fatalf("batch %d capacity %d", b.BatchNumber, b.Capacity)
		}
	}
}

func TestCreateOrUpdateExamSlotPublishFailureIsIgnored(t *testing.T) {
	store := newFakeStore()
	courseID := store.addCourse("CSC201")
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewSlotService(store, testSchedulingConfig(), pub, nopLogger())
	start, end := workingDay()

	if _, err := svc.CreateOrUpdateExamSlot(context.Background(), SlotRequest{CourseID: courseID, StartDate: start, EndDate: end, PhysicalCapacity: 50}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}
