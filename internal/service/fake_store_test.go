package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/config"
	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/queue"
	"github.com/iliyamo/exam-scheduler/internal/repository"
)

var errStoreDown = errors.New("store down")

type memState struct {
	nextID   uint64
	courses  map[uint64]model.Course
	slots    map[uint64]model.ExamSlot
	links    map[[2]uint64]bool
	batches  map[uint64]model.ExamBatch
	bookings map[uint64]model.StudentBooking
	requests map[uint64]model.RescheduleRequest
}

func newMemState() memState {
	return memState{
		courses:  map[uint64]model.Course{},
		slots:    map[uint64]model.ExamSlot{},
		links:    map[[2]uint64]bool{},
		batches:  map[uint64]model.ExamBatch{},
		bookings: map[uint64]model.StudentBooking{},
		requests: map[uint64]model.RescheduleRequest{},
	}
}

// clone copies every map.  Values are replaced, never mutated through
// their pointer fields, so a shallow copy per entry is enough.
func (m memState) clone() memState {
	c := newMemState()
	c.nextID = m.nextID
	for k, v := range m.courses {
		c.courses[k] = v
	}
	for k, v := range m.slots {
		c.slots[k] = v
	}
	for k, v := range m.links {
		c.links[k] = v
	}
	for k, v := range m.batches {
		c.batches[k] = v
	}
	for k, v := range m.bookings {
		c.bookings[k] = v
	}
	for k, v := range m.requests {
		c.requests[k] = v
	}
	return c
}

func (m *memState) id() uint64 {
	m.nextID++
	return m.nextID
}

// fakeStore serializes transactions with a mutex and rolls back by
// restoring a snapshot, which is what the row locks of the MySQL store
// amount to for a single batch or course.
type fakeStore struct {
	mu     sync.Mutex
	state  memState
	failOn map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newMemState(), failOn: map[string]bool{}}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.state.clone()
	if err := fn(&fakeTx{f: f}); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) fail(op string) error {
	if f.failOn[op] {
		return errStoreDown
	}
	return nil
}

// seed helpers run outside any transaction.

func (f *fakeStore) addCourse(code string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.state.id()
	f.state.courses[id] = model.Course{ID: id, Code: code, Title: code + " title", Level: 100}
	return id
}

func (f *fakeStore) addSlotWithBatches(courseID uint64, start time.Time, capacities ...int) (uint64, []uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slotID := f.state.id()
	end := start.Add(time.Duration(len(capacities)) * 2 * time.Hour)
	f.state.slots[slotID] = model.ExamSlot{ID: slotID, StartDate: start, EndDate: end, PhysicalCapacity: capacities[0]}
	f.state.links[[2]uint64{courseID, slotID}] = true
	ids := make([]uint64, 0, len(capacities))
	for i, c := range capacities {
		id := f.state.id()
		bs := start.Add(time.Duration(i) * 2 * time.Hour)
		f.state.batches[id] = model.ExamBatch{ID: id, SlotID: slotID, BatchNumber: i + 1, StartTime: bs, EndTime: bs.Add(time.Hour), Capacity: c}
		ids = append(ids, id)
	}
	return slotID, ids
}

func (f *fakeStore) setBookingCreated(studentID, courseID uint64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range f.state.bookings {
		if b.StudentID == studentID && b.CourseID == courseID {
			b.CreatedAt = at
			f.state.bookings[id] = b
		}
	}
}

func (f *fakeStore) booking(studentID, courseID uint64) (model.StudentBooking, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.state.bookings {
		if b.StudentID == studentID && b.CourseID == courseID {
			return b, true
		}
	}
	return model.StudentBooking{}, false
}

func (f *fakeStore) slotBatches(slotID uint64) []model.ExamBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamBatch
	for _, b := range f.state.batches {
		if b.SlotID == slotID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchNumber < out[j].BatchNumber })
	return out
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.bookings)
}

func (f *fakeStore) ListCourses(ctx context.Context) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Course{}
	for _, c := range f.state.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeStore) GetCourse(ctx context.Context, id uint64) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.state.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetSlot(ctx context.Context, id uint64) (*model.ExamSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.state.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) AvailableBatchesForSlot(ctx context.Context, slotID uint64) ([]model.BatchAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.BatchAvailability{}
	for _, b := range f.state.batches {
		if b.SlotID != slotID {
			continue
		}
		n := 0
		for _, bk := range f.state.bookings {
			if bk.BatchID != nil && *bk.BatchID == b.ID {
				n++
			}
		}
		if b.Capacity-n > 0 {
			out = append(out, model.BatchAvailability{BatchID: b.ID, BatchNumber: b.BatchNumber, StartTime: b.StartTime,
				EndTime: b.EndTime, Capacity: b.Capacity, Scheduled: n, AvailableSeats: b.Capacity - n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) AvailableSlotsForCourse(ctx context.Context, courseID uint64) ([]model.SlotAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SlotAvailability{}
	for key := range f.state.links {
		if key[0] != courseID {
			continue
		}
		s := f.state.slots[key[1]]
		total, n := 0, 0
		for _, b := range f.state.batches {
			if b.SlotID == s.ID {
				total += b.Capacity
			}
		}
		for _, bk := range f.state.bookings {
			if bk.SlotID == s.ID {
				n++
			}
		}
		if total-n > 0 {
			out = append(out, model.SlotAvailability{SlotID: s.ID, StartDate: s.StartDate, EndDate: s.EndDate,
				PhysicalCapacity: s.PhysicalCapacity, TotalSeats: total, Scheduled: n, AvailableSeats: total - n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) ListBookingsByStudent(ctx context.Context, studentID uint64) ([]model.BookingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range f.state.bookings {
		if b.StudentID != studentID {
			continue
		}
		c, s := f.state.courses[b.CourseID], f.state.slots[b.SlotID]
		out = append(out, model.BookingDetail{ID: b.ID, CourseID: c.ID, CourseCode: c.Code, CourseTitle: c.Title,
			SlotID: s.ID, SlotStart: s.StartDate, SlotEnd: s.EndDate, BatchID: b.BatchID, SeatNumber: b.SeatNumber,
			Mode: b.Mode, Rescheduled: b.Rescheduled, CreatedAt: b.CreatedAt})
	}
	return out, nil
}

func (f *fakeStore) ListRescheduleRequests(ctx context.Context, status model.RescheduleStatus) ([]model.RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RescheduleRequest{}
	for _, r := range f.state.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) GetRescheduleRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.state.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// fakeTx runs with fakeStore.mu held.
type fakeTx struct {
	f *fakeStore
}

func (t *fakeTx) st() *memState { return &t.f.state }

func (t *fakeTx) CreateCourse(ctx context.Context, c *model.Course) error {
	if err := t.f.fail("CreateCourse"); err != nil {
		return err
	}
	for _, e := range t.st().courses {
		if e.Code == c.Code {
			return repository.ErrDuplicateCourse
		}
	}
	c.ID = t.st().id()
	c.CreatedAt = time.Now().UTC()
	t.st().courses[c.ID] = *c
	return nil
}

func (t *fakeTx) LockCourse(ctx context.Context, id uint64) (*model.Course, error) {
	c, ok := t.st().courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (t *fakeTx) LatestSlotForCourse(ctx context.Context, courseID uint64) (*model.ExamSlot, error) {
	var latest *model.ExamSlot
	for key := range t.st().links {
		if key[0] != courseID {
			continue
		}
		s := t.st().slots[key[1]]
		if latest == nil || s.ID > latest.ID {
			latest = &s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (t *fakeTx) ShareLockSlot(ctx context.Context, slotID uint64) error {
	if _, ok := t.st().slots[slotID]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (t *fakeTx) CountBookingsForSlot(ctx context.Context, slotID uint64) (int, error) {
	n := 0
	for _, b := range t.st().bookings {
		if b.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) CreateSlot(ctx context.Context, s *model.ExamSlot) error {
	s.ID = t.st().id()
	t.st().slots[s.ID] = *s
	return nil
}

func (t *fakeTx) UpdateSlot(ctx context.Context, s *model.ExamSlot) error {
	if _, ok := t.st().slots[s.ID]; !ok {
		return repository.ErrNotFound
	}
	t.st().slots[s.ID] = *s
	return nil
}

func (t *fakeTx) LinkSlotToCourse(ctx context.Context, courseID, slotID uint64) error {
	t.st().links[[2]uint64{courseID, slotID}] = true
	return nil
}

func (t *fakeTx) SlotLinkedToCourse(ctx context.Context, courseID, slotID uint64) (bool, error) {
	return t.st().links[[2]uint64{courseID, slotID}], nil
}

func (t *fakeTx) GetBatch(ctx context.Context, id uint64) (*model.ExamBatch, error) {
	b, ok := t.st().batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (t *fakeTx) LockBatch(ctx context.Context, id uint64) (*model.ExamBatch, error) {
	return t.GetBatch(ctx, id)
}

func (t *fakeTx) DeleteBatchesForSlot(ctx context.Context, slotID uint64) error {
	for id, b := range t.st().batches {
		if b.SlotID == slotID {
			delete(t.st().batches, id)
		}
	}
	return nil
}

func (t *fakeTx) CreateBatches(ctx context.Context, batches []model.ExamBatch) error {
	if err := t.f.fail("CreateBatches"); err != nil {
		return err
	}
	for _, b := range batches {
		b.ID = t.st().id()
		t.st().batches[b.ID] = b
	}
	return nil
}

func (t *fakeTx) OccupiedSeats(ctx context.Context, batchID uint64) ([]int, error) {
	seats := []int{}
	for _, b := range t.st().bookings {
		if b.BatchID != nil && *b.BatchID == batchID && b.SeatNumber != nil {
			seats = append(seats, *b.SeatNumber)
		}
	}
	sort.Ints(seats)
	return seats, nil
}

func (t *fakeTx) FindBooking(ctx context.Context, studentID, courseID uint64) (*model.StudentBooking, error) {
	for _, b := range t.st().bookings {
		if b.StudentID == studentID && b.CourseID == courseID {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *fakeTx) seatTaken(batchID uint64, seat int, except uint64) bool {
	for _, b := range t.st().bookings {
		if b.ID != except && b.BatchID != nil && *b.BatchID == batchID && b.SeatNumber != nil && *b.SeatNumber == seat {
			return true
		}
	}
	return false
}

func (t *fakeTx) CreateBooking(ctx context.Context, b *model.StudentBooking) error {
	if err := t.f.fail("CreateBooking"); err != nil {
		return err
	}
	if _, err := t.FindBooking(ctx, b.StudentID, b.CourseID); err == nil {
		return repository.ErrAlreadyBooked
	}
	if b.BatchID != nil && b.SeatNumber != nil && t.seatTaken(*b.BatchID, *b.SeatNumber, 0) {
		return repository.ErrSeatTaken
	}
	b.ID = t.st().id()
	stored := *b
	if b.BatchID != nil {
		id := *b.BatchID
		stored.BatchID = &id
	}
	if b.SeatNumber != nil {
		n := *b.SeatNumber
		stored.SeatNumber = &n
	}
	t.st().bookings[b.ID] = stored
	return nil
}

func (t *fakeTx) MoveBooking(ctx context.Context, bookingID, slotID, batchID uint64, seat int) error {
	b, ok := t.st().bookings[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.seatTaken(batchID, seat, bookingID) {
		return repository.ErrSeatTaken
	}
	b.SlotID = slotID
	b.BatchID = &batchID
	b.SeatNumber = &seat
	b.Rescheduled = true
	t.st().bookings[bookingID] = b
	return nil
}

func (t *fakeTx) newestRequest(studentID, courseID uint64, statuses ...model.RescheduleStatus) (*model.RescheduleRequest, error) {
	var found *model.RescheduleRequest
	for _, r := range t.st().requests {
		if r.StudentID != studentID || r.CourseID != courseID {
			continue
		}
		for _, s := range statuses {
			if r.Status == s && (found == nil || r.ID > found.ID) {
				r := r
				found = &r
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (t *fakeTx) FindActiveRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error) {
	return t.newestRequest(studentID, courseID, model.ReschedulePending, model.RescheduleApproved)
}

func (t *fakeTx) FindExecutableRequest(ctx context.Context, studentID, courseID uint64) (*model.RescheduleRequest, error) {
	return t.newestRequest(studentID, courseID, model.RescheduleApproved, model.ReschedulePaid)
}

func (t *fakeTx) LockRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error) {
	r, ok := t.st().requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (t *fakeTx) CreateRequest(ctx context.Context, r *model.RescheduleRequest) error {
	r.ID = t.st().id()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	t.st().requests[r.ID] = *r
	return nil
}

func (t *fakeTx) UpdateRequest(ctx context.Context, r *model.RescheduleRequest) error {
	if err := t.f.fail("UpdateRequest"); err != nil {
		return err
	}
	if _, ok := t.st().requests[r.ID]; !ok {
		return repository.ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	t.st().requests[r.ID] = *r
	return nil
}

var _ repository.Store = (*fakeStore)(nil)

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ScheduleEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.ScheduleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func testSchedulingConfig() config.SchedulingConfig {
	cfg := config.DefaultSchedulingConfig()
	return cfg
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func wantKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
