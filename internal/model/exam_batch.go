package model

import "time"

// ExamBatch is a fixed-duration sub-window of a slot with its own seating
// capacity.  Batch numbers are 1-based and contiguous within a slot.  The
// batches of a slot are only ever replaced as a whole.
//
// Fields:
//  ID          – primary key identifier.
//  SlotID      – owning slot.
//  BatchNumber – position of the batch within the slot, starting at 1.
//  StartTime   – when the sitting begins (UTC).
//  EndTime     – when the sitting ends (UTC).
//  Capacity    – number of seats in the batch.
type ExamBatch struct {
    ID          uint64    `json:"id"`          // exam_batches.id
    SlotID      uint64    `json:"slotId"`      // exam_batches.slot_id
    BatchNumber int       `json:"batchNumber"` // exam_batches.batch_number
    StartTime   time.Time `json:"startTime"`   // exam_batches.start_time
    EndTime     time.Time `json:"endTime"`     // exam_batches.end_time
    Capacity    int       `json:"capacity"`    // exam_batches.capacity
}

// BatchAvailability is a batch with remaining capacity as presented to a
// student choosing where to sit.
type BatchAvailability struct {
    BatchID        uint64    `json:"batchId"`
    BatchNumber    int       `json:"batchNumber"`
    StartTime      time.Time `json:"startTime"`
    EndTime        time.Time `json:"endTime"`
    Capacity       int       `json:"capacity"`
    Scheduled      int       `json:"scheduled"`
    AvailableSeats int       `json:"availableSeats"`
}
