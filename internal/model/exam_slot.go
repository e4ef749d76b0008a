package model

import "time"

// ExamSlot is a coarse exam window for a course, possibly spanning several
// days.  Slots are linked to courses through the course_slot join table and
// own the batches generated for them.  A slot may only be changed while no
// student is scheduled against it.
//
// Fields:
//  ID               – primary key identifier.
//  StartDate        – beginning of the window (UTC).
//  EndDate          – end of the window (UTC), strictly after StartDate.
//  PhysicalCapacity – seats available per batch for in-person sitting.
//  OnlineCapacity   – informational capacity for online sitting.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type ExamSlot struct {
    ID               uint64    `json:"id"`               // exam_slot.id
    StartDate        time.Time `json:"startDate"`        // exam_slot.start_date
    EndDate          time.Time `json:"endDate"`          // exam_slot.end_date
    PhysicalCapacity int       `json:"physicalCapacity"` // exam_slot.physical_capacity
    OnlineCapacity   int       `json:"onlineCapacity"`   // exam_slot.online_capacity
    CreatedAt        time.Time `json:"createdAt"`        // exam_slot.created_at
    UpdatedAt        time.Time `json:"updatedAt"`        // exam_slot.updated_at
}

// SlotAvailability is a slot linked to a course together with the number
// of seats still free across its batches.
type SlotAvailability struct {
    SlotID           uint64    `json:"slotId"`
    StartDate        time.Time `json:"startDate"`
    EndDate          time.Time `json:"endDate"`
    PhysicalCapacity int       `json:"physicalCapacity"`
    TotalSeats       int       `json:"totalSeats"`
    Scheduled        int       `json:"scheduled"`
    AvailableSeats   int       `json:"availableSeats"`
}
