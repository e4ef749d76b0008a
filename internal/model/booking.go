package model

import "time"

// Mode is how a student sits an exam.
type Mode string

const (
    ModePhysical Mode = "physical"
    ModeOnline   Mode = "online"
)

// Valid reports whether m is a known sitting mode.
func (m Mode) Valid() bool { return m == ModePhysical || m == ModeOnline }

// StudentBooking is a row of student_schedule.  A student holds at most one
// booking per course.  BatchID and SeatNumber are nil only for legacy rows
// booked against a slot without batches.
//
// Fields:
//  ID          – primary key identifier.
//  StudentID   – the booked student.
//  CourseID    – the course being sat.
//  SlotID      – slot owning the batch.
//  BatchID     – batch the seat belongs to (nullable).
//  SeatNumber  – 1-based seat within the batch (nullable).
//  Mode        – physical or online.
//  Rescheduled – true once the booking has been moved.
//  CreatedAt   – when the seat was first claimed.
type StudentBooking struct {
    ID          uint64    `json:"id"`                   // student_schedule.id
    StudentID   uint64    `json:"studentId"`            // student_schedule.student_id
    CourseID    uint64    `json:"courseId"`             // student_schedule.course_id
    SlotID      uint64    `json:"slotId"`               // student_schedule.slot_id
    BatchID     *uint64   `json:"batchId,omitempty"`    // student_schedule.batch_id (nullable)
    SeatNumber  *int      `json:"seatNumber,omitempty"` // student_schedule.seat_number (nullable)
    Mode        Mode      `json:"mode"`                 // student_schedule.mode
    Rescheduled bool      `json:"rescheduled"`          // student_schedule.rescheduled
    CreatedAt   time.Time `json:"createdAt"`            // student_schedule.created_at
}

// BookingDetail is a booking joined with its course, slot and batch for
// display on a student's timetable.
type BookingDetail struct {
    ID          uint64     `json:"id"`
    CourseID    uint64     `json:"courseId"`
    CourseCode  string     `json:"courseCode"`
    CourseTitle string     `json:"courseTitle"`
    SlotID      uint64     `json:"slotId"`
    SlotStart   time.Time  `json:"slotStart"`
    SlotEnd     time.Time  `json:"slotEnd"`
    BatchID     *uint64    `json:"batchId,omitempty"`
    BatchNumber *int       `json:"batchNumber,omitempty"`
    BatchStart  *time.Time `json:"batchStart,omitempty"`
    BatchEnd    *time.Time `json:"batchEnd,omitempty"`
    SeatNumber  *int       `json:"seatNumber,omitempty"`
    Mode        Mode       `json:"mode"`
    Rescheduled bool       `json:"rescheduled"`
    CreatedAt   time.Time  `json:"createdAt"`
}
