package model

import "time"

// RescheduleStatus is the state of a reschedule request.
type RescheduleStatus string

const (
    ReschedulePending   RescheduleStatus = "pending"
    RescheduleApproved  RescheduleStatus = "approved"
    RescheduleRejected  RescheduleStatus = "rejected"
    ReschedulePaid      RescheduleStatus = "paid"
    RescheduleCompleted RescheduleStatus = "completed"
)

// Valid reports whether s is a known status.
func (s RescheduleStatus) Valid() bool {
    switch s {
    case ReschedulePending, RescheduleApproved, RescheduleRejected, ReschedulePaid, RescheduleCompleted:
        return true
    }
    return false
}

// RescheduleRequest asks for a student's booking to be moved to another
// batch.  Requests move pending → approved → completed, or
// pending → rejected → paid → completed.  At most one pending or approved
// request exists per student and course.
//
// Fields:
//  ID          – primary key identifier.
//  StudentID   – student asking for the move.
//  CourseID    – course whose booking should move.
//  Reason      – student supplied reason (nullable).
//  Status      – current state.
//  AdminReason – reason recorded with the admin decision (nullable).
//  PaymentRef  – payment reference after a rejection (nullable).
//  OldSlotID   – slot the booking left, set on completion.
//  NewSlotID   – slot the booking moved to, set on completion.
//  NewBatchID  – batch the booking moved to, set on completion.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type RescheduleRequest struct {
    ID          uint64           `json:"id"`                    // reschedule_requests.id
    StudentID   uint64           `json:"studentId"`             // reschedule_requests.student_id
    CourseID    uint64           `json:"courseId"`              // reschedule_requests.course_id
    Reason      *string          `json:"reason,omitempty"`      // reschedule_requests.reason
    Status      RescheduleStatus `json:"status"`                // reschedule_requests.status
    AdminReason *string          `json:"adminReason,omitempty"` // reschedule_requests.admin_reason
    PaymentRef  *string          `json:"paymentRef,omitempty"`  // reschedule_requests.payment_ref
    OldSlotID   *uint64          `json:"oldSlotId,omitempty"`   // reschedule_requests.old_slot_id
    NewSlotID   *uint64          `json:"newSlotId,omitempty"`   // reschedule_requests.new_slot_id
    NewBatchID  *uint64          `json:"newBatchId,omitempty"`  // reschedule_requests.new_batch_id
    CreatedAt   time.Time        `json:"createdAt"`             // reschedule_requests.created_at
    UpdatedAt   time.Time        `json:"updatedAt"`             // reschedule_requests.updated_at
}
