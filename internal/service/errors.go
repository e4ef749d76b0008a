// Package service holds the scheduling domain: the slot and batch
// generator, the seat allocator, the reschedule workflow and the course
// catalog.  Services depend on repository.Store and report domain failures
// as *Error values.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.  Handlers map kinds to HTTP statuses.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindPrecondition
	KindInvalid
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition_failed"
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a domain failure with a message meant for the caller.  Any
// error that is not an *Error is a transient store failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error     { return newError(KindNotFound, format, args...) }
func conflict(format string, args ...any) *Error     { return newError(KindConflict, format, args...) }
func precondition(format string, args ...any) *Error { return newError(KindPrecondition, format, args...) }
func invalid(format string, args ...any) *Error      { return newError(KindInvalid, format, args...) }
func forbidden(format string, args ...any) *Error    { return newError(KindForbidden, format, args...) }

// KindOf returns the kind of a domain error and false for anything else.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// Messages shared between the allocator and the reschedule workflow.
const (
	msgAlreadyScheduled = "already scheduled for this course"
	msgBatchNotFound    = "batch not found"
	msgBatchFull        = "batch is full"
	msgWrongCourse      = "batch does not belong to this course"
	msgNotScheduled     = "student not scheduled for this course"
	msgCourseNotFound   = "course not found"
	msgRequestNotFound  = "reschedule request not found"
)
