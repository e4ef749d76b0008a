// Package repository defines the persistence contracts of the scheduler
// and their MySQL implementation.  The sentinel values below let the
// service layer tell domain conflicts reported by the database apart from
// transient failures.
package repository

import (
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyBooked is returned when the unique (student_id, course_id) key
// of student_schedule rejects an insert.
var ErrAlreadyBooked = errors.New("student already booked for course")

// ErrSeatTaken is returned when the unique (batch_id, seat_number) key of
// student_schedule rejects an insert or a move.
var ErrSeatTaken = errors.New("seat already taken")

// ErrDuplicateCourse is returned when a course code is already in use.
var ErrDuplicateCourse = errors.New("duplicate course code")

const mysqlDuplicateEntry = 1062

// translate maps MySQL duplicate-key errors onto the sentinel for the
// violated unique key.  Any other error is returned unchanged.
func translate(err error) error {
    var me *mysql.MySQLError
    if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
        return err
    }
    switch {
    case strings.Contains(me.Message, "uq_schedule_student_course"):
        return ErrAlreadyBooked
    case strings.Contains(me.Message, "uq_schedule_batch_seat"):
        return ErrSeatTaken
    case strings.Contains(me.Message, "uq_course_code"):
        return ErrDuplicateCourse
    }
    return err
}
