package model

import "time"

// Course is an examinable course offered to students.  The code is stored
// upper-cased and is unique across the catalog.
//
// Fields:
//  ID        – primary key identifier.
//  Code      – unique course code (e.g. CSC201).
//  Title     – human readable title.
//  Level     – academic level (100, 200, ...).
//  CreatedAt – creation timestamp.
type Course struct {
    ID        uint64    `json:"id"`        // course.id
    Code      string    `json:"code"`      // course.code
    Title     string    `json:"title"`     // course.title
    Level     int       `json:"level"`     // course.level
    CreatedAt time.Time `json:"createdAt"` // course.created_at
}
