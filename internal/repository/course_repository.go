package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/exam-scheduler/internal/model"
)

const courseColumns = `id, code, title, level, created_at`

func scanCourse(row interface{ Scan(...any) error }) (*model.Course, error) {
	var c model.Course
	if err := row.Scan(&c.ID, &c.Code, &c.Title, &c.Level, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCourses returns the catalog ordered by code.
func (s *MySQLStore) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM course ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// GetCourse returns a course by id or ErrNotFound.
func (s *MySQLStore) GetCourse(ctx context.Context, id uint64) (*model.Course, error) {
	return scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM course WHERE id = ?`, id))
}

// CreateCourse inserts c and fills in its id and creation time.  A code
// already in use yields ErrDuplicateCourse.
func (r *txRepo) CreateCourse(ctx context.Context, c *model.Course) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO course (code, title, level) VALUES (?, ?, ?)`, c.Code, c.Title, c.Level)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanCourse(r.tx.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM course WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

// LockCourse reads the course row FOR UPDATE.  Slot generation for one
// course is serialized on this lock.
func (r *txRepo) LockCourse(ctx context.Context, id uint64) (*model.Course, error) {
	return scanCourse(r.tx.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM course WHERE id = ? FOR UPDATE`, id))
}
