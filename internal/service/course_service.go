package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/repository"
)

// CourseService manages the course catalog.
type CourseService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCourseService(store repository.Store, logger *zap.Logger) *CourseService {
	return &CourseService{store: store, logger: logger}
}

// CreateCourse adds a course.  Codes are stored upper-cased.
func (s *CourseService) CreateCourse(ctx context.Context, code, title string, level int) (*model.Course, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	title = strings.TrimSpace(title)
	switch {
	case code == "":
		return nil, invalid("code is required")
	case title == "":
		return nil, invalid("title is required")
	case level <= 0:
		return nil, invalid("level must be greater than zero")
	}

	c := &model.Course{Code: code, Title: title, Level: level}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateCourse(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicateCourse) {
				return conflict("course code %s already exists", code)
			}
			return fmt.Errorf("create course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Course created", zap.Uint64("course_id", c.ID), zap.String("code", c.Code))
	return c, nil
}

func (s *CourseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	out, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return out, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint64) (*model.Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(msgCourseNotFound)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}
