package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/model"
	"github.com/iliyamo/exam-scheduler/internal/service"
)

// SlotGenerator creates or regenerates exam slots.
type SlotGenerator interface {
	CreateOrUpdateExamSlot(ctx context.Context, req service.SlotRequest) (*service.SlotResult, error)
}

// SeatAllocator books seats and serves the availability read paths.
type SeatAllocator interface {
	SelectBatch(ctx context.Context, studentID, courseID, batchID uint64, mode model.Mode) (*service.Selection, error)
	AvailableBatchesForSlot(ctx context.Context, slotID uint64) ([]model.BatchAvailability, error)
	AvailableSlotsForCourse(ctx context.Context, courseID uint64) ([]model.SlotAvailability, error)
	StudentSchedules(ctx context.Context, studentID uint64) ([]model.BookingDetail, error)
}

// RescheduleWorkflow drives reschedule requests from submission to move.
type RescheduleWorkflow interface {
	SubmitRequest(ctx context.Context, studentID, courseID uint64, reason string) (*model.RescheduleRequest, error)
	Decide(ctx context.Context, requestID uint64, decision model.RescheduleStatus, adminReason string) (*model.RescheduleRequest, error)
	RecordPayment(ctx context.Context, studentID, requestID uint64, paymentRef string) (*model.RescheduleRequest, error)
	ExecuteReschedule(ctx context.Context, studentID, courseID, newBatchID uint64) (*model.StudentBooking, error)
	AdminMoveBooking(ctx context.Context, studentID, courseID, newBatchID uint64) (*model.StudentBooking, error)
	ListRequests(ctx context.Context, status string) ([]model.RescheduleRequest, error)
	GetRequest(ctx context.Context, id uint64) (*model.RescheduleRequest, error)
	GetStudentRequest(ctx context.Context, studentID, id uint64) (*model.RescheduleRequest, error)
}

// CourseCatalog manages the course list.
type CourseCatalog interface {
	CreateCourse(ctx context.Context, code, title string, level int) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	GetCourse(ctx context.Context, id uint64) (*model.Course, error)
}

// getUserID extracts the user_id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		if t > 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// statusFor maps a domain error kind onto an HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindPrecondition, service.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes a domain error with its message unchanged.  Store
// failures are logged and answered with a generic 500.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var de *service.Error
	if errors.As(err, &de) {
		return c.JSON(statusFor(de.Kind), echo.Map{"error": de.Message})
	}
	logger.Error("Handler failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
