package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/service"
)

// StudentHandler serves batch selection and the student's timetable.  All
// routes sit behind JWTAuth and RequireRole("STUDENT").
type StudentHandler struct {
	Seats  SeatAllocator
	Logger *zap.Logger
}

// NewStudentHandler panics if a dependency is nil.
func NewStudentHandler(seats SeatAllocator, logger *zap.Logger) *StudentHandler {
	if seats == nil || logger == nil {
		panic("nil dependency passed to NewStudentHandler")
	}
	return &StudentHandler{Seats: seats, Logger: logger}
}

// AvailableBatches handles GET /v1/student/batches/:slotId.
func (h *StudentHandler) AvailableBatches(c echo.Context) error {
	slotID, ok := parseID(c, "slotId")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	batches, err := h.Seats.AvailableBatchesForSlot(c.Request().Context(), slotID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": batches})
}

type pickBatchBody struct {
	CourseID uint64 `json:"courseId"`
	BatchID  uint64 `json:"batchId"`
	Mode     string `json:"mode"`
}

// PickBatch handles POST /v1/student/pick-batch.  The student comes from
// the bearer token, never from the body.  Responds 201 with the assigned
// seat and the batch start time.
func (h *StudentHandler) PickBatch(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body pickBatchBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == 0 || body.BatchID == 0 {
		return badRequest(c, "courseId and batchId are required")
	}
	mode, err := service.ParseMode(body.Mode)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	sel, err := h.Seats.SelectBatch(c.Request().Context(), studentID, body.CourseID, body.BatchID, mode)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, sel)
}

// Schedules handles GET /v1/student/schedules.
func (h *StudentHandler) Schedules(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Seats.StudentSchedules(c.Request().Context(), studentID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
