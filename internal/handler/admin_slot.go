package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/service"
)

// SlotHandler exposes the slot and batch generator to admins.
type SlotHandler struct {
	Slots  SlotGenerator
	Logger *zap.Logger
}

// NewSlotHandler panics if a dependency is nil.
func NewSlotHandler(slots SlotGenerator, logger *zap.Logger) *SlotHandler {
	if slots == nil || logger == nil {
		panic("nil dependency passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: slots, Logger: logger}
}

// examSlotBody is the POST /v1/admin/exam-slot payload.  Dates are RFC 3339
// timestamps; the optional fields override the configured batch defaults.
type examSlotBody struct {
	CourseID         uint64 `json:"courseId"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	PhysicalCapacity int    `json:"physicalCapacity"`
	OnlineCapacity   int    `json:"onlineCapacity"`
	DurationMinutes  *int   `json:"batchDurationMinutes"`
	GapMinutes       *int   `json:"batchGapMinutes"`
	BreakStartHour   *int   `json:"breakStartHour"`
	BreakEndHour     *int   `json:"breakEndHour"`
}

// CreateExamSlot handles POST /v1/admin/exam-slot.  The course's latest slot
// is regenerated in place when it has no bookings yet; otherwise a fresh
// slot is created.  Responds 201 with {slotId, batchCount, action}.
func (h *SlotHandler) CreateExamSlot(c echo.Context) error {
	var body examSlotBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == 0 {
		return badRequest(c, "courseId is required")
	}
	start, err := time.Parse(time.RFC3339, body.StartDate)
	if err != nil {
		return badRequest(c, "startDate must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, body.EndDate)
	if err != nil {
		return badRequest(c, "endDate must be an RFC 3339 timestamp")
	}

	res, err := h.Slots.CreateOrUpdateExamSlot(c.Request().Context(), service.SlotRequest{
		CourseID:         body.CourseID,
		StartDate:        start,
		EndDate:          end,
		PhysicalCapacity: body.PhysicalCapacity,
		OnlineCapacity:   body.OnlineCapacity,
		DurationMinutes:  body.DurationMinutes,
		GapMinutes:       body.GapMinutes,
		BreakStartHour:   body.BreakStartHour,
		BreakEndHour:     body.BreakEndHour,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, res)
}
