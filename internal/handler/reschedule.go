package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/service"
)

// RescheduleHandler exposes the reschedule workflow.  Student routes
// resolve the student from the token; admin routes take ids from the path.
type RescheduleHandler struct {
	Workflow RescheduleWorkflow
	Logger   *zap.Logger
}

// NewRescheduleHandler panics if a dependency is nil.
func NewRescheduleHandler(workflow RescheduleWorkflow, logger *zap.Logger) *RescheduleHandler {
	if workflow == nil || logger == nil {
		panic("nil dependency passed to NewRescheduleHandler")
	}
	return &RescheduleHandler{Workflow: workflow, Logger: logger}
}

type submitRequestBody struct {
	CourseID uint64 `json:"courseId"`
	Reason   string `json:"reason"`
}

// SubmitRequest handles POST /v1/reschedule/request.
func (h *RescheduleHandler) SubmitRequest(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body submitRequestBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == 0 {
		return badRequest(c, "courseId is required")
	}
	req, err := h.Workflow.SubmitRequest(c.Request().Context(), studentID, body.CourseID, body.Reason)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, req)
}

// GetOwnRequest handles GET /v1/reschedule/request/:id for the owning
// student.
func (h *RescheduleHandler) GetOwnRequest(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	req, err := h.Workflow.GetStudentRequest(c.Request().Context(), studentID, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, req)
}

type decideBody struct {
	Action      string `json:"action"`
	AdminReason string `json:"adminReason"`
}

// Decide handles PATCH /v1/reschedule/request/action/:id.  action is
// "accept" or "reject"; a pending request moves to approved or rejected.
func (h *RescheduleHandler) Decide(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	var body decideBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	decision, err := service.ParseDecision(body.Action)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	req, err := h.Workflow.Decide(c.Request().Context(), id, decision, strings.TrimSpace(body.AdminReason))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, req)
}

type paymentBody struct {
	RequestID  uint64 `json:"requestId"`
	PaymentRef string `json:"paymentRef"`
}

// RecordPayment handles POST /v1/reschedule/payment.  Only a rejected
// request owned by the caller may be paid for.
func (h *RescheduleHandler) RecordPayment(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body paymentBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RequestID == 0 || strings.TrimSpace(body.PaymentRef) == "" {
		return badRequest(c, "requestId and paymentRef are required")
	}
	req, err := h.Workflow.RecordPayment(c.Request().Context(), studentID, body.RequestID, body.PaymentRef)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, req)
}

type moveBody struct {
	CourseID   uint64 `json:"courseId"`
	NewBatchID uint64 `json:"newBatchId"`
}

// Execute handles POST /v1/reschedule.  The newest approved or paid request
// for the course is consumed and the booking moves to newBatchId.
func (h *RescheduleHandler) Execute(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body moveBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == 0 || body.NewBatchID == 0 {
		return badRequest(c, "courseId and newBatchId are required")
	}
	booking, err := h.Workflow.ExecuteReschedule(c.Request().Context(), studentID, body.CourseID, body.NewBatchID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// AdminMove handles POST /v1/admin/students/:studentId/move.
func (h *RescheduleHandler) AdminMove(c echo.Context) error {
	studentID, ok := parseID(c, "studentId")
	if !ok {
		return badRequest(c, "invalid student id")
	}
	var body moveBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == 0 || body.NewBatchID == 0 {
		return badRequest(c, "courseId and newBatchId are required")
	}
	booking, err := h.Workflow.AdminMoveBooking(c.Request().Context(), studentID, body.CourseID, body.NewBatchID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// ListRequests handles GET /v1/admin/reschedule/requests?status=.
func (h *RescheduleHandler) ListRequests(c echo.Context) error {
	items, err := h.Workflow.ListRequests(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRequest handles GET /v1/admin/reschedule/requests/:id.
func (h *RescheduleHandler) GetRequest(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	req, err := h.Workflow.GetRequest(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, req)
}
