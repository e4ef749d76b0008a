package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CourseHandler serves the course catalog.
type CourseHandler struct {
	Courses CourseCatalog
	Slots   SeatAllocator
	Logger  *zap.Logger
}

// NewCourseHandler panics if a dependency is nil.
func NewCourseHandler(courses CourseCatalog, slots SeatAllocator, logger *zap.Logger) *CourseHandler {
	if courses == nil || slots == nil || logger == nil {
		panic("nil dependency passed to NewCourseHandler")
	}
	return &CourseHandler{Courses: courses, Slots: slots, Logger: logger}
}

type createCourseBody struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// CreateCourse handles POST /v1/admin/courses.
func (h *CourseHandler) CreateCourse(c echo.Context) error {
	var body createCourseBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Code) == "" || strings.TrimSpace(body.Title) == "" {
		return badRequest(c, "course code and title are required")
	}
	course, err := h.Courses.CreateCourse(c.Request().Context(), body.Code, body.Title, body.Level)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, course)
}

// ListCourses handles GET /v1/courses.
func (h *CourseHandler) ListCourses(c echo.Context) error {
	courses, err := h.Courses.ListCourses(c.Request().Context())
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": courses})
}

// GetCourse handles GET /v1/courses/:id.
func (h *CourseHandler) GetCourse(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	course, err := h.Courses.GetCourse(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, course)
}

// CourseSlots handles GET /v1/courses/:id/slots and lists the slots that
// still have seats.
func (h *CourseHandler) CourseSlots(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid course id")
	}
	slots, err := h.Slots.AvailableSlotsForCourse(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}
