package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-scheduler/internal/handler"
)

// RegisterPublic registers the course catalog for guests.  Only the
// catalog list goes through the response cache; slot availability must
// agree with the allocator and is always read live.
func RegisterPublic(e *echo.Echo, h *handler.CourseHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/courses")
	g.GET("", h.ListCourses, cache)
	g.GET("/:id", h.GetCourse)
	g.GET("/:id/slots", h.CourseSlots)
}
