package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-scheduler/internal/middleware"
	"github.com/iliyamo/exam-scheduler/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.  purge
// runs after course creation so the cached catalog is dropped.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string, purge echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Catalog ----
	g.POST("/courses", h.Courses.CreateCourse, purge)

	// ---- Slots ----
	g.POST("/exam-slot", h.Slots.CreateExamSlot)

	// ---- Reschedule ----
	g.GET("/reschedule/requests", h.Reschedule.ListRequests)
	g.GET("/reschedule/requests/:id", h.Reschedule.GetRequest)
	g.POST("/students/:studentId/move", h.Reschedule.AdminMove)
}
