package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-scheduler/internal/handler"
	"github.com/iliyamo/exam-scheduler/internal/middleware"
	"github.com/iliyamo/exam-scheduler/internal/model"
)

// RegisterStudent registers STUDENT-scoped endpoints under /v1/student.
// pick-batch is the only write and is rate limited per student.
func RegisterStudent(e *echo.Echo, h *handler.StudentHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/student",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	g.GET("/batches/:slotId", h.AvailableBatches)
	g.POST("/pick-batch", h.PickBatch, limit)
	g.GET("/schedules", h.Schedules)
}
