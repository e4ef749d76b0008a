package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-scheduler/internal/handler"
	"github.com/iliyamo/exam-scheduler/internal/middleware"
	"github.com/iliyamo/exam-scheduler/internal/model"
)

// RegisterReschedule registers the reschedule workflow under
// /v1/reschedule.  Every route needs a token; the role is checked per
// route because the decision endpoint belongs to admins.
func RegisterReschedule(e *echo.Echo, h *handler.RescheduleHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/reschedule", middleware.JWTAuth(jwtSecret))
	student := middleware.RequireRole(model.RoleStudent)
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("/request", h.SubmitRequest, student, limit)
	g.GET("/request/:id", h.GetOwnRequest, student)
	g.PATCH("/request/action/:id", h.Decide, admin)
	g.POST("/payment", h.RecordPayment, student, limit)
	g.POST("", h.Execute, student, limit)
}
