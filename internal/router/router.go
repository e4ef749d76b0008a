package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/config"
	"github.com/iliyamo/exam-scheduler/internal/handler"
	"github.com/iliyamo/exam-scheduler/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Courses    *handler.CourseHandler
	Slots      *handler.SlotHandler
	Students   *handler.StudentHandler
	Reschedule *handler.RescheduleHandler
}

// Options carries the cross-cutting dependencies.  Redis may be nil, in
// which case rate limiting and caching pass through.
type Options struct {
	JWTSecret string
	DB        handler.Pinger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    *zap.Logger
}

// New builds the Echo instance with the global middleware chain and every
// route group registered.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(o.Logger))

	limit := middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Logger)

	RegisterRoutes(e, o.DB)
	RegisterPublic(e, h.Courses, middleware.NewRedisCache(o.Cache, o.Redis, o.Logger))
	RegisterAdmin(e, h, o.JWTSecret, middleware.PurgeOnSuccess(o.Cache, o.Redis, o.Logger))
	RegisterStudent(e, h.Students, o.JWTSecret, limit)
	RegisterReschedule(e, h.Reschedule, o.JWTSecret, limit)
	return e
}

// RegisterRoutes registers routes that do not require authentication and
// sit outside /v1.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}
