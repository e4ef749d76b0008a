package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger writes one structured line per request: Error for 5xx,
// Warn for 4xx, Info otherwise.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let Echo's error handler write the response so the
                // status below is the one the client sees
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            fields := []zap.Field{
                zap.Int("status", status),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("query", req.URL.RawQuery),
                zap.String("ip", c.RealIP()),
                zap.Duration("latency", time.Since(start)),
            }
            if rid, ok := c.Get(ContextRequestID).(string); ok {
                fields = append(fields, zap.String("request_id", rid))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            switch {
            case status >= 500:
                logger.Error("Request failed", fields...)
            case status >= 400:
                logger.Warn("Client error", fields...)
            default:
                logger.Info("Request completed", fields...)
            }
            return nil
        }
    }
}
