package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// ContextRequestID is the context key holding the request id.
const ContextRequestID = "request_id"

// requestIDMaxLen bounds client supplied ids so they cannot flood logs.
const requestIDMaxLen = 64

// RequestID reuses the client's X-Request-ID when it is short enough and
// otherwise generates a UUID.  The id is stored in the context and echoed
// in the response header.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            rid := c.Request().Header.Get(HeaderRequestID)
            if rid == "" || len(rid) > requestIDMaxLen {
                rid = uuid.NewString()
            }
            c.Set(ContextRequestID, rid)
            c.Response().Header().Set(HeaderRequestID, rid)
            return next(c)
        }
    }
}
