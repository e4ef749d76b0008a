package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user for use in Redis keys.
// Requests without an identity share the "anon" bucket.
func currentUserID(c echo.Context) string {
    switch v := c.Get(ContextUserID).(type) {
    case uint64:
        if v > 0 {
            return strconv.FormatUint(v, 10)
        }
    case string:
        if v != "" {
            return v
        }
    }
    return "anon"
}
