package middleware // middleware holds the Echo middleware shared by all route groups

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// JWTAuth returns an Echo middleware that validates an HS256 Bearer access
// token and stores the subject as a uint64 under "user_id" and the role
// claim under "role".  Tokens are issued by the identity service; only the
// signature and expiry are checked here.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            uid, ok := subjectID(claims["sub"])
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            role, _ := claims["role"].(string)

            c.Set(ContextUserID, uid)
            c.Set(ContextRole, strings.ToUpper(role))
            return next(c)
        }
    }
}

// subjectID accepts the subject as a decimal string or a JSON number.
func subjectID(v interface{}) (uint64, bool) {
    switch t := v.(type) {
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n > 0
    case float64:
        return uint64(t), t >= 1 && t == float64(uint64(t))
    }
    return 0, false
}
