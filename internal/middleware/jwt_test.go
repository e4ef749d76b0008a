package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-scheduler/internal/utils"
)

const testSecret = "test-secret"

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get(ContextUserID),
		"role":    c.Get(ContextRole),
	})
}

func serve(t *testing.T, h echo.HandlerFunc, mw []echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, c
}

func bearer(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTAuth(t *testing.T) {
	good, err := utils.NewAccessToken(testSecret, 42, "student", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	expired, err := utils.NewAccessToken(testSecret, 42, "STUDENT", -time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	forged, err := utils.NewAccessToken("other-secret", 42, "ADMIN", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "42", "role": "ADMIN", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "role": "ADMIN",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "role": "ADMIN", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "valid", token: good.Token, status: http.StatusOK},
		{name: "missing", token: "", status: http.StatusUnauthorized},
		{name: "expired", token: expired.Token, status: http.StatusUnauthorized},
		{name: "wrong secret", token: forged.Token, status: http.StatusUnauthorized},
		{name: "alg none", token: none, status: http.StatusUnauthorized},
		{name: "no expiry", token: noExp, status: http.StatusUnauthorized},
		{name: "non numeric subject", token: badSub, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, c := serve(t, whoami, []echo.MiddlewareFunc{JWTAuth(testSecret)}, bearer(t, tt.token))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			if uid, _ := c.Get(ContextUserID).(uint64); uid != 42 {
				t.Errorf("user_id = %v, want 42", c.Get(ContextUserID))
			}
			if role, _ := c.Get(ContextRole).(string); role != "STUDENT" {
				t.Errorf("role = %q, want STUDENT", role)
			}
		})
	}
}

func TestSubjectID(t *testing.T) {
	tests := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{in: "7", want: 7, ok: true},
		{in: float64(9), want: 9, ok: true},
		{in: "0", ok: false},
		{in: float64(1.5), ok: false},
		{in: float64(-3), ok: false},
		{in: nil, ok: false},
	}
	for _, tt := range tests {
		got, ok := subjectID(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("subjectID(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		role   interface{}
		status int
	}{
		{name: "matching role", role: "ADMIN", status: http.StatusOK},
		{name: "case insensitive", role: "admin", status: http.StatusOK},
		{name: "other role", role: "STUDENT", status: http.StatusForbidden},
		{name: "no role", role: nil, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRole := func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					if tt.role != nil {
						c.Set(ContextRole, tt.role)
					}
					return next(c)
				}
			}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec, _ := serve(t, whoami, []echo.MiddlewareFunc{setRole, RequireRole("Admin")}, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
