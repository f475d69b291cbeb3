package middleware

// identity.go holds the context keys JWTAuth writes and the accessors the
// rate limiter and handlers read them back with.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated subject, or "" when the request carries
// no verified token.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// Role returns the authenticated role claim, or "".
func Role(c echo.Context) string {
	if s, ok := c.Get(ctxRole).(string); ok {
		return s
	}
	return ""
}

// rateSubject identifies the caller for rate limiting.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
