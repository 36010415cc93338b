package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrForbidden is returned when a session's role is not in the required set.
var ErrForbidden = errors.New("forbidden")

// Authorize is the single role check used by every guarded operation.
// It allows iff role is one of the required roles. Callers decide what the
// required set is; this function never consults ambient state.
func Authorize(role string, required ...string) error {
	for _, r := range required {
		if role == r {
			return nil
		}
	}
	return ErrForbidden
}

// RequireRole returns middleware that rejects requests whose session role is
// not in the given set. The response body deliberately does not name the
// required roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(RoleFromContext(c.Request().Context()), roles...); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
