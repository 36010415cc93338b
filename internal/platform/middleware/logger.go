package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/radcase/radcase/internal/platform/auth"
)

// Logger emits one structured line per request. When a session is present
// the staff member's ID and name ride along with the request ID, so case
// record activity can be traced back to whoever performed it.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// The session middleware swaps the request, so read the context
			// back off the echo context rather than the captured req.
			ctx := c.Request().Context()
			if uid := auth.UserIDFromContext(ctx); uid != "" {
				evt = evt.Str("user_id", uid).Str("user_name", auth.UserNameFromContext(ctx))
			}

			evt.Msg("request")

			return err
		}
	}
}
