package server

import (
	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/coplay/internal/errors"
	"github.com/pscheid92/coplay/internal/platform/correlation"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	headerUserID        = "X-User-ID"
)

// correlationMiddleware attaches a correlation ID to the request context so
// every log line of the request carries it. Inbound IDs are honored.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerCorrelationID)
			if id == "" {
				id = correlation.NewID()
			}

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(headerCorrelationID, id)
			return next(c)
		}
	}
}

// requireUser extracts the caller identity from the X-User-ID header. The
// gateway in front of this service authenticates callers; here the header is
// trusted but must be present for operations that act on behalf of a user.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(headerUserID)
		if userID == "" {
			return apperrors.ValidationError("missing X-User-ID header")
		}
		c.Set("userID", userID)
		return next(c)
	}
}
