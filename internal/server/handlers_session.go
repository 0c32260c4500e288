package server

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coplay/internal/domain"
	apperrors "github.com/pscheid92/coplay/internal/errors"
)

type startSessionRequest struct {
	Target string `json:"target"`
	Game   string `json:"game,omitempty"`
}

func (s *Server) handleStartSession(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if req.Target == "" {
		return apperrors.ValidationError("target is required").WithField("channel_id", channelID)
	}

	summary, err := s.app.StartSession(c.Request().Context(), channelID, domain.TargetKind(req.Target), domain.StartConfig{
		RequestedBy: userID,
		Game:        req.Game,
	})
	if err != nil {
		return mapDomainError(err, channelID)
	}

	if err := c.JSON(201, summary); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStopSession(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	if err := s.app.StopSession(c.Request().Context(), channelID, userID); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

func (s *Server) handleGetSession(c echo.Context) error {
	channelID := c.Param("channel")

	summary, ok := s.app.GetSession(c.Request().Context(), channelID)
	if !ok {
		return apperrors.NotFoundError("no session for channel").WithField("channel_id", channelID)
	}

	if err := c.JSON(200, summary); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(c echo.Context) error {
	status := s.app.Status(c.Request().Context())
	if err := c.JSON(200, status); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListSessions(c echo.Context) error {
	status := s.app.Status(c.Request().Context())
	if err := c.JSON(200, status.Sessions); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleControllerMapping(c echo.Context) error {
	kind := c.Param("kind")

	mapping, err := s.app.ControllerMapping(domain.TargetKind(kind))
	if err != nil {
		return apperrors.ValidationError("unknown target kind").WithField("target", kind)
	}

	if err := c.JSON(200, mapping); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
