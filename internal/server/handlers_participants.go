package server

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/coplay/internal/errors"
)

type joinPlayerRequest struct {
	Slot int `json:"slot,omitempty"`
}

func (s *Server) handleJoinPlayer(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	var req joinPlayerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}

	slot, err := s.app.JoinPlayer(c.Request().Context(), channelID, userID, req.Slot)
	if err != nil {
		return mapDomainError(err, channelID)
	}

	if err := c.JSON(200, map[string]int{"slot": slot}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLeavePlayer(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	if err := s.app.LeavePlayer(c.Request().Context(), channelID, userID); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

func (s *Server) handleJoinSpectator(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	if err := s.app.JoinSpectator(c.Request().Context(), channelID, userID); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

func (s *Server) handleLeaveSpectator(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	if err := s.app.LeaveSpectator(c.Request().Context(), channelID, userID); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

type inputRequest struct {
	// Payload is the raw input frame, base64 in JSON.
	Payload []byte `json:"payload"`
}

func (s *Server) handleInput(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	var req inputRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}

	if err := s.app.HandleInput(c.Request().Context(), channelID, userID, req.Payload); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(202)
}

func (s *Server) handleTogglePause(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	state, err := s.app.TogglePause(c.Request().Context(), channelID, userID)
	if err != nil {
		return mapDomainError(err, channelID)
	}

	if err := c.JSON(200, map[string]string{"state": string(state)}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type loadGameRequest struct {
	Game string `json:"game"`
}

func (s *Server) handleLoadGame(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	var req loadGameRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if req.Game == "" {
		return apperrors.ValidationError("game is required").WithField("channel_id", channelID)
	}

	if err := s.app.LoadGame(c.Request().Context(), channelID, userID, req.Game); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

func (s *Server) handleSaveState(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	slot, err := parseSlotParam(c)
	if err != nil {
		return err
	}

	ref, err := s.app.SaveState(c.Request().Context(), channelID, userID, slot)
	if err != nil {
		return mapDomainError(err, channelID)
	}

	if err := c.JSON(200, map[string]any{"slot": slot, "ref": ref}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLoadState(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	channelID := c.Param("channel")

	slot, err := parseSlotParam(c)
	if err != nil {
		return err
	}

	if err := s.app.LoadState(c.Request().Context(), channelID, userID, slot); err != nil {
		return mapDomainError(err, channelID)
	}
	return c.NoContent(204)
}

func parseSlotParam(c echo.Context) (int, error) {
	slotStr := c.Param("slot")
	slot, err := strconv.Atoi(slotStr)
	if err != nil {
		return 0, apperrors.ValidationError("invalid slot number").WithField("slot", slotStr)
	}
	return slot, nil
}
