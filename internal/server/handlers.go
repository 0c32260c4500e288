package server

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coplay/internal/domain"
	apperrors "github.com/pscheid92/coplay/internal/errors"
)

// currentUser returns the identity set by requireUser.
func currentUser(c echo.Context) (string, error) {
	userID, ok := c.Get("userID").(string)
	if !ok || userID == "" {
		return "", apperrors.InternalError("missing user ID in context", nil)
	}
	return userID, nil
}

// mapDomainError translates the coordinator's error taxonomy into structured
// HTTP errors. Anything outside the taxonomy is an internal error.
func mapDomainError(err error, channelID string) error {
	var structured *apperrors.Error

	switch {
	case errors.Is(err, domain.ErrSessionActive):
		structured = apperrors.ConflictError("session already active for channel")
	case errors.Is(err, domain.ErrSessionNotFound):
		structured = apperrors.NotFoundError("no session for channel")
	case errors.Is(err, domain.ErrNotAuthorized):
		structured = apperrors.ForbiddenError("not authorized to stop this session")
	case errors.Is(err, domain.ErrSlotTaken):
		structured = apperrors.ConflictError("player slot already taken")
	case errors.Is(err, domain.ErrSessionFull):
		structured = apperrors.ConflictError("no free player slots")
	case errors.Is(err, domain.ErrAlreadyJoined):
		structured = apperrors.ConflictError("user already joined session")
	case errors.Is(err, domain.ErrNotAPlayer):
		structured = apperrors.ConflictError("user does not hold a player slot")
	case errors.Is(err, domain.ErrNotASpectator):
		structured = apperrors.ConflictError("user is not a spectator")
	case errors.Is(err, domain.ErrSessionPaused):
		structured = apperrors.ConflictError("session is paused")
	case errors.Is(err, domain.ErrSessionEnded):
		structured = apperrors.ConflictError("session has ended")
	case errors.Is(err, domain.ErrEmptySlot):
		structured = apperrors.NotFoundError("save slot is empty")
	case errors.Is(err, domain.ErrInvalidPayload):
		structured = apperrors.ValidationError("invalid payload")
	case errors.Is(err, domain.ErrInvalidTarget):
		structured = apperrors.ValidationError("unknown target kind")
	case errors.Is(err, domain.ErrDisabled):
		structured = apperrors.ConflictError("co-play is disabled")
	default:
		structured = apperrors.InternalError("operation failed", err)
	}

	return structured.WithField("channel_id", channelID)
}
