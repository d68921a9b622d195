package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, services.ErrNotConcluded):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrRaffleClosed),
		errors.Is(err, services.ErrRaffleConcluded),
		errors.Is(err, services.ErrAllocationNotReady):
		return http.StatusConflict
	case errors.Is(err, services.ErrIntegrityMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body with the mapped status
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var resetErr *services.ResetError
	if errors.As(err, &resetErr) {
		body["step"] = resetErr.Step
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}
