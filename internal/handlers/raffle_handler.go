package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// RaffleHandler handles the member-facing raffle requests
type RaffleHandler struct {
	reservationService services.ReservationService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(reservationService services.ReservationService) *RaffleHandler {
	return &RaffleHandler{reservationService: reservationService}
}

// GetMember handles GET /teams/:team/members/:code
func (h *RaffleHandler) GetMember(c *gin.Context) {
	view, err := h.reservationService.LookupMember(c.Request.Context(), c.Param("team"), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetAvailable handles GET /teams/:team/options
func (h *RaffleHandler) GetAvailable(c *gin.Context) {
	available, err := h.reservationService.Available(c.Request.Context(), c.Param("team"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

// Claim handles POST /teams/:team/claims. A lost race answers 409 with the slots that
// are still available so the member can pick again.
func (h *RaffleHandler) Claim(c *gin.Context) {
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team := c.Param("team")
	sel, err := h.reservationService.Claim(c.Request.Context(), team, req.Option, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrSlotUnavailable) {
			available, availErr := h.reservationService.Available(c.Request.Context(), team)
			if availErr != nil {
				respondError(c, availErr)
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "available": available})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chosen": req.Option, "available": sel.Available()})
}
