package handlers

import (
	"net/http"

	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// FacilitatorHandler handles the facilitator's raffle controls
type FacilitatorHandler struct {
	boardService      services.BoardService
	presenceService   services.PresenceService
	allocationService services.AllocationService
	lifecycleService  services.LifecycleService
}

// NewFacilitatorHandler creates a new FacilitatorHandler
func NewFacilitatorHandler(
	boardService services.BoardService,
	presenceService services.PresenceService,
	allocationService services.AllocationService,
	lifecycleService services.LifecycleService,
) *FacilitatorHandler {
	return &FacilitatorHandler{
		boardService:      boardService,
		presenceService:   presenceService,
		allocationService: allocationService,
		lifecycleService:  lifecycleService,
	}
}

// GetBoard handles GET /teams/:team/board
func (h *FacilitatorHandler) GetBoard(c *gin.Context) {
	board, err := h.boardService.Load(c.Request.Context(), c.Param("team"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Open handles POST /teams/:team/open
func (h *FacilitatorHandler) Open(c *gin.Context) {
	if err := h.lifecycleService.Open(c.Request.Context(), c.Param("team")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isOpen": true})
}

// ToggleStatus handles POST /teams/:team/members/:code/status
func (h *FacilitatorHandler) ToggleStatus(c *gin.Context) {
	member, err := h.presenceService.ToggleStatus(c.Request.Context(), c.Param("team"), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// Allocate handles POST /teams/:team/allocate
func (h *FacilitatorHandler) Allocate(c *gin.Context) {
	results, err := h.allocationService.Allocate(c.Request.Context(), c.Param("team"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"results": services.ResultViews(results)})
}

// GetResults handles GET /teams/:team/results
func (h *FacilitatorHandler) GetResults(c *gin.Context) {
	results, err := h.allocationService.Results(c.Request.Context(), c.Param("team"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": services.ResultViews(results)})
}

// Reset handles POST /teams/:team/reset
func (h *FacilitatorHandler) Reset(c *gin.Context) {
	if err := h.lifecycleService.Reset(c.Request.Context(), c.Param("team")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
