package handlers

import (
	"net/http"

	"github.com/ArowuTest/crashrace-backend/internal/middleware"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// PrizeHandler handles prize claims and prize queries
type PrizeHandler struct {
	claims services.PrizeClaimService
}

// NewPrizeHandler creates a new PrizeHandler
func NewPrizeHandler(claims services.PrizeClaimService) *PrizeHandler {
	return &PrizeHandler{claims: claims}
}

// Claim handles POST /races/:raceId/prizes/claim
func (h *PrizeHandler) Claim(c *gin.Context) {
	prize, err := h.claims.Claim(c.Request.Context(), c.Param("raceId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// GetPending handles GET /prizes/pending
func (h *PrizeHandler) GetPending(c *gin.Context) {
	prizes, err := h.claims.GetUserPendingPrizes(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes, "count": len(prizes)})
}

// GetHistory handles GET /prizes/history
func (h *PrizeHandler) GetHistory(c *gin.Context) {
	prizes, err := h.claims.GetUserPrizeHistory(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes, "count": len(prizes)})
}

// GetRacePrizes handles GET /races/:raceId/prizes
func (h *PrizeHandler) GetRacePrizes(c *gin.Context) {
	prizes, err := h.claims.GetRacePrizes(c.Request.Context(), c.Param("raceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raceId": c.Param("raceId"), "prizes": prizes, "count": len(prizes)})
}
