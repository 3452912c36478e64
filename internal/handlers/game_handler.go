package handlers

import (
	"net/http"

	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/ArowuTest/crashrace-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// GameHandler serves crash round endpoints
type GameHandler struct {
	rounds services.RoundService
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(rounds services.RoundService) *GameHandler {
	return &GameHandler{rounds: rounds}
}

// GetMultiplierConfig handles GET /multiplier-config
func (h *GameHandler) GetMultiplierConfig(c *gin.Context) {
	cfg, err := h.rounds.MultiplierConfig()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// GetCrashMultiplier handles GET /crash-multiplier
func (h *GameHandler) GetCrashMultiplier(c *gin.Context) {
	round, err := h.rounds.NextRound(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"crashMultiplier": round.CrashMultiplier,
		"timestamp":       round.CreatedAt.UnixMilli(),
		"roundId":         round.RoundID,
		"degraded":        round.Degraded,
	})
}

// GetStats handles GET /stats
func (h *GameHandler) GetStats(c *gin.Context) {
	stats, err := h.rounds.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHistory handles GET /history?limit=
func (h *GameHandler) GetHistory(c *gin.Context) {
	limit, err := utils.ParseLimit(c.Query("limit"), services.DefaultHistoryLimit, services.MaxHistoryLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rounds, err := h.rounds.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds, "count": len(rounds)})
}
