package handlers

import (
	"context"
	"net/http"

	"github.com/ArowuTest/crashrace-backend/internal/middleware"
	"github.com/ArowuTest/crashrace-backend/internal/scheduler"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/ArowuTest/crashrace-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// SweepRunner runs one maintenance sweep on demand
type SweepRunner interface {
	Run(ctx context.Context) *scheduler.SweepReport
}

// RaceHandler handles race, leaderboard and settlement requests
type RaceHandler struct {
	races       services.RaceService
	ledger      services.LedgerService
	leaderboard services.LeaderboardService
	allocator   services.PrizeAllocator
	sweeper     SweepRunner
	maxLimit    int
	queryLimit  int
}

// NewRaceHandler creates a new RaceHandler. Leaderboard reads accept limits
// up to leaderboardSize and default to queryLimit.
func NewRaceHandler(
	races services.RaceService,
	ledger services.LedgerService,
	leaderboard services.LeaderboardService,
	allocator services.PrizeAllocator,
	sweeper SweepRunner,
	leaderboardSize, queryLimit int,
) *RaceHandler {
	return &RaceHandler{
		races:       races,
		ledger:      ledger,
		leaderboard: leaderboard,
		allocator:   allocator,
		sweeper:     sweeper,
		maxLimit:    leaderboardSize,
		queryLimit:  queryLimit,
	}
}

// ListActiveRaces handles GET /races/active
func (h *RaceHandler) ListActiveRaces(c *gin.Context) {
	races, err := h.races.ListActiveRaces(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"races": races, "count": len(races)})
}

// GetRace handles GET /races/:raceId
func (h *RaceHandler) GetRace(c *gin.Context) {
	race, err := h.races.GetRace(c.Request.Context(), c.Param("raceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, race)
}

// GetLeaderboard handles GET /races/:raceId/leaderboard?limit=
func (h *RaceHandler) GetLeaderboard(c *gin.Context) {
	limit, err := utils.ParseLimit(c.Query("limit"), h.queryLimit, h.maxLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	entries, err := h.leaderboard.Top(c.Request.Context(), c.Param("raceId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raceId": c.Param("raceId"), "entries": entries, "count": len(entries)})
}

// GetMyRank handles GET /races/:raceId/rank for the authenticated player
func (h *RaceHandler) GetMyRank(c *gin.Context) {
	participant, err := h.leaderboard.GetUserRank(c.Request.Context(), c.Param("raceId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// CreateRace handles POST /admin/races
func (h *RaceHandler) CreateRace(c *gin.Context) {
	var req services.CreateRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	race, err := h.races.CreateRace(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, race)
}

// activityRequest is one bet/win event reported by the game server
type activityRequest struct {
	UserID    string  `json:"userId" binding:"required"`
	BetAmount float64 `json:"betAmount"`
	WinAmount float64 `json:"winAmount"`
	Won       bool    `json:"won"`
}

// RecordActivity handles POST /admin/races/:raceId/activity
func (h *RaceHandler) RecordActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	participant, err := h.ledger.RecordActivity(c.Request.Context(), c.Param("raceId"), req.UserID, req.BetAmount, req.WinAmount, req.Won)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// Recompute handles POST /admin/races/:raceId/recompute
func (h *RaceHandler) Recompute(c *gin.Context) {
	ranked, err := h.leaderboard.Rank(c.Request.Context(), c.Param("raceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raceId": c.Param("raceId"), "ranked": len(ranked)})
}

// Settle handles POST /admin/races/:raceId/settle
func (h *RaceHandler) Settle(c *gin.Context) {
	winners, err := h.allocator.SettleRace(c.Request.Context(), c.Param("raceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raceId": c.Param("raceId"), "prizesCreated": winners})
}

// PurgeRace handles DELETE /admin/races/:raceId/data
func (h *RaceHandler) PurgeRace(c *gin.Context) {
	result, err := h.races.PurgeRace(c.Request.Context(), c.Param("raceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunSweep handles POST /admin/sweep
func (h *RaceHandler) RunSweep(c *gin.Context) {
	c.JSON(http.StatusOK, h.sweeper.Run(c.Request.Context()))
}
