package routes

import (
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/handlers"
	"github.com/ArowuTest/crashrace-backend/internal/middleware"
	"github.com/ArowuTest/crashrace-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandlerDependencies holds all handler instances needed by the router
type HandlerDependencies struct {
	GameHandler   *handlers.GameHandler
	RaceHandler   *handlers.RaceHandler
	PrizeHandler  *handlers.PrizeHandler
	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	Tokens        middleware.TokenParser
	Logger        *zap.Logger
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))
	router.Use(middleware.TimeoutMiddleware(cfg.Server.RequestTimeout))

	router.GET("/healthz", deps.HealthHandler.Live)
	router.GET("/readyz", deps.HealthHandler.Ready)

	// Game endpoints
	router.GET("/multiplier-config", deps.GameHandler.GetMultiplierConfig)
	router.GET("/crash-multiplier", deps.GameHandler.GetCrashMultiplier)
	router.GET("/stats", deps.GameHandler.GetStats)
	router.GET("/history", deps.GameHandler.GetHistory)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/admin/login", deps.AuthHandler.AdminLogin)
		}

		races := v1.Group("/races")
		{
			races.GET("/active", deps.RaceHandler.ListActiveRaces)
			races.GET("/:raceId", deps.RaceHandler.GetRace)
			races.GET("/:raceId/leaderboard", deps.RaceHandler.GetLeaderboard)
			races.GET("/:raceId/prizes", deps.PrizeHandler.GetRacePrizes)
		}

		player := v1.Group("")
		player.Use(middleware.JWTAuthMiddleware(deps.Tokens, deps.Logger))
		{
			player.GET("/races/:raceId/rank", deps.RaceHandler.GetMyRank)
			player.POST("/races/:raceId/prizes/claim", deps.PrizeHandler.Claim)
			player.GET("/prizes/pending", deps.PrizeHandler.GetPending)
			player.GET("/prizes/history", deps.PrizeHandler.GetHistory)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuthMiddleware(deps.Tokens, deps.Logger), middleware.RequireRole(jwt.RoleAdmin))
		{
			admin.POST("/races", deps.RaceHandler.CreateRace)
			admin.POST("/races/:raceId/activity", deps.RaceHandler.RecordActivity)
			admin.POST("/races/:raceId/recompute", deps.RaceHandler.Recompute)
			admin.POST("/races/:raceId/settle", deps.RaceHandler.Settle)
			admin.DELETE("/races/:raceId/data", deps.RaceHandler.PurgeRace)
			admin.POST("/sweep", deps.RaceHandler.RunSweep)
		}
	}

	return router
}
