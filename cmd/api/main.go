package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/crashrace-backend/api/routes"
	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/handlers"
	"github.com/ArowuTest/crashrace-backend/internal/lock"
	"github.com/ArowuTest/crashrace-backend/internal/logger"
	"github.com/ArowuTest/crashrace-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/crashrace-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/crashrace-backend/internal/scheduler"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/ArowuTest/crashrace-backend/pkg/jwt"
	mongodb "github.com/ArowuTest/crashrace-backend/pkg/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// Root context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			zlog.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		zlog.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Repositories
	var participantRepo repositories.ParticipantStore = mongorepo.NewParticipantRepository(db)
	var prizeRepo repositories.PrizeStore = mongorepo.NewPrizeRepository(db)
	var raceRepo repositories.RaceRepository = mongorepo.NewRaceRepository(db)
	var roundRepo repositories.RoundRepository = mongorepo.NewRoundRepository(db)

	// Multiplier table; a load failure degrades the generator instead of aborting
	multiplierCfg, loadErr := config.LoadMultiplierConfig(cfg.Multiplier.ConfigPath)
	generator := services.NewOutcomeGenerator(multiplierCfg, loadErr, nil, zlog)

	// Services
	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	authService := services.NewAuthService(cfg.Admin.PasswordHash, tokens, zlog)
	roundService := services.NewRoundService(generator, roundRepo, zlog)
	raceService := services.NewRaceService(raceRepo, participantRepo, prizeRepo, cfg.Race, zlog)
	ledgerService := services.NewLedgerService(participantRepo, raceRepo, cfg.Race, zlog)
	leaderboardService := services.NewLeaderboardService(participantRepo, cfg.Race, zlog)
	prizeAllocator := services.NewPrizeAllocator(leaderboardService, prizeRepo, raceRepo, cfg.Race, zlog)
	claimService := services.NewPrizeClaimService(prizeRepo, cfg.Race, zlog)

	// Sweep, locked through Redis when configured
	var locker lock.Locker = lock.NoopLocker{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	}
	sweeper := scheduler.NewSweeper(claimService, ledgerService, raceService, leaderboardService, prizeAllocator, locker, cfg.Sweep, zlog)

	runner := scheduler.NewRunner(ctx, zlog)
	if cfg.Sweep.Enabled {
		if err := sweeper.Register(runner); err != nil {
			zlog.Fatal("invalid sweep schedule", zap.String("schedule", cfg.Sweep.Schedule), zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	handlerDeps := routes.HandlerDependencies{
		GameHandler:   handlers.NewGameHandler(roundService),
		RaceHandler:   handlers.NewRaceHandler(raceService, ledgerService, leaderboardService, prizeAllocator, sweeper, cfg.Race.LeaderboardSize, cfg.Race.QueryLimit),
		PrizeHandler:  handlers.NewPrizeHandler(claimService),
		AuthHandler:   handlers.NewAuthHandler(authService),
		HealthHandler: handlers.NewHealthHandler(mongoClient),
		Tokens:        tokens,
		Logger:        zlog,
	}
	router := routes.SetupRouter(cfg, handlerDeps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Run server in a goroutine so that it doesn't block
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exiting")
}
