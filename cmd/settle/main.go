// Command settle settles a race out of band, e.g. when the sweep is disabled
// or auto-settlement is off.
//
//	settle -race <raceId> [-expire] [-purge]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/logger"
	mongorepo "github.com/ArowuTest/crashrace-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	mongodb "github.com/ArowuTest/crashrace-backend/pkg/mongodb"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	raceID := flag.String("race", "", "race id to settle")
	expire := flag.Bool("expire", false, "also expire stale pending prizes across all races")
	purge := flag.Bool("purge", false, "purge the race's ledger and prize rows after settling")
	flag.Parse()

	if *raceID == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	client, err := mongodb.NewClient(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	err = withTimeout(cfg.Server.RequestTimeout, func(ctx context.Context) error {
		return mongorepo.EnsureIndexes(ctx, db)
	})
	if err != nil {
		zlog.Fatal("failed to ensure indexes", zap.Error(err))
	}

	participants := mongorepo.NewParticipantRepository(db)
	prizes := mongorepo.NewPrizeRepository(db)
	races := mongorepo.NewRaceRepository(db)

	ledger := services.NewLedgerService(participants, races, cfg.Race, zlog)
	leaderboard := services.NewLeaderboardService(participants, cfg.Race, zlog)
	allocator := services.NewPrizeAllocator(leaderboard, prizes, races, cfg.Race, zlog)

	err = withTimeout(cfg.Server.RequestTimeout, func(ctx context.Context) error {
		pool, corrected, err := ledger.ReconcilePool(ctx, *raceID)
		if err == nil && corrected {
			fmt.Printf("race %s prize pool corrected to %.2f\n", *raceID, pool)
		}
		return err
	})
	if err != nil {
		zlog.Fatal("pool reconciliation failed", zap.String("raceId", *raceID), zap.Error(err))
	}

	var winners int
	err = withTimeout(cfg.Server.RequestTimeout, func(ctx context.Context) error {
		var err error
		winners, err = allocator.SettleRace(ctx, *raceID)
		return err
	})
	switch {
	case services.IsAlreadySettled(err):
		fmt.Printf("race %s was already settled\n", *raceID)
	case err != nil:
		zlog.Fatal("settlement failed", zap.String("raceId", *raceID), zap.Error(err))
	default:
		fmt.Printf("race %s settled: %d prizes created\n", *raceID, winners)
	}

	if *expire {
		var n int64
		err := withTimeout(cfg.Server.RequestTimeout, func(ctx context.Context) error {
			var err error
			n, err = services.NewPrizeClaimService(prizes, cfg.Race, zlog).ExpireStale(ctx)
			return err
		})
		if err != nil {
			zlog.Fatal("expiry failed", zap.Error(err))
		}
		fmt.Printf("%d stale prizes expired\n", n)
	}

	if *purge {
		var res *services.PurgeResult
		err := withTimeout(cfg.Server.RequestTimeout, func(ctx context.Context) error {
			var err error
			res, err = services.NewRaceService(races, participants, prizes, cfg.Race, zlog).PurgeRace(ctx, *raceID)
			return err
		})
		if err != nil {
			zlog.Fatal("purge failed", zap.String("raceId", *raceID), zap.Error(err))
		}
		fmt.Printf("race %s purged: %d participants, %d prizes deleted\n", *raceID, res.ParticipantsDeleted, res.PrizesDeleted)
	}
}

// withTimeout runs fn under its own deadline; a zero timeout means none.
func withTimeout(timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
