package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Race.LeaderboardSize != 1000 || cfg.Race.MaxPaidRanks != 10 {
		t.Errorf("race limits = %d/%d", cfg.Race.LeaderboardSize, cfg.Race.MaxPaidRanks)
	}
	if cfg.Race.PrizeExpiry != 7*24*time.Hour {
		t.Errorf("prize expiry = %v", cfg.Race.PrizeExpiry)
	}
	if cfg.Sweep.Schedule != "@every 5m" || cfg.Sweep.AutoSettle {
		t.Errorf("sweep = %+v", cfg.Sweep)
	}
	if len(cfg.Race.PayoutSchedule) != len(DefaultPayoutSchedule) {
		t.Errorf("payout schedule has %d tiers, want default", len(cfg.Race.PayoutSchedule))
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
race:
  leaderboard_size: 200
  max_paid_ranks: 3
  payout_schedule:
    - rankRangeStart: 1
      rankRangeEnd: 1
      percentage: 0.5
    - rankRangeStart: 2
      rankRangeEnd: 3
      percentage: 0.25
sweep:
  schedule: "@hourly"
`)
	t.Setenv("RACE_LEADERBOARD_SIZE", "50")
	t.Setenv("SWEEP_AUTO_SETTLE", "true")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Race.LeaderboardSize != 50 {
		t.Errorf("leaderboard size = %d, want env override 50", cfg.Race.LeaderboardSize)
	}
	if cfg.Race.MaxPaidRanks != 3 || cfg.Sweep.Schedule != "@hourly" || !cfg.Sweep.AutoSettle {
		t.Errorf("cfg = %+v %+v", cfg.Race, cfg.Sweep)
	}
	if len(cfg.Race.PayoutSchedule) != 2 || cfg.Race.PayoutSchedule[1].RankRangeEnd != 3 {
		t.Errorf("payout schedule = %+v", cfg.Race.PayoutSchedule)
	}
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"paid ranks beyond leaderboard", "RACE_MAX_PAID_RANKS", "5000"},
		{"zero leaderboard", "RACE_LEADERBOARD_SIZE", "0"},
		{"contribution rate above one", "RACE_POOL_CONTRIBUTION_RATE", "1.5"},
		{"zero query limit", "RACE_QUERY_LIMIT", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(t.TempDir()); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
