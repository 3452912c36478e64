package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/config"
	"github.com/ArowuTest/crashrace-backend/internal/handlers"
	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/ArowuTest/crashrace-backend/internal/repositories/repotest"
	"github.com/ArowuTest/crashrace-backend/internal/scheduler"
	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/ArowuTest/crashrace-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminPassword = "correct horse battery staple"

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router       *gin.Engine
	tokens       *jwt.TokenService
	races        *repotest.Races
	participants *repotest.Participants
	prizes       *repotest.Prizes
}

type serverOptions struct {
	multiplier *models.MultiplierConfig
	pingErr    error
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedHosts: []string{"localhost:3000"}, RequestTimeout: 5 * time.Second},
		Race: config.RaceConfig{
			LeaderboardSize:      1000,
			MaxPaidRanks:         10,
			PrizeExpiry:          7 * 24 * time.Hour,
			QueryLimit:           100,
			PoolContributionRate: 0.01,
			PayoutSchedule:       config.DefaultPayoutSchedule,
		},
		Sweep: config.SweepConfig{Schedule: "@every 5m", LockTTL: time.Minute},
	}
	logger := zap.NewNop()
	s := &testServer{
		tokens:       jwt.NewTokenService("route-test-secret", time.Hour),
		races:        repotest.NewRaces(),
		participants: repotest.NewParticipants(),
		prizes:       repotest.NewPrizes(),
	}

	var loadErr error
	if opts.multiplier == nil {
		loadErr = errors.New("open ./config/multiplier.json: no such file or directory")
	}
	generator := services.NewOutcomeGenerator(opts.multiplier, loadErr, nil, logger)
	rounds := services.NewRoundService(generator, repotest.NewRounds(), logger)
	ledger := services.NewLedgerService(s.participants, s.races, cfg.Race, logger)
	leaderboard := services.NewLeaderboardService(s.participants, cfg.Race, logger)
	allocator := services.NewPrizeAllocator(leaderboard, s.prizes, s.races, cfg.Race, logger)
	claims := services.NewPrizeClaimService(s.prizes, cfg.Race, logger)
	raceService := services.NewRaceService(s.races, s.participants, s.prizes, cfg.Race, logger)
	auth := services.NewAuthService(string(hash), s.tokens, logger)
	sweeper := scheduler.NewSweeper(claims, ledger, raceService, leaderboard, allocator, nil, cfg.Sweep, logger)

	s.router = SetupRouter(cfg, HandlerDependencies{
		GameHandler:   handlers.NewGameHandler(rounds),
		RaceHandler:   handlers.NewRaceHandler(raceService, ledger, leaderboard, allocator, sweeper, cfg.Race.LeaderboardSize, cfg.Race.QueryLimit),
		PrizeHandler:  handlers.NewPrizeHandler(claims),
		AuthHandler:   handlers.NewAuthHandler(auth),
		HealthHandler: handlers.NewHealthHandler(pinger{err: opts.pingErr}),
		Tokens:        s.tokens,
		Logger:        logger,
	})
	return s
}

func (s *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	token, _, err := s.tokens.Issue(subject, role)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

// seedEndedRace stores a race whose window has closed, with users ranked in
// the order given.
func (s *testServer) seedEndedRace(t *testing.T, raceID string, users ...string) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(-48 * time.Hour)
	err := s.races.Create(ctx, &models.Race{
		RaceID:         raceID,
		Name:           raceID,
		StartTime:      start,
		EndTime:        time.Now().Add(-time.Hour),
		PrizePool:      1000,
		PayoutSchedule: config.DefaultPayoutSchedule,
		Status:         models.RaceStatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, u := range users {
		if _, _, err := s.participants.RecordActivity(ctx, models.Activity{
			RaceID: raceID, UserID: u, BetAmount: 10, WinAmount: float64(100 - 10*i), At: start,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGameEndpoints(t *testing.T) {
	cfg := &models.MultiplierConfig{Tiers: []models.MultiplierTier{{MinMultiplier: 1, MaxMultiplier: 3, Probability: 1}}}
	s := newTestServer(t, serverOptions{multiplier: cfg})

	w, body := s.do(t, http.MethodGet, "/crash-multiplier", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("crash-multiplier status = %d", w.Code)
	}
	m, _ := body["crashMultiplier"].(float64)
	if m < 1 || m > 3 || body["degraded"] != false || body["roundId"] == "" {
		t.Errorf("crash-multiplier body = %v", body)
	}

	w, body = s.do(t, http.MethodGet, "/history?limit=5", "", nil)
	if w.Code != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("history = %d %v", w.Code, body)
	}

	for _, limit := range []string{"0", "101", "abc", "-3"} {
		w, body = s.do(t, http.MethodGet, "/history?limit="+limit, "", nil)
		if w.Code != http.StatusBadRequest || body["code"] != "VALIDATION_FAILED" {
			t.Errorf("history?limit=%s = %d %v, want 400", limit, w.Code, body)
		}
	}

	w, body = s.do(t, http.MethodGet, "/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("stats = %d %v", w.Code, body)
	}

	w, _ = s.do(t, http.MethodGet, "/multiplier-config", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("multiplier-config = %d", w.Code)
	}
}

func TestGameEndpoints_Degraded(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w, body := s.do(t, http.MethodGet, "/multiplier-config", "", nil)
	if w.Code != http.StatusInternalServerError || body["code"] != "MULTIPLIER_CONFIG_UNAVAILABLE" {
		t.Errorf("multiplier-config = %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodGet, "/crash-multiplier", "", nil)
	if w.Code != http.StatusOK || body["degraded"] != true {
		t.Errorf("crash-multiplier = %d %v, want degraded outcome", w.Code, body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, serverOptions{pingErr: errors.New("no reachable servers")})
	if w, _ := s.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", w.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"password": "wrong"})
	if w.Code != http.StatusUnauthorized || body["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("wrong password = %d %v", w.Code, body)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing password = %d, want 400", w.Code)
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"password": adminPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %v", w.Code, body)
	}
	token, _ := body["token"].(string)
	claims, err := s.tokens.Parse(token)
	if err != nil || claims.Role != jwt.RoleAdmin {
		t.Fatalf("issued token: %+v, %v", claims, err)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/sweep", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("sweep with issued token = %d", w.Code)
	}
}

func TestRaceLifecycle(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	admin := s.token(t, services.AdminSubject, jwt.RoleAdmin)
	player := s.token(t, "u1", jwt.RolePlayer)

	create := map[string]any{
		"raceId":    "weekly-1",
		"name":      "Weekly",
		"startTime": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"endTime":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"prizePool": 500,
	}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/admin/races", player, create); w.Code != http.StatusForbidden {
		t.Fatalf("player create = %d, want 403", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/admin/races", "", create); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", w.Code)
	}
	w, body := s.do(t, http.MethodPost, "/api/v1/admin/races", admin, create)
	if w.Code != http.StatusCreated || body["status"] != "active" {
		t.Fatalf("create = %d %v", w.Code, body)
	}
	if w, body := s.do(t, http.MethodPost, "/api/v1/admin/races", admin, create); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d %v", w.Code, body)
	}

	for _, a := range []map[string]any{
		{"userId": "u1", "betAmount": 100, "winAmount": 250, "won": true},
		{"userId": "u2", "betAmount": 100, "winAmount": 0},
		{"userId": "u3", "betAmount": 50, "winAmount": 80, "won": true},
	} {
		if w, body := s.do(t, http.MethodPost, "/api/v1/admin/races/weekly-1/activity", admin, a); w.Code != http.StatusOK {
			t.Fatalf("activity %v = %d %v", a, w.Code, body)
		}
	}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/admin/races/weekly-1/activity", admin, map[string]any{"userId": "u1", "betAmount": -1}); w.Code != http.StatusBadRequest {
		t.Errorf("negative bet = %d, want 400", w.Code)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/races/weekly-1", "", nil)
	if w.Code != http.StatusOK || body["prizePool"] != 502.5 {
		t.Errorf("race after activity = %d %v, want pool 502.5", w.Code, body)
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/admin/races/weekly-1/recompute", admin, nil)
	if w.Code != http.StatusOK || body["ranked"] != float64(3) {
		t.Fatalf("recompute = %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/races/weekly-1/leaderboard?limit=2", "", nil)
	if w.Code != http.StatusOK || body["count"] != float64(2) {
		t.Fatalf("leaderboard = %d %v", w.Code, body)
	}
	entries := body["entries"].([]any)
	if first := entries[0].(map[string]any); first["userId"] != "u1" || first["rank"] != float64(1) {
		t.Errorf("leader = %v", first)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/races/weekly-1/leaderboard?limit=1001", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("oversized limit = %d, want 400", w.Code)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/races/weekly-1/rank", s.token(t, "u3", jwt.RolePlayer), nil)
	if w.Code != http.StatusOK || body["rank"] != float64(2) {
		t.Errorf("u3 rank = %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/races/weekly-1/rank", s.token(t, "nobody", jwt.RolePlayer), nil); w.Code != http.StatusNotFound {
		t.Errorf("rank for absent user = %d, want 404", w.Code)
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/admin/races/weekly-1/settle", admin, nil)
	if w.Code != http.StatusConflict || body["code"] != "RACE_NOT_ENDED" {
		t.Errorf("early settle = %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodDelete, "/api/v1/admin/races/weekly-1/data", admin, nil); w.Code != http.StatusConflict {
		t.Errorf("purge of active race = %d, want 409", w.Code)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/races/active", "", nil)
	if w.Code != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("active races = %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/races/missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing race = %d, want 404", w.Code)
	}
}

func TestSettleAndClaim(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	admin := s.token(t, services.AdminSubject, jwt.RoleAdmin)
	s.seedEndedRace(t, "closed", "u1", "u2", "u3")

	w, body := s.do(t, http.MethodPost, "/api/v1/admin/races/closed/settle", admin, nil)
	if w.Code != http.StatusOK || body["prizesCreated"] != float64(3) {
		t.Fatalf("settle = %d %v", w.Code, body)
	}
	w, body = s.do(t, http.MethodPost, "/api/v1/admin/races/closed/settle", admin, nil)
	if w.Code != http.StatusConflict || body["code"] != "ALREADY_SETTLED" {
		t.Errorf("second settle = %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/races/closed/prizes", "", nil)
	if w.Code != http.StatusOK || body["count"] != float64(3) {
		t.Errorf("race prizes = %d %v", w.Code, body)
	}

	u1 := s.token(t, "u1", jwt.RolePlayer)
	w, body = s.do(t, http.MethodGet, "/api/v1/prizes/pending", u1, nil)
	if w.Code != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("pending = %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/races/closed/prizes/claim", u1, nil)
	if w.Code != http.StatusOK || body["status"] != "claimed" || body["prizeAmount"] != float64(300) {
		t.Fatalf("claim = %d %v", w.Code, body)
	}
	w, body = s.do(t, http.MethodPost, "/api/v1/races/closed/prizes/claim", u1, nil)
	if w.Code != http.StatusConflict || body["code"] != "ALREADY_CLAIMED" {
		t.Errorf("second claim = %d %v", w.Code, body)
	}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/races/closed/prizes/claim", s.token(t, "u9", jwt.RolePlayer), nil); w.Code != http.StatusNotFound {
		t.Errorf("claim without prize = %d, want 404", w.Code)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/prizes/history", u1, nil)
	if w.Code != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("history = %d %v", w.Code, body)
	}

	w, body = s.do(t, http.MethodDelete, "/api/v1/admin/races/closed/data", admin, nil)
	if w.Code != http.StatusOK || body["participantsDeleted"] != float64(3) || body["prizesDeleted"] != float64(3) {
		t.Errorf("purge = %d %v", w.Code, body)
	}
}

func TestClaimExpiredPrize(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.prizes.Put(&models.RacePrize{
		RaceID:      "old",
		UserID:      "u1",
		Rank:        1,
		PrizeAmount: 50,
		Status:      models.PrizeStatusPending,
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	u1 := s.token(t, "u1", jwt.RolePlayer)
	for i := 0; i < 2; i++ {
		w, body := s.do(t, http.MethodPost, "/api/v1/races/old/prizes/claim", u1, nil)
		if w.Code != http.StatusGone || body["code"] != "PRIZE_EXPIRED" {
			t.Errorf("attempt %d: claim = %d %v, want 410", i+1, w.Code, body)
		}
	}
}
