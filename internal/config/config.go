package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
	Multiplier MultiplierConfig `mapstructure:"multiplier"`
	Race       RaceConfig       `mapstructure:"race"`
	Sweep      SweepConfig      `mapstructure:"sweep"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	AllowedHosts   []string      `mapstructure:"allowed_hosts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the optional Redis used for the sweep lock. An empty
// Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
}

// AdminConfig holds the bcrypt hash of the operator password
type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

// LogConfig holds zap logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// MultiplierConfig points at the crash multiplier tier table
type MultiplierConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// RaceConfig holds race policy values
type RaceConfig struct {
	LeaderboardSize      int                 `mapstructure:"leaderboard_size"`
	MaxPaidRanks         int                 `mapstructure:"max_paid_ranks"`
	PrizeExpiry          time.Duration       `mapstructure:"prize_expiry"`
	QueryLimit           int                 `mapstructure:"query_limit"`
	PoolContributionRate float64             `mapstructure:"pool_contribution_rate"`
	PayoutSchedule       []models.PayoutTier `mapstructure:"payout_schedule"`
}

// SweepConfig holds the background sweep schedule
type SweepConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	AutoSettle bool          `mapstructure:"auto_settle"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

// DefaultPayoutSchedule pays the top ten ranks.
var DefaultPayoutSchedule = []models.PayoutTier{
	{RankRangeStart: 1, RankRangeEnd: 1, Percentage: 0.30},
	{RankRangeStart: 2, RankRangeEnd: 2, Percentage: 0.20},
	{RankRangeStart: 3, RankRangeEnd: 3, Percentage: 0.15},
	{RankRangeStart: 4, RankRangeEnd: 4, Percentage: 0.10},
	{RankRangeStart: 5, RankRangeEnd: 5, Percentage: 0.08},
	{RankRangeStart: 6, RankRangeEnd: 10, Percentage: 0.034},
}

// Load loads configuration from .env, an optional config.yaml and the environment.
// Environment keys use underscores for nesting, e.g. MONGODB_URI or RACE_PRIZE_EXPIRY.
func Load(paths ...string) (*Config, error) {
	// A missing .env is fine; the process environment is used as is.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Race.PayoutSchedule) == 0 {
		cfg.Race.PayoutSchedule = DefaultPayoutSchedule
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch {
	case c.MongoDB.URI == "":
		return errors.New("mongodb.uri is required")
	case c.Race.LeaderboardSize <= 0:
		return errors.New("race.leaderboard_size must be positive")
	case c.Race.MaxPaidRanks <= 0 || c.Race.MaxPaidRanks > c.Race.LeaderboardSize:
		return errors.New("race.max_paid_ranks must be within the leaderboard size")
	case c.Race.PrizeExpiry <= 0:
		return errors.New("race.prize_expiry must be positive")
	case c.Race.QueryLimit <= 0:
		return errors.New("race.query_limit must be positive")
	case c.Race.PoolContributionRate < 0 || c.Race.PoolContributionRate > 1:
		return errors.New("race.pool_contribution_rate must be within [0,1]")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.allowed_hosts", []string{"localhost:3000"})
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "crashrace")
	v.SetDefault("mongodb.connect_timeout", "10s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expires_in", "24h")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("multiplier.config_path", "./config/multiplier.json")
	v.SetDefault("race.leaderboard_size", 1000)
	v.SetDefault("race.max_paid_ranks", 10)
	v.SetDefault("race.prize_expiry", "168h")
	v.SetDefault("race.query_limit", 100)
	v.SetDefault("race.pool_contribution_rate", 0.01)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@every 5m")
	v.SetDefault("sweep.auto_settle", false)
	v.SetDefault("sweep.lock_ttl", "2m")
}
