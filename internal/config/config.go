package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                       string
	JWTSecret                  string
	RedisAddr                  string
	PublicBaseURL              string
	StoryImageDir              string
	GenerationURL              string
	GenerationTimeoutSeconds   int
	GenerationMaxAttempts      int
	GenerationBackoffMillis    int
	ManualRetryCooldownSeconds int
	ForceStartCountdownSeconds int
	GameWatchIntervalSeconds   int
	StoryWatchIntervalSeconds  int
	EnableCustomWords          bool
	DBMaxOpenConns             int
	DBMaxIdleConns             int
	DBConnMaxLifetimeSeconds   int
}

func Default() Config {
	return Config{
		Port:                       "8080",
		JWTSecret:                  "word-party-dev-secret",
		PublicBaseURL:              "http://localhost:8080",
		StoryImageDir:              "data/story-images",
		GenerationURL:              "http://localhost:9090/generate-story-images",
		GenerationTimeoutSeconds:   45,
		GenerationMaxAttempts:      3,
		GenerationBackoffMillis:    2000,
		ManualRetryCooldownSeconds: 30,
		ForceStartCountdownSeconds: 30,
		GameWatchIntervalSeconds:   2,
		StoryWatchIntervalSeconds:  3,
		DBMaxOpenConns:             10,
		DBMaxIdleConns:             10,
		DBConnMaxLifetimeSeconds:   300,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("JWT_SECRET"); raw != "" {
		cfg.JWTSecret = raw
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("PUBLIC_BASE_URL"); raw != "" {
		cfg.PublicBaseURL = raw
	}
	if raw := os.Getenv("STORY_IMAGE_DIR"); raw != "" {
		cfg.StoryImageDir = raw
	}
	if raw := os.Getenv("GENERATION_URL"); raw != "" {
		cfg.GenerationURL = raw
	}
	if raw := os.Getenv("GENERATION_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GenerationTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("GENERATION_MAX_ATTEMPTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GenerationMaxAttempts = value
		}
	}
	if raw := os.Getenv("GENERATION_BACKOFF_MILLIS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GenerationBackoffMillis = value
		}
	}
	if raw := os.Getenv("MANUAL_RETRY_COOLDOWN_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ManualRetryCooldownSeconds = value
		}
	}
	if raw := os.Getenv("FORCE_START_COUNTDOWN_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.ForceStartCountdownSeconds = value
		}
	}
	if raw := os.Getenv("GAME_WATCH_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GameWatchIntervalSeconds = value
		}
	}
	if raw := os.Getenv("STORY_WATCH_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.StoryWatchIntervalSeconds = value
		}
	}
	if raw := os.Getenv("ENABLE_CUSTOM_WORDS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnableCustomWords = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	return cfg
}
