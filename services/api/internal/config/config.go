package config

import (
	"errors"
	"os"
	"strings"
	"time"

	platformconfig "github.com/example/streaming-platform/internal/platform/config"
)

// Config holds everything the API service reads from the environment
// beyond the shared app settings.
type Config struct {
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// BootstrapAdminEmail, when set, promotes that user to admin on startup.
	BootstrapAdminEmail string

	// NATSURL is optional; when empty the API runs without analytics events.
	NATSURL string

	// RateLimitEnabled turns the per-IP limiter off entirely, for load
	// tests and local development.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

func Load() (Config, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return Config{
		JWTSecret:           []byte(secret),
		AccessTokenTTL:      platformconfig.Duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:     platformconfig.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		BootstrapAdminEmail: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		NATSURL:             strings.TrimSpace(os.Getenv("NATS_URL")),
		RateLimitEnabled:    platformconfig.Bool("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        float64(platformconfig.Int("RATE_LIMIT_RPS", 20)),
		RateLimitBurst:      platformconfig.Int("RATE_LIMIT_BURST", 40),
	}, nil
}
