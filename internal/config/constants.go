package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Remote API client
const (
	HoyoRequestTimeout = 15 * time.Second
	CodesFeedTimeout   = 10 * time.Second
	NotifySendTimeout  = 10 * time.Second
	RedeemPacingDelay  = 5 * time.Second
	CodesFeedCacheTTL  = 5 * time.Minute
)

// Per-account admission control for remote actions
const (
	AccountRateLimit       = 10
	AccountRateLimitWindow = time.Minute
)

// Rate limiting for the operational API surface
const APIRateLimitPerMin = 30
