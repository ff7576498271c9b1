// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"time"
)

// Payout modes.
const (
	// PayoutModeLedger credits the player's native balance held in Redis.
	PayoutModeLedger = "ledger"
	// PayoutModeEntitlement grants an AccelByte item per redeemed unit.
	PayoutModeEntitlement = "entitlement"
)

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// Use struct tags to define:
// - `env:"VAR_NAME"` - the environment variable name
// - `env:",required"` - make it required
// - `envDefault:"value"` - set a default value
//
// Cross-field rules live in Validate.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ChallengeLedger"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost         string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int           `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// ============================================================
	// Ledger configuration
	// ============================================================
	OwnerAddress        string        `env:"OWNER_ADDRESS,required,notEmpty"`
	OperatorAddress     string        `env:"OPERATOR_ADDRESS,required,notEmpty"`
	BootstrapOperators  []string      `env:"BOOTSTRAP_OPERATORS" envSeparator:","`
	ChallengeDuration   time.Duration `env:"CHALLENGE_DURATION" envDefault:"300s"`
	CompletionThreshold uint64        `env:"COMPLETION_THRESHOLD" envDefault:"9"`
	PointsDivisor       uint64        `env:"POINTS_DIVISOR" envDefault:"3"`
	MaxPoints           uint64        `env:"MAX_POINTS" envDefault:"3"`
	UnitValueWei        string        `env:"UNIT_VALUE_WEI" envDefault:"100000000000000000"`
	ChainID             uint64        `env:"CHAIN_ID" envDefault:"31337"`

	// ============================================================
	// Session mirror configuration
	// ============================================================
	ClientGoal             uint64  `env:"CLIENT_GOAL" envDefault:"6"`
	ClientPointsDivisor    uint64  `env:"CLIENT_POINTS_DIVISOR" envDefault:"2"`
	ClaimSignatureRequired bool    `env:"CLAIM_SIGNATURE_REQUIRED" envDefault:"true"`
	NpcTalkRate            float64 `env:"NPC_TALK_RATE" envDefault:"5"`
	NpcTalkBurst           int     `env:"NPC_TALK_BURST" envDefault:"10"`

	// ============================================================
	// Admin configuration
	// ============================================================
	// AdminToken enables the /admin endpoints when set.
	AdminToken string `env:"ADMIN_TOKEN"`

	// ============================================================
	// Payout configuration
	// ============================================================
	PayoutMode   string `env:"PAYOUT_MODE" envDefault:"ledger"`
	RewardItemID string `env:"REWARD_ITEM_ID"`

	// ============================================================
	// AccelByte configuration (required for entitlement payout or
	// hooks that call AccelByte services)
	// ============================================================
	ABNamespace    string `env:"AB_NAMESPACE"`
	ABBaseURL      string `env:"AB_BASE_URL"`
	ABClientID     string `env:"AB_CLIENT_ID"`
	ABClientSecret string `env:"AB_CLIENT_SECRET"`

	// ============================================================
	// Hooks configuration
	// ============================================================
	HooksConfigPath string `env:"HOOKS_CONFIG_PATH" envDefault:"config/hooks.yaml"`
	HookWorkers     int    `env:"HOOK_WORKERS" envDefault:"2"`
	HookQueueSize   int    `env:"HOOK_QUEUE_SIZE" envDefault:"256"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"challenge-ledger"`
}
