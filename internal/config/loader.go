// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
// It is called after environment variables are parsed.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"HTTP_PORT": c.HTTPPort, "GRPC_PORT": c.GRPCPort, "METRICS_PORT": c.MetricsPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}

	if _, err := ledger.NormalizeAddress(c.OwnerAddress); err != nil {
		return fmt.Errorf("invalid OWNER_ADDRESS: %w", err)
	}
	if _, err := ledger.NormalizeAddress(c.OperatorAddress); err != nil {
		return fmt.Errorf("invalid OPERATOR_ADDRESS: %w", err)
	}
	for _, op := range c.BootstrapOperators {
		if _, err := ledger.NormalizeAddress(strings.TrimSpace(op)); err != nil {
			return fmt.Errorf("invalid BOOTSTRAP_OPERATORS entry: %w", err)
		}
	}

	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.ClientGoal == 0 || c.ClientPointsDivisor == 0 {
		return fmt.Errorf("CLIENT_GOAL and CLIENT_POINTS_DIVISOR must be positive")
	}
	if c.NpcTalkRate < 0 {
		return fmt.Errorf("NPC_TALK_RATE cannot be negative")
	}
	if c.HookWorkers < 1 {
		return fmt.Errorf("HOOK_WORKERS must be at least 1")
	}

	switch c.PayoutMode {
	case PayoutModeLedger:
	case PayoutModeEntitlement:
		if c.RewardItemID == "" {
			return fmt.Errorf("REWARD_ITEM_ID is required when PAYOUT_MODE=%s", PayoutModeEntitlement)
		}
		if err := c.ValidateAccelByte(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid PAYOUT_MODE %q (must be %s or %s)", c.PayoutMode, PayoutModeLedger, PayoutModeEntitlement)
	}

	return nil
}

// ValidateAccelByte checks the AccelByte credentials needed to call platform services.
func (c *Config) ValidateAccelByte() error {
	if c.ABNamespace == "" {
		return fmt.Errorf("AB_NAMESPACE is required")
	}
	if c.ABBaseURL == "" || c.ABClientID == "" || c.ABClientSecret == "" {
		return fmt.Errorf("AB_BASE_URL, AB_CLIENT_ID and AB_CLIENT_SECRET are required")
	}
	return nil
}

// Policy returns the authoritative ledger policy.
func (c *Config) Policy() (ledger.Policy, error) {
	unitValue, ok := new(big.Int).SetString(c.UnitValueWei, 10)
	if !ok || unitValue.Sign() <= 0 {
		return ledger.Policy{}, fmt.Errorf("invalid UNIT_VALUE_WEI %q (must be a positive integer)", c.UnitValueWei)
	}

	policy := ledger.Policy{
		CompletionThreshold: c.CompletionThreshold,
		PointsDivisor:       c.PointsDivisor,
		MaxPoints:           c.MaxPoints,
		Duration:            c.ChallengeDuration,
		UnitValue:           unitValue,
	}
	if err := policy.Validate(); err != nil {
		return ledger.Policy{}, fmt.Errorf("invalid challenge policy: %w", err)
	}
	return policy, nil
}

// ProjectionPolicy returns the client-side projection policy.
func (c *Config) ProjectionPolicy() ledger.Policy {
	p := ledger.ClientProjectionPolicy()
	p.CompletionThreshold = c.ClientGoal
	p.PointsDivisor = c.ClientPointsDivisor
	p.MaxPoints = c.MaxPoints
	return p
}

// RedisAddr returns the host:port of Redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
