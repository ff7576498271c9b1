// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether the ledger store is reachable.
type HealthChecker struct {
	client  *redis.Client
	timeout time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(client *redis.Client) *HealthChecker {
	return &HealthChecker{client: client, timeout: 2 * time.Second}
}

// Check pings Redis within the checker's timeout
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.client.Ping(ctx).Err(); err != nil {
		logrus.Errorf("ledger store health check failed: %v", err)
		return err
	}

	logrus.Debugf("ledger store health check passed")
	return nil
}

// IsHealthy returns true if Redis is accessible
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}
