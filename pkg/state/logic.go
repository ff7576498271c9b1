// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"time"

	"github.com/sirupsen/logrus"
)

// IsActive reports whether the challenge window is open at now.
func IsActive(c *PlayerChallenge, now uint64) bool {
	return c.StartedAt != 0 && now < c.EndsAt
}

// IsExpired reports whether a started challenge window has closed at now.
func IsExpired(c *PlayerChallenge, now uint64) bool {
	return c.StartedAt != 0 && now >= c.EndsAt
}

// CanStart reports whether a new challenge may be started at now.
func CanStart(c *PlayerChallenge, now uint64) bool {
	return c.StartedAt == 0 || now >= c.EndsAt
}

// StartChallenge opens a new challenge window and resets the counters.
// Pending reward units from earlier cycles are kept.
func StartChallenge(c *PlayerChallenge, now uint64, duration time.Duration) {
	c.StartedAt = now
	c.EndsAt = now + uint64(duration/time.Second)
	c.ProgressCount = 0
	c.RewardPoints = 0
	c.Completed = false

	logrus.Debugf("started challenge: startedAt=%d endsAt=%d pendingUnits=%d",
		c.StartedAt, c.EndsAt, c.PendingRewardUnits)
}

// RewardPoints derives the point count from a progress count.
func RewardPoints(progressCount, divisor, maxPoints uint64) uint64 {
	if divisor == 0 {
		return 0
	}
	points := progressCount / divisor
	if points > maxPoints {
		return maxPoints
	}
	return points
}

// RecordProgress applies one progress event to an active challenge.
// Progress is capped at threshold. Completion accrues one pending unit per
// cycle on top of any unit still unredeemed from earlier cycles. Returns whether
// the counter advanced and whether this event completed the challenge.
func RecordProgress(c *PlayerChallenge, threshold, divisor, maxPoints uint64) (advanced bool, completedNow bool) {
	if c.ProgressCount >= threshold {
		logrus.Debugf("progress already at threshold %d, ignoring event", threshold)
		return false, false
	}

	c.ProgressCount++
	c.RewardPoints = RewardPoints(c.ProgressCount, divisor, maxPoints)

	if c.ProgressCount >= threshold && !c.Completed {
		c.Completed = true
		c.PendingRewardUnits++
		logrus.Debugf("challenge completed at %d/%d events", c.ProgressCount, threshold)
		return true, true
	}

	return true, false
}
