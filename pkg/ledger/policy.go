// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
)

// Policy holds the accrual rules of a challenge.
type Policy struct {
	// CompletionThreshold is the number of progress events that completes a challenge.
	CompletionThreshold uint64
	// PointsDivisor groups progress events into reward points.
	PointsDivisor uint64
	// MaxPoints caps reward points.
	MaxPoints uint64
	// Duration is the length of a challenge window.
	Duration time.Duration
	// UnitValue is the wei paid per reward unit.
	UnitValue *big.Int
}

// DefaultPolicy returns the authoritative policy: 9 events complete a
// 300 second challenge worth 3 points and one unit of 0.1 native currency.
func DefaultPolicy() Policy {
	return Policy{
		CompletionThreshold: 9,
		PointsDivisor:       3,
		MaxPoints:           3,
		Duration:            300 * time.Second,
		UnitValue:           big.NewInt(100_000_000_000_000_000),
	}
}

// ClientProjectionPolicy returns the policy game clients use for their local
// optimistic display. It never decides ledger state.
func ClientProjectionPolicy() Policy {
	p := DefaultPolicy()
	p.CompletionThreshold = 6
	p.PointsDivisor = 2
	return p
}

// Validate checks that the policy can drive a ledger.
func (p Policy) Validate() error {
	if p.CompletionThreshold == 0 {
		return fmt.Errorf("completion threshold must be positive")
	}
	if p.PointsDivisor == 0 {
		return fmt.Errorf("points divisor must be positive")
	}
	if p.Duration < time.Second {
		return fmt.Errorf("challenge duration must be at least one second, got %s", p.Duration)
	}
	if p.UnitValue == nil || p.UnitValue.Sign() <= 0 {
		return fmt.Errorf("unit value must be positive")
	}
	return nil
}

// Points returns the reward points earned by progressCount events.
func (p Policy) Points(progressCount uint64) uint64 {
	return state.RewardPoints(progressCount, p.PointsDivisor, p.MaxPoints)
}

// Amount returns the wei value of units reward units.
func (p Policy) Amount(units uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(units), p.UnitValue)
}
