// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"math/big"
	"time"
)

// PlayerChallenge is the stored challenge record for a player.
// Timestamps are unix seconds; StartedAt == 0 means no challenge was ever started.
type PlayerChallenge struct {
	StartedAt          uint64 `json:"startedAt"`
	EndsAt             uint64 `json:"endsAt"`
	ProgressCount      uint64 `json:"progressCount"`
	RewardPoints       uint64 `json:"rewardPoints"`
	Completed          bool   `json:"completed"`
	PendingRewardUnits uint64 `json:"pendingRewardUnits"`
}

// PayoutStatus tracks the outcome of a redemption.
type PayoutStatus string

const (
	// PayoutStatusCommitted means the pending units were zeroed and the pool debited.
	PayoutStatusCommitted PayoutStatus = "committed"
	// PayoutStatusReverted means the outbound payment failed and the debit was undone.
	PayoutStatusReverted PayoutStatus = "reverted"
)

// Payout records one redemption of pending reward units.
type Payout struct {
	ID        string       `json:"id"`
	Player    string       `json:"player"`
	Units     uint64       `json:"units"`
	AmountWei string       `json:"amountWei"`
	Status    PayoutStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Amount returns the payout amount in wei.
func (p *Payout) Amount() *big.Int {
	amount, ok := new(big.Int).SetString(p.AmountWei, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

// ChallengeSession is the off-chain session a game client opens for a player.
type ChallengeSession struct {
	PlayerAddress string `json:"playerAddress"`
	RoomName      string `json:"roomName"`
	SessionID     string `json:"sessionId"`
	StartedAt     int64  `json:"startedAt"`
	Paid          bool   `json:"paid"`
}
