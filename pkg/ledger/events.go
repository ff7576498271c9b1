// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package ledger

import (
	"context"
	"math/big"
	"time"
)

// EventType identifies a committed ledger change.
type EventType string

const (
	EventChallengeStarted   EventType = "challenge_started"
	EventProgressRecorded   EventType = "progress_recorded"
	EventChallengeCompleted EventType = "challenge_completed"
	EventRewardRedeemed     EventType = "reward_redeemed"
	EventRewardGranted      EventType = "reward_granted"
)

// EventTypes lists every event type the ledger publishes.
func EventTypes() []EventType {
	return []EventType{
		EventChallengeStarted,
		EventProgressRecorded,
		EventChallengeCompleted,
		EventRewardRedeemed,
		EventRewardGranted,
	}
}

// Event describes a change that has already been committed.
type Event struct {
	Type     EventType
	Player   string
	Progress Progress
	// Units and Amount are set for redemptions and grants.
	Units  uint64
	Amount *big.Int
	// RewardID is set for grants; PayoutID for redemptions.
	RewardID string
	PayoutID string
	At       time.Time
}

// EventSink receives committed ledger events. Publish must not block for long;
// its failures are the sink's own concern and never affect ledger state.
type EventSink interface {
	Publish(ctx context.Context, event *Event)
}
