// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"errors"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
)

var (
	// ErrInvalidRequest is returned for missing or malformed request fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoSession is returned when the player has no challenge session.
	ErrNoSession = errors.New("No active challenge session for player")

	// ErrRoomMismatch is returned when a request names another room than the session.
	ErrRoomMismatch = errors.New("Room mismatch for active challenge session")

	// ErrChallengeNotStarted is returned when a session opened but the ledger shows no challenge.
	ErrChallengeNotStarted = errors.New("Challenge did not start. Ensure the operator is authorized or start from wallet")

	// ErrChallengeExpired is returned when the challenge window already closed.
	ErrChallengeExpired = errors.New("Challenge window expired")

	// ErrRateLimited is returned when a player sends progress events too fast.
	ErrRateLimited = errors.New("Too many requests")
)

// StartRequest opens a challenge session.
type StartRequest struct {
	PlayerAddress string `json:"player_address"`
	RoomName      string `json:"room_name"`
	SessionID     string `json:"session_id"`
	// UserID optionally links the player to a platform user for item payouts.
	UserID string `json:"user_id,omitempty"`
}

// StartResult is the outcome of Start.
type StartResult struct {
	ChallengeStarted bool            `json:"challenge_started"`
	Progress         ledger.Progress `json:"progress"`
}

// NpcTalkRequest reports one NPC conversation.
type NpcTalkRequest struct {
	PlayerAddress string `json:"player_address"`
	NpcID         string `json:"npc_id"`
	RoomName      string `json:"room_name"`
	EngagementMs  int64  `json:"engagement_ms"`
}

// NpcTalkResult is the outcome of RecordNpcTalk. Accepted is false for an
// NPC already counted in the session.
type NpcTalkResult struct {
	Accepted bool            `json:"accepted"`
	Progress ledger.Progress `json:"progress"`
}

// ClaimRequest redeems the player's pending units.
type ClaimRequest struct {
	PlayerAddress string `json:"player_address"`
	RoomName      string `json:"room_name"`
	Signature     string `json:"signature,omitempty"`
}

// ClaimResult is the outcome of Claim.
type ClaimResult struct {
	Paid        bool          `json:"paid"`
	AlreadyPaid bool          `json:"alreadyPaid"`
	Payout      *state.Payout `json:"payout,omitempty"`
}

// Info is the session metadata returned with progress.
type Info struct {
	RoomName       string `json:"roomName"`
	SessionID      string `json:"sessionId"`
	StartedAt      int64  `json:"startedAt"`
	UniqueNpcCount int64  `json:"uniqueNpcCount"`
}

// Projection is the client-side estimate of progress. It is never authoritative.
type Projection struct {
	Goal     uint64 `json:"goal"`
	Points   uint64 `json:"points"`
	Eligible bool   `json:"eligible"`
}

// ProgressResult is the outcome of Progress.
type ProgressResult struct {
	Progress   ledger.Progress `json:"progress"`
	Session    *Info           `json:"session"`
	Projection *Projection     `json:"projection,omitempty"`
	// Degraded is set when the ledger could not be read and Progress is zero.
	Degraded bool `json:"degraded,omitempty"`
}
