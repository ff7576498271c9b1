// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package ledger

import "errors"

var (
	// ErrNotOperator is returned when the caller is neither an operator nor the owner.
	ErrNotOperator = errors.New("Not operator")

	// ErrNotOwner is returned when an owner-only operation is called by someone else.
	ErrNotOwner = errors.New("Not owner")

	// ErrChallengeAlreadyActive is returned when starting over an unexpired challenge.
	ErrChallengeAlreadyActive = errors.New("Challenge already active")

	// ErrChallengeNotActive is returned when progress is recorded outside a challenge window.
	ErrChallengeNotActive = errors.New("Challenge not active")

	// ErrNothingToRedeem is returned when the caller has no pending reward units.
	ErrNothingToRedeem = errors.New("Nothing to redeem")

	// ErrInsufficientPool is returned when the pool cannot cover a redemption.
	ErrInsufficientPool = errors.New("Insufficient pool balance")

	// ErrRewardAlreadyGranted is returned when a reward id is granted twice.
	ErrRewardAlreadyGranted = errors.New("Reward already granted")

	// ErrInvalidAddress is returned for malformed hex addresses.
	ErrInvalidAddress = errors.New("Invalid address")

	// ErrInvalidAmount is returned for non-positive amounts and unit counts.
	ErrInvalidAmount = errors.New("Invalid amount")

	// ErrInvalidRewardID is returned for an empty reward id.
	ErrInvalidRewardID = errors.New("Invalid reward id")

	// ErrPayoutFailed is returned when the outbound payment failed and the
	// redemption was reverted.
	ErrPayoutFailed = errors.New("Payout failed")

	// ErrStore wraps failures of the underlying state store.
	ErrStore = errors.New("ledger store failure")
)

var ruleErrors = []error{
	ErrNotOperator,
	ErrNotOwner,
	ErrChallengeAlreadyActive,
	ErrChallengeNotActive,
	ErrNothingToRedeem,
	ErrInsufficientPool,
	ErrRewardAlreadyGranted,
	ErrInvalidAddress,
	ErrInvalidAmount,
	ErrInvalidRewardID,
}

// IsRejection reports whether err is a rule violation rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range ruleErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
