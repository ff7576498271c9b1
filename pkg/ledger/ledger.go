// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package ledger implements the per-player challenge ledger: timed challenge
// windows, operator-attested progress, pending reward units and their
// exactly-once redemption against a pooled balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/metrics"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// revertTimeout bounds the compensation of a failed payout.
const revertTimeout = 10 * time.Second

// Store persists ledger state. Each update function runs inside one atomic
// transaction; when fn returns an error nothing is written and that error is
// returned unchanged.
type Store interface {
	GetPlayer(ctx context.Context, player string) (*state.PlayerChallenge, error)
	UpdatePlayer(ctx context.Context, player string, fn func(c *state.PlayerChallenge) error) error
	UpdatePlayerWithRewardID(ctx context.Context, player, rewardID string, fn func(c *state.PlayerChallenge) error) error
	Settle(ctx context.Context, player string, fn func(c *state.PlayerChallenge, pool *big.Int) (*state.Payout, error)) error
	UpdatePool(ctx context.Context, fn func(pool *big.Int) error) error
	PoolBalance(ctx context.Context) (*big.Int, error)
	IsOperator(ctx context.Context, addr string) (bool, error)
	SetOperator(ctx context.Context, addr string, allowed bool) error
	Payouts(ctx context.Context, player string, limit int64) ([]state.Payout, error)
}

// Payer delivers a committed payout to the player.
type Payer interface {
	Pay(ctx context.Context, payout *state.Payout) error
}

// Progress is the read view of a player's challenge.
type Progress struct {
	StartedAt      uint64 `json:"challengeStartedAt"`
	EndsAt         uint64 `json:"challengeEndsAt"`
	ProgressCount  uint64 `json:"npcTalks"`
	RewardPoints   uint64 `json:"rewardPoints"`
	Completed      bool   `json:"completed"`
	Expired        bool   `json:"expired"`
	ClaimableUnits uint64 `json:"claimableUnits"`
}

// Config configures a Ledger.
type Config struct {
	Policy Policy
	// Owner administers operators and grants rewards.
	Owner string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the ledger's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithEventSink sets the sink that receives committed events.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

// Ledger is the challenge ledger. It is safe for concurrent use; all
// serialization happens in the Store.
type Ledger struct {
	store  Store
	payer  Payer
	sink   EventSink
	policy Policy
	owner  string
	now    func() time.Time
}

// New creates a ledger over store that pays redemptions through payer.
func New(store Store, payer Payer, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if payer == nil {
		return nil, fmt.Errorf("ledger payer is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	owner, err := NormalizeAddress(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}

	l := &Ledger{
		store:  store,
		payer:  payer,
		policy: cfg.Policy,
		owner:  owner,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NormalizeAddress validates a hex address and returns its lower-case form.
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// Owner returns the owner address.
func (l *Ledger) Owner() string {
	return l.owner
}

// Policy returns the accrual policy.
func (l *Ledger) Policy() Policy {
	return l.policy
}

func (l *Ledger) unixNow() uint64 {
	return uint64(l.now().Unix())
}

// observe records the outcome of operation and wraps store failures in ErrStore.
func (l *Ledger) observe(operation string, err error) error {
	switch {
	case err == nil:
		metrics.ObserveOperation(operation, metrics.ResultOK)
		return nil
	case IsRejection(err):
		metrics.ObserveOperation(operation, metrics.ResultRejected)
		return err
	case errors.Is(err, ErrStore) || errors.Is(err, ErrPayoutFailed):
		metrics.ObserveOperation(operation, metrics.ResultError)
		return err
	default:
		metrics.ObserveOperation(operation, metrics.ResultError)
		logrus.Errorf("%s failed: %v", operation, err)
		return fmt.Errorf("%s: %w: %w", operation, ErrStore, err)
	}
}

func (l *Ledger) publish(ctx context.Context, event *Event) {
	if l.sink == nil {
		return
	}
	event.At = l.now().UTC()
	l.sink.Publish(ctx, event)
}

func (l *Ledger) authorizeOperator(ctx context.Context, caller string) error {
	if caller == l.owner {
		return nil
	}
	ok, err := l.store.IsOperator(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOperator
	}
	return nil
}

func (l *Ledger) view(c *state.PlayerChallenge, now uint64) Progress {
	p := Progress{
		StartedAt:      c.StartedAt,
		EndsAt:         c.EndsAt,
		ProgressCount:  c.ProgressCount,
		RewardPoints:   c.RewardPoints,
		Completed:      c.Completed,
		Expired:        state.IsExpired(c, now),
		ClaimableUnits: c.PendingRewardUnits,
	}
	// An expired cycle that never completed reads as reset.
	if p.Expired && !p.Completed {
		p.ProgressCount = 0
		p.RewardPoints = 0
	}
	return p
}

// StartChallenge opens a challenge window for the caller.
func (l *Ledger) StartChallenge(ctx context.Context, caller string) (*Progress, error) {
	player, err := NormalizeAddress(caller)
	if err != nil {
		return nil, l.observe("start_challenge", err)
	}
	p, err := l.start(ctx, player)
	return p, l.observe("start_challenge", err)
}

// StartChallengeFor opens a challenge window for player on behalf of an
// operator or the owner.
func (l *Ledger) StartChallengeFor(ctx context.Context, operator, player string) (*Progress, error) {
	p, err := l.startFor(ctx, operator, player)
	return p, l.observe("start_challenge_for", err)
}

func (l *Ledger) startFor(ctx context.Context, operator, player string) (*Progress, error) {
	caller, err := NormalizeAddress(operator)
	if err != nil {
		return nil, err
	}
	if err := l.authorizeOperator(ctx, caller); err != nil {
		return nil, err
	}
	player, err = NormalizeAddress(player)
	if err != nil {
		return nil, err
	}
	return l.start(ctx, player)
}

func (l *Ledger) start(ctx context.Context, player string) (*Progress, error) {
	now := l.unixNow()

	var started state.PlayerChallenge
	err := l.store.UpdatePlayer(ctx, player, func(c *state.PlayerChallenge) error {
		if !state.CanStart(c, now) {
			return ErrChallengeAlreadyActive
		}
		state.StartChallenge(c, now, l.policy.Duration)
		started = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	progress := l.view(&started, now)
	logrus.Infof("challenge started for player %s, ends at %d", player, started.EndsAt)
	l.publish(ctx, &Event{Type: EventChallengeStarted, Player: player, Progress: progress})

	return &progress, nil
}

// RecordProgressEvent records one attested progress event for player. The
// caller must be an operator or the owner; the authorization check happens
// before any player state is read.
func (l *Ledger) RecordProgressEvent(ctx context.Context, operator, player string) (*Progress, error) {
	p, err := l.recordProgress(ctx, operator, player)
	return p, l.observe("record_progress", err)
}

func (l *Ledger) recordProgress(ctx context.Context, operator, player string) (*Progress, error) {
	caller, err := NormalizeAddress(operator)
	if err != nil {
		return nil, err
	}
	if err := l.authorizeOperator(ctx, caller); err != nil {
		return nil, err
	}
	player, err = NormalizeAddress(player)
	if err != nil {
		return nil, err
	}

	now := l.unixNow()
	var (
		after        state.PlayerChallenge
		advanced     bool
		completedNow bool
	)
	errUnchanged := errors.New("unchanged")

	err = l.store.UpdatePlayer(ctx, player, func(c *state.PlayerChallenge) error {
		if !state.IsActive(c, now) {
			return ErrChallengeNotActive
		}
		advanced, completedNow = state.RecordProgress(c,
			l.policy.CompletionThreshold, l.policy.PointsDivisor, l.policy.MaxPoints)
		after = *c
		if !advanced {
			return errUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}

	progress := l.view(&after, now)
	if advanced {
		logrus.Debugf("progress recorded for player %s by %s: %d/%d",
			player, caller, after.ProgressCount, l.policy.CompletionThreshold)
		l.publish(ctx, &Event{Type: EventProgressRecorded, Player: player, Progress: progress})
	}
	if completedNow {
		logrus.Infof("challenge completed for player %s, pending units %d", player, after.PendingRewardUnits)
		l.publish(ctx, &Event{Type: EventChallengeCompleted, Player: player, Progress: progress, Units: 1})
	}

	return &progress, nil
}

// GetPlayerProgress returns the player's progress as of now.
func (l *Ledger) GetPlayerProgress(ctx context.Context, player string) (*Progress, error) {
	p, err := l.getProgress(ctx, player)
	if err != nil {
		return nil, l.observe("get_progress", err)
	}
	return p, nil
}

func (l *Ledger) getProgress(ctx context.Context, player string) (*Progress, error) {
	player, err := NormalizeAddress(player)
	if err != nil {
		return nil, err
	}
	c, err := l.store.GetPlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	p := l.view(c, l.unixNow())
	return &p, nil
}

// RedeemMyRewards pays the caller's pending units out of the pool. Pending
// units are zeroed and the pool debited in one transaction before the payer
// is called; a payer failure is compensated by restoring both.
func (l *Ledger) RedeemMyRewards(ctx context.Context, caller string) (*state.Payout, error) {
	payout, err := l.redeem(ctx, caller)
	if err == nil {
		metrics.ObserveRedeemed(payout.Amount())
	}
	return payout, l.observe("redeem", err)
}

func (l *Ledger) redeem(ctx context.Context, caller string) (*state.Payout, error) {
	player, err := NormalizeAddress(caller)
	if err != nil {
		return nil, err
	}

	var (
		payout  *state.Payout
		balance *big.Int
	)
	err = l.store.Settle(ctx, player, func(c *state.PlayerChallenge, pool *big.Int) (*state.Payout, error) {
		if c.PendingRewardUnits == 0 {
			return nil, ErrNothingToRedeem
		}
		units := c.PendingRewardUnits
		amount := l.policy.Amount(units)
		if pool.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: need %s wei, have %s", ErrInsufficientPool, amount, pool)
		}

		c.PendingRewardUnits = 0
		pool.Sub(pool, amount)

		payout = &state.Payout{
			ID:        uuid.NewString(),
			Player:    player,
			Units:     units,
			AmountWei: amount.String(),
			Status:    state.PayoutStatusCommitted,
			CreatedAt: l.now().UTC(),
		}
		balance = new(big.Int).Set(pool)
		return payout, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObservePool(balance)

	if err := l.payer.Pay(ctx, payout); err != nil {
		logrus.Errorf("payout %s for player %s failed, reverting: %v", payout.ID, player, err)
		if revertErr := l.revert(ctx, payout); revertErr != nil {
			logrus.Errorf("failed to revert payout %s for player %s (%d units owed): %v",
				payout.ID, player, payout.Units, revertErr)
			return nil, fmt.Errorf("%w: %w: revert failed: %v", ErrPayoutFailed, err, revertErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}

	logrus.Infof("player %s redeemed %d units (%s wei), payout %s",
		player, payout.Units, payout.AmountWei, payout.ID)
	l.publish(ctx, &Event{
		Type:     EventRewardRedeemed,
		Player:   player,
		Units:    payout.Units,
		Amount:   payout.Amount(),
		PayoutID: payout.ID,
	})

	return payout, nil
}

// revert restores the units and pool debited for payout. It runs detached
// from ctx so a cancelled caller cannot leave the debit in place.
func (l *Ledger) revert(ctx context.Context, payout *state.Payout) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
	defer cancel()

	return l.store.Settle(rctx, payout.Player, func(c *state.PlayerChallenge, pool *big.Int) (*state.Payout, error) {
		c.PendingRewardUnits += payout.Units
		pool.Add(pool, payout.Amount())

		reverted := *payout
		reverted.Status = state.PayoutStatusReverted
		reverted.CreatedAt = l.now().UTC()
		return &reverted, nil
	})
}

// SetGameOperator adds or removes an operator. Only the owner may call it.
func (l *Ledger) SetGameOperator(ctx context.Context, caller, operator string, allowed bool) error {
	return l.observe("set_operator", l.setOperator(ctx, caller, operator, allowed))
}

func (l *Ledger) setOperator(ctx context.Context, caller, operator string, allowed bool) error {
	caller, err := NormalizeAddress(caller)
	if err != nil {
		return err
	}
	if caller != l.owner {
		return ErrNotOwner
	}
	operator, err = NormalizeAddress(operator)
	if err != nil {
		return err
	}
	return l.store.SetOperator(ctx, operator, allowed)
}

// IsOperator reports whether addr may record progress.
func (l *Ledger) IsOperator(ctx context.Context, addr string) (bool, error) {
	addr, err := NormalizeAddress(addr)
	if err != nil {
		return false, err
	}
	if addr == l.owner {
		return true, nil
	}
	ok, err := l.store.IsOperator(ctx, addr)
	if err != nil {
		return false, l.observe("is_operator", err)
	}
	return ok, nil
}

// Fund adds amount wei to the pool. Anyone may fund. Returns the new balance.
func (l *Ledger) Fund(ctx context.Context, from string, amount *big.Int) (*big.Int, error) {
	balance, err := l.fund(ctx, from, amount)
	return balance, l.observe("fund", err)
}

func (l *Ledger) fund(ctx context.Context, from string, amount *big.Int) (*big.Int, error) {
	from, err := NormalizeAddress(from)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	var balance *big.Int
	err = l.store.UpdatePool(ctx, func(pool *big.Int) error {
		pool.Add(pool, amount)
		balance = new(big.Int).Set(pool)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObservePool(balance)
	logrus.Infof("pool funded by %s with %s wei, balance %s", from, amount, balance)
	return balance, nil
}

// PoolBalance returns the pooled balance in wei.
func (l *Ledger) PoolBalance(ctx context.Context) (*big.Int, error) {
	balance, err := l.store.PoolBalance(ctx)
	if err != nil {
		return nil, l.observe("pool_balance", err)
	}
	metrics.ObservePool(balance)
	return balance, nil
}

// PayoutHistory returns up to limit payout records of player, newest first.
// A redemption whose payment failed shows up as a reverted record on top of
// its committed one.
func (l *Ledger) PayoutHistory(ctx context.Context, player string, limit int64) ([]state.Payout, error) {
	player, err := NormalizeAddress(player)
	if err != nil {
		return nil, l.observe("payout_history", err)
	}
	payouts, err := l.store.Payouts(ctx, player, limit)
	if err != nil {
		return nil, l.observe("payout_history", err)
	}
	return payouts, nil
}

// RewardPlayer grants units pending reward units to player. Only the owner
// may call it, and each rewardID is honored once.
func (l *Ledger) RewardPlayer(ctx context.Context, caller, player string, units uint64, rewardID string) (*Progress, error) {
	p, err := l.rewardPlayer(ctx, caller, player, units, rewardID)
	return p, l.observe("reward_player", err)
}

func (l *Ledger) rewardPlayer(ctx context.Context, caller, player string, units uint64, rewardID string) (*Progress, error) {
	caller, err := NormalizeAddress(caller)
	if err != nil {
		return nil, err
	}
	if caller != l.owner {
		return nil, ErrNotOwner
	}
	player, err = NormalizeAddress(player)
	if err != nil {
		return nil, err
	}
	if units == 0 {
		return nil, ErrInvalidAmount
	}
	rewardID = strings.TrimSpace(rewardID)
	if rewardID == "" {
		return nil, ErrInvalidRewardID
	}

	var after state.PlayerChallenge
	err = l.store.UpdatePlayerWithRewardID(ctx, player, rewardID, func(c *state.PlayerChallenge) error {
		c.PendingRewardUnits += units
		after = *c
		return nil
	})
	if errors.Is(err, state.ErrRewardIDUsed) {
		return nil, fmt.Errorf("%w: %s", ErrRewardAlreadyGranted, rewardID)
	}
	if err != nil {
		return nil, err
	}

	progress := l.view(&after, l.unixNow())
	logrus.Infof("granted %d units to player %s (reward %s)", units, player, rewardID)
	l.publish(ctx, &Event{
		Type:     EventRewardGranted,
		Player:   player,
		Progress: progress,
		Units:    units,
		Amount:   l.policy.Amount(units),
		RewardID: rewardID,
	})

	return &progress, nil
}
