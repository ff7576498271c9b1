// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package session is the game-facing mirror of the ledger. It tracks one
// challenge session per player, counts each NPC once per session and calls
// the ledger as the configured operator.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/sirupsen/logrus"
)

// Ledger is the subset of the ledger the session mirror calls.
type Ledger interface {
	StartChallengeFor(ctx context.Context, operator, player string) (*ledger.Progress, error)
	RecordProgressEvent(ctx context.Context, operator, player string) (*ledger.Progress, error)
	GetPlayerProgress(ctx context.Context, player string) (*ledger.Progress, error)
	RedeemMyRewards(ctx context.Context, caller string) (*state.Payout, error)
}

// Store persists sessions and their seen NPCs.
type Store interface {
	GetSession(ctx context.Context, player string) (*state.ChallengeSession, error)
	SaveSession(ctx context.Context, session *state.ChallengeSession) error
	MarkNpcSeen(ctx context.Context, session *state.ChallengeSession, npcID string) (bool, error)
	UnmarkNpcSeen(ctx context.Context, session *state.ChallengeSession, npcID string) error
	CountSeenNpcs(ctx context.Context, session *state.ChallengeSession) (int64, error)
	MarkPaid(ctx context.Context, session *state.ChallengeSession) error
}

// UserLinker links a player address to a platform user id.
type UserLinker interface {
	LinkUser(ctx context.Context, player, userID string) error
}

// Config configures the session service.
type Config struct {
	// Operator is the identity the mirror records progress as.
	Operator string
	// Projection is the client-side estimate policy.
	Projection ledger.Policy
	// NpcTalkRate is the allowed NPC events per second per player; 0 disables limiting.
	NpcTalkRate  float64
	NpcTalkBurst int
}

// Service implements the session mirror operations.
type Service struct {
	ledger  Ledger
	store   Store
	linker  UserLinker
	cfg     Config
	limiter *keyedLimiter
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithUserLinker enables linking players to platform users on Start.
func WithUserLinker(linker UserLinker) Option {
	return func(s *Service) {
		s.linker = linker
	}
}

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a session service.
func NewService(l Ledger, store Store, cfg Config, opts ...Option) (*Service, error) {
	operator, err := ledger.NormalizeAddress(cfg.Operator)
	if err != nil {
		return nil, fmt.Errorf("invalid operator: %w", err)
	}
	cfg.Operator = operator
	if cfg.Projection.PointsDivisor == 0 {
		cfg.Projection = ledger.ClientProjectionPolicy()
	}

	s := &Service{
		ledger:  l,
		store:   store,
		cfg:     cfg,
		limiter: newKeyedLimiter(cfg.NpcTalkRate, cfg.NpcTalkBurst),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalizePlayer(addr string) (string, error) {
	player, err := ledger.NormalizeAddress(strings.TrimSpace(addr))
	if err != nil {
		return "", fmt.Errorf("%w: player_address: %v", ErrInvalidRequest, err)
	}
	return player, nil
}

func (s *Service) sessionFor(ctx context.Context, player, room string) (*state.ChallengeSession, error) {
	session, err := s.store.GetSession(ctx, player)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	if session.RoomName != room {
		return nil, ErrRoomMismatch
	}
	return session, nil
}

// Start opens a session for the player, starting a ledger challenge as the
// operator when none is running. Every start replaces the stored session with
// a fresh one: no NPCs seen and nothing paid.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	player, err := normalizePlayer(req.PlayerAddress)
	if err != nil {
		return nil, err
	}
	room := strings.TrimSpace(req.RoomName)
	sessionID := strings.TrimSpace(req.SessionID)
	if room == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: player_address, room_name, session_id are required", ErrInvalidRequest)
	}

	before, err := s.ledger.GetPlayerProgress(ctx, player)
	if err != nil {
		return nil, err
	}

	restarted := false
	if before.StartedAt == 0 || before.Expired || before.Completed {
		_, err := s.ledger.StartChallengeFor(ctx, s.cfg.Operator, player)
		switch {
		case err == nil:
			restarted = true
		case errors.Is(err, ledger.ErrChallengeAlreadyActive), errors.Is(err, ledger.ErrNotOperator):
			// The player may have started from the wallet already.
			logrus.Warnf("operator start for player %s skipped: %v", player, err)
		default:
			return nil, err
		}
	}

	existing, err := s.store.GetSession(ctx, player)
	if err != nil {
		return nil, err
	}
	session := &state.ChallengeSession{
		PlayerAddress: player,
		RoomName:      room,
		SessionID:     sessionID,
		StartedAt:     s.now().Unix(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	if userID := strings.TrimSpace(req.UserID); userID != "" && s.linker != nil {
		if err := s.linker.LinkUser(ctx, player, userID); err != nil {
			logrus.Warnf("failed to link player %s to user %s: %v", player, userID, err)
		}
	}

	after, err := s.ledger.GetPlayerProgress(ctx, player)
	if err != nil {
		return nil, err
	}
	if after.StartedAt == 0 {
		return nil, ErrChallengeNotStarted
	}

	logrus.Infof("session %s opened for player %s in room %s", sessionID, player, room)
	return &StartResult{
		ChallengeStarted: restarted || existing == nil || existing.SessionID != sessionID,
		Progress:         *after,
	}, nil
}

// RecordNpcTalk counts one NPC conversation. An NPC already counted in the
// session is not recorded again and yields Accepted=false.
func (s *Service) RecordNpcTalk(ctx context.Context, req NpcTalkRequest) (*NpcTalkResult, error) {
	player, err := normalizePlayer(req.PlayerAddress)
	if err != nil {
		return nil, err
	}
	npcID := strings.ToLower(strings.TrimSpace(req.NpcID))
	room := strings.TrimSpace(req.RoomName)
	if npcID == "" || room == "" {
		return nil, fmt.Errorf("%w: player_address, npc_id, room_name are required", ErrInvalidRequest)
	}
	if req.EngagementMs < 0 {
		return nil, fmt.Errorf("%w: engagement_ms cannot be negative", ErrInvalidRequest)
	}
	if !s.limiter.Allow(player) {
		return nil, ErrRateLimited
	}

	session, err := s.sessionFor(ctx, player, room)
	if err != nil {
		return nil, err
	}

	added, err := s.store.MarkNpcSeen(ctx, session, npcID)
	if err != nil {
		return nil, err
	}
	if !added {
		progress, err := s.ledger.GetPlayerProgress(ctx, player)
		if err != nil {
			return nil, err
		}
		return &NpcTalkResult{Accepted: false, Progress: *progress}, nil
	}

	progress, err := s.recordTalk(ctx, player)
	if err != nil {
		if unmarkErr := s.store.UnmarkNpcSeen(ctx, session, npcID); unmarkErr != nil {
			logrus.Errorf("failed to release npc %s for player %s: %v", npcID, player, unmarkErr)
		}
		return nil, err
	}

	logrus.Debugf("npc %s talk recorded for player %s (engagement %dms)", npcID, player, req.EngagementMs)
	return &NpcTalkResult{Accepted: true, Progress: *progress}, nil
}

func (s *Service) recordTalk(ctx context.Context, player string) (*ledger.Progress, error) {
	before, err := s.ledger.GetPlayerProgress(ctx, player)
	if err != nil {
		return nil, err
	}
	if before.StartedAt == 0 {
		return nil, ledger.ErrChallengeNotActive
	}
	if before.Expired {
		return nil, ErrChallengeExpired
	}
	return s.ledger.RecordProgressEvent(ctx, s.cfg.Operator, player)
}

// Claim redeems the player's pending units. A repeated claim after a paid
// session reports AlreadyPaid instead of failing.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	player, err := normalizePlayer(req.PlayerAddress)
	if err != nil {
		return nil, err
	}
	room := strings.TrimSpace(req.RoomName)
	if room == "" {
		return nil, fmt.Errorf("%w: player_address and room_name are required", ErrInvalidRequest)
	}

	session, err := s.sessionFor(ctx, player, room)
	if err != nil {
		return nil, err
	}

	payout, err := s.ledger.RedeemMyRewards(ctx, player)
	if errors.Is(err, ledger.ErrNothingToRedeem) && session.Paid {
		return &ClaimResult{Paid: false, AlreadyPaid: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkPaid(ctx, session); err != nil {
		logrus.Warnf("payout %s committed but session %s not marked paid: %v", payout.ID, session.SessionID, err)
	}

	return &ClaimResult{Paid: true, Payout: payout}, nil
}

// Progress returns authoritative progress with session metadata and the
// client projection. When the ledger store fails, progress is zero and
// Degraded is set.
func (s *Service) Progress(ctx context.Context, playerAddress string) (*ProgressResult, error) {
	player, err := normalizePlayer(playerAddress)
	if err != nil {
		return nil, err
	}

	result := &ProgressResult{}
	progress, err := s.ledger.GetPlayerProgress(ctx, player)
	switch {
	case err == nil:
		result.Progress = *progress
	case ledger.IsRejection(err):
		return nil, err
	default:
		logrus.Warnf("ledger read failed for player %s, serving zero progress: %v", player, err)
		result.Degraded = true
	}

	session, err := s.store.GetSession(ctx, player)
	if err != nil {
		logrus.Warnf("session read failed for player %s: %v", player, err)
		return result, nil
	}
	if session == nil {
		return result, nil
	}

	count, err := s.store.CountSeenNpcs(ctx, session)
	if err != nil {
		logrus.Warnf("npc count failed for player %s: %v", player, err)
	}
	result.Session = &Info{
		RoomName:       session.RoomName,
		SessionID:      session.SessionID,
		StartedAt:      session.StartedAt,
		UniqueNpcCount: count,
	}

	projection := s.cfg.Projection
	result.Projection = &Projection{
		Goal:     projection.CompletionThreshold,
		Points:   projection.Points(uint64(count)),
		Eligible: uint64(count) >= projection.CompletionThreshold,
	}
	return result, nil
}
