// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// sessionStoreDefaultTTL bounds how long an idle session is kept (1 day)
	sessionStoreDefaultTTL = 24 * time.Hour

	sessionKeyPrefix = KeyPrefix + "session:"
)

// RedisSessionStore stores challenge sessions and the set of NPCs already
// counted for each session.
type RedisSessionStore struct {
	client *redis.Client
	cfg    RedisSessionStoreConfig
}

// RedisSessionStoreConfig configures the session store.
type RedisSessionStoreConfig struct {
	TTL time.Duration
}

// NewRedisSessionStore creates a new Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, cfg RedisSessionStoreConfig) *RedisSessionStore {
	if cfg.TTL <= 0 {
		cfg.TTL = sessionStoreDefaultTTL
	}
	return &RedisSessionStore{
		client: client,
		cfg:    cfg,
	}
}

func makeSessionKey(player string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, player)
}

func makeSeenNpcsKey(player, sessionID string) string {
	return fmt.Sprintf("%s%s:npcs:%s", sessionKeyPrefix, player, sessionID)
}

// GetSession returns the player's current session, or nil when there is none.
func (r *RedisSessionStore) GetSession(ctx context.Context, player string) (*ChallengeSession, error) {
	data, err := r.client.Get(ctx, makeSessionKey(player)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session ChallengeSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// SaveSession replaces the player's session. The seen-NPC sets of the
// replaced session and of the new session id are dropped, so every start
// counts NPCs from scratch.
func (r *RedisSessionStore) SaveSession(ctx context.Context, session *ChallengeSession) error {
	key := makeSessionKey(session.PlayerAddress)

	previous, err := r.GetSession(ctx, session.PlayerAddress)
	if err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.cfg.TTL)
		pipe.Del(ctx, makeSeenNpcsKey(session.PlayerAddress, session.SessionID))
		if previous != nil && previous.SessionID != session.SessionID {
			pipe.Del(ctx, makeSeenNpcsKey(previous.PlayerAddress, previous.SessionID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logrus.Debugf("saved session %s for player %s in room %s",
		session.SessionID, session.PlayerAddress, session.RoomName)
	return nil
}

// MarkNpcSeen adds npcID to the session's seen set. It returns false when the
// NPC had already been counted.
func (r *RedisSessionStore) MarkNpcSeen(ctx context.Context, session *ChallengeSession, npcID string) (bool, error) {
	key := makeSeenNpcsKey(session.PlayerAddress, session.SessionID)

	added, err := r.client.SAdd(ctx, key, npcID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark npc seen: %w", err)
	}
	r.client.Expire(ctx, key, r.cfg.TTL)

	return added == 1, nil
}

// UnmarkNpcSeen removes npcID from the session's seen set.
func (r *RedisSessionStore) UnmarkNpcSeen(ctx context.Context, session *ChallengeSession, npcID string) error {
	key := makeSeenNpcsKey(session.PlayerAddress, session.SessionID)
	if err := r.client.SRem(ctx, key, npcID).Err(); err != nil {
		return fmt.Errorf("failed to unmark npc seen: %w", err)
	}
	return nil
}

// CountSeenNpcs returns how many distinct NPCs were counted for the session.
func (r *RedisSessionStore) CountSeenNpcs(ctx context.Context, session *ChallengeSession) (int64, error) {
	n, err := r.client.SCard(ctx, makeSeenNpcsKey(session.PlayerAddress, session.SessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count seen npcs: %w", err)
	}
	return n, nil
}

// MarkPaid flags the player's current session as paid out.
func (r *RedisSessionStore) MarkPaid(ctx context.Context, session *ChallengeSession) error {
	session.Paid = true

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, makeSessionKey(session.PlayerAddress), data, r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to mark session paid: %w", err)
	}
	return nil
}
