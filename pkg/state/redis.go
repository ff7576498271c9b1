// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// KeyPrefix is the prefix for all challenge ledger keys
	KeyPrefix = "challenge_ledger:"

	playerKeyPrefix  = KeyPrefix + "player:"
	payoutsKeyPrefix = KeyPrefix + "payouts:"
	operatorsKey     = KeyPrefix + "operators"
	poolKey          = KeyPrefix + "pool"
	rewardIDsKey     = KeyPrefix + "reward_ids"

	// DefaultMaxTxRetries bounds retries of optimistic transactions that lost a WATCH race
	DefaultMaxTxRetries = 10

	// payoutHistoryLimit is the number of payout records kept per player
	payoutHistoryLimit = 100
)

// ErrRewardIDUsed is returned when a reward id was already granted.
var ErrRewardIDUsed = errors.New("reward id already used")

// RedisStore persists ledger state in Redis. Every mutation runs inside a
// WATCH/MULTI transaction so a concurrent writer forces a retry instead of a
// lost update.
type RedisStore struct {
	client *redis.Client
	cfg    RedisStoreConfig
}

// RedisStoreConfig configures the Redis ledger store.
type RedisStoreConfig struct {
	MaxTxRetries uint64
}

// NewRedisStore creates a new Redis-backed ledger store.
func NewRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	if cfg.MaxTxRetries == 0 {
		cfg.MaxTxRetries = DefaultMaxTxRetries
	}
	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// makePlayerKey creates a Redis key for a player record
func makePlayerKey(player string) string {
	return fmt.Sprintf("%s%s", playerKeyPrefix, player)
}

func makePayoutsKey(player string) string {
	return fmt.Sprintf("%s%s", payoutsKeyPrefix, player)
}

func readPlayer(ctx context.Context, g stringGetter, key string) (*PlayerChallenge, error) {
	data, err := g.Get(ctx, key).Result()
	if err == redis.Nil {
		return &PlayerChallenge{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player record: %w", err)
	}

	var c PlayerChallenge
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player record: %w", err)
	}
	return &c, nil
}

func readAmount(ctx context.Context, g stringGetter, key string) (*big.Int, error) {
	data, err := g.Get(ctx, key).Result()
	if err == redis.Nil {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get amount %s: %w", key, err)
	}

	amount, ok := new(big.Int).SetString(data, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount at %s: %q", key, data)
	}
	return amount, nil
}

// watch runs txf under WATCH on keys, retrying when another client modified
// a watched key between the read and the EXEC.
func (s *RedisStore) watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxTxRetries), ctx)

	return backoff.Retry(func() error {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			logrus.Debugf("transaction conflict on %v, retrying", keys)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
}

// GetPlayer retrieves the challenge record for a player.
// A player without a record gets a zero record.
func (s *RedisStore) GetPlayer(ctx context.Context, player string) (*PlayerChallenge, error) {
	c, err := readPlayer(ctx, s.client, makePlayerKey(player))
	if err != nil {
		logrus.Errorf("failed to read record for player %s: %v", player, err)
		return nil, err
	}
	return c, nil
}

// UpdatePlayer applies fn to the player's record and writes it back atomically.
// If fn returns an error nothing is written and the error is returned as is.
func (s *RedisStore) UpdatePlayer(ctx context.Context, player string, fn func(c *PlayerChallenge) error) error {
	key := makePlayerKey(player)

	return s.watch(ctx, func(tx *redis.Tx) error {
		c, err := readPlayer(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal player record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

// UpdatePlayerWithRewardID is UpdatePlayer that also consumes rewardID in the
// same transaction. A reward id already consumed yields ErrRewardIDUsed.
func (s *RedisStore) UpdatePlayerWithRewardID(ctx context.Context, player, rewardID string, fn func(c *PlayerChallenge) error) error {
	key := makePlayerKey(player)

	return s.watch(ctx, func(tx *redis.Tx) error {
		used, err := tx.SIsMember(ctx, rewardIDsKey, rewardID).Result()
		if err != nil {
			return fmt.Errorf("failed to check reward id: %w", err)
		}
		if used {
			return ErrRewardIDUsed
		}

		c, err := readPlayer(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal player record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, rewardIDsKey, rewardID)
			return nil
		})
		return err
	}, key, rewardIDsKey)
}

// Settle applies fn to the player's record and the pool balance in a single
// transaction. A non-nil payout returned by fn is appended to the player's
// payout history in the same transaction.
func (s *RedisStore) Settle(ctx context.Context, player string, fn func(c *PlayerChallenge, pool *big.Int) (*Payout, error)) error {
	key := makePlayerKey(player)
	payoutsKey := makePayoutsKey(player)

	return s.watch(ctx, func(tx *redis.Tx) error {
		c, err := readPlayer(ctx, tx, key)
		if err != nil {
			return err
		}
		pool, err := readAmount(ctx, tx, poolKey)
		if err != nil {
			return err
		}

		payout, err := fn(c, pool)
		if err != nil {
			return err
		}
		if pool.Sign() < 0 {
			return fmt.Errorf("pool balance would become negative: %s", pool)
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal player record: %w", err)
		}
		var payoutData []byte
		if payout != nil {
			if payoutData, err = json.Marshal(payout); err != nil {
				return fmt.Errorf("failed to marshal payout: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, poolKey, pool.String(), 0)
			if payoutData != nil {
				pipe.LPush(ctx, payoutsKey, payoutData)
				pipe.LTrim(ctx, payoutsKey, 0, payoutHistoryLimit-1)
			}
			return nil
		})
		return err
	}, key, poolKey)
}

// UpdatePool applies fn to the pool balance atomically.
func (s *RedisStore) UpdatePool(ctx context.Context, fn func(pool *big.Int) error) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		pool, err := readAmount(ctx, tx, poolKey)
		if err != nil {
			return err
		}
		if err := fn(pool); err != nil {
			return err
		}
		if pool.Sign() < 0 {
			return fmt.Errorf("pool balance would become negative: %s", pool)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, poolKey, pool.String(), 0)
			return nil
		})
		return err
	}, poolKey)
}

// PoolBalance returns the pooled balance in wei.
func (s *RedisStore) PoolBalance(ctx context.Context) (*big.Int, error) {
	return readAmount(ctx, s.client, poolKey)
}

// IsOperator reports whether addr is in the operator set.
func (s *RedisStore) IsOperator(ctx context.Context, addr string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, operatorsKey, addr).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check operator: %w", err)
	}
	return ok, nil
}

// SetOperator adds or removes addr from the operator set.
func (s *RedisStore) SetOperator(ctx context.Context, addr string, allowed bool) error {
	var err error
	if allowed {
		err = s.client.SAdd(ctx, operatorsKey, addr).Err()
	} else {
		err = s.client.SRem(ctx, operatorsKey, addr).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to set operator %s: %w", addr, err)
	}

	logrus.Infof("operator %s allowed=%v", addr, allowed)
	return nil
}

// Operators lists the operator set.
func (s *RedisStore) Operators(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, operatorsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	return members, nil
}

// Payouts returns up to limit most recent payout records for a player, newest first.
func (s *RedisStore) Payouts(ctx context.Context, player string, limit int64) ([]Payout, error) {
	if limit <= 0 || limit > payoutHistoryLimit {
		limit = payoutHistoryLimit
	}

	items, err := s.client.LRange(ctx, makePayoutsKey(player), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}

	payouts := make([]Payout, 0, len(items))
	for _, item := range items {
		var p Payout
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			logrus.Warnf("skipping corrupt payout record for player %s: %v", player, err)
			continue
		}
		payouts = append(payouts, p)
	}
	return payouts, nil
}
