// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"
	"math/big"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	balanceKeyPrefix = KeyPrefix + "balance:"
	userIDsKey       = KeyPrefix + "user_ids"
)

func makeBalanceKey(player string) string {
	return fmt.Sprintf("%s%s", balanceKeyPrefix, player)
}

// Credit adds amount wei to the player's paid-out balance and returns the new balance.
func (s *RedisStore) Credit(ctx context.Context, player string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("credit amount must be positive")
	}
	key := makeBalanceKey(player)

	var balance *big.Int
	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := readAmount(ctx, tx, key)
		if err != nil {
			return err
		}
		current.Add(current, amount)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, current.String(), 0)
			return nil
		})
		if err == nil {
			balance = current
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("credited %s wei to player %s, balance %s", amount, player, balance)
	return balance, nil
}

// Balance returns the player's paid-out balance in wei.
func (s *RedisStore) Balance(ctx context.Context, player string) (*big.Int, error) {
	return readAmount(ctx, s.client, makeBalanceKey(player))
}

// LinkUser associates a player address with a platform user id.
func (s *RedisStore) LinkUser(ctx context.Context, player, userID string) error {
	if err := s.client.HSet(ctx, userIDsKey, player, userID).Err(); err != nil {
		return fmt.Errorf("failed to link user %s: %w", userID, err)
	}
	return nil
}

// UserID returns the platform user id linked to a player, or "" when none is linked.
func (s *RedisStore) UserID(ctx context.Context, player string) (string, error) {
	userID, err := s.client.HGet(ctx, userIDsKey, player).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user id: %w", err)
	}
	return userID, nil
}
