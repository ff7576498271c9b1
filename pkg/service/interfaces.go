package service

import (
	"context"
	"math/big"
)

// Service interfaces for external dependencies that payers and hook actions use.
//
// You may not need to have interface and go with direct struct usage,
// but having interfaces allows easier mocking for unit tests.

type EntitlementGranter interface {
	// GrantEntitlement grants an entitlement/item to a player
	GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error
}

type UserStatisticUpdater interface {
	// IncrementStat increments a player's statistic by inc
	IncrementStat(ctx context.Context, userID, statCode string, inc float64) error
}

// UserResolver maps a player address to the platform user id linked to it.
// An empty id means no user is linked.
type UserResolver interface {
	UserID(ctx context.Context, player string) (string, error)
}

// BalanceCreditor credits paid-out wei to a player's internal balance.
type BalanceCreditor interface {
	Credit(ctx context.Context, player string, amount *big.Int) (*big.Int, error)
}
