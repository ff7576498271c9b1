package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/sirupsen/logrus"
)

// ErrUserNotLinked is returned when a payout needs a platform user and the
// player has none linked.
var ErrUserNotLinked = errors.New("no platform user linked to player")

// LedgerPayer settles payouts by crediting the player's internal wei balance.
type LedgerPayer struct {
	creditor BalanceCreditor
}

// NewLedgerPayer creates a payer that credits internal balances.
func NewLedgerPayer(creditor BalanceCreditor) *LedgerPayer {
	return &LedgerPayer{creditor: creditor}
}

// Pay credits the payout amount to the player.
func (p *LedgerPayer) Pay(ctx context.Context, payout *state.Payout) error {
	balance, err := p.creditor.Credit(ctx, payout.Player, payout.Amount())
	if err != nil {
		return fmt.Errorf("failed to credit payout %s: %w", payout.ID, err)
	}

	logrus.Infof("payout %s credited %s wei to player %s, balance %s",
		payout.ID, payout.AmountWei, payout.Player, balance)
	return nil
}

// EntitlementPayer settles payouts by fulfilling one platform item per
// reward unit to the platform user linked to the player.
type EntitlementPayer struct {
	granter  EntitlementGranter
	resolver UserResolver
	itemID   string
}

// NewEntitlementPayer creates a payer that grants itemID per unit.
func NewEntitlementPayer(granter EntitlementGranter, resolver UserResolver, itemID string) *EntitlementPayer {
	return &EntitlementPayer{
		granter:  granter,
		resolver: resolver,
		itemID:   itemID,
	}
}

// Pay fulfills payout.Units items to the linked user.
func (p *EntitlementPayer) Pay(ctx context.Context, payout *state.Payout) error {
	userID, err := p.resolver.UserID(ctx, payout.Player)
	if err != nil {
		return fmt.Errorf("failed to resolve user for player %s: %w", payout.Player, err)
	}
	if userID == "" {
		return fmt.Errorf("%w: %s", ErrUserNotLinked, payout.Player)
	}

	if err := p.granter.GrantEntitlement(ctx, userID, p.itemID, int(payout.Units)); err != nil {
		return fmt.Errorf("failed to grant payout %s: %w", payout.ID, err)
	}

	logrus.Infof("payout %s granted %d x %s to user %s (player %s)",
		payout.ID, payout.Units, p.itemID, userID, payout.Player)
	return nil
}
