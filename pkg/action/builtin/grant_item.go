package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/service"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// GrantItemActionID is the identifier for item grant action
	GrantItemActionID = "grant_item"
)

// GrantItemAction grants a platform item to the user linked to the event's player.
type GrantItemAction struct {
	config   action.ActionConfig
	granter  service.EntitlementGranter
	resolver service.UserResolver
	itemID   string
	quantity int
	perUnit  bool
}

// NewGrantItemAction creates a new grant item action.
// With per_unit set, the quantity is multiplied by the event's reward units.
func NewGrantItemAction(config action.ActionConfig, granter service.EntitlementGranter, resolver service.UserResolver) *GrantItemAction {
	itemID := config.GetParameterString("item_id", "")
	quantity := config.GetParameterInt("quantity", 1)
	perUnit := config.GetParameterBool("per_unit", false)

	logrus.Infof("creating grant item action: itemID=%s, quantity=%d, perUnit=%v", itemID, quantity, perUnit)

	return &GrantItemAction{
		config:   config,
		granter:  granter,
		resolver: resolver,
		itemID:   itemID,
		quantity: quantity,
		perUnit:  perUnit,
	}
}

// ID returns the action identifier.
func (a *GrantItemAction) ID() string {
	return a.config.ID
}

// Name returns the action name.
func (a *GrantItemAction) Name() string {
	return "Grant Item"
}

// Config returns the action configuration.
func (a *GrantItemAction) Config() action.ActionConfig {
	return a.config
}

// Execute grants the configured item to the player's linked user.
func (a *GrantItemAction) Execute(ctx context.Context, event *ledger.Event) error {
	if a.itemID == "" {
		return backoff.Permanent(fmt.Errorf("%w: item_id parameter not configured", action.ErrInvalidConfig))
	}

	quantity := a.quantity
	if a.perUnit {
		quantity *= int(event.Units)
	}
	if quantity <= 0 {
		logrus.Debugf("nothing to grant for player %s on %s", event.Player, event.Type)
		return nil
	}

	if a.granter == nil {
		logrus.Warnf("[TEST MODE] would grant item %s (quantity: %d) to player %s",
			a.itemID, quantity, event.Player)
		return nil
	}

	userID, err := resolveUser(ctx, a.resolver, event.Player)
	if err != nil {
		return err
	}

	logrus.Infof("granting item %s (quantity: %d) to user %s (player: %s)",
		a.itemID, quantity, userID, event.Player)

	if err := a.granter.GrantEntitlement(ctx, userID, a.itemID, quantity); err != nil {
		return fmt.Errorf("failed to grant item: %w", err)
	}

	logrus.Infof("successfully granted item %s to user %s", a.itemID, userID)
	return nil
}

// Rollback is not supported for item grants (items cannot be taken back).
func (a *GrantItemAction) Rollback(ctx context.Context, event *ledger.Event) error {
	return action.ErrRollbackNotSupported
}

// resolveUser maps a player to its linked platform user. A missing link is
// permanent, so the executor does not retry it.
func resolveUser(ctx context.Context, resolver service.UserResolver, player string) (string, error) {
	if resolver == nil {
		return "", backoff.Permanent(fmt.Errorf("%w: %s", action.ErrUnlinkedPlayer, player))
	}
	userID, err := resolver.UserID(ctx, player)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user for player %s: %w", player, err)
	}
	if userID == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: %s", action.ErrUnlinkedPlayer, player))
	}
	return userID, nil
}
