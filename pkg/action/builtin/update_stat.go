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
	// UpdateStatActionID is the identifier for the statistic increment action
	UpdateStatActionID = "update_stat"
)

// UpdateStatAction increments a platform statistic for the player's linked user.
type UpdateStatAction struct {
	config   action.ActionConfig
	updater  service.UserStatisticUpdater
	resolver service.UserResolver
	statCode string
	inc      float64
	useUnits bool
}

// NewUpdateStatAction creates a new statistic update action.
// With use_units set, the increment is the event's reward units.
func NewUpdateStatAction(config action.ActionConfig, updater service.UserStatisticUpdater, resolver service.UserResolver) *UpdateStatAction {
	return &UpdateStatAction{
		config:   config,
		updater:  updater,
		resolver: resolver,
		statCode: config.GetParameterString("stat_code", ""),
		inc:      config.GetParameterFloat("inc", 1),
		useUnits: config.GetParameterBool("use_units", false),
	}
}

func (a *UpdateStatAction) ID() string                  { return a.config.ID }
func (a *UpdateStatAction) Name() string                { return "Update Statistic" }
func (a *UpdateStatAction) Config() action.ActionConfig { return a.config }

// Execute increments the configured statistic.
func (a *UpdateStatAction) Execute(ctx context.Context, event *ledger.Event) error {
	if a.statCode == "" {
		return backoff.Permanent(fmt.Errorf("%w: stat_code parameter not configured", action.ErrInvalidConfig))
	}

	inc := a.inc
	if a.useUnits {
		inc = float64(event.Units)
	}
	if inc == 0 {
		return nil
	}

	if a.updater == nil {
		logrus.Warnf("[TEST MODE] would increment stat %s by %v for player %s", a.statCode, inc, event.Player)
		return nil
	}

	userID, err := resolveUser(ctx, a.resolver, event.Player)
	if err != nil {
		return err
	}

	if err := a.updater.IncrementStat(ctx, userID, a.statCode, inc); err != nil {
		return fmt.Errorf("failed to update stat %s: %w", a.statCode, err)
	}

	logrus.Infof("incremented stat %s by %v for user %s", a.statCode, inc, userID)
	return nil
}

// Rollback is not supported; statistics are append-only.
func (a *UpdateStatAction) Rollback(ctx context.Context, event *ledger.Event) error {
	return action.ErrRollbackNotSupported
}
