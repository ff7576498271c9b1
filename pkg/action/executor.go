package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Executor executes actions in response to ledger events.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a new action executor.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
	}
}

// Execute runs an action for an event, retrying as its RetryConfig allows.
func (e *Executor) Execute(ctx context.Context, actionID string, event *ledger.Event) (*ActionResult, error) {
	action := e.registry.Get(actionID)
	if action == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	if !action.Config().Enabled {
		return nil, fmt.Errorf("%w: %s", ErrActionDisabled, actionID)
	}

	logrus.Infof("executing action %s for event %s (player: %s)", actionID, event.Type, event.Player)

	attempts, err := e.run(ctx, action, event)
	if err != nil {
		logrus.Errorf("action %s failed after %d attempts: %v", actionID, attempts, err)
		result := NewActionError(actionID, err)
		result.Attempts = attempts
		return result, err
	}

	logrus.Infof("action %s completed successfully", actionID)
	result := NewActionResult(actionID)
	result.Attempts = attempts
	return result, nil
}

// ExecuteMultiple executes multiple actions in sequence.
// If rollbackOnError is true, previously executed actions will be rolled back if a later action fails.
func (e *Executor) ExecuteMultiple(ctx context.Context, actionIDs []string, event *ledger.Event, rollbackOnError bool) ([]*ActionResult, error) {
	var results []*ActionResult
	var executedActions []Action

	for _, actionID := range actionIDs {
		action := e.registry.Get(actionID)
		if action == nil {
			err := fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
			logrus.Errorf("%v", err)

			if rollbackOnError && len(executedActions) > 0 {
				e.rollbackActions(ctx, executedActions, event)
			}

			return results, err
		}
		if !action.Config().Enabled {
			logrus.Debugf("skipping disabled action %s", actionID)
			continue
		}

		logrus.Infof("executing action %s for event %s (player: %s)", actionID, event.Type, event.Player)

		attempts, err := e.run(ctx, action, event)
		if err != nil {
			logrus.Errorf("action %s failed after %d attempts: %v", actionID, attempts, err)
			result := NewActionError(actionID, err)
			result.Attempts = attempts
			results = append(results, result)

			if rollbackOnError && len(executedActions) > 0 {
				e.rollbackActions(ctx, executedActions, event)
			}

			return results, err
		}

		executedActions = append(executedActions, action)
		result := NewActionResult(actionID)
		result.Attempts = attempts
		results = append(results, result)
		logrus.Infof("action %s completed successfully", actionID)
	}

	return results, nil
}

// run executes action once, or under its retry policy when one is configured.
func (e *Executor) run(ctx context.Context, action Action, event *ledger.Event) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		return action.Execute(ctx, event)
	}

	policy := retryPolicy(action.Config().Retry)
	if policy == nil {
		return 1, operation()
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil && attempts >= action.Config().Retry.MaxAttempts {
		return attempts, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
	}
	return attempts, err
}

// retryPolicy translates a RetryConfig into a backoff policy. It returns nil
// when the action should run once.
func retryPolicy(cfg *RetryConfig) backoff.BackOff {
	if cfg == nil || cfg.MaxAttempts <= 1 {
		return nil
	}
	retries := uint64(cfg.MaxAttempts - 1)

	switch cfg.Backoff {
	case "exponential":
		b := backoff.NewExponentialBackOff()
		if cfg.Delay > 0 {
			b.InitialInterval = cfg.Delay
		}
		b.MaxElapsedTime = 0
		return backoff.WithMaxRetries(b, retries)
	default:
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.Delay), retries)
	}
}

// rollbackActions rolls back actions in reverse order.
func (e *Executor) rollbackActions(ctx context.Context, actions []Action, event *ledger.Event) {
	logrus.Warnf("rolling back %d actions", len(actions))

	// Rollback in reverse order
	for i := len(actions) - 1; i >= 0; i-- {
		action := actions[i]
		logrus.Infof("rolling back action %s", action.ID())

		err := action.Rollback(ctx, event)
		if err != nil {
			if errors.Is(err, ErrRollbackNotSupported) {
				logrus.Warnf("action %s does not support rollback", action.ID())
			} else {
				logrus.Errorf("failed to rollback action %s: %v", action.ID(), err)
			}
		} else {
			logrus.Infof("action %s rolled back successfully", action.ID())
		}
	}
}

// GetRegistry returns the action registry used by this executor.
func (e *Executor) GetRegistry() *Registry {
	return e.registry
}
