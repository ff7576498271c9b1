package action

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
)

// testAction is a simple action for testing
type testAction struct {
	id             string
	name           string
	config         ActionConfig
	executeFunc    func(ctx context.Context, event *ledger.Event) error
	rollbackFunc   func(ctx context.Context, event *ledger.Event) error
	executeCalls   int
	rollbackCalled bool
}

func (a *testAction) ID() string           { return a.id }
func (a *testAction) Name() string         { return a.name }
func (a *testAction) Config() ActionConfig { return a.config }

func (a *testAction) Execute(ctx context.Context, event *ledger.Event) error {
	a.executeCalls++
	if a.executeFunc != nil {
		return a.executeFunc(ctx, event)
	}
	return nil
}

func (a *testAction) Rollback(ctx context.Context, event *ledger.Event) error {
	a.rollbackCalled = true
	if a.rollbackFunc != nil {
		return a.rollbackFunc(ctx, event)
	}
	return nil
}

func testEvent() *ledger.Event {
	return &ledger.Event{
		Type:     ledger.EventChallengeCompleted,
		Player:   "0x00000000000000000000000000000000000000aa",
		Progress: ledger.Progress{ProgressCount: 9, Completed: true, ClaimableUnits: 1},
		Amount:   big.NewInt(0),
		At:       time.Unix(1_700_000_000, 0),
	}
}

var errActionFailed = errors.New("action failed")

func TestNewExecutor(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	if executor == nil {
		t.Fatal("Expected non-nil executor")
	}

	if executor.GetRegistry() != registry {
		t.Error("Expected executor to use provided registry")
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	var seen *ledger.Event
	action := &testAction{
		id:     "test_action",
		name:   "Test Action",
		config: ActionConfig{ID: "test_action", Enabled: true},
		executeFunc: func(ctx context.Context, event *ledger.Event) error {
			seen = event
			return nil
		},
	}
	registry.Register(action)

	event := testEvent()
	result, err := executor.Execute(context.Background(), "test_action", event)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Success {
		t.Error("Expected successful result")
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
	if seen != event {
		t.Error("Expected action to receive the event")
	}
}

func TestExecutor_Execute_ActionNotFound(t *testing.T) {
	executor := NewExecutor(NewRegistry())

	result, err := executor.Execute(context.Background(), "nonexistent_action", testEvent())
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Expected ErrActionNotFound, got %v", err)
	}

	if result != nil {
		t.Error("Expected nil result for nonexistent action")
	}
}

func TestExecutor_Execute_Disabled(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action := &testAction{id: "off", config: ActionConfig{ID: "off", Enabled: false}}
	registry.Register(action)

	_, err := executor.Execute(context.Background(), "off", testEvent())
	if !errors.Is(err, ErrActionDisabled) {
		t.Errorf("Expected ErrActionDisabled, got %v", err)
	}
	if action.executeCalls != 0 {
		t.Error("Expected disabled action not to run")
	}
}

func TestExecutor_Execute_ActionError(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action := &testAction{
		id:     "failing_action",
		name:   "Failing Action",
		config: ActionConfig{ID: "failing_action", Enabled: true},
		executeFunc: func(ctx context.Context, event *ledger.Event) error {
			return errActionFailed
		},
	}
	registry.Register(action)

	result, err := executor.Execute(context.Background(), "failing_action", testEvent())
	if err == nil {
		t.Error("Expected error from failing action")
	}

	if result.Success {
		t.Error("Expected unsuccessful result")
	}

	if !errors.Is(result.Error, errActionFailed) {
		t.Errorf("Expected error %v, got %v", errActionFailed, result.Error)
	}
}

func TestExecutor_Execute_RetrySucceeds(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action := &testAction{
		id: "flaky",
		config: ActionConfig{
			ID:      "flaky",
			Enabled: true,
			Retry:   &RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Backoff: "constant"},
		},
	}
	action.executeFunc = func(ctx context.Context, event *ledger.Event) error {
		if action.executeCalls < 3 {
			return errActionFailed
		}
		return nil
	}
	registry.Register(action)

	result, err := executor.Execute(context.Background(), "flaky", testEvent())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
}

func TestExecutor_Execute_RetryExhausted(t *testing.T) {
	tests := []struct {
		name    string
		backoff string
	}{
		{name: "constant", backoff: "constant"},
		{name: "exponential", backoff: "exponential"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			executor := NewExecutor(registry)

			action := &testAction{
				id: "broken",
				config: ActionConfig{
					ID:      "broken",
					Enabled: true,
					Retry:   &RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Backoff: tt.backoff},
				},
				executeFunc: func(ctx context.Context, event *ledger.Event) error {
					return errActionFailed
				},
			}
			registry.Register(action)

			result, err := executor.Execute(context.Background(), "broken", testEvent())
			if !errors.Is(err, ErrMaxRetriesExceeded) {
				t.Errorf("Expected ErrMaxRetriesExceeded, got %v", err)
			}
			if !errors.Is(err, errActionFailed) {
				t.Errorf("Expected wrapped action error, got %v", err)
			}
			if action.executeCalls != 2 || result.Attempts != 2 {
				t.Errorf("Expected 2 attempts, got calls=%d attempts=%d", action.executeCalls, result.Attempts)
			}
		})
	}
}

func TestExecutor_ExecuteMultiple_Success(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action1 := &testAction{id: "action1", config: ActionConfig{ID: "action1", Enabled: true}}
	action2 := &testAction{id: "action2", config: ActionConfig{ID: "action2", Enabled: true}}
	disabled := &testAction{id: "action3", config: ActionConfig{ID: "action3", Enabled: false}}

	registry.Register(action1)
	registry.Register(action2)
	registry.Register(disabled)

	results, err := executor.ExecuteMultiple(context.Background(), []string{"action1", "action3", "action2"}, testEvent(), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	if action1.executeCalls != 1 || action2.executeCalls != 1 {
		t.Error("Expected both enabled actions to be executed")
	}
	if disabled.executeCalls != 0 {
		t.Error("Expected disabled action to be skipped")
	}

	for _, result := range results {
		if !result.Success {
			t.Error("Expected all results to be successful")
		}
	}
}

func TestExecutor_ExecuteMultiple_WithRollback(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action1 := &testAction{id: "action1", config: ActionConfig{ID: "action1", Enabled: true}}
	action2 := &testAction{
		id:     "action2",
		config: ActionConfig{ID: "action2", Enabled: true},
		executeFunc: func(ctx context.Context, event *ledger.Event) error {
			return errActionFailed
		},
	}

	registry.Register(action1)
	registry.Register(action2)

	results, err := executor.ExecuteMultiple(context.Background(), []string{"action1", "action2"}, testEvent(), true)
	if err == nil {
		t.Error("Expected error from failing action")
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results (including failed action), got %d", len(results))
	}

	if !action1.rollbackCalled {
		t.Error("Expected action1 to be rolled back")
	}

	if action2.rollbackCalled {
		t.Error("Did not expect action2 to be rolled back (it failed)")
	}
}

func TestExecutor_ExecuteMultiple_NoRollback(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action1 := &testAction{id: "action1", config: ActionConfig{ID: "action1", Enabled: true}}
	action2 := &testAction{
		id:     "action2",
		config: ActionConfig{ID: "action2", Enabled: true},
		executeFunc: func(ctx context.Context, event *ledger.Event) error {
			return errActionFailed
		},
	}

	registry.Register(action1)
	registry.Register(action2)

	_, err := executor.ExecuteMultiple(context.Background(), []string{"action1", "action2"}, testEvent(), false)
	if err == nil {
		t.Error("Expected error from failing action")
	}

	if action1.rollbackCalled {
		t.Error("Did not expect rollback when rollbackOnError is false")
	}
}

func TestExecutor_ExecuteMultiple_MissingAction(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry)

	action1 := &testAction{id: "action1", config: ActionConfig{ID: "action1", Enabled: true}}
	registry.Register(action1)

	_, err := executor.ExecuteMultiple(context.Background(), []string{"action1", "ghost"}, testEvent(), true)
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Expected ErrActionNotFound, got %v", err)
	}
	if !action1.rollbackCalled {
		t.Error("Expected executed action to be rolled back")
	}
}
