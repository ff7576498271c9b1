package pipeline_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	actionBuiltin "github.com/AccelByte/extend-challenge-ledger/pkg/action/builtin"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/pipeline"
	"github.com/AccelByte/extend-challenge-ledger/pkg/service"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

const (
	ownerAddr    = "0x00000000000000000000000000000000000000f0"
	operatorAddr = "0x00000000000000000000000000000000000000e1"
	playerAddr   = "0x00000000000000000000000000000000000000a1"
)

// mockGranter records grants and optionally fails.
type mockGranter struct {
	mu     sync.Mutex
	grants []string
	err    error
}

func (m *mockGranter) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.grants = append(m.grants, userID+":"+itemID)
	return nil
}

func (m *mockGranter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.grants)
}

// mockStatUpdater records increments.
type mockStatUpdater struct {
	mu    sync.Mutex
	total float64
}

func (m *mockStatUpdater) IncrementStat(ctx context.Context, userID, statCode string, inc float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += inc
	return nil
}

type hooksFixture struct {
	ledger  *ledger.Ledger
	store   *state.RedisStore
	manager *pipeline.Manager
	granter *mockGranter
	stats   *mockStatUpdater
}

func setupHooks(t *testing.T) *hooksFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := state.NewRedisStore(client, state.RedisStoreConfig{})
	granter := &mockGranter{}
	stats := &mockStatUpdater{}

	factory := action.NewFactory()
	actionBuiltin.RegisterActions(factory, &actionBuiltin.Dependencies{
		EntitlementGranter: granter,
		UserStatUpdater:    stats,
		UserResolver:       store,
	})

	config := &pipeline.Config{
		Actions: []pipeline.ActionConfig{
			{ID: "badge", Type: actionBuiltin.GrantItemActionID, Enabled: true,
				Parameters: map[string]interface{}{"item_id": "CHALLENGE_BADGE"}},
			{ID: "units-stat", Type: actionBuiltin.UpdateStatActionID, Enabled: true,
				Parameters: map[string]interface{}{"stat_code": "units-redeemed", "use_units": true}},
		},
		Hooks: []pipeline.HookConfig{
			{Event: string(ledger.EventChallengeCompleted), Actions: []string{"badge"}},
			{Event: string(ledger.EventRewardRedeemed), Actions: []string{"units-stat"}},
		},
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	registry := action.NewRegistry()
	if err := factory.RegisterActions(registry, config.ActionConfigs()); err != nil {
		t.Fatalf("RegisterActions() error = %v", err)
	}
	if err := pipeline.ValidateWiring(registry, config); err != nil {
		t.Fatalf("ValidateWiring() error = %v", err)
	}

	manager := pipeline.NewManager(action.NewExecutor(registry), pipeline.FromConfig("hooks", config), 8)

	now := time.Unix(1_700_000_000, 0)
	l, err := ledger.New(store, service.NewLedgerPayer(store),
		ledger.Config{Policy: ledger.DefaultPolicy(), Owner: ownerAddr},
		ledger.WithClock(func() time.Time { return now }),
		ledger.WithEventSink(manager))
	if err != nil {
		t.Fatalf("ledger.New() error = %v", err)
	}

	ctx := context.Background()
	if err := l.SetGameOperator(ctx, ownerAddr, operatorAddr, true); err != nil {
		t.Fatalf("SetGameOperator() error = %v", err)
	}
	if _, err := l.Fund(ctx, ownerAddr, big.NewInt(1e18)); err != nil {
		t.Fatalf("Fund() error = %v", err)
	}
	if err := store.LinkUser(ctx, playerAddr, "user-1"); err != nil {
		t.Fatalf("LinkUser() error = %v", err)
	}

	return &hooksFixture{ledger: l, store: store, manager: manager, granter: granter, stats: stats}
}

func (f *hooksFixture) complete(t *testing.T) *ledger.Progress {
	t.Helper()
	ctx := context.Background()

	if _, err := f.ledger.StartChallenge(ctx, playerAddr); err != nil {
		t.Fatalf("StartChallenge() error = %v", err)
	}
	var p *ledger.Progress
	for i := 0; i < 9; i++ {
		var err error
		p, err = f.ledger.RecordProgressEvent(ctx, operatorAddr, playerAddr)
		if err != nil {
			t.Fatalf("RecordProgressEvent() error = %v", err)
		}
	}
	return p
}

func TestManager_InlineHooks(t *testing.T) {
	f := setupHooks(t)

	f.complete(t)

	if f.granter.count() != 1 {
		t.Fatalf("expected 1 completion grant, got %d", f.granter.count())
	}
	if f.granter.grants[0] != "user-1:CHALLENGE_BADGE" {
		t.Errorf("unexpected grant %s", f.granter.grants[0])
	}

	if _, err := f.ledger.RedeemMyRewards(context.Background(), playerAddr); err != nil {
		t.Fatalf("RedeemMyRewards() error = %v", err)
	}
	if f.stats.total != 1 {
		t.Errorf("expected units stat incremented by 1, got %v", f.stats.total)
	}

	stats := f.manager.GetStats()
	if stats.EventsHandled != 2 || stats.ActionsSucceeded != 2 || stats.ActionsFailed != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestManager_HookFailureKeepsLedgerState(t *testing.T) {
	f := setupHooks(t)
	f.granter.err = errors.New("platform unavailable")

	p := f.complete(t)

	if !p.Completed || p.ClaimableUnits != 1 {
		t.Errorf("expected completed with 1 claimable unit, got %+v", p)
	}
	got, err := f.ledger.GetPlayerProgress(context.Background(), playerAddr)
	if err != nil {
		t.Fatalf("GetPlayerProgress() error = %v", err)
	}
	if !got.Completed || got.ClaimableUnits != 1 {
		t.Errorf("expected persisted completion, got %+v", got)
	}
	if f.manager.GetStats().ActionsFailed != 1 {
		t.Errorf("expected 1 failed action, got %+v", f.manager.GetStats())
	}
}

func TestManager_QueuedHooks(t *testing.T) {
	f := setupHooks(t)
	f.manager.Start(2)

	f.complete(t)

	// Stop drains the queue.
	f.manager.Stop()

	if f.granter.count() != 1 {
		t.Errorf("expected 1 completion grant after drain, got %d", f.granter.count())
	}

	// Publishing after Stop falls back to inline handling.
	if _, err := f.ledger.RedeemMyRewards(context.Background(), playerAddr); err != nil {
		t.Fatalf("RedeemMyRewards() error = %v", err)
	}
	if f.stats.total != 1 {
		t.Errorf("expected units stat incremented by 1, got %v", f.stats.total)
	}
}

func TestManager_Handle_ReturnsActionErrors(t *testing.T) {
	registry := action.NewRegistry()
	p := pipeline.NewPipeline("test").AddHook(ledger.EventRewardGranted, false, "ghost")
	manager := pipeline.NewManager(action.NewExecutor(registry), p, 0)

	err := manager.Handle(context.Background(), &ledger.Event{Type: ledger.EventRewardGranted, Player: playerAddr})
	if !errors.Is(err, action.ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}

	if err := manager.Handle(context.Background(), &ledger.Event{Type: ledger.EventChallengeStarted}); err != nil {
		t.Errorf("expected no error for unhooked event, got %v", err)
	}
}
