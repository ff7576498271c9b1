// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"testing"

	actionBuiltin "github.com/AccelByte/extend-challenge-ledger/pkg/action/builtin"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/pipeline"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
)

const ownerAddr = "0x00000000000000000000000000000000000000f0"

type noopPayer struct{}

func (noopPayer) Pay(ctx context.Context, payout *state.Payout) error { return nil }

func TestInitLedger_AuthorizesOperators(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := state.NewRedisStore(client, state.RedisStoreConfig{})
	ctx := context.Background()

	operators := []string{
		"0x00000000000000000000000000000000000000E1",
		" 0x00000000000000000000000000000000000000e1 ",
		"",
		"0x00000000000000000000000000000000000000e2",
	}
	l, err := InitLedger(ctx, store, noopPayer{}, ledger.Config{Policy: ledger.DefaultPolicy(), Owner: ownerAddr}, operators)
	if err != nil {
		t.Fatalf("InitLedger() error = %v", err)
	}

	for _, op := range []string{"0x00000000000000000000000000000000000000e1", "0x00000000000000000000000000000000000000e2"} {
		ok, err := l.IsOperator(ctx, op)
		if err != nil || !ok {
			t.Errorf("IsOperator(%s) = %v, %v; want true", op, ok, err)
		}
	}

	listed, err := store.Operators(ctx)
	if err != nil {
		t.Fatalf("Operators() error = %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("stored operators = %v, want 2", listed)
	}
}

func TestInitLedger_InvalidOperator(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := state.NewRedisStore(client, state.RedisStoreConfig{})

	_, err := InitLedger(context.Background(), store, noopPayer{},
		ledger.Config{Policy: ledger.DefaultPolicy(), Owner: ownerAddr}, []string{"not-an-address"})
	if err == nil {
		t.Fatal("expected error for invalid operator")
	}
}

func TestDefaultHooksConfig(t *testing.T) {
	t.Setenv("HOOK_COMPLETION_BADGE_ENABLED", "false")
	t.Setenv("HOOK_UNITS_STAT_ENABLED", "false")

	cfg, err := pipeline.LoadConfig("../../config/hooks.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if NeedsPlatform(cfg) {
		t.Error("default hooks should not need AccelByte services")
	}

	logger, _ := test.NewNullLogger()
	executor, registry, err := InitActionExecutor(cfg, &actionBuiltin.Dependencies{Logger: logger})
	if err != nil {
		t.Fatalf("InitActionExecutor() error = %v", err)
	}
	if err := pipeline.ValidateWiring(registry, cfg); err != nil {
		t.Fatalf("ValidateWiring() error = %v", err)
	}

	manager := InitHooks(executor, cfg, 0)
	if err := manager.Handle(context.Background(), &ledger.Event{
		Type:     ledger.EventChallengeCompleted,
		Player:   "0x00000000000000000000000000000000000000a1",
		Progress: ledger.Progress{ProgressCount: 9, Completed: true, ClaimableUnits: 1},
		Units:    1,
	}); err != nil {
		t.Errorf("Handle() error = %v", err)
	}
}

func TestNeedsPlatform(t *testing.T) {
	cfg := &pipeline.Config{
		Actions: []pipeline.ActionConfig{
			{ID: "log", Type: actionBuiltin.AuditLogActionID, Enabled: true},
			{ID: "badge", Type: actionBuiltin.GrantItemActionID, Enabled: false},
		},
	}
	if NeedsPlatform(cfg) {
		t.Error("disabled grant_item should not need AccelByte services")
	}

	cfg.Actions[1].Enabled = true
	if !NeedsPlatform(cfg) {
		t.Error("enabled grant_item needs AccelByte services")
	}
}
