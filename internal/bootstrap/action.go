// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	actionBuiltin "github.com/AccelByte/extend-challenge-ledger/pkg/action/builtin"
	"github.com/AccelByte/extend-challenge-ledger/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

// InitActionExecutor creates an action executor with the actions declared in
// the hooks config.
//
// Action types come from pkg/action/builtin/init.go. To add a new type,
// implement action.Action in pkg/action/builtin, register its constructor in
// RegisterActions and declare instances of it in config/hooks.yaml. Actions
// that call external services receive them through actionBuiltin.Dependencies.
func InitActionExecutor(
	hooksConfig *pipeline.Config,
	deps *actionBuiltin.Dependencies,
) (*action.Executor, *action.Registry, error) {
	factory := action.NewFactory()
	actionBuiltin.RegisterActions(factory, deps)

	registry := action.NewRegistry()
	if err := factory.RegisterActions(registry, hooksConfig.ActionConfigs()); err != nil {
		return nil, nil, fmt.Errorf("failed to register actions: %w", err)
	}

	logrus.Infof("registered %d hook actions (types: %v)", registry.Count(), factory.Types())

	executor := action.NewExecutor(registry)
	logrus.Infof("initialized action executor")

	return executor, registry, nil
}

// NeedsPlatform reports whether an enabled hook action calls AccelByte services.
func NeedsPlatform(hooksConfig *pipeline.Config) bool {
	for _, ac := range hooksConfig.Actions {
		if !ac.Enabled {
			continue
		}
		switch ac.Type {
		case actionBuiltin.GrantItemActionID, actionBuiltin.UpdateStatActionID:
			return true
		}
	}
	return false
}
