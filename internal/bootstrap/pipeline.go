// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

// InitHooks creates the hook manager that runs actions for committed ledger
// events:
//
//	Ledger event → Hooks → Actions
//
// Event-to-action mappings come from the hooks section of config/hooks.yaml:
//
//	hooks:
//	  - event: challenge_completed
//	    actions: [completion-audit, completion-badge]
//
// To change mappings, edit config/hooks.yaml, not this file.
func InitHooks(
	actionExecutor *action.Executor,
	hooksConfig *pipeline.Config,
	queueSize int,
) *pipeline.Manager {
	p := pipeline.FromConfig("challenge-hooks", hooksConfig)
	logrus.Infof("configured hooks for %d event types", len(p.Events()))

	manager := pipeline.NewManager(actionExecutor, p, queueSize)
	logrus.Infof("initialized hook manager")

	return manager
}
