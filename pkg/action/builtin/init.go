package builtin

import (
	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/service"
	"github.com/sirupsen/logrus"
)

// Dependencies holds dependencies needed by built-in actions.
// Nil platform services put the matching actions in test mode.
type Dependencies struct {
	EntitlementGranter service.EntitlementGranter
	UserStatUpdater    service.UserStatisticUpdater
	UserResolver       service.UserResolver
	Logger             *logrus.Logger
}

// RegisterActions registers built-in action constructors with the factory.
func RegisterActions(factory *action.Factory, deps *Dependencies) {
	if deps == nil {
		deps = &Dependencies{}
	}

	factory.Register(GrantItemActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewGrantItemAction(config, deps.EntitlementGranter, deps.UserResolver), nil
	})

	factory.Register(UpdateStatActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewUpdateStatAction(config, deps.UserStatUpdater, deps.UserResolver), nil
	})

	factory.Register(AuditLogActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewAuditLogAction(config, deps.Logger), nil
	})
}
