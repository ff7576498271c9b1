package pipeline

import (
	"fmt"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
)

// ValidateWiring validates that the hooks are correctly wired.
// It checks that:
// - All enabled actions in config have registered instances
// - Every hook runs at least one enabled action
//
// This catches common mistakes like forgetting to register an action type
// or a hook whose actions are all disabled.
func ValidateWiring(actionRegistry *action.Registry, config *Config) error {
	var errors []string

	enabled := make(map[string]bool)
	for _, ac := range config.Actions {
		if !ac.Enabled {
			continue
		}
		enabled[ac.ID] = true

		if actionRegistry.Get(ac.ID) == nil {
			errors = append(errors, fmt.Sprintf("action '%s' (type=%s) is enabled in config but not registered", ac.ID, ac.Type))
		}
	}

	for _, h := range config.Hooks {
		live := 0
		for _, id := range h.Actions {
			if enabled[id] {
				live++
			}
		}
		if live == 0 {
			errors = append(errors, fmt.Sprintf("hook for '%s' has no enabled actions", h.Event))
		}
	}

	// Note: unknown action references in hooks are rejected by Config.Validate()

	if len(errors) > 0 {
		return fmt.Errorf("hook wiring validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
