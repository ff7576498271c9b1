package action

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Constructor creates an action from a configuration.
type Constructor func(config ActionConfig) (Action, error)

// Factory builds actions by type. Builtin packages register their
// constructors on a Factory the bootstrap code owns.
type Factory struct {
	constructors map[string]Constructor
	mu           sync.RWMutex
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[string]Constructor),
	}
}

// Register registers a constructor for an action type.
func (f *Factory) Register(actionType string, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.constructors[actionType] = constructor
	logrus.Debugf("registered action type: %s", actionType)
}

// Types returns the registered action types.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	return types
}

// Create creates an action instance based on the configuration.
// Disabled actions yield a nil action and no error.
func (f *Factory) Create(config ActionConfig) (Action, error) {
	if !config.Enabled {
		logrus.Infof("skipping disabled action: %s", config.ID)
		return nil, nil
	}

	logrus.Infof("creating action: id=%s, type=%s", config.ID, config.Type)

	f.mu.RLock()
	constructor, exists := f.constructors[config.Type]
	f.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown action type: %s", config.Type)
	}

	return constructor(config)
}

// CreateActions creates multiple action instances from a list of configurations.
// Returns all successfully created actions and any errors encountered.
func (f *Factory) CreateActions(configs []ActionConfig) ([]Action, []error) {
	var actions []Action
	var errs []error

	for _, config := range configs {
		action, err := f.Create(config)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create action %s: %w", config.ID, err))
			continue
		}

		if action != nil {
			actions = append(actions, action)
		}
	}

	return actions, errs
}

// RegisterActions creates actions from configs and registers them with the registry.
// Any creation error fails the whole set so a misconfigured hook is never silently dropped.
func (f *Factory) RegisterActions(registry *Registry, configs []ActionConfig) error {
	actions, errs := f.CreateActions(configs)
	if len(errs) > 0 {
		for _, err := range errs {
			logrus.Errorf("action creation error: %v", err)
		}
		return fmt.Errorf("failed to create %d actions: %w", len(errs), errs[0])
	}

	for _, action := range actions {
		if err := registry.Register(action); err != nil {
			return fmt.Errorf("failed to register action %s: %w", action.ID(), err)
		}
	}

	logrus.Infof("registered %d actions", len(actions))
	return nil
}
