package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"gopkg.in/yaml.v3"
)

// Config represents the complete hooks configuration.
type Config struct {
	Actions []ActionConfig `yaml:"actions"`
	Hooks   []HookConfig   `yaml:"hooks"`
}

// ActionConfig represents an action configuration entry.
type ActionConfig struct {
	ID         string                 `yaml:"id"`
	Name       string                 `yaml:"name,omitempty"`
	Type       string                 `yaml:"type"`
	Enabled    bool                   `yaml:"enabled"`
	Retry      *action.RetryConfig    `yaml:"retry,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}

// HookConfig binds a ledger event type to the actions run after it commits.
type HookConfig struct {
	Event           string   `yaml:"event"`
	Actions         []string `yaml:"actions"`
	RollbackOnError bool     `yaml:"rollback_on_error"`
}

// ToActionConfig converts the entry into the action package's configuration.
func (a ActionConfig) ToActionConfig() action.ActionConfig {
	return action.ActionConfig{
		ID:         a.ID,
		Name:       a.Name,
		Type:       a.Type,
		Enabled:    a.Enabled,
		Retry:      a.Retry,
		Parameters: a.Parameters,
	}
}

// ActionConfigs returns every action entry converted for the action factory.
func (c *Config) ActionConfigs() []action.ActionConfig {
	configs := make([]action.ActionConfig, 0, len(c.Actions))
	for _, a := range c.Actions {
		configs = append(configs, a.ToActionConfig())
	}
	return configs
}

// LoadConfig loads hooks configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	// Check for duplicate action IDs
	actionIDs := make(map[string]bool)
	for _, a := range c.Actions {
		if a.ID == "" {
			return fmt.Errorf("action with empty ID found")
		}
		if actionIDs[a.ID] {
			return fmt.Errorf("duplicate action ID: %s", a.ID)
		}
		actionIDs[a.ID] = true

		if a.Type == "" {
			return fmt.Errorf("action %s has empty type", a.ID)
		}
		if a.Retry != nil && a.Retry.MaxAttempts < 0 {
			return fmt.Errorf("action %s has negative retry max_attempts", a.ID)
		}
	}

	known := make(map[string]bool)
	for _, t := range ledger.EventTypes() {
		known[string(t)] = true
	}

	// Validate hook events and that all action references exist
	for i, h := range c.Hooks {
		if !known[h.Event] {
			return fmt.Errorf("hook %d has unknown event type: %q", i, h.Event)
		}
		if len(h.Actions) == 0 {
			return fmt.Errorf("hook for %s has no actions", h.Event)
		}
		for _, actionID := range h.Actions {
			if !actionIDs[actionID] {
				return fmt.Errorf("hook for %s references unknown action: %s", h.Event, actionID)
			}
		}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		// Support ${VAR:default} syntax
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
