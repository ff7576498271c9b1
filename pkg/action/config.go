package action

import "time"

// ActionConfig is the base configuration for all hook actions.
// This is typically loaded from the hooks YAML file.
type ActionConfig struct {
	ID         string                 `yaml:"id" json:"id"`
	Name       string                 `yaml:"name" json:"name"`
	Type       string                 `yaml:"type" json:"type"` // e.g., "builtin.grant_item"
	Enabled    bool                   `yaml:"enabled" json:"enabled"`
	Retry      *RetryConfig           `yaml:"retry,omitempty" json:"retry,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`
}

// RetryConfig defines retry behavior for failed actions.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	Backoff     string        `yaml:"backoff" json:"backoff"` // "constant", "exponential"
}

// GetParameterInt retrieves an integer parameter with a default.
func (c *ActionConfig) GetParameterInt(key string, defaultValue int) int {
	if val, ok := c.Parameters[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetParameterFloat retrieves a float parameter with a default.
// Integer values are accepted since YAML decodes "1" as an int.
func (c *ActionConfig) GetParameterFloat(key string, defaultValue float64) float64 {
	if val, ok := c.Parameters[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return defaultValue
}

// GetParameterString retrieves a string parameter with a default.
func (c *ActionConfig) GetParameterString(key string, defaultValue string) string {
	if val, ok := c.Parameters[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// GetParameterBool retrieves a boolean parameter with a default.
func (c *ActionConfig) GetParameterBool(key string, defaultValue bool) bool {
	if val, ok := c.Parameters[key]; ok {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	return defaultValue
}
