package action

import (
	"context"
	"testing"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
)

// mockAction is a simple action implementation for testing
type mockAction struct {
	id     string
	name   string
	config ActionConfig
}

func (m *mockAction) ID() string   { return m.id }
func (m *mockAction) Name() string { return m.name }
func (m *mockAction) Execute(ctx context.Context, event *ledger.Event) error {
	return nil
}
func (m *mockAction) Rollback(ctx context.Context, event *ledger.Event) error {
	return ErrRollbackNotSupported
}
func (m *mockAction) Config() ActionConfig { return m.config }

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("Expected non-nil registry")
	}

	if registry.Count() != 0 {
		t.Errorf("Expected empty registry, got count %d", registry.Count())
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	action := &mockAction{
		id:     "test_action",
		name:   "Test Action",
		config: ActionConfig{ID: "test_action", Enabled: true},
	}

	err := registry.Register(action)
	if err != nil {
		t.Fatalf("Failed to register action: %v", err)
	}

	if registry.Count() != 1 {
		t.Errorf("Expected count 1, got %d", registry.Count())
	}

	// Try to register same action again
	err = registry.Register(action)
	if err == nil {
		t.Error("Expected error when registering duplicate action")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	action := &mockAction{
		id:     "test_action",
		name:   "Test Action",
		config: ActionConfig{ID: "test_action", Enabled: true},
	}

	registry.Register(action)

	retrieved := registry.Get("test_action")
	if retrieved == nil {
		t.Fatal("Expected to retrieve action")
	}

	if retrieved.ID() != "test_action" {
		t.Errorf("Expected action ID 'test_action', got '%s'", retrieved.ID())
	}

	if !registry.Has("test_action") {
		t.Error("Expected Has to report registered action")
	}

	if registry.Get("non_existent") != nil || registry.Has("non_existent") {
		t.Error("Expected nothing for non-existent action")
	}
}

func TestRegistry_IDs(t *testing.T) {
	registry := NewRegistry()

	registry.Register(&mockAction{id: "b", config: ActionConfig{ID: "b", Enabled: true}})
	registry.Register(&mockAction{id: "a", config: ActionConfig{ID: "a", Enabled: true}})
	registry.Register(&mockAction{id: "c", config: ActionConfig{ID: "c", Enabled: false}})

	ids := registry.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("Expected sorted ids [a b c], got %v", ids)
	}
}

func TestActionConfig_GetParameterHelpers(t *testing.T) {
	config := ActionConfig{
		Parameters: map[string]interface{}{
			"int_value":    42,
			"float_value":  3.14,
			"string_value": "test",
			"bool_value":   true,
		},
	}

	if val := config.GetParameterInt("int_value", 0); val != 42 {
		t.Errorf("Expected int 42, got %d", val)
	}
	if val := config.GetParameterInt("missing", 99); val != 99 {
		t.Errorf("Expected default 99, got %d", val)
	}

	if val := config.GetParameterFloat("float_value", 0.0); val != 3.14 {
		t.Errorf("Expected float 3.14, got %f", val)
	}
	// YAML decodes whole numbers as int
	if val := config.GetParameterFloat("int_value", 0.0); val != 42 {
		t.Errorf("Expected float 42 from int parameter, got %f", val)
	}

	if val := config.GetParameterString("string_value", ""); val != "test" {
		t.Errorf("Expected string 'test', got '%s'", val)
	}
	if val := config.GetParameterString("int_value", "fallback"); val != "fallback" {
		t.Errorf("Expected default for mistyped parameter, got '%s'", val)
	}

	if val := config.GetParameterBool("bool_value", false); val != true {
		t.Errorf("Expected bool true, got %v", val)
	}
}
