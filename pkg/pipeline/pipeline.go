package pipeline

import (
	"sort"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
)

// Hook is an ordered list of actions run for one event type.
type Hook struct {
	ActionIDs       []string
	RollbackOnError bool
}

// Pipeline connects ledger event types to hooks.
type Pipeline struct {
	Name  string
	hooks map[ledger.EventType][]Hook
}

// NewPipeline creates a new pipeline with the given name.
func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		Name:  name,
		hooks: make(map[ledger.EventType][]Hook),
	}
}

// FromConfig builds a pipeline from the hooks section of the configuration.
// Disabled actions are left out of their hooks, and a hook left with no
// actions is dropped.
func FromConfig(name string, config *Config) *Pipeline {
	disabled := make(map[string]bool)
	for _, a := range config.Actions {
		if !a.Enabled {
			disabled[a.ID] = true
		}
	}

	p := NewPipeline(name)
	for _, h := range config.Hooks {
		ids := make([]string, 0, len(h.Actions))
		for _, id := range h.Actions {
			if !disabled[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		p.AddHook(ledger.EventType(h.Event), h.RollbackOnError, ids...)
	}
	return p
}

// AddHook appends a hook for an event type.
func (p *Pipeline) AddHook(event ledger.EventType, rollbackOnError bool, actionIDs ...string) *Pipeline {
	p.hooks[event] = append(p.hooks[event], Hook{
		ActionIDs:       actionIDs,
		RollbackOnError: rollbackOnError,
	})
	return p
}

// Hooks returns the hooks for an event type in configuration order.
func (p *Pipeline) Hooks(event ledger.EventType) []Hook {
	return p.hooks[event]
}

// Events returns the event types that have hooks, sorted.
func (p *Pipeline) Events() []ledger.EventType {
	events := make([]ledger.EventType, 0, len(p.hooks))
	for e := range p.hooks {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}
