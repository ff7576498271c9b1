package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/AccelByte/extend-challenge-ledger/pkg/action"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the event buffer used when NewManager gets a non-positive size.
const DefaultQueueSize = 256

type queuedEvent struct {
	ctx   context.Context
	event *ledger.Event
}

// Manager runs hooks for committed ledger events:
// Event → Hooks → Actions
//
// It implements ledger.EventSink. Before Start, or when the queue is full,
// events are handled inline on the publishing goroutine.
type Manager struct {
	executor *action.Executor
	pipeline *Pipeline
	queue    chan queuedEvent

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup

	eventsHandled    atomic.Int64
	actionsSucceeded atomic.Int64
	actionsFailed    atomic.Int64
}

// NewManager creates a new hook manager.
func NewManager(executor *action.Executor, pipeline *Pipeline, queueSize int) *Manager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if pipeline == nil {
		pipeline = NewPipeline("empty")
	}

	return &Manager{
		executor: executor,
		pipeline: pipeline,
		queue:    make(chan queuedEvent, queueSize),
	}
}

// Start launches workers that drain the event queue until Stop.
func (m *Manager) Start(workers int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	m.running = true

	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for item := range m.queue {
				_ = m.Handle(item.ctx, item.event)
			}
		}()
	}

	logrus.Infof("hook manager started with %d workers", workers)
}

// Stop stops accepting queued events and waits for the queue to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	logrus.Info("hook manager stopped")
}

// Publish implements ledger.EventSink.
func (m *Manager) Publish(ctx context.Context, event *ledger.Event) {
	if event == nil || len(m.pipeline.Hooks(event.Type)) == 0 {
		return
	}

	// Hooks outlive the request that committed the event.
	detached := context.WithoutCancel(ctx)

	m.mu.RLock()
	if m.running {
		select {
		case m.queue <- queuedEvent{ctx: detached, event: event}:
			m.mu.RUnlock()
			return
		default:
			logrus.Warnf("hook queue full, handling %s for player %s inline", event.Type, event.Player)
		}
	}
	m.mu.RUnlock()

	_ = m.Handle(detached, event)
}

// Handle runs every hook configured for the event type and returns the
// joined action errors. Failed hooks do not stop later hooks.
func (m *Manager) Handle(ctx context.Context, event *ledger.Event) error {
	hooks := m.pipeline.Hooks(event.Type)
	if len(hooks) == 0 {
		logrus.Debugf("no hooks configured for event %s", event.Type)
		return nil
	}
	m.eventsHandled.Add(1)

	logrus.Infof("running %d hooks for event %s (player: %s)", len(hooks), event.Type, event.Player)

	var errs []error
	for _, hook := range hooks {
		results, err := m.executor.ExecuteMultiple(ctx, hook.ActionIDs, event, hook.RollbackOnError)
		if err != nil {
			logrus.Errorf("hook for event %s encountered error: %v", event.Type, err)
			errs = append(errs, err)
		}

		successCount := 0
		failureCount := 0
		for _, result := range results {
			if result.Error != nil {
				failureCount++
				metrics.ObserveHookAction(string(event.Type), metrics.ResultError)
				logrus.Errorf("action %s failed for event %s: %v", result.ActionID, event.Type, result.Error)
			} else {
				successCount++
				metrics.ObserveHookAction(string(event.Type), metrics.ResultOK)
			}
		}
		m.actionsSucceeded.Add(int64(successCount))
		m.actionsFailed.Add(int64(failureCount))

		if failureCount > 0 && successCount > 0 {
			logrus.Warnf("partial hook failure for event %s: success=%d failed=%d", event.Type, successCount, failureCount)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("hooks for %s: %w", event.Type, errors.Join(errs...))
	}
	return nil
}

// Stats contains hook manager statistics (for observability).
type Stats struct {
	EventsHandled    int64 `json:"events_handled"`
	ActionsSucceeded int64 `json:"actions_succeeded"`
	ActionsFailed    int64 `json:"actions_failed"`
	Queued           int   `json:"queued"`
}

// GetStats returns current hook statistics.
func (m *Manager) GetStats() Stats {
	return Stats{
		EventsHandled:    m.eventsHandled.Load(),
		ActionsSucceeded: m.actionsSucceeded.Load(),
		ActionsFailed:    m.actionsFailed.Load(),
		Queued:           len(m.queue),
	}
}

var _ ledger.EventSink = (*Manager)(nil)
