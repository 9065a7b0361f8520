// If you are AI: This file implements the relay manager.
// Manages lifecycle of all relay tasks (start, stop).

package relay

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
)

// Manager manages relay tasks lifecycle.
type Manager struct {
	tasks  []*PushTask
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewManager creates a task per relay entry. Entries are validated by config.
func NewManager(registry *bus.Registry, relays []config.RelayConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{}
	for _, cfg := range relays {
		task, err := NewPushTask(registry, cfg, logger)
		if err != nil {
			return nil, err
		}
		m.tasks = append(m.tasks, task)
	}
	return m, nil
}

// Start runs every task until Stop or ctx cancellation.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	for _, task := range m.tasks {
		m.wg.Add(1)
		go func(t *PushTask) {
			defer m.wg.Done()
			t.Run(ctx)
		}(task)
	}
}

// Stop cancels all tasks and waits for them to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// TaskCount returns the number of configured relay tasks.
func (m *Manager) TaskCount() int {
	return len(m.tasks)
}

// Tasks returns a snapshot of every task.
func (m *Manager) Tasks() []TaskInfo {
	infos := make([]TaskInfo, 0, len(m.tasks))
	for _, t := range m.tasks {
		infos = append(infos, t.Info())
	}
	return infos
}
