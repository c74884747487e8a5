package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/radiusdt/campaign-studio/internal/models"
	"go.uber.org/zap"
)

type managed struct {
	ctrl     *Controller
	lastUsed time.Time
}

// Manager keeps one controller per client. Controllers are created only by
// Get; every other access goes through Lookup so unknown clients cost
// nothing.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*managed
	deps        Deps
	now         func() time.Time
}

// NewManager creates a manager whose controllers share deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		controllers: make(map[string]*managed),
		deps:        deps,
		now:         time.Now,
	}
}

// Get returns the controller of clientID, creating it on first use.
func (m *Manager) Get(clientID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.controllers[clientID]
	if !ok {
		e = &managed{ctrl: NewController(clientID, m.deps)}
		m.controllers[clientID] = e
		m.deps.Metrics.SetActiveWizards(len(m.controllers))
	}
	e.lastUsed = m.now()
	return e.ctrl
}

// Lookup returns the controller of clientID if one is open.
func (m *Manager) Lookup(clientID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.controllers[clientID]
	if !ok {
		return nil, false
	}
	e.lastUsed = m.now()
	return e.ctrl, true
}

// Draft returns the stored draft of clientID without opening a wizard.
func (m *Manager) Draft(ctx context.Context, clientID string) *models.CreationSession {
	if c, ok := m.Lookup(clientID); ok {
		return c.Draft(ctx)
	}
	if m.deps.Drafts == nil {
		return nil
	}
	return m.deps.Drafts.Load(ctx, clientID)
}

// Discard throws away the wizard and the draft of clientID.
func (m *Manager) Discard(ctx context.Context, clientID string) error {
	if c, ok := m.Lookup(clientID); ok {
		if err := c.Discard(ctx); err != nil {
			return err
		}
		m.Release(clientID)
		return nil
	}
	if m.deps.Drafts == nil {
		return nil
	}
	return m.deps.Drafts.Clear(ctx, clientID)
}

// Release forgets the controller of clientID. Its stored draft is kept.
func (m *Manager) Release(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.controllers[clientID]; ok {
		delete(m.controllers, clientID)
		m.deps.Metrics.SetActiveWizards(len(m.controllers))
	}
}

// EvictIdle drops controllers not used for maxIdle. A controller in the
// middle of an operation is kept. Drafts are not touched, so an evicted
// client can resume. It returns the number of evicted controllers.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	evicted := 0
	for id, e := range m.controllers {
		if e.lastUsed.After(cutoff) {
			continue
		}
		if !e.ctrl.mu.TryLock() {
			continue
		}
		e.ctrl.mu.Unlock()
		delete(m.controllers, id)
		evicted++
	}
	if evicted > 0 {
		m.deps.Metrics.SetActiveWizards(len(m.controllers))
		if m.deps.Logger != nil {
			m.deps.Logger.Info("evicted idle wizards",
				zap.Int("evicted", evicted),
				zap.Int("remaining", len(m.controllers)),
			)
		}
	}
	return evicted
}

// Len returns the number of live controllers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
