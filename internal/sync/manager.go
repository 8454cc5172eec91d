package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/progress"
)

// listenRetryDelay is the pause before re-establishing a dropped
// notification subscription.
const listenRetryDelay = 5 * time.Second

// Manager owns one reconciler per attached profile and multiplexes the
// single notification subscription across them. A nil remote puts every
// profile in permanent offline (local-only) mode.
type Manager struct {
	remote   Remote
	local    LocalCache
	logger   *zap.Logger
	debounce time.Duration
	senderID string // identifies this process in notification payloads

	mu   sync.RWMutex
	recs map[string]*Reconciler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDebounce overrides the outbound coalescing window.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

// WithSenderID overrides the generated sender id, used in tests.
func WithSenderID(id string) ManagerOption {
	return func(m *Manager) { m.senderID = id }
}

// NewManager creates a sync manager. Both remote and local may be nil;
// sync then degrades gracefully to whatever is available.
func NewManager(remote Remote, local LocalCache, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		remote:   remote,
		local:    local,
		logger:   logger,
		debounce: DefaultDebounce,
		senderID: uuid.NewString(),
		recs:     make(map[string]*Reconciler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run maintains the notification subscription until the context is
// cancelled, re-subscribing after connection drops. It returns
// immediately in offline mode.
func (m *Manager) Run(ctx context.Context) {
	if m.remote == nil {
		return
	}

	for {
		err := m.remote.Listen(ctx, func(profileID, senderID string) {
			m.dispatch(ctx, profileID, senderID)
		})
		if ctx.Err() != nil {
			return
		}

		m.logger.Warn("sync subscription dropped", zap.Error(err))
		m.eachReconciler(func(r *Reconciler) { r.setStatus(StatusOffline) })

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, profileID, senderID string) {
	m.mu.RLock()
	rec := m.recs[profileID]
	m.mu.RUnlock()
	if rec == nil {
		// Not our profile; other clients share the channel.
		return
	}
	rec.handleRemoteChange(ctx, senderID)
}

func (m *Manager) eachReconciler(fn func(*Reconciler)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.recs {
		fn(rec)
	}
}

// Attach subscribes a profile: it bootstraps the store from the local
// cache and the remote copy, registers the reconciler for inbound
// notifications and wires it as the store's dirty hook.
func (m *Manager) Attach(ctx context.Context, profileID string, store *progress.Store) *Reconciler {
	rec := newReconciler(profileID, m.senderID, store, m.remote, m.local, m.logger, m.debounce)
	rec.bootstrap(ctx)

	m.mu.Lock()
	m.recs[profileID] = rec
	m.mu.Unlock()

	store.SetDirtyHook(rec.MarkDirty)
	return rec
}

// Detach unsubscribes a profile from inbound notifications and flushes
// any pending write.
func (m *Manager) Detach(profileID string) {
	m.mu.Lock()
	rec := m.recs[profileID]
	delete(m.recs, profileID)
	m.mu.Unlock()

	if rec != nil {
		rec.Flush()
	}
}

// Switch moves a store from one profile id to another: the old profile
// is unsubscribed, and the new profile's remote snapshot fully replaces
// local state when it exists; otherwise the current local state is
// pushed as the new profile's first write.
func (m *Manager) Switch(ctx context.Context, oldProfileID, newProfileID string, store *progress.Store) *Reconciler {
	if oldProfileID == newProfileID {
		m.mu.RLock()
		rec := m.recs[oldProfileID]
		m.mu.RUnlock()
		if rec != nil {
			return rec
		}
	} else {
		m.Detach(oldProfileID)
	}
	return m.Attach(ctx, newProfileID, store)
}

// Reconciler returns the reconciler attached to a profile, if any.
func (m *Manager) Reconciler(profileID string) (*Reconciler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[profileID]
	return rec, ok
}
