package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
)

// DefaultDebounce is the coalescing window for outbound writes:
// multiple rapid local mutations produce a single remote write of the
// full current snapshot.
const DefaultDebounce = 500 * time.Millisecond

// flushTimeout bounds a single remote write.
const flushTimeout = 15 * time.Second

// Status is the observable connectivity state. It is a display-only
// side channel: local operations never depend on it.
type Status string

const (
	StatusLoading   Status = "loading"
	StatusSyncing   Status = "syncing"
	StatusConnected Status = "connected"
	StatusOffline   Status = "offline"
	StatusError     Status = "error"
)

// LocalCache persists a profile's document on the local machine so the
// store survives restarts without any remote.
type LocalCache interface {
	LoadDocument(profileID string) (*entities.ProgressDocument, error)
	SaveDocument(profileID string, doc *entities.ProgressDocument) error
}

// Reconciler synchronises one profile's progress store with the remote
// copy. It is registered as the store's dirty hook and owns the
// debounce timer, the last-synced watermark and the in-flight guard.
type Reconciler struct {
	profileID string
	senderID  string
	store     *progress.Store
	remote    Remote // nil in offline mode
	local     LocalCache
	logger    *zap.Logger
	debounce  time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	lastSynced int64 // timestamp of the last applied or sent document

	writeInFlight atomic.Bool

	statusMu sync.Mutex
	status   Status
	onStatus func(Status)
}

func newReconciler(profileID, senderID string, store *progress.Store, remote Remote, local LocalCache, logger *zap.Logger, debounce time.Duration) *Reconciler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	status := StatusLoading
	if remote == nil {
		status = StatusOffline
	}
	return &Reconciler{
		profileID: profileID,
		senderID:  senderID,
		store:     store,
		remote:    remote,
		local:     local,
		logger:    logger.With(zap.String("profile_id", profileID)),
		debounce:  debounce,
		status:    status,
	}
}

// ProfileID returns the profile this reconciler serves.
func (r *Reconciler) ProfileID() string {
	return r.profileID
}

// Status returns the current connectivity status.
func (r *Reconciler) Status() Status {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.status
}

// OnStatus registers a status-change observer.
func (r *Reconciler) OnStatus(fn func(Status)) {
	r.statusMu.Lock()
	r.onStatus = fn
	r.statusMu.Unlock()
}

func (r *Reconciler) setStatus(status Status) {
	r.statusMu.Lock()
	changed := r.status != status
	r.status = status
	fn := r.onStatus
	r.statusMu.Unlock()
	if changed && fn != nil {
		fn(status)
	}
}

// MarkDirty schedules a debounced flush. Each call cancels and
// reschedules the timer, so only the most recent snapshot within the
// coalescing window is ever sent.
func (r *Reconciler) MarkDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.flush)
}

// Flush forces an immediate write, bypassing the debounce. Used on
// shutdown.
func (r *Reconciler) Flush() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.flush()
}

// flush pushes the full current snapshot to the local cache and, when
// connected, to the remote. Sync failures are reported through the
// status channel and never affect local operation.
func (r *Reconciler) flush() {
	doc := r.store.Document()

	if r.local != nil {
		if err := r.local.SaveDocument(r.profileID, doc); err != nil {
			r.logger.Warn("local cache write failed", zap.Error(err))
		}
	}

	if r.remote == nil {
		return
	}

	r.writeInFlight.Store(true)
	defer r.writeInFlight.Store(false)

	r.setStatus(StatusSyncing)

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.remote.Save(ctx, r.profileID, doc, r.senderID); err != nil {
		r.logger.Warn("remote write failed", zap.Error(err))
		r.setStatus(StatusError)
		return
	}

	r.mu.Lock()
	if doc.Timestamp > r.lastSynced {
		r.lastSynced = doc.Timestamp
	}
	r.mu.Unlock()

	r.setStatus(StatusConnected)
}

// handleRemoteChange processes one inbound notification. Self-echoes,
// notifications arriving while a write is in flight and stale documents
// are all silently skipped: they are expected steady-state occurrences,
// not errors.
func (r *Reconciler) handleRemoteChange(ctx context.Context, senderID string) {
	if senderID == r.senderID {
		return
	}
	if r.writeInFlight.Load() {
		return
	}

	doc, err := r.remote.Load(ctx, r.profileID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return
		}
		r.logger.Warn("remote read failed", zap.Error(err))
		r.setStatus(StatusError)
		return
	}

	r.mu.Lock()
	stale := doc.Timestamp <= r.lastSynced
	if !stale {
		r.lastSynced = doc.Timestamp
	}
	r.mu.Unlock()

	if stale {
		return
	}

	r.store.ApplyDocument(doc)
	if r.local != nil {
		if err := r.local.SaveDocument(r.profileID, doc); err != nil {
			r.logger.Warn("local cache write failed", zap.Error(err))
		}
	}

	r.logger.Info("applied remote update", zap.Int64("timestamp", doc.Timestamp))
	r.setStatus(StatusConnected)
}

// bootstrap performs the initial reconciliation for a freshly attached
// profile: load the local cache into the store, then pull the remote
// copy. A newer remote document fully replaces local state; a missing
// remote document means this client owns the first write.
func (r *Reconciler) bootstrap(ctx context.Context) {
	if r.local != nil {
		if doc, err := r.local.LoadDocument(r.profileID); err == nil && doc != nil {
			r.store.ApplyDocument(doc)
			r.mu.Lock()
			r.lastSynced = doc.Timestamp
			r.mu.Unlock()
		}
	}

	if r.remote == nil {
		r.setStatus(StatusOffline)
		return
	}

	r.setStatus(StatusLoading)

	doc, err := r.remote.Load(ctx, r.profileID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		// Fresh profile: push whatever we have locally.
		r.Flush()
	case err != nil:
		r.logger.Warn("initial pull failed", zap.Error(err))
		r.setStatus(StatusOffline)
	default:
		r.mu.Lock()
		newer := doc.Timestamp > r.lastSynced
		if newer {
			r.lastSynced = doc.Timestamp
		}
		r.mu.Unlock()
		if newer {
			r.store.ApplyDocument(doc)
			if r.local != nil {
				_ = r.local.SaveDocument(r.profileID, doc)
			}
		}
		r.setStatus(StatusConnected)
	}
}
