package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
)

type fakeRemote struct {
	mu        sync.Mutex
	docs      map[string]*entities.ProgressDocument
	saves     int
	loads     int
	saveDelay time.Duration
	saveErr   error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]*entities.ProgressDocument)}
}

func (f *fakeRemote) Load(ctx context.Context, profileID string) (*entities.ProgressDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	doc, ok := f.docs[profileID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return doc, nil
}

func (f *fakeRemote) Save(ctx context.Context, profileID string, doc *entities.ProgressDocument, senderID string) error {
	if f.saveDelay > 0 {
		time.Sleep(f.saveDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.docs[profileID] = doc
	return nil
}

func (f *fakeRemote) Listen(ctx context.Context, onChange func(profileID, senderID string)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeRemote) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeRemote) put(profileID string, doc *entities.ProgressDocument) {
	f.mu.Lock()
	f.docs[profileID] = doc
	f.mu.Unlock()
}

type fakeLocal struct {
	mu   sync.Mutex
	docs map[string]*entities.ProgressDocument
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{docs: make(map[string]*entities.ProgressDocument)}
}

func (f *fakeLocal) LoadDocument(profileID string) (*entities.ProgressDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[profileID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return doc, nil
}

func (f *fakeLocal) SaveDocument(profileID string, doc *entities.ProgressDocument) error {
	f.mu.Lock()
	f.docs[profileID] = doc
	f.mu.Unlock()
	return nil
}

func newTestReconciler(remote Remote, local LocalCache, store *progress.Store, debounce time.Duration) *Reconciler {
	return newReconciler("p1", "sender-a", store, remote, local, zap.NewNop(), debounce)
}

func TestFlushPushesSnapshot(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	r := newTestReconciler(remote, newFakeLocal(), store, time.Hour)

	store.IncrementWrong(7)
	r.Flush()

	if remote.saveCount() != 1 {
		t.Fatalf("saves = %d, want 1", remote.saveCount())
	}
	if r.Status() != StatusConnected {
		t.Errorf("status = %s, want connected", r.Status())
	}

	doc := remote.docs["p1"]
	if doc.WrongCounts[7] != 1 {
		t.Errorf("remote doc = %+v", doc)
	}
}

func TestDebounceCoalescesWrites(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	r := newTestReconciler(remote, newFakeLocal(), store, 30*time.Millisecond)
	store.SetDirtyHook(r.MarkDirty)

	// Rapid mutations inside one window must produce a single write.
	store.IncrementWrong(1)
	store.IncrementWrong(2)
	store.IncrementWrong(3)

	time.Sleep(150 * time.Millisecond)

	if got := remote.saveCount(); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	// The single write carries the final state.
	doc := remote.docs["p1"]
	if len(doc.WrongCounts) != 3 {
		t.Errorf("snapshot = %+v, want all three counters", doc.WrongCounts)
	}
}

func TestRemoteChangeSelfEchoSkipped(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	r := newTestReconciler(remote, newFakeLocal(), store, time.Hour)

	r.handleRemoteChange(context.Background(), "sender-a")
	if remote.loadCount() != 0 {
		t.Errorf("loads = %d, self-echo must not hit the remote", remote.loadCount())
	}
}

func TestRemoteChangeStaleSkipped(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	r := newTestReconciler(remote, newFakeLocal(), store, time.Hour)

	store.IncrementWrong(1)
	r.Flush() // lastSynced = store timestamp

	// A document at or below the watermark is ignored.
	remote.put("p1", &entities.ProgressDocument{
		Timestamp:   store.Timestamp(),
		WrongCounts: map[int]int{9: 5},
	})
	r.handleRemoteChange(context.Background(), "sender-b")

	if store.WrongCount(9) != 0 {
		t.Error("stale document must not be applied")
	}
}

func TestRemoteChangeNewerApplied(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	local := newFakeLocal()
	r := newTestReconciler(remote, local, store, time.Hour)

	store.IncrementWrong(1)
	r.Flush()

	newer := &entities.ProgressDocument{
		Timestamp:   store.Timestamp() + 10,
		WrongCounts: map[int]int{9: 5},
	}
	remote.put("p1", newer)
	r.handleRemoteChange(context.Background(), "sender-b")

	if store.WrongCount(9) != 5 {
		t.Error("newer document must replace local state")
	}
	if store.Timestamp() != newer.Timestamp {
		t.Errorf("timestamp = %d, want %d", store.Timestamp(), newer.Timestamp)
	}

	// Applying a remote update must also refresh the local cache.
	cached, err := local.LoadDocument("p1")
	if err != nil || cached.Timestamp != newer.Timestamp {
		t.Error("local cache not updated from remote change")
	}

	// And must not echo back out: no further saves were scheduled.
	time.Sleep(50 * time.Millisecond)
	if got := remote.saveCount(); got != 1 {
		t.Errorf("saves = %d, applying inbound must not trigger outbound", got)
	}
}

func TestRemoteChangeSkippedDuringWrite(t *testing.T) {
	remote := newFakeRemote()
	remote.saveDelay = 80 * time.Millisecond
	store := progress.NewStore()
	r := newTestReconciler(remote, newFakeLocal(), store, time.Hour)

	store.IncrementWrong(1)

	done := make(chan struct{})
	go func() {
		r.Flush()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond) // let the write start
	r.handleRemoteChange(context.Background(), "sender-b")
	<-done

	if remote.loadCount() != 0 {
		t.Error("notification during an in-flight write must be skipped")
	}
}

func TestBootstrapRemoteMissingPushesLocal(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	local := newFakeLocal()

	// Local cache has prior state, remote has nothing.
	local.SaveDocument("p1", &entities.ProgressDocument{
		Timestamp:   100,
		WrongCounts: map[int]int{4: 2},
	})

	r := newTestReconciler(remote, local, store, time.Hour)
	r.bootstrap(context.Background())

	if store.WrongCount(4) != 2 {
		t.Error("local cache must seed the store")
	}
	if remote.saveCount() != 1 {
		t.Errorf("saves = %d, missing remote profile must get the first write", remote.saveCount())
	}
	if r.Status() != StatusConnected {
		t.Errorf("status = %s, want connected", r.Status())
	}
}

func TestBootstrapNewerRemoteWins(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	local := newFakeLocal()

	local.SaveDocument("p1", &entities.ProgressDocument{
		Timestamp:   100,
		WrongCounts: map[int]int{4: 2},
	})
	remote.put("p1", &entities.ProgressDocument{
		Timestamp:   200,
		WrongCounts: map[int]int{4: 9},
	})

	r := newTestReconciler(remote, local, store, time.Hour)
	r.bootstrap(context.Background())

	if store.WrongCount(4) != 9 {
		t.Error("newer remote document must replace cached state")
	}
	if store.Timestamp() != 200 {
		t.Errorf("timestamp = %d, want 200", store.Timestamp())
	}
}

func TestBootstrapOlderRemoteIgnored(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	local := newFakeLocal()

	local.SaveDocument("p1", &entities.ProgressDocument{
		Timestamp:   300,
		WrongCounts: map[int]int{4: 2},
	})
	remote.put("p1", &entities.ProgressDocument{
		Timestamp:   200,
		WrongCounts: map[int]int{4: 9},
	})

	r := newTestReconciler(remote, local, store, time.Hour)
	r.bootstrap(context.Background())

	if store.WrongCount(4) != 2 {
		t.Error("older remote document must not replace cached state")
	}
}

func TestOfflineMode(t *testing.T) {
	store := progress.NewStore()
	local := newFakeLocal()
	r := newTestReconciler(nil, local, store, time.Hour)

	if r.Status() != StatusOffline {
		t.Fatalf("status = %s, want offline", r.Status())
	}

	store.IncrementWrong(1)
	r.Flush()

	// Offline flush still persists to the local cache.
	doc, err := local.LoadDocument("p1")
	if err != nil || doc.WrongCounts[1] != 1 {
		t.Error("offline flush must write the local cache")
	}
	if r.Status() != StatusOffline {
		t.Errorf("status = %s, offline mode never transitions", r.Status())
	}
}

func TestManagerAttachWiresDirtyHook(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	m := NewManager(remote, newFakeLocal(), zap.NewNop(),
		WithDebounce(20*time.Millisecond),
		WithSenderID("sender-a"),
	)

	m.Attach(context.Background(), "p1", store)

	store.IncrementWrong(1)
	time.Sleep(100 * time.Millisecond)

	// One save from bootstrap (fresh profile) plus one from the hook.
	if got := remote.saveCount(); got != 2 {
		t.Errorf("saves = %d, want 2", got)
	}
}

func TestManagerSwitchReplacesProfile(t *testing.T) {
	remote := newFakeRemote()
	store := progress.NewStore()
	m := NewManager(remote, newFakeLocal(), zap.NewNop(),
		WithDebounce(time.Hour),
		WithSenderID("sender-a"),
	)

	m.Attach(context.Background(), "p1", store)
	store.IncrementWrong(1)

	// The new profile already exists remotely with other progress.
	remote.put("p2", &entities.ProgressDocument{
		Timestamp:   store.Timestamp() + 100,
		WrongCounts: map[int]int{8: 3},
	})

	m.Switch(context.Background(), "p1", "p2", store)

	if _, ok := m.Reconciler("p1"); ok {
		t.Error("old profile must be detached")
	}
	if _, ok := m.Reconciler("p2"); !ok {
		t.Error("new profile must be attached")
	}
	if store.WrongCount(8) != 3 {
		t.Error("remote snapshot of the new profile must replace local state")
	}
	if store.WrongCount(1) != 0 {
		t.Error("old profile's counters must be gone after the switch")
	}
}
