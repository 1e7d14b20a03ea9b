package housekeeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeLockService struct {
	mu      sync.Mutex
	granted map[string]bool
	deny    bool
}

func newFakeLockService() *fakeLockService {
	return &fakeLockService{granted: make(map[string]bool)}
}

func (f *fakeLockService) TryLock(_ context.Context, _, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny || f.granted[key] {
		return false, nil
	}
	f.granted[key] = true
	return true, nil
}

func (f *fakeLockService) RemoveLock(_ context.Context, _, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.granted, key)
	return nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	started     []string
	finished    []string
	inProgress  []string
	gauges      map[GaugeMetric]uint64
	runs        []ActionTag
	scheduled   []ActionTag
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{gauges: make(map[GaugeMetric]uint64)}
}

func (f *fakeMetrics) HousekeeperStarted()                 {}
func (f *fakeMetrics) HousekeeperStopped()                 {}
func (f *fakeMetrics) HousekeeperRun(k ActionTag)           { f.mu.Lock(); f.runs = append(f.runs, k); f.mu.Unlock() }
func (f *fakeMetrics) HousekeeperScheduled(k ActionTag)     { f.mu.Lock(); f.scheduled = append(f.scheduled, k); f.mu.Unlock() }
func (f *fakeMetrics) PurgeStarted(label string)            { f.mu.Lock(); f.started = append(f.started, label); f.mu.Unlock() }
func (f *fakeMetrics) PurgeFinished(label string, _ time.Duration) {
	f.mu.Lock()
	f.finished = append(f.finished, label)
	f.mu.Unlock()
}
func (f *fakeMetrics) PurgeInProgress(label string) {
	f.mu.Lock()
	f.inProgress = append(f.inProgress, label)
	f.mu.Unlock()
}
func (f *fakeMetrics) AcmeOrderStart(string)     {}
func (f *fakeMetrics) AcmeOrderCompleted(string) {}
func (f *fakeMetrics) UpdateGauge(m GaugeMetric, v uint64) {
	f.mu.Lock()
	f.gauges[m] = v
	f.mu.Unlock()
}

type fakeDataStore struct {
	err error
}

func (f *fakeDataStore) PurgeStore(context.Context) error          { return f.err }
func (f *fakeDataStore) PurgeBlobs(context.Context, BlobStore) error { return f.err }

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) NotifyPurgeFailing(_ context.Context, label string, n int) error {
	f.mu.Lock()
	f.calls = append(f.calls, label)
	f.mu.Unlock()
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherSkipsOnContention(t *testing.T) {
	locks := newFakeLockService()
	locks.deny = true
	metrics := newFakeMetrics()
	d := NewDispatcher(locks, metrics, nil, silentLogger())

	d.Purge(context.Background(), DataPurge{Store: &fakeDataStore{}, StoreName: "mail", StoreIndex: 1})

	if len(metrics.inProgress) != 1 {
		t.Fatalf("expected one InProgress observation, got %d", len(metrics.inProgress))
	}
	if len(metrics.started) != 0 {
		t.Error("expected no Started event when contended")
	}
}

func TestDispatcherEmitsStartedAndFinished(t *testing.T) {
	locks := newFakeLockService()
	metrics := newFakeMetrics()
	d := NewDispatcher(locks, metrics, nil, silentLogger())

	d.Purge(context.Background(), DataPurge{Store: &fakeDataStore{}, StoreName: "mail", StoreIndex: 1})

	if len(metrics.started) != 1 || len(metrics.finished) != 1 {
		t.Fatalf("expected one Started and one Finished event, got %d/%d", len(metrics.started), len(metrics.finished))
	}
}

func TestDispatcherReleasesLockAfterRun(t *testing.T) {
	locks := newFakeLockService()
	metrics := newFakeMetrics()
	d := NewDispatcher(locks, metrics, nil, silentLogger())

	p := DataPurge{Store: &fakeDataStore{}, StoreName: "mail", StoreIndex: 1}
	d.Purge(context.Background(), p)
	d.Purge(context.Background(), p)

	if len(metrics.inProgress) != 0 {
		t.Error("expected the lock to be released, allowing a second run to proceed")
	}
}

func TestDispatcherEscalatesOnThirdConsecutiveFailure(t *testing.T) {
	locks := newFakeLockService()
	metrics := newFakeMetrics()
	notifier := &fakeNotifier{}
	d := NewDispatcher(locks, metrics, notifier, silentLogger())

	p := DataPurge{Store: &fakeDataStore{err: errors.New("boom")}, StoreName: "mail", StoreIndex: 1}
	for i := 0; i < 3; i++ {
		d.Purge(context.Background(), p)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("expected exactly one escalation on the third consecutive failure, got %d", len(notifier.calls))
	}
}

func TestDispatcherResetsFailureCountOnSuccess(t *testing.T) {
	locks := newFakeLockService()
	metrics := newFakeMetrics()
	notifier := &fakeNotifier{}
	d := NewDispatcher(locks, metrics, notifier, silentLogger())

	failing := DataPurge{Store: &fakeDataStore{err: errors.New("boom")}, StoreName: "mail", StoreIndex: 1}
	ok := DataPurge{Store: &fakeDataStore{}, StoreName: "mail", StoreIndex: 1}

	d.Purge(context.Background(), failing)
	d.Purge(context.Background(), failing)
	d.Purge(context.Background(), ok)
	d.Purge(context.Background(), failing)
	d.Purge(context.Background(), failing)

	if len(notifier.calls) != 0 {
		t.Errorf("expected the success to reset the failure streak, got %d escalations", len(notifier.calls))
	}
}

func TestDispatcherSkipsLockForPrefixLookupAndAccount(t *testing.T) {
	locks := newFakeLockService()
	locks.deny = true
	metrics := newFakeMetrics()
	d := NewDispatcher(locks, metrics, nil, silentLogger())

	id := uint32(1)
	d.Purge(context.Background(), AccountPurge{Service: &fakeAccountService{}, AccountID: &id})

	if len(metrics.inProgress) != 0 {
		t.Error("expected account purges to skip the lock entirely")
	}
	if len(metrics.started) != 1 {
		t.Error("expected the unlocked purge to still run")
	}
}

type fakeAccountService struct {
	err error
}

func (f *fakeAccountService) PurgeAccount(context.Context, uint32) error { return f.err }
func (f *fakeAccountService) PurgeAccounts(context.Context) error        { return f.err }
func (f *fakeAccountService) TotalAccounts(context.Context) (uint64, error) { return 0, f.err }
func (f *fakeAccountService) TotalDomains(context.Context) (uint64, error)  { return 0, f.err }
