package housekeeper

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FailureNotifier is the ops side channel the dispatcher calls on the third
// consecutive backend failure for the same purge label. It never blocks or
// alters purge semantics.
type FailureNotifier interface {
	NotifyPurgeFailing(ctx context.Context, label string, consecutiveFailures int) error
}

// escalateAfter is the number of consecutive failures for the same label
// that triggers an ops notification.
const escalateAfter = 3

// Dispatcher maps a PurgeType into a concrete backend call, handling lock
// acquisition, lifecycle telemetry, and error containment.
type Dispatcher struct {
	Locks    LockService
	Metrics  MetricsCollector
	Notifier FailureNotifier // may be nil, disabling ops escalation
	Logger   *slog.Logger

	mu       sync.Mutex
	failures map[string]int
}

// NewDispatcher constructs a Dispatcher. Notifier may be nil.
func NewDispatcher(locks LockService, metrics MetricsCollector, notifier FailureNotifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Locks:    locks,
		Metrics:  metrics,
		Notifier: notifier,
		Logger:   logger,
		failures: make(map[string]int),
	}
}

// Purge runs one purge to completion.
func (d *Dispatcher) Purge(ctx context.Context, p PurgeType) {
	label, lockKey := lockKeyFor(p)

	if lockKey != nil {
		ok, err := d.Locks.TryLock(ctx, KVLockHousekeeper, *lockKey, DefaultLockTTL)
		if err != nil {
			d.Logger.Error("acquiring housekeeper lock", "label", label, "error", err)
			return
		}
		if !ok {
			d.Metrics.PurgeInProgress(label)
			return
		}
		defer func() {
			if err := d.Locks.RemoveLock(ctx, KVLockHousekeeper, *lockKey); err != nil {
				d.Logger.Error("releasing housekeeper lock", "label", label, "error", err)
			}
		}()
	}

	d.Metrics.PurgeStarted(label)
	start := time.Now()

	err := d.run(ctx, p)
	if err != nil {
		d.Logger.Error("purge failed", "label", label, "error", err)
		d.recordFailure(ctx, label)
	} else {
		d.resetFailures(label)
	}

	d.Metrics.PurgeFinished(label, time.Since(start))
}

func (d *Dispatcher) run(ctx context.Context, p PurgeType) error {
	switch v := p.(type) {
	case DataPurge:
		return v.Store.PurgeStore(ctx)
	case BlobsPurge:
		return v.Store.PurgeBlobs(ctx, v.BlobStore)
	case LookupPurge:
		if v.Prefix == nil {
			return v.Store.PurgeInMemoryStore(ctx)
		}
		return v.Store.KeyDeletePrefix(ctx, v.Prefix)
	case AccountPurge:
		if v.AccountID != nil {
			return v.Service.PurgeAccount(ctx, *v.AccountID)
		}
		return v.Service.PurgeAccounts(ctx)
	default:
		return nil
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, label string) {
	d.mu.Lock()
	d.failures[label]++
	n := d.failures[label]
	d.mu.Unlock()

	if n == escalateAfter && d.Notifier != nil {
		if err := d.Notifier.NotifyPurgeFailing(ctx, label, n); err != nil {
			d.Logger.Error("notifying ops of repeated purge failure", "label", label, "error", err)
		}
	}
}

func (d *Dispatcher) resetFailures(label string) {
	d.mu.Lock()
	delete(d.failures, label)
	d.mu.Unlock()
}
