package housekeeper

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// readMemStatsBytes returns the process's current heap usage in bytes.
func readMemStatsBytes() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// calculateMetricsInterval is the fixed cadence CalculateMetrics reschedules
// itself at, independent of the OTEL push interval. The original source
// mistakenly re-armed this action under the OtelMetrics tag, piggybacking
// its cadence on OTEL; here it reschedules under its own tag instead.
const calculateMetricsInterval = 5 * time.Minute

// acmeRenewFallback is the fixed retry delay applied when an ACME
// initialization or renewal call fails.
const acmeRenewFallback = 3600 * time.Second

// StoreSchedule names a configured data-store purge: its stable index, the
// purge operation itself, and a function producing the next due instant.
type StoreSchedule struct {
	Index   uint32
	Purge   PurgeType
	NextRun func(now time.Time) time.Time
}

// AcmeProvider names a configured ACME provider by its ID; the renewal
// itself goes through the Scheduler's AcmeManager.
type AcmeProvider struct {
	ID string
}

// Snapshot is the atomically-swappable configuration the scheduler
// consults when seeding and reloading. Readers get a consistent
// point-in-time view without a lock.
type Snapshot struct {
	PurgeAccountsEnabled bool
	AccountPurgeNextRun  func(now time.Time) time.Time
	Stores               []StoreSchedule
	OtelEnabled          bool
	OtelInterval         time.Duration
	AcmeProviders        []AcmeProvider
}

// Scheduler is the single cooperative goroutine owning the delay queue. It
// consults the queue each tick, hands off due work to independent
// goroutines, and processes intake events.
type Scheduler struct {
	queue      *Queue
	intake     chan HousekeeperEvent
	dispatcher *Dispatcher
	accounts   AccountService
	acme       AcmeManager
	cluster    ClusterBroadcaster
	metrics    MetricsCollector
	logger     *slog.Logger
	pusher     OtelPusher

	acmeNotifier AcmeFailureNotifier

	snapshot atomic.Pointer[Snapshot]
}

// AcmeFailureNotifier is the ops side channel called when an ACME renewal
// attempt fails and the housekeeper falls back to its fixed retry
// cadence. It never blocks or alters scheduling semantics.
type AcmeFailureNotifier interface {
	NotifyAcmeRenewalFailed(ctx context.Context, providerID string, err error) error
}

// SetAcmeNotifier wires the ops-notification side channel used when an
// ACME renewal fails. Optional; a Scheduler built without it silently
// skips the notification.
func (s *Scheduler) SetAcmeNotifier(n AcmeFailureNotifier) {
	s.acmeNotifier = n
}

// NewScheduler constructs a Scheduler. intakeBufferSize bounds the intake
// channel; producers block (not drop) once it fills, since losing an Exit
// or Purge request silently would be worse than back-pressuring callers.
func NewScheduler(
	dispatcher *Dispatcher,
	accounts AccountService,
	acme AcmeManager,
	cluster ClusterBroadcaster,
	metrics MetricsCollector,
	logger *slog.Logger,
	intakeBufferSize int,
) *Scheduler {
	s := &Scheduler{
		queue:      NewQueue(),
		intake:     make(chan HousekeeperEvent, intakeBufferSize),
		dispatcher: dispatcher,
		accounts:   accounts,
		acme:       acme,
		cluster:    cluster,
		metrics:    metrics,
		logger:     logger,
	}
	s.snapshot.Store(&Snapshot{})
	return s
}

// Intake returns the channel callers use to push events to the scheduler.
func (s *Scheduler) Intake() chan<- HousekeeperEvent {
	return s.intake
}

// Seed loads the initial Snapshot and populates the queue from it: enabled
// roles, purge schedules, OTEL presence, and ACME providers, plus an
// unconditional CalculateMetrics at now so the first tick fires
// immediately.
func (s *Scheduler) Seed(ctx context.Context, snap *Snapshot) {
	s.snapshot.Store(snap)
	now := time.Now()

	if snap.PurgeAccountsEnabled {
		s.queue.Schedule(snap.AccountPurgeNextRun(now), Account())
		s.metrics.HousekeeperScheduled(ActionAccount)
	}
	for _, st := range snap.Stores {
		s.queue.Schedule(st.NextRun(now), Store(st.Index))
		s.metrics.HousekeeperScheduled(ActionStore)
	}
	if snap.OtelEnabled {
		s.queue.Schedule(now.Add(snap.OtelInterval), OtelMetrics())
		s.metrics.HousekeeperScheduled(ActionOtelMetrics)
	}
	for _, p := range snap.AcmeProviders {
		s.seedAcmeProvider(ctx, p.ID)
	}

	s.queue.Schedule(now, CalculateMetrics())
	s.metrics.HousekeeperScheduled(ActionCalculateMetrics)
}

func (s *Scheduler) seedAcmeProvider(ctx context.Context, providerID string) {
	go func() {
		d, err := s.acme.InitACME(ctx, providerID)
		if err != nil {
			s.logger.Error("initializing acme provider", "provider", providerID, "error", err)
			d = acmeRenewFallback
		}
		select {
		case s.intake <- AcmeRescheduleEvent{ProviderID: providerID, RenewAt: time.Now().Add(d)}:
		case <-ctx.Done():
		}
	}()
}

// Run executes the scheduler loop until ctx is cancelled or an ExitEvent
// arrives. It blocks on the lesser of the queue's next wake-up and the
// next intake event, never awaiting a backend call directly.
func (s *Scheduler) Run(ctx context.Context) {
	s.metrics.HousekeeperStarted()
	defer s.metrics.HousekeeperStopped()

	for {
		timer := time.NewTimer(s.queue.WakeUpTime())

		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case <-timer.C:
			s.fireDueActions(ctx)

		case ev, ok := <-s.intake:
			timer.Stop()
			if !ok {
				return
			}
			if !s.handleEvent(ctx, ev) {
				return
			}
		}
	}
}

// fireDueActions pops every action whose due instant has arrived, in
// due-instant order, and spawns independent goroutines to run each.
func (s *Scheduler) fireDueActions(ctx context.Context) {
	for {
		kind, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.metrics.HousekeeperRun(kind.Tag)
		s.fire(ctx, kind)
	}
}

func (s *Scheduler) fire(ctx context.Context, kind ActionKind) {
	snap := s.snapshot.Load()
	now := time.Now()

	switch kind.Tag {
	case ActionAccount:
		if snap.AccountPurgeNextRun != nil {
			s.queue.Schedule(snap.AccountPurgeNextRun(now), Account())
			s.metrics.HousekeeperScheduled(ActionAccount)
		}
		go s.dispatcher.Purge(ctx, AccountPurge{Service: s.accounts})

	case ActionStore:
		st, ok := findStore(snap.Stores, kind.StoreIndex)
		if !ok {
			return
		}
		s.queue.Schedule(st.NextRun(now), Store(st.Index))
		s.metrics.HousekeeperScheduled(ActionStore)
		go s.dispatcher.Purge(ctx, st.Purge)

	case ActionOtelMetrics:
		s.queue.Schedule(now.Add(snap.OtelInterval), OtelMetrics())
		s.metrics.HousekeeperScheduled(ActionOtelMetrics)
		go s.pushOtelMetrics(ctx)

	case ActionCalculateMetrics:
		s.queue.Schedule(now.Add(calculateMetricsInterval), CalculateMetrics())
		s.metrics.HousekeeperScheduled(ActionCalculateMetrics)
		go s.calculateMetrics(ctx)

	case ActionAcme:
		go s.renewAcme(ctx, kind.ProviderID)
	}
}

func findStore(stores []StoreSchedule, index uint32) (StoreSchedule, bool) {
	for _, st := range stores {
		if st.Index == index {
			return st, true
		}
	}
	return StoreSchedule{}, false
}

// pushOtelMetrics is the OTEL push tick's work body. The concrete exporter
// hop lives outside this package (internal/telemetry); it is wired after
// construction via SetOtelPusher, defaulting to a no-op when unset.
var noopOtelPush = func(context.Context) error { return nil }

func (s *Scheduler) pushOtelMetrics(ctx context.Context) {
	if err := s.otelPush(ctx); err != nil {
		s.logger.Error("pushing otel metrics", "error", err)
	}
}

// otelPush is overridable by SetOtelPusher; it defaults to a no-op so a
// Scheduler built without telemetry wiring still runs.
func (s *Scheduler) otelPush(ctx context.Context) error {
	if s.pusher == nil {
		return noopOtelPush(ctx)
	}
	return s.pusher(ctx)
}

// calculateMetrics recomputes the UserCount/DomainCount/ServerMemory
// gauges. The memory read runs synchronously here: Go's runtime.ReadMemStats
// does not block on I/O, so unlike the original's blocking-pool hop this
// needs no separate offload.
func (s *Scheduler) calculateMetrics(ctx context.Context) {
	if s.accounts == nil {
		return
	}
	if n, err := s.accounts.TotalAccounts(ctx); err == nil {
		s.metrics.UpdateGauge(UserCount, n)
	} else {
		s.logger.Error("computing user count", "error", err)
	}
	if n, err := s.accounts.TotalDomains(ctx); err == nil {
		s.metrics.UpdateGauge(DomainCount, n)
	} else {
		s.logger.Error("computing domain count", "error", err)
	}
	s.metrics.UpdateGauge(ServerMemory, readMemStatsBytes())
}

func (s *Scheduler) renewAcme(ctx context.Context, providerID string) {
	s.metrics.AcmeOrderStart(providerID)

	d, err := s.acme.Renew(ctx, providerID)
	if err != nil {
		s.logger.Error("renewing acme certificate", "provider", providerID, "error", err)
		if s.acmeNotifier != nil {
			if nerr := s.acmeNotifier.NotifyAcmeRenewalFailed(ctx, providerID, err); nerr != nil {
				s.logger.Error("notifying ops of acme renewal failure", "provider", providerID, "error", nerr)
			}
		}
		d = acmeRenewFallback
		select {
		case s.intake <- AcmeRescheduleEvent{ProviderID: providerID, RenewAt: time.Now().Add(d)}:
		case <-ctx.Done():
		}
		return
	}

	s.metrics.AcmeOrderCompleted(providerID)

	if s.cluster != nil {
		if err := s.cluster.BroadcastReloadSettings(ctx); err != nil {
			s.logger.Error("broadcasting reload after acme renewal", "provider", providerID, "error", err)
		}
	}

	select {
	case s.intake <- AcmeRescheduleEvent{ProviderID: providerID, RenewAt: time.Now().Add(d)}:
	case <-ctx.Done():
	}
}

// handleEvent processes one intake event. It returns false iff the
// scheduler should terminate.
func (s *Scheduler) handleEvent(ctx context.Context, ev HousekeeperEvent) bool {
	switch e := ev.(type) {
	case ReloadSettingsEvent:
		s.reload(ctx)

	case AcmeRescheduleEvent:
		s.queue.RemoveAction(Acme(e.ProviderID))
		s.queue.Schedule(e.RenewAt, Acme(e.ProviderID))
		s.metrics.HousekeeperScheduled(ActionAcme)

	case PurgeEvent:
		go s.dispatcher.Purge(ctx, e.Purge)

	case ExitEvent:
		return false
	}
	return true
}

// reload handles a ReloadSettingsEvent: if OTEL is now configured and no
// OtelMetrics action is queued, schedule one; re-initialize every ACME
// provider.
func (s *Scheduler) reload(ctx context.Context) {
	snap := s.snapshot.Load()
	if snap.OtelEnabled && !s.queue.HasAction(OtelMetrics()) {
		s.queue.Schedule(time.Now().Add(snap.OtelInterval), OtelMetrics())
		s.metrics.HousekeeperScheduled(ActionOtelMetrics)
	}
	for _, p := range snap.AcmeProviders {
		s.seedAcmeProvider(ctx, p.ID)
	}
}

// UpdateSnapshot atomically swaps the configuration snapshot the scheduler
// consults on its next reload or seed. Call followed by pushing a
// ReloadSettingsEvent to take effect.
func (s *Scheduler) UpdateSnapshot(snap *Snapshot) {
	s.snapshot.Store(snap)
}

// OtelPusher pushes the current metric values to an OTEL collector.
type OtelPusher func(ctx context.Context) error

// SetOtelPusher wires the OTEL push implementation used by the
// OtelMetrics action.
func (s *Scheduler) SetOtelPusher(p OtelPusher) {
	s.pusher = p
}
