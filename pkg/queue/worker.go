// Package queue implements C9's auto-progression worker pool: a long-running
// loop that claims durable queue items, dispatches them to the appropriate
// tier, and on success enqueues the tier's successors per the case state
// machine (extract -> critique -> correlate -> synthesize).
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/brentyJ/recog/pkg/models"
	"github.com/brentyJ/recog/pkg/store"
)

// ErrNoItemAvailable is returned by pollAndProcess when nothing is currently
// visible to claim; callers treat it as a signal to back off, not an error.
var ErrNoItemAvailable = store.ErrNoItemAvailable

// Dispatcher processes one queue item of a given kind and returns the set of
// follow-up items (if any) the caller should enqueue on success. The
// implementation is pkg/pipeline's Dispatcher, which routes each item to the
// tier engines in pkg/extract, pkg/critique, pkg/synth and pkg/synthesis.
type Dispatcher interface {
	Dispatch(ctx context.Context, item *models.QueueItem) ([]*models.QueueItem, error)
}

// WorkerStatus mirrors a worker's current activity for health reporting.
type WorkerStatus string

// Worker statuses.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth is a point-in-time snapshot of one worker's activity.
type WorkerHealth struct {
	ID               string
	Status           WorkerStatus
	CurrentItemID    string
	ItemsProcessed   int
	LastActivity     time.Time
}

// Config tunes the pool's polling and retry behaviour.
type Config struct {
	WorkerCount        int
	LeaseMS            int64
	MaxAttempts        int
	BackoffBase        time.Duration
	PollInterval       time.Duration
	PollIntervalJitter time.Duration
}

// Pool manages a fixed set of workers sharing one Store and Dispatcher.
type Pool struct {
	store      store.Store
	dispatcher Dispatcher
	cfg        Config

	workers []*worker
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu             sync.RWMutex
	activeCases    map[string]context.CancelFunc
	started        bool
}

// NewPool builds a worker pool. Call Start to begin processing.
func NewPool(s store.Store, d Dispatcher, cfg Config) *Pool {
	return &Pool{
		store:       s,
		dispatcher:  d,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		activeCases: make(map[string]context.CancelFunc),
	}
}

// Start spawns cfg.WorkerCount goroutines and a background lease-reclaim
// loop. Safe to call once; subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("queue pool already started, ignoring duplicate Start")
		return
	}
	p.started = true

	slog.Info("starting queue worker pool", "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("worker-%d", i), p.store, p.dispatcher, p.cfg, p)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reclaimLoop(ctx)
	}()
}

// Stop signals every worker to finish its current item and exit, then
// waits for them.
func (p *Pool) Stop() {
	slog.Info("stopping queue worker pool")
	for _, w := range p.workers {
		w.stop()
	}
	p.once.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	slog.Info("queue worker pool stopped")
}

// RegisterCase records a cancel function so CancelCase can cancel the
// context of in-flight work for that case.
func (p *Pool) RegisterCase(caseID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeCases[caseID] = cancel
}

// UnregisterCase removes the cancel function once processing for that case
// item ends.
func (p *Pool) UnregisterCase(caseID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeCases, caseID)
}

// CancelCase cancels in-flight work for a case on this pool, if any is
// currently registered here, and reports whether it found any. It cancels
// the item's context, so LLM and Store calls made under that context are
// cancelled too, including an LLM call already in flight; there is no
// separate cancelled flag, and the dispatcher does not check one.
func (p *Pool) CancelCase(caseID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeCases[caseID]; ok {
		cancel()
		return true
	}
	return false
}

// Health reports per-worker status.
func (p *Pool) Health() []WorkerHealth {
	out := make([]WorkerHealth, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.health()
	}
	return out
}

func (p *Pool) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			n, err := p.store.ReclaimExpiredLeases(ctx)
			if err != nil {
				slog.Error("reclaiming expired leases", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("reclaimed expired queue leases", "count", n)
			}
		}
	}
}

type worker struct {
	id         string
	store      store.Store
	dispatcher Dispatcher
	cfg        Config
	pool       *Pool

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu             sync.RWMutex
	status         WorkerStatus
	currentItemID  string
	itemsProcessed int
	lastActivity   time.Time
}

func newWorker(id string, s store.Store, d Dispatcher, cfg Config, pool *Pool) *worker {
	return &worker{
		id:           id,
		store:        s,
		dispatcher:   d,
		cfg:          cfg,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

func (w *worker) start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         w.status,
		CurrentItemID:  w.currentItemID,
		ItemsProcessed: w.itemsProcessed,
		LastActivity:   w.lastActivity,
	}
}

func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("queue worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("queue worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, queue worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoItemAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing queue item", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollInterval returns the poll duration with jitter in
// [base-jitter, base+jitter], matching the teacher's worker-poll jitter.
func (w *worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *worker) pollAndProcess(ctx context.Context) error {
	item, err := w.store.ClaimNext(ctx, nil, w.cfg.LeaseMS)
	if err != nil {
		if errors.Is(err, store.ErrNoItemAvailable) {
			return ErrNoItemAvailable
		}
		return fmt.Errorf("claiming next queue item: %w", err)
	}

	w.mu.Lock()
	w.status = WorkerStatusWorking
	w.currentItemID = item.ID
	w.lastActivity = time.Now()
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.currentItemID = ""
		w.itemsProcessed++
		w.lastActivity = time.Now()
		w.mu.Unlock()
	}()

	itemCtx := ctx
	var cancel context.CancelFunc
	if item.CaseID != nil {
		itemCtx, cancel = context.WithCancel(ctx)
		w.pool.RegisterCase(*item.CaseID, cancel)
		defer func() {
			w.pool.UnregisterCase(*item.CaseID)
			cancel()
		}()
	}

	followups, dispatchErr := w.dispatcher.Dispatch(itemCtx, item)
	if dispatchErr != nil {
		if item.LeaseToken == nil {
			return fmt.Errorf("dispatch failed for item %s with no lease token: %w", item.ID, dispatchErr)
		}
		if failErr := w.store.FailItem(ctx, item.ID, *item.LeaseToken, w.cfg.MaxAttempts, w.cfg.BackoffBase); failErr != nil {
			return fmt.Errorf("failing item %s after dispatch error %v: %w", item.ID, dispatchErr, failErr)
		}
		return nil
	}

	for _, next := range followups {
		if err := w.store.Enqueue(ctx, next); err != nil {
			return fmt.Errorf("enqueueing follow-up item: %w", err)
		}
	}

	if item.LeaseToken == nil {
		return fmt.Errorf("item %s completed with no lease token", item.ID)
	}
	if err := w.store.CompleteItem(ctx, item.ID, *item.LeaseToken); err != nil {
		return fmt.Errorf("completing item %s: %w", item.ID, err)
	}
	return nil
}
