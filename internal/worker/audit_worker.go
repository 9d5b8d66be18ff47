package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wladi27/biblioteca-virtual-backend/internal/service"
)

// AuditWorker writes the deferred per-wallet audit transactions of bulk
// recharges. Jobs arrive over a channel so the request path never blocks; a
// periodic reconciliation pass re-enqueues completed runs whose audit rows
// are incomplete (dropped jobs, process restarts), which makes failures
// observable and retryable instead of silently lost.
type AuditWorker struct {
	coord     *service.BulkCoordinator
	jobs      chan service.AuditJob
	delay     time.Duration
	reconcile time.Duration
	sched     gocron.Scheduler
}

// Config tunes the worker.
type Config struct {
	// QueueSize is the job channel capacity; a full queue drops the job and
	// relies on reconciliation.
	QueueSize int
	// Delay is the pause before a job is processed, keeping the audit pass
	// off the tail of the request that produced it.
	Delay time.Duration
	// ReconcileInterval is how often stalled runs are re-enqueued.
	ReconcileInterval time.Duration
}

func New(cfg Config) *AuditWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Minute
	}
	return &AuditWorker{
		jobs:      make(chan service.AuditJob, cfg.QueueSize),
		delay:     cfg.Delay,
		reconcile: cfg.ReconcileInterval,
	}
}

// Bind attaches the coordinator. The worker is constructed first because the
// coordinator takes it as its enqueuer; Bind must run before Start.
func (w *AuditWorker) Bind(coord *service.BulkCoordinator) {
	w.coord = coord
}

// Enqueue hands a job to the worker without blocking. A dropped job is
// recovered by the next reconciliation pass.
func (w *AuditWorker) Enqueue(job service.AuditJob) {
	select {
	case w.jobs <- job:
	default:
		log.Printf("[audit] queue full, dropping job for bulk %d (reconcile will retry)", job.BulkID)
	}
}

// Start launches the consumer goroutine and the reconciliation schedule.
func (w *AuditWorker) Start(ctx context.Context) {
	go w.run(ctx)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[audit] scheduler init failed: %v (reconciliation disabled)", err)
		return
	}
	w.sched = sched
	_, err = sched.NewJob(
		gocron.DurationJob(w.reconcile),
		gocron.NewTask(w.reconcileOnce),
	)
	if err != nil {
		log.Printf("[audit] reconcile job failed: %v", err)
	}
	sched.Start()
}

// Stop shuts the reconciliation schedule down.
func (w *AuditWorker) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}

func (w *AuditWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.delay):
			}
			if err := w.coord.WriteAuditRecords(job); err != nil {
				log.Printf("[audit] bulk %d: %v", job.BulkID, err)
			}
		}
	}
}

func (w *AuditWorker) reconcileOnce() {
	runs, err := w.coord.CompletedRuns(50)
	if err != nil {
		log.Printf("[audit] reconcile: list runs: %v", err)
		return
	}
	for i := range runs {
		b := &runs[i]
		missing, err := w.coord.AuditShortfall(b)
		if err != nil || missing == 0 {
			continue
		}
		job, err := w.coord.RebuildAuditJob(b)
		if err != nil {
			log.Printf("[audit] reconcile bulk %d: %v", b.ID, err)
			continue
		}
		if job != nil {
			log.Printf("[audit] reconcile bulk %d: re-enqueueing %d missing rows", b.ID, missing)
			w.Enqueue(*job)
		}
	}
}
