package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// JobType names the run in job_history and job_locks.
	JobType = "outreach_sequencer"

	SkippedReasonLocked = "locked"
)

// JobLocker is a cross-process lock with expiry.
type JobLocker interface {
	Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, lockID string, workerID string) error
}

// JobHistory records runs for operators.
type JobHistory interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, jobErr error) error
}

// RunObserver receives every completed summary (metrics, run reports).
// Errors are logged and never change the run result.
type RunObserver interface {
	ObserveRun(ctx context.Context, summary *RunSummary) error
}

// RunnerConfig wires a Runner. Locks and History are optional.
type RunnerConfig struct {
	Engine    *Engine
	Locks     JobLocker
	History   JobHistory
	Observers []RunObserver
	LockTTL   time.Duration
	// WorkerID identifies this process in job_locks; generated when empty.
	WorkerID string
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Runner guards Engine.Run against overlapping invocations. Concurrent calls
// in one process share a single run; across processes a job_locks row makes
// a second run return early with SkippedReason "locked". Without it,
// overlapping runs read the same daily counter and pair set and double-send.
type Runner struct {
	engine    *Engine
	locks     JobLocker
	history   JobHistory
	observers []RunObserver
	ttl       time.Duration
	workerID  string
	clock     func() time.Time
	logger    *slog.Logger
	group     singleflight.Group
}

func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = uuid.NewString()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Runner{
		engine:    cfg.Engine,
		locks:     cfg.Locks,
		history:   cfg.History,
		observers: cfg.Observers,
		ttl:       ttl,
		workerID:  workerID,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one guarded production run.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	v, err, shared := r.group.Do(JobType, func() (any, error) {
		return r.run(ctx)
	})
	if shared {
		r.logger.InfoContext(ctx, "joined in-flight outreach run")
	}
	if err != nil {
		return nil, err
	}
	return v.(*RunSummary), nil
}

func (r *Runner) run(ctx context.Context) (*RunSummary, error) {
	now := r.clock().UTC()

	if r.locks != nil {
		acquired, err := r.locks.Acquire(ctx, JobType, r.workerID, r.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquiring run lock: %w", err)
		}
		if !acquired {
			r.logger.WarnContext(ctx, "outreach run skipped, lock held elsewhere", "worker_id", r.workerID)
			r.recordSkipped(ctx)
			return &RunSummary{
				Success:       false,
				SkippedReason: SkippedReasonLocked,
				DailyLimit:    r.engine.cfg.DailyLimit,
				StartedAt:     now,
			}, nil
		}
		defer func() {
			// Release even if ctx was cancelled mid-run.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := r.locks.Release(relCtx, JobType, r.workerID); err != nil {
				r.logger.ErrorContext(ctx, "failed to release run lock", "error", err)
			}
		}()
	}

	historyID := r.startHistory(ctx)

	summary, runErr := r.engine.Run(ctx, now)

	r.finishHistory(ctx, historyID, summary, runErr)
	if runErr != nil {
		return nil, runErr
	}

	for _, o := range r.observers {
		if err := o.ObserveRun(ctx, summary); err != nil {
			r.logger.WarnContext(ctx, "run observer failed", "observer", fmt.Sprintf("%T", o), "error", err)
		}
	}
	return summary, nil
}

func (r *Runner) startHistory(ctx context.Context) int64 {
	if r.history == nil {
		return 0
	}
	id, err := r.history.Start(ctx, JobType)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record job start", "error", err)
		return 0
	}
	return id
}

func (r *Runner) finishHistory(ctx context.Context, id int64, summary *RunSummary, runErr error) {
	if r.history == nil || id == 0 {
		return
	}
	status, items := "success", 0
	if runErr != nil {
		status = "failed"
	} else {
		items = summary.TotalSent
	}
	if err := r.history.Finish(ctx, id, status, items, runErr); err != nil {
		r.logger.WarnContext(ctx, "failed to record job finish", "error", err)
	}
}

func (r *Runner) recordSkipped(ctx context.Context) {
	if id := r.startHistory(ctx); id != 0 {
		if err := r.history.Finish(ctx, id, "skipped", 0, nil); err != nil {
			r.logger.WarnContext(ctx, "failed to record job finish", "error", err)
		}
	}
}

// SendTest passes through to the engine using the runner's clock.
func (r *Runner) SendTest(ctx context.Context, req TestRequest) (DispatchResult, error) {
	return r.engine.SendTest(ctx, req, r.clock())
}
