package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"docbatch/internal/batching"
	"docbatch/internal/blobstore"
	"docbatch/internal/config"
	"docbatch/internal/flatten"
	"docbatch/internal/lease"
	"docbatch/internal/ledger"
	"docbatch/internal/logging"
	"docbatch/internal/manifest"
	"docbatch/internal/services"
	"docbatch/internal/skip"
)

// Ledger records run and item outcomes. *ledger.Store satisfies it.
type Ledger interface {
	StartRun(ctx context.Context, spec ledger.RunSpec) (*ledger.Run, error)
	Enumerate(ctx context.Context, runID string, items map[string]string) error
	Record(ctx context.Context, runID, itemID, source string, status ledger.Status, reason string) error
	FinishRun(ctx context.Context, runID string, stopped bool) error
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the collaborators a Driver works through.
type Dependencies struct {
	Store     blobstore.Store
	Lease     lease.Service
	Inference batching.Inferencer
	Ledger    Ledger
	Logger    *slog.Logger
	// Clock overrides the lease clock.
	Clock func() time.Time
}

// Driver runs one partition of a job.
type Driver struct {
	cfg       *config.Config
	store     blobstore.Store
	guard     *lease.Guard
	skipper   *skip.Evaluator
	pipeline  *batching.Pipeline
	inference batching.Inferencer
	ledger    Ledger
	cats      flatten.Categories
	logger    *slog.Logger
	progress  *logging.ProgressSampler
}

// NewDriver wires a driver from configuration and collaborators.
func NewDriver(cfg *config.Config, deps Dependencies) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("workflow: config is nil")
	}
	if deps.Store == nil || deps.Lease == nil || deps.Inference == nil || deps.Ledger == nil {
		return nil, errors.New("workflow: store, lease, inference, and ledger are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")

	guardOpts := []lease.Option{lease.WithLogger(logger)}
	if deps.Clock != nil {
		guardOpts = append(guardOpts, lease.WithClock(deps.Clock))
	}

	pipelineOpts := []batching.Option{batching.WithLogger(logger)}
	if preparer, ok := deps.Inference.(batching.Preparer); ok {
		pipelineOpts = append(pipelineOpts, batching.WithPreparer(preparer))
	}

	return &Driver{
		cfg:       cfg,
		store:     deps.Store,
		guard:     lease.NewGuard(deps.Lease, cfg.LeaseTimeout(), guardOpts...),
		skipper:   skip.NewEvaluator(deps.Store, cfg.OutputRoot(), cfg.Job.CandidateRoots...),
		inference: deps.Inference,
		pipeline: batching.New(batching.Config{
			OuterSize: cfg.Batch.OuterSize,
			InnerSize: cfg.Batch.InnerSize,
			Workers:   cfg.Batch.Workers,
		}, deps.Inference, pipelineOpts...),
		ledger:   deps.Ledger,
		cats:     flatten.NewCategories(cfg.Recognition.CategoryIDs...),
		logger:   logger,
		progress: logging.NewProgressSampler(10),
	}, nil
}

// Run processes the partition. The returned error is non-nil only for setup
// failures; item failures are counted in the Summary.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	partLabel := fmt.Sprintf("%d/%d", d.cfg.Job.PartIndex+1, d.cfg.Job.NumParts)
	ctx = services.WithPartition(ctx, partLabel)
	logger := logging.WithContext(ctx, d.logger)

	lock, err := acquirePartitionLock(d.cfg.PartitionLockPath())
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			logger.Warn("failed to release partition lock", logging.Error(err))
		}
	}()

	if checker, ok := d.inference.(healthChecker); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			return Summary{}, fmt.Errorf("inference health check: %w", err)
		}
	}

	assignment, err := PlanPartition(ctx, d.cfg, d.store, logger)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Total: len(assignment.Items)}
	logger.Info("partition planned",
		logging.String(logging.FieldEventType, "partition_planned"),
		logging.Int("manifest_items", assignment.Total),
		logging.String("range", assignment.Range.String()),
		logging.Int("items", len(assignment.Items)),
		logging.Bool("force", d.cfg.Job.Force),
		logging.String("output_root", d.cfg.OutputRoot()),
	)
	if len(assignment.Items) == 0 {
		logger.Info("partition has no items", logging.String(logging.FieldEventType, "partition_empty"))
		return summary, nil
	}

	// Ledger writes outlive cancellation so a stopped run is still recorded.
	bookCtx := context.WithoutCancel(ctx)
	run, err := d.ledger.StartRun(bookCtx, ledger.RunSpec{
		TaskName:  d.cfg.Job.TaskName,
		NumParts:  d.cfg.Job.NumParts,
		PartIndex: d.cfg.Job.PartIndex,
		Total:     len(assignment.Items),
	})
	if err != nil {
		return summary, fmt.Errorf("start ledger run: %w", err)
	}
	summary.RunID = run.ID
	ctx = services.WithRunID(ctx, run.ID)
	bookCtx = services.WithRunID(bookCtx, run.ID)
	logger = logging.WithContext(ctx, d.logger)

	enumerated := make(map[string]string, len(assignment.Items))
	for _, item := range assignment.Items {
		enumerated[item.ID] = item.SourcePath
	}
	if err := d.ledger.Enumerate(bookCtx, run.ID, enumerated); err != nil {
		logging.WarnWithContext(logger, "failed to enumerate items in ledger", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status output for this run is incomplete"),
		)
	}

	started := time.Now()
	d.progress.Reset()
	for i, item := range assignment.Items {
		if reason := d.stopReason(ctx); reason != "" {
			summary.Stopped = true
			logger.Info("stopping before next item",
				logging.String(logging.FieldEventType, "run_stopped"),
				logging.String("reason", reason),
				logging.Int("remaining", len(assignment.Items)-i),
			)
			break
		}

		status := d.processItem(ctx, run.ID, item)
		summary.count(status)

		if d.progress.Observe("items", i+1, len(assignment.Items)) {
			logger.Info("partition progress",
				logging.String(logging.FieldEventType, "partition_progress"),
				logging.Int("done", i+1),
				logging.Int("total", len(assignment.Items)),
				logging.Int("written", summary.Written),
				logging.Int("failed", summary.Failed),
			)
		}
	}

	if err := d.ledger.FinishRun(bookCtx, run.ID, summary.Stopped); err != nil {
		logging.WarnWithContext(logger, "failed to finish ledger run", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status output shows this run as in progress"),
		)
	}
	logger.Info("partition finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("total", summary.Total),
		logging.Int("written", summary.Written),
		logging.Int("skipped", summary.Skipped),
		logging.Int("lock_rejected", summary.LockRejected),
		logging.Int("failed", summary.Failed),
		logging.Bool("stopped", summary.Stopped),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

// stopReason returns why the loop should end before the next item, or "".
func (d *Driver) stopReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	sentinel := strings.TrimSpace(d.cfg.Paths.StopSentinel)
	if sentinel == "" {
		return ""
	}
	if _, err := os.Stat(sentinel); err == nil {
		return "stop sentinel " + strconv.Quote(sentinel)
	}
	return ""
}

// itemLogger returns a logger carrying the item identity.
func (d *Driver) itemLogger(ctx context.Context, item manifest.WorkItem) *slog.Logger {
	return logging.WithContext(ctx, d.logger).With(logging.String("source", item.SourcePath))
}
