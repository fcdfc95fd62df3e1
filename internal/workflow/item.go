package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docbatch/internal/batching"
	"docbatch/internal/blobstore"
	"docbatch/internal/flatten"
	"docbatch/internal/latex"
	"docbatch/internal/layout"
	"docbatch/internal/ledger"
	"docbatch/internal/logging"
	"docbatch/internal/manifest"
	"docbatch/internal/services"
)

// Reasons recorded in the ledger alongside a skipped or written status.
const (
	reasonSourceMissing = "source_missing"
	reasonOutputExists  = "output_exists"
	// Some document lines of the source did not decode.
	reasonPartialDecode = "partial_decode"
)

// processItem runs one work item to a terminal status. It never returns an
// error: failures are logged and recorded against the item.
func (d *Driver) processItem(ctx context.Context, runID string, item manifest.WorkItem) ledger.Status {
	ctx = services.WithItemID(ctx, item.ID)
	bookCtx := context.WithoutCancel(ctx)
	target := d.target(item)
	item = target.item
	logger := d.itemLogger(services.WithStage(ctx, "admission"), item)
	if target.inPlace {
		logger.Debug("rewriting earlier result in place", logging.String("output_root", target.outputRoot))
	}

	status, reason, err := d.admit(ctx, logger, item)
	if err != nil {
		return d.fail(bookCtx, logger, runID, item, err)
	}
	if status != ledger.StatusProcessing {
		d.record(bookCtx, logger, runID, item, status, reason)
		return status
	}

	d.record(bookCtx, logger, runID, item, ledger.StatusProcessing, "")
	// An admitted item is finished even if the run is cancelled meanwhile.
	workCtx := services.WithStage(context.WithoutCancel(ctx), "processing")
	logger = d.itemLogger(workCtx, item)

	started := time.Now()
	outcome, err := d.execute(workCtx, logger, target)
	if err != nil {
		return d.fail(bookCtx, logger, runID, item, err)
	}
	reason = ""
	if outcome.decodeFailures > 0 {
		reason = reasonPartialDecode
	}
	d.record(bookCtx, logger, runID, item, ledger.StatusWritten, reason)
	logger.Info("item written",
		logging.String(logging.FieldEventType, "item_written"),
		logging.String("output", outcome.location),
		logging.Int("documents", outcome.documents),
		logging.Int("decode_failures", outcome.decodeFailures),
		logging.Int("units", outcome.stats.Units),
		logging.Int("regions", outcome.report.Regions),
		logging.Int("missing", outcome.report.Missing),
		logging.Int("inner_batches", outcome.stats.InnerBatches),
		logging.Duration("elapsed", time.Since(started)),
	)
	return ledger.StatusWritten
}

// admit decides whether the item is processed. It returns StatusProcessing
// for admitted items, or a terminal status with its reason.
func (d *Driver) admit(ctx context.Context, logger *slog.Logger, item manifest.WorkItem) (ledger.Status, string, error) {
	exists, err := d.store.Exists(ctx, item.SourcePath)
	if err != nil {
		return "", "", services.Wrap(services.ErrTransientIO, "workflow", "probe source", item.SourcePath, err)
	}
	if !exists {
		logger.Info("source missing, skipping",
			logging.String(logging.FieldEventType, "item_skipped"),
			logging.String("reason", reasonSourceMissing),
		)
		return ledger.StatusSkipped, reasonSourceMissing, nil
	}

	decision, err := d.skipper.ShouldSkip(ctx, item.ID, d.cfg.Job.Force)
	if err != nil {
		return "", "", err
	}
	if decision.Skip {
		logger.Info("output exists, skipping",
			logging.String(logging.FieldEventType, "item_skipped"),
			logging.String("reason", reasonOutputExists),
			logging.String("root", decision.Root),
		)
		return ledger.StatusSkipped, reasonOutputExists, nil
	}

	result, err := d.guard.TryAcquire(ctx, item.ID, d.cfg.Job.Force)
	if err != nil {
		return "", "", err
	}
	if !result.Proceed {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "item_lock_rejected"),
			logging.String("reason", result.Reason),
		}
		if !result.Previous.IsZero() {
			attrs = append(attrs, logging.String("held_since", result.Previous.UTC().Format(time.DateTime)))
		}
		logger.Info("lease held by another worker", logging.Args(attrs...)...)
		return ledger.StatusLockRejected, result.Reason, nil
	}
	logger.Debug("lease acquired", logging.String("reason", result.Reason))
	return ledger.StatusProcessing, "", nil
}

type itemOutcome struct {
	location       string
	documents      int
	decodeFailures int
	stats          batching.Stats
	report         flatten.Report
}

// execute reads, recognizes, and writes one item. Nothing is written unless
// every step before the write succeeds.
func (d *Driver) execute(ctx context.Context, logger *slog.Logger, target itemTarget) (itemOutcome, error) {
	item := target.item
	data, err := d.store.Read(ctx, item.SourcePath)
	if err != nil {
		return itemOutcome{}, services.Wrap(services.ErrTransientIO, "workflow", "read source", item.SourcePath, err)
	}
	docs, bad, err := layout.DecodeDocuments(data)
	if err != nil {
		return itemOutcome{}, services.Wrap(services.ErrDecodeFailure, "workflow", "decode source", item.SourcePath, err)
	}
	for _, lineErr := range bad {
		logging.WarnWithContext(logger, "document line failed to decode", "decode_failure",
			logging.Int("line", lineErr.Line),
			logging.String("document", lineErr.Path),
			logging.Error(services.Wrap(services.ErrDecodeFailure, "workflow", "decode document", item.SourcePath, lineErr)),
			logging.String(logging.FieldErrorHint, "inspect the source JSONL line"),
			logging.String(logging.FieldImpact, "document written with an empty result"),
		)
	}

	set := flatten.Flatten(docs, d.cats)
	if set.Duplicates > 0 {
		logger.Debug("repeated regions share results", logging.Int("duplicates", set.Duplicates))
	}
	pipeline := d.pipeline.With(batching.WithLoader(newPayloadLoader(d.store, item.SourcePath)))
	results, stats, err := pipeline.Run(ctx, set)
	if err != nil {
		return itemOutcome{}, err
	}

	records, report := flatten.Reassemble(ctx, docs, results, d.cats, logger)
	if d.cfg.Inference.NormalizeLatex {
		normalizeValues(records)
	}
	encoded, err := layout.EncodeResults(records)
	if err != nil {
		return itemOutcome{}, services.Wrap(services.ErrDecodeFailure, "workflow", "encode results", item.ID, err)
	}

	location := blobstore.Join(target.outputRoot, item.ID)
	if err := d.store.Write(ctx, location, encoded); err != nil {
		return itemOutcome{}, services.Wrap(services.ErrTransientIO, "workflow", "write results", location, err)
	}
	return itemOutcome{
		location:       location,
		documents:      len(docs),
		decodeFailures: len(bad),
		stats:          stats,
		report:         report,
	}, nil
}

func normalizeValues(records []layout.Result) {
	for i := range records {
		for j := range records[i].Pages {
			regions := records[i].Pages[j].Regions
			for k := range regions {
				regions[k].Value = latex.RemoveWhitespace(regions[k].Value)
			}
		}
	}
}

func (d *Driver) fail(ctx context.Context, logger *slog.Logger, runID string, item manifest.WorkItem, err error) ledger.Status {
	reason := services.FailureReason(err)
	hint := "rerun the partition; the item is retried when no output exists"
	switch {
	case errors.Is(err, services.ErrLeaseUnavailable):
		hint = "check the lease service endpoint"
	case errors.Is(err, services.ErrInference):
		hint = "check the inference endpoint logs"
	case errors.Is(err, services.ErrDecodeFailure):
		hint = "inspect the source JSONL for oversized lines"
	}
	logging.ErrorWithContext(logger, "item failed", "item_failed",
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, hint),
		logging.Error(err),
	)
	d.record(ctx, logger, runID, item, ledger.StatusFailed, reason)
	return ledger.StatusFailed
}

func (d *Driver) record(ctx context.Context, logger *slog.Logger, runID string, item manifest.WorkItem, status ledger.Status, reason string) {
	if err := d.ledger.Record(ctx, runID, item.ID, item.SourcePath, status, reason); err != nil {
		logging.WarnWithContext(logger, "failed to record item state", "ledger_write_failed",
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "status output may be stale for this item"),
		)
	}
}
