package batching

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docbatch/internal/flatten"
	"docbatch/internal/logging"
	"docbatch/internal/services"
)

// Loader fetches the payloads of one document's units. It runs on the outer
// worker pool and is expected to be I/O bound.
type Loader interface {
	Load(ctx context.Context, group flatten.Group) ([]flatten.Unit, error)
}

// Preparer converts one unit into the form handed to inference.
type Preparer interface {
	Prepare(ctx context.Context, unit flatten.Unit) (flatten.Unit, error)
}

// Inferencer recognizes one inner batch.
type Inferencer interface {
	Infer(ctx context.Context, units []flatten.Unit) (map[flatten.Location]string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, group flatten.Group) ([]flatten.Unit, error)

func (f LoaderFunc) Load(ctx context.Context, group flatten.Group) ([]flatten.Unit, error) {
	return f(ctx, group)
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context, unit flatten.Unit) (flatten.Unit, error)

func (f PreparerFunc) Prepare(ctx context.Context, unit flatten.Unit) (flatten.Unit, error) {
	return f(ctx, unit)
}

// Config sizes the pipeline.
type Config struct {
	OuterSize int
	InnerSize int
	Workers   int
}

const (
	defaultOuterSize = 32
	defaultInnerSize = 256
)

// Stats describes one Run.
type Stats struct {
	OuterBatches    int
	InnerBatches    int
	Units           int
	Loaded          int
	Dropped         int
	FailedDocuments int
}

// Pipeline runs flattened sets through load, prepare, and inference.
type Pipeline struct {
	cfg        Config
	loader     Loader
	preparer   Preparer
	inferencer Inferencer
	logger     *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLoader sets the outer loader. The default keeps the units as flattened.
func WithLoader(loader Loader) Option {
	return func(p *Pipeline) {
		if loader != nil {
			p.loader = loader
		}
	}
}

// WithPreparer sets the per-unit preparer. The default is the identity.
func WithPreparer(preparer Preparer) Option {
	return func(p *Pipeline) {
		if preparer != nil {
			p.preparer = preparer
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.NewComponentLogger(logger, "batching")
	}
}

// New constructs a pipeline around the inference collaborator.
func New(cfg Config, inferencer Inferencer, opts ...Option) *Pipeline {
	if cfg.OuterSize < 1 {
		cfg.OuterSize = defaultOuterSize
	}
	if cfg.InnerSize < 1 {
		cfg.InnerSize = defaultInnerSize
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}
	p := &Pipeline{
		cfg:        cfg,
		inferencer: inferencer,
		loader: LoaderFunc(func(_ context.Context, g flatten.Group) ([]flatten.Unit, error) {
			return g.Units, nil
		}),
		preparer: PreparerFunc(func(_ context.Context, u flatten.Unit) (flatten.Unit, error) {
			return u, nil
		}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// With returns a copy of p with opts applied on top of its current settings.
func (p *Pipeline) With(opts ...Option) *Pipeline {
	clone := *p
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// PrepareWorkers returns how many goroutines prepare the inner batches of a
// run of n units: none when everything fits in one inner batch, one when it
// fits in two, otherwise the configured worker count but never fewer than one.
func PrepareWorkers(n, innerSize, workers int) int {
	switch {
	case n <= innerSize:
		return 0
	case n <= 2*innerSize:
		return 1
	default:
		return max(workers, 1)
	}
}

// Run processes every unit of set and returns the merged results. Outer
// batches load in the background while earlier ones are inferred. Inner
// batches are cut from the loaded stream, so one may span outer batches.
func (p *Pipeline) Run(ctx context.Context, set flatten.Set) (map[flatten.Location]string, Stats, error) {
	logger := logging.WithContext(ctx, p.logger)
	results := make(map[flatten.Location]string, set.Len())
	stats := Stats{Units: set.Len()}
	if len(set.Groups) == 0 {
		return results, stats, nil
	}

	loadCtx, cancel := context.WithCancel(ctx)
	loaded := p.loadAhead(loadCtx, logger, set.Groups)
	defer func() {
		cancel()
		for range loaded {
		}
	}()

	var pending []flatten.Unit
	flush := func(all bool) error {
		n := len(pending)
		if !all {
			n -= n % p.cfg.InnerSize
		}
		if n == 0 {
			return nil
		}
		inner, err := p.runInner(ctx, pending[:n], results)
		stats.InnerBatches += inner
		pending = append([]flatten.Unit(nil), pending[n:]...)
		return err
	}

	for batch := range loaded {
		stats.OuterBatches++
		stats.Loaded += len(batch.units)
		stats.Dropped += batch.dropped
		stats.FailedDocuments += batch.failed
		pending = append(pending, batch.units...)
		if err := flush(false); err != nil {
			return nil, stats, err
		}
		logger.Debug("outer batch loaded",
			logging.Int("outer_batch", stats.OuterBatches),
			logging.Int("units", len(batch.units)),
			logging.Int("pending", len(pending)),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	if err := flush(true); err != nil {
		return nil, stats, err
	}
	return results, stats, nil
}

type outerBatch struct {
	units   []flatten.Unit
	failed  int
	dropped int
}

// loadAhead loads outer batches in order on a background goroutine. The
// channel buffer holds one finished batch, so up to two batches are loaded
// ahead of the one being inferred. The channel is closed when every batch is
// sent or ctx is done.
func (p *Pipeline) loadAhead(ctx context.Context, logger *slog.Logger, groups []flatten.Group) <-chan outerBatch {
	out := make(chan outerBatch, 1)
	go func() {
		defer close(out)
		for start := 0; start < len(groups); start += p.cfg.OuterSize {
			end := min(start+p.cfg.OuterSize, len(groups))
			batch := p.loadOuter(ctx, logger, groups[start:end])
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type loadResult struct {
	units []flatten.Unit
	err   error
}

// loadOuter loads one outer batch on a bounded pool. Results are kept in group
// order. A failed document is logged and its units dropped.
func (p *Pipeline) loadOuter(ctx context.Context, logger *slog.Logger, groups []flatten.Group) outerBatch {
	loaded := make([]loadResult, len(groups))
	workers := min(max(p.cfg.Workers, 1), len(groups))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				units, err := p.loader.Load(ctx, groups[idx])
				loaded[idx] = loadResult{units: units, err: err}
			}
		}()
	}
	for idx := range groups {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var batch outerBatch
	if ctx.Err() != nil {
		return batch
	}
	for idx, res := range loaded {
		if res.err != nil {
			batch.failed++
			batch.dropped += len(groups[idx].Units)
			err := services.Wrap(services.ErrDecodeFailure, "batching", "load document", groups[idx].DocID, res.err)
			logging.WarnWithContext(logger, "document payload load failed", "document_load_failed",
				logging.String("document", groups[idx].DocID),
				logging.Int("units", len(groups[idx].Units)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the payload blobs are readable"),
				logging.String(logging.FieldImpact, "document regions are reported missing"),
			)
			continue
		}
		batch.units = append(batch.units, res.units...)
	}
	return batch
}

// runInner re-chunks units into inner batches and overlaps preparation of the
// next batch with inference of the current one.
func (p *Pipeline) runInner(ctx context.Context, units []flatten.Unit, results map[flatten.Location]string) (int, error) {
	size := p.cfg.InnerSize
	batches := (len(units) + size - 1) / size
	workers := PrepareWorkers(len(units), size, p.cfg.Workers)

	chunk := func(i int) []flatten.Unit {
		return units[i*size : min((i+1)*size, len(units))]
	}

	current, err := p.prepare(ctx, chunk(0), workers)
	if err != nil {
		return 0, err
	}
	for i := 0; i < batches; i++ {
		var next chan prepared
		if i+1 < batches && workers > 0 {
			next = make(chan prepared, 1)
			go func(batch []flatten.Unit) {
				units, err := p.prepare(ctx, batch, workers)
				next <- prepared{units: units, err: err}
			}(chunk(i + 1))
		}

		out, inferErr := p.inferencer.Infer(ctx, current)

		var upcoming prepared
		switch {
		case next != nil:
			upcoming = <-next
		case i+1 < batches && inferErr == nil:
			upcoming.units, upcoming.err = p.prepare(ctx, chunk(i+1), workers)
		}

		if inferErr != nil {
			return i + 1, services.Wrap(services.ErrInference, "batching", "infer", fmt.Sprintf("inner batch %d of %d", i+1, batches), inferErr)
		}
		for loc, value := range out {
			results[loc] = value
		}
		if upcoming.err != nil {
			return i + 1, upcoming.err
		}
		current = upcoming.units
	}
	return batches, nil
}

type prepared struct {
	units []flatten.Unit
	err   error
}

// prepare converts a batch, placing each output in the slot of its input.
func (p *Pipeline) prepare(ctx context.Context, batch []flatten.Unit, workers int) ([]flatten.Unit, error) {
	out := make([]flatten.Unit, len(batch))
	errs := make([]error, len(batch))
	if workers <= 1 {
		for i, unit := range batch {
			out[i], errs[i] = p.preparer.Prepare(ctx, unit)
			if errs[i] != nil {
				break
			}
		}
	} else {
		idx := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < min(workers, len(batch)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idx {
					out[i], errs[i] = p.preparer.Prepare(ctx, batch[i])
				}
			}()
		}
		for i := range batch {
			idx <- i
		}
		close(idx)
		wg.Wait()
	}
	for i, err := range errs {
		if err != nil {
			return nil, services.Wrap(services.ErrTransientIO, "batching", "prepare", batch[i].Location.String(), err)
		}
	}
	return out, nil
}
