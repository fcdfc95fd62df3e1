package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docbatch/internal/logging"
	"docbatch/internal/services"
)

// DefaultTimeout is the staleness threshold after which a held lease may be
// taken over.
const DefaultTimeout = time.Hour

// Reasons reported by Guard.TryAcquire.
const (
	ReasonAcquired = "acquired"
	ReasonForced   = "forced"
	ReasonExpired  = "expired"
	ReasonLocked   = "locked"
)

// Service stores one owner timestamp per key.
type Service interface {
	// Read returns the stored timestamp and whether the key exists.
	Read(ctx context.Context, key string) (time.Time, bool, error)
	// CreateIfAbsent stores ts only when the key is absent and reports whether
	// this call created it.
	CreateIfAbsent(ctx context.Context, key string, ts time.Time) (bool, error)
	// Overwrite unconditionally stores ts.
	Overwrite(ctx context.Context, key string, ts time.Time) error
}

// AcquireResult is the outcome of TryAcquire.
type AcquireResult struct {
	Proceed bool
	Reason  string
	// Previous is the timestamp found before this attempt, zero when absent.
	Previous time.Time
}

// Guard applies the acquire/expire/force policy on top of a Service.
type Guard struct {
	service Service
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock overrides the clock used to stamp and age leases.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger attaches a logger for lease decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logging.NewComponentLogger(logger, "lease")
	}
}

// NewGuard constructs a Guard. A non-positive timeout selects DefaultTimeout.
func NewGuard(service Service, timeout time.Duration, opts ...Option) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Guard{
		service: service,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the configured staleness threshold.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// TryAcquire decides whether the caller may process key. Service failures are
// returned as errors and never result in Proceed.
func (g *Guard) TryAcquire(ctx context.Context, key string, force bool) (AcquireResult, error) {
	now := g.now()
	logger := logging.WithContext(ctx, g.logger)

	previous, exists, err := g.service.Read(ctx, key)
	if err != nil {
		return AcquireResult{}, services.Wrap(services.ErrLeaseUnavailable, "lease", "read", fmt.Sprintf("key %q", key), err)
	}

	if !exists {
		created, err := g.service.CreateIfAbsent(ctx, key, now)
		if err != nil {
			return AcquireResult{}, services.Wrap(services.ErrLeaseUnavailable, "lease", "create", fmt.Sprintf("key %q", key), err)
		}
		if !created {
			logger.Debug("lease created concurrently by another worker", logging.String("key", key))
			return AcquireResult{Proceed: false, Reason: ReasonLocked}, nil
		}
		return AcquireResult{Proceed: true, Reason: ReasonAcquired}, nil
	}

	age := now.Sub(previous)
	reason := ""
	switch {
	case force:
		reason = ReasonForced
	case age >= g.timeout:
		reason = ReasonExpired
	default:
		logger.Debug("lease held by another worker",
			logging.String("key", key),
			logging.Duration("age", age),
			logging.Duration("timeout", g.timeout),
		)
		return AcquireResult{Proceed: false, Reason: ReasonLocked, Previous: previous}, nil
	}

	if err := g.service.Overwrite(ctx, key, now); err != nil {
		return AcquireResult{}, services.Wrap(services.ErrLeaseUnavailable, "lease", "overwrite", fmt.Sprintf("key %q", key), err)
	}
	if reason == ReasonExpired {
		logger.Info("took over stale lease",
			logging.String("key", key),
			logging.Duration("age", age),
		)
	}
	return AcquireResult{Proceed: true, Reason: reason, Previous: previous}, nil
}
