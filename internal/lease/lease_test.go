package lease_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docbatch/internal/lease"
	"docbatch/internal/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGuardAcquireRejectExpireCycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := lease.NewMemoryService()
	guard := lease.NewGuard(svc, time.Hour, lease.WithClock(clock.Now))

	res, err := guard.TryAcquire(ctx, "a.jsonl", false)
	if err != nil || !res.Proceed || res.Reason != lease.ReasonAcquired {
		t.Fatalf("first acquire = %+v, %v", res, err)
	}

	clock.Advance(30 * time.Minute)
	res, err = guard.TryAcquire(ctx, "a.jsonl", false)
	if err != nil || res.Proceed || res.Reason != lease.ReasonLocked {
		t.Fatalf("second acquire within timeout = %+v, %v", res, err)
	}

	clock.Advance(30 * time.Minute)
	res, err = guard.TryAcquire(ctx, "a.jsonl", false)
	if err != nil || !res.Proceed || res.Reason != lease.ReasonExpired {
		t.Fatalf("acquire at exactly timeout = %+v, %v", res, err)
	}
	if !res.Previous.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected previous timestamp %s", res.Previous)
	}

	ts, ok, _ := svc.Read(ctx, "a.jsonl")
	if !ok || !ts.Equal(clock.Now()) {
		t.Fatalf("expected refreshed lease at %s, got %s (present=%v)", clock.Now(), ts, ok)
	}
}

func TestGuardForceOverridesFreshLease(t *testing.T) {
	ctx := context.Background()
	svc := lease.NewMemoryService()
	guard := lease.NewGuard(svc, time.Hour)

	if res, err := guard.TryAcquire(ctx, "k", false); err != nil || !res.Proceed {
		t.Fatalf("acquire = %+v, %v", res, err)
	}
	res, err := guard.TryAcquire(ctx, "k", true)
	if err != nil || !res.Proceed || res.Reason != lease.ReasonForced {
		t.Fatalf("forced acquire = %+v, %v", res, err)
	}
}

func TestGuardConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	svc := lease.NewMemoryService()
	guard := lease.NewGuard(svc, time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := guard.TryAcquire(ctx, "shared", false)
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			if res.Proceed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

// racingService reports the key absent but loses the create race.
type racingService struct{}

func (r *racingService) Read(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (r *racingService) CreateIfAbsent(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (r *racingService) Overwrite(context.Context, string, time.Time) error {
	return errors.New("unexpected overwrite")
}

func TestGuardLostCreateRaceIsLocked(t *testing.T) {
	guard := lease.NewGuard(&racingService{}, time.Hour)
	res, err := guard.TryAcquire(context.Background(), "k", false)
	if err != nil || res.Proceed || res.Reason != lease.ReasonLocked {
		t.Fatalf("lost race = %+v, %v", res, err)
	}
}

type failingService struct {
	readErr, createErr, overwriteErr error
	present                          bool
}

func (f failingService) Read(context.Context, string) (time.Time, bool, error) {
	return time.Unix(0, 0), f.present, f.readErr
}

func (f failingService) CreateIfAbsent(context.Context, string, time.Time) (bool, error) {
	return f.createErr == nil, f.createErr
}

func (f failingService) Overwrite(context.Context, string, time.Time) error {
	return f.overwriteErr
}

func TestGuardNeverProceedsOnServiceError(t *testing.T) {
	boom := errors.New("connection refused")
	cases := []failingService{
		{readErr: boom},
		{createErr: boom},
		{present: true, overwriteErr: boom},
	}
	for i, svc := range cases {
		guard := lease.NewGuard(svc, time.Minute)
		res, err := guard.TryAcquire(context.Background(), "k", false)
		if err == nil {
			t.Fatalf("case %d: expected error", i)
		}
		if res.Proceed {
			t.Fatalf("case %d: guard proceeded on error", i)
		}
		if !errors.Is(err, services.ErrLeaseUnavailable) || !errors.Is(err, boom) {
			t.Fatalf("case %d: expected lease-unavailable wrapping cause, got %v", i, err)
		}
	}
}

func TestNewGuardDefaultsTimeout(t *testing.T) {
	if got := lease.NewGuard(lease.NewMemoryService(), 0).Timeout(); got != lease.DefaultTimeout {
		t.Fatalf("Timeout = %s, want %s", got, lease.DefaultTimeout)
	}
}
