package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
	"StrikeGate/pkg/cache"
	"StrikeGate/pkg/util"
)

type stubSink struct {
	mu        sync.Mutex
	published []*models.Decision
	err       error
}

func (s *stubSink) Publish(ctx context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, d)
	return nil
}

func (s *stubSink) Close() error { return nil }

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

type stubSnapshots struct {
	mu    sync.Mutex
	saved []*models.Decision
	err   error
}

func (s *stubSnapshots) SaveLatest(ctx context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, d)
	return nil
}

func (s *stubSnapshots) LoadLatest(ctx context.Context, symbol string) (*models.Decision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil, false, nil
	}
	return s.saved[len(s.saved)-1], true, nil
}

func newTestCycle(t *testing.T, sink *stubSink, snaps *stubSnapshots, locks cache.Service, p CycleParams) (*DecisionCycle, fusionDeps) {
	t.Helper()
	d := defaultDeps()
	if p.Symbol == "" {
		p.Symbol = "NIFTY"
	}
	c := NewDecisionCycle(newFusion(t, d), sink, snaps, locks, d.metrics, fusionLogger(t), p)
	return c, d
}

func TestEvaluateNowPublishesAndSnapshots(t *testing.T) {
	sink := &stubSink{}
	snaps := &stubSnapshots{}
	c, _ := newTestCycle(t, sink, snaps, cache.NewMemoryCache(), CycleParams{Interval: time.Minute})

	dec, err := c.EvaluateNow(context.Background())
	if err != nil {
		t.Fatalf("EvaluateNow: %v", err)
	}
	if dec.Action != models.ActionBuy {
		t.Fatalf("Action = %s, want BUY", dec.Action)
	}
	if sink.count() != 1 {
		t.Errorf("published %d decisions, want 1", sink.count())
	}
	if len(snaps.saved) != 1 {
		t.Errorf("saved %d snapshots, want 1", len(snaps.saved))
	}

	latest, ok, err := snaps.LoadLatest(context.Background(), "NIFTY")
	if err != nil || !ok {
		t.Fatalf("LoadLatest: ok=%v err=%v", ok, err)
	}
	if latest.ID != dec.ID {
		t.Errorf("snapshot ID = %s, want %s", latest.ID, dec.ID)
	}
}

func TestEvaluateNowRejectsOverlap(t *testing.T) {
	c, _ := newTestCycle(t, &stubSink{}, &stubSnapshots{}, nil, CycleParams{Interval: time.Minute})

	c.running.Store(true)
	defer c.running.Store(false)

	if _, err := c.EvaluateNow(context.Background()); !errors.Is(err, ErrEvaluationInFlight) {
		t.Fatalf("err = %v, want ErrEvaluationInFlight", err)
	}
}

func TestCycleYieldsToReplicaHoldingLock(t *testing.T) {
	locks := cache.NewMemoryCache()
	sink := &stubSink{}
	c, _ := newTestCycle(t, sink, &stubSnapshots{}, locks, CycleParams{Interval: time.Minute})

	ok, err := locks.TryLock(context.Background(), "cycle:lock:NIFTY", time.Minute)
	if err != nil || !ok {
		t.Fatalf("seed lock: ok=%v err=%v", ok, err)
	}

	if _, err := c.EvaluateNow(context.Background()); !errors.Is(err, ErrEvaluationInFlight) {
		t.Fatalf("err = %v, want ErrEvaluationInFlight while lock held", err)
	}
	if sink.count() != 0 {
		t.Errorf("published %d decisions while yielding, want 0", sink.count())
	}
}

func TestCycleReleasesLockAfterRun(t *testing.T) {
	locks := cache.NewMemoryCache()
	c, _ := newTestCycle(t, &stubSink{}, &stubSnapshots{}, locks, CycleParams{Interval: time.Minute})

	if _, err := c.EvaluateNow(context.Background()); err != nil {
		t.Fatalf("EvaluateNow: %v", err)
	}

	ok, err := locks.TryLock(context.Background(), "cycle:lock:NIFTY", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !ok {
		t.Error("lock still held after the cycle completed")
	}
}

func TestPublishFailureStillYieldsDecision(t *testing.T) {
	sink := &stubSink{err: errors.New("broker down")}
	c, d := newTestCycle(t, sink, &stubSnapshots{}, nil, CycleParams{Interval: time.Minute})

	dec, err := c.EvaluateNow(context.Background())
	if err != nil {
		t.Fatalf("EvaluateNow: %v", err)
	}
	if dec == nil || dec.Action != models.ActionBuy {
		t.Fatalf("decision = %+v, want BUY despite publish failure", dec)
	}
	if d.metrics.errorsSeen["decision_publish"] != 1 {
		t.Errorf("decision_publish errors = %d, want 1", d.metrics.errorsSeen["decision_publish"])
	}
}

func TestStartSkipsOutsideSession(t *testing.T) {
	venue := util.VenueLocation()
	sink := &stubSink{}
	c, _ := newTestCycle(t, sink, &stubSnapshots{}, nil, CycleParams{
		Interval:        10 * time.Millisecond,
		SessionOpenMin:  9*60 + 15,
		SessionCloseMin: 15*60 + 30,
	})
	// Saturday: never in session.
	c.now = func() time.Time { return time.Date(2025, 7, 12, 10, 0, 0, 0, venue) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Start(context.Background())
	}()

	time.Sleep(80 * time.Millisecond)
	c.Stop()
	<-done

	if sink.count() != 0 {
		t.Errorf("published %d decisions outside the session, want 0", sink.count())
	}
}

func TestStartEvaluatesInSession(t *testing.T) {
	venue := util.VenueLocation()
	sink := &stubSink{}
	c, _ := newTestCycle(t, sink, &stubSnapshots{}, nil, CycleParams{
		Interval:        10 * time.Millisecond,
		SessionOpenMin:  9*60 + 15,
		SessionCloseMin: 15*60 + 30,
	})
	// Monday mid-session.
	c.now = func() time.Time { return time.Date(2025, 7, 14, 10, 0, 0, 0, venue) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Start(context.Background())
	}()

	time.Sleep(80 * time.Millisecond)
	c.Stop()
	<-done

	if sink.count() == 0 {
		t.Error("no decisions published during an in-session run")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c, _ := newTestCycle(t, &stubSink{}, &stubSnapshots{}, nil, CycleParams{Interval: time.Minute})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Start(context.Background())
	}()

	c.Stop()
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
