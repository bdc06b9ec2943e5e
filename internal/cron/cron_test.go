package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquires++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	a, b := &testJob{name: "a"}, &testJob{name: "b"}
	registry := NewRegistry(a, nil)
	registry.Register(b)
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != a || jobs[1] != b {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}
}

func TestRegistrySkipsDuplicateNames(t *testing.T) {
	first, again := &testJob{name: "stock-snapshot"}, &testJob{name: "stock-snapshot"}
	registry := NewRegistry(first)
	if registry.Register(again) {
		t.Fatal("a second stock-snapshot job must be rejected")
	}
	if !registry.Register(&testJob{name: "otp-sweep"}) {
		t.Fatal("expected otp-sweep to register")
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != first {
		t.Fatalf("unexpected jobs %v", jobs)
	}
}

func TestRunOnceRunsAllJobsAndCombinesErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", err: errors.New("boom")}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(bad, ok),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = svc.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Fatalf("expected combined job error, got %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected each job to run once, got ok=%d bad=%d", ok.runs, bad.runs)
	}
	if lock.releases != 1 || lock.held {
		t.Fatal("lock should be released after the cycle")
	}
	if n := seriesCount(t, reg, "pos_job_runs_total"); n != 2 {
		t.Fatalf("expected two job outcome series, got %d", n)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: &fakeLock{held: true}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("job must not run without the lock")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: &fakeLock{}, Interval: time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the immediate cycle to run, got %d", job.runs)
	}
}

type memoryLockStore struct {
	data map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockOwnership(t *testing.T) {
	store := &memoryLockStore{data: map[string]string{}}
	first, err := NewRedisLock(store, "pos:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "pos:lock:cron", time.Minute)
	ctx := context.Background()

	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second acquire should fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("non-owner release: %v", err)
	}
	if _, ok := store.data["pos:lock:cron"]; !ok {
		t.Fatal("non-owner must not delete the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("lock should be free after owner release")
	}

	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected error without store")
	}
}

type stubCatalog struct {
	items []models.Item
	err   error
}

func (s stubCatalog) List(context.Context) ([]models.Item, error) { return s.items, s.err }

func TestStockSnapshotJobSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	job, err := NewStockSnapshotJob(StockSnapshotJobParams{
		Logger: logger.Nop(),
		Catalog: stubCatalog{items: []models.Item{
			{Stock: 0, SellPrice: decimal.NewFromInt(5)},
			{Stock: 4, SellPrice: decimal.NewFromInt(10)},
			{Stock: 60, SellPrice: decimal.NewFromInt(3), CostPrice: decimal.NewFromInt(1)},
		}},
		Metrics: metrics.NewStockMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var value float64
	for _, mf := range mfs {
		if mf.GetName() == "pos_catalog_stock_value" {
			value = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	if value != 84 {
		t.Fatalf("expected stock value 84, got %f", value)
	}

	failing, _ := NewStockSnapshotJob(StockSnapshotJobParams{Logger: logger.Nop(), Catalog: stubCatalog{err: errors.New("db down")}})
	if err := failing.Run(context.Background()); err == nil {
		t.Fatal("expected catalog error")
	}
}

type stubOTPRepo struct {
	cutoff time.Time
	rows   int64
}

func (s *stubOTPRepo) ClearExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	s.cutoff = now
	return s.rows, nil
}

func TestOTPSweepJob(t *testing.T) {
	repo := &stubOTPRepo{rows: 3}
	job, err := NewOTPSweepJob(OTPSweepJobParams{Logger: logger.Nop(), Repository: repo})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job.(*otpSweepJob).now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !repo.cutoff.Equal(fixed) {
		t.Fatalf("expected cutoff %v, got %v", fixed, repo.cutoff)
	}
}

func seriesCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}
