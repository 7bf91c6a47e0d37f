package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/differ"
	"github.com/aleister1102/pagewatch/internal/ledger"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/aleister1102/pagewatch/internal/registry"
)

// memStore is an in-memory datastore.Store for scheduler tests.
type memStore struct {
	mu      sync.Mutex
	jobs    map[string]models.Job
	records map[string][]models.ChangeRecord
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]models.Job),
		records: make(map[string][]models.ChangeRecord),
	}
}

func (m *memStore) SaveJob(job models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) DeleteJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	delete(m.records, jobID)
	return nil
}

func (m *memStore) LoadJobs() ([]models.Job, error) { return nil, nil }

func (m *memStore) AppendRecords(jobID string, records []models.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[jobID] = append(m.records[jobID], records...)
	return nil
}

func (m *memStore) LoadRecords(jobID string, limit int) ([]models.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ChangeRecord, len(m.records[jobID]))
	copy(out, m.records[jobID])
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) recordCount(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[jobID])
}

// scriptedFetcher replays a fixed sequence of snapshots or errors, repeating
// the last step once the script runs out. It signals every fetch so tests
// can synchronize without sleeping.
type scriptedFetcher struct {
	mu      sync.Mutex
	script  []fetchStep
	calls   int
	fetched chan struct{}
}

type fetchStep struct {
	snapshot *models.PageSnapshot
	err      error
}

func newScriptedFetcher(steps ...fetchStep) *scriptedFetcher {
	return &scriptedFetcher{script: steps, fetched: make(chan struct{}, 64)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*models.PageSnapshot, error) {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	step := f.script[idx]
	f.calls++
	f.mu.Unlock()

	select {
	case f.fetched <- struct{}{}:
	default:
	}
	if step.err != nil {
		return nil, step.err
	}
	return step.snapshot, nil
}

func (f *scriptedFetcher) waitForFetches(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.fetched:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for fetch %d of %d", i+1, n)
		}
	}
}

// stubAnnotator returns a canned annotation or error for every record.
type stubAnnotator struct {
	annotation *models.Annotation
	err        error
}

func (a *stubAnnotator) Annotate(ctx context.Context, record models.ChangeRecord) (*models.Annotation, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.annotation, nil
}

func snapshotWithText(text string) *models.PageSnapshot {
	return &models.PageSnapshot{
		URL:       "https://example.com",
		Text:      text,
		FetchedAt: time.Now().UTC(),
	}
}

type workerFixture struct {
	registry *registry.Registry
	store    *memStore
	ledger   *ledger.Ledger
	job      models.Job
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	store := newMemStore()
	reg := registry.NewRegistry(store, zerolog.Nop())
	job, err := reg.Create("watch", "https://example.com", 5*time.Millisecond)
	require.NoError(t, err)
	_, err = reg.MarkRunning(job.ID)
	require.NoError(t, err)
	job, err = reg.Get(job.ID)
	require.NoError(t, err)
	return &workerFixture{
		registry: reg,
		store:    store,
		ledger:   ledger.NewLedger(config.NewDefaultEngineConfig().LedgerCap),
		job:      job,
	}
}

func (fx *workerFixture) newWorker(f *scriptedFetcher, ann *stubAnnotator, maxFailures int) *Worker {
	cfg := WorkerConfig{
		Job:         fx.job,
		Fetcher:     f,
		Differ:      differ.NewSnapshotDiffer(differ.DefaultDiffConfig()),
		Registry:    fx.registry,
		Ledger:      fx.ledger,
		Store:       fx.store,
		Logger:      zerolog.Nop(),
		MaxFailures: maxFailures,
	}
	if ann != nil {
		cfg.Annotator = ann
	}
	return NewWorker(cfg)
}

func TestWorkerDetectsChangesAfterBaseline(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total.")},
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total. Initech Industries has joined as the newest member.")},
	)
	worker := fx.newWorker(fetched, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	fetched.waitForFetches(t, 2)
	require.Eventually(t, func() bool {
		return fx.ledger.Len() > 0
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	records := fx.ledger.Recent(0)
	require.NotEmpty(t, records)
	assert.Equal(t, models.ChangeTypeTextChange, records[0].Type)
	assert.GreaterOrEqual(t, fx.store.recordCount(fx.job.ID), 1)

	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, job.TotalChecks, int64(2))
	assert.GreaterOrEqual(t, job.ChangesDetected, int64(1))
	assert.NotNil(t, job.LastCheck)
}

func TestWorkerFirstCheckEstablishesBaselineOnly(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("Stable content that never changes between checks here.")},
	)
	worker := fx.newWorker(fetched, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	fetched.waitForFetches(t, 3)
	cancel()
	<-done

	assert.Zero(t, fx.ledger.Len())
	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.Zero(t, job.ChangesDetected)
	assert.GreaterOrEqual(t, job.TotalChecks, int64(3))
}

func TestWorkerEscalatesAfterConsecutiveFailures(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{err: errors.New("connection refused")},
	)
	worker := fx.newWorker(fetched, nil, 3)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after failure escalation")
	}

	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Contains(t, job.ErrorMessage, "connection refused")
	assert.Zero(t, job.TotalChecks)
	assert.Nil(t, job.LastCheck)
}

func TestWorkerSuccessResetsFailureStreak(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{err: errors.New("connection refused")},
		fetchStep{err: errors.New("connection refused")},
		fetchStep{snapshot: snapshotWithText("Recovered content after two transient network failures today.")},
		fetchStep{err: errors.New("connection refused")},
		fetchStep{snapshot: snapshotWithText("Recovered content after two transient network failures today.")},
	)
	worker := fx.newWorker(fetched, nil, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	fetched.waitForFetches(t, 5)
	cancel()
	<-done

	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, job.Status)
}

func TestWorkerAnnotatesRecords(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total.")},
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total. Initech Industries has joined as the newest member.")},
	)
	ann := &stubAnnotator{annotation: &models.Annotation{
		NotableDetected: true,
		AddedEntity:     "Initech Industries",
	}}
	worker := fx.newWorker(fetched, ann, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return fx.ledger.Len() > 0
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	records := fx.ledger.Recent(1)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Annotation)
	assert.Equal(t, "Initech Industries", records[0].Annotation.AddedEntity)
}

func TestWorkerAnnotationFailureLeavesRecordUnannotated(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total.")},
		fetchStep{snapshot: snapshotWithText("The portfolio currently lists twelve companies in total. Initech Industries has joined as the newest member.")},
	)
	ann := &stubAnnotator{err: errors.New("model unavailable")}
	worker := fx.newWorker(fetched, ann, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return fx.ledger.Len() > 0
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	records := fx.ledger.Recent(1)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Annotation)

	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, job.ChangesDetected, int64(1))
}

func TestSchedulerRejectsDoubleLaunch(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("Stable content that never changes between checks here.")},
	)
	sched := NewScheduler(zerolog.Nop())

	require.NoError(t, sched.Launch(fx.job.ID, fx.newWorker(fetched, nil, 3)))
	defer sched.HaltAll()

	err := sched.Launch(fx.job.ID, fx.newWorker(fetched, nil, 3))
	assert.ErrorIs(t, err, models.ErrJobAlreadyRunning)
	assert.True(t, sched.IsRunning(fx.job.ID))
}

func TestSchedulerHaltWaitsForWorkerExit(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(
		fetchStep{snapshot: snapshotWithText("Stable content that never changes between checks here.")},
	)
	sched := NewScheduler(zerolog.Nop())
	require.NoError(t, sched.Launch(fx.job.ID, fx.newWorker(fetched, nil, 3)))

	fetched.waitForFetches(t, 1)
	assert.True(t, sched.Halt(fx.job.ID))
	assert.False(t, sched.IsRunning(fx.job.ID))

	// A second halt finds nothing bound.
	assert.False(t, sched.Halt(fx.job.ID))
}

func TestSchedulerHandleReleasedOnWorkerSelfExit(t *testing.T) {
	fx := newWorkerFixture(t)
	fetched := newScriptedFetcher(fetchStep{err: errors.New("connection refused")})
	sched := NewScheduler(zerolog.Nop())
	require.NoError(t, sched.Launch(fx.job.ID, fx.newWorker(fetched, nil, 2)))

	require.Eventually(t, func() bool {
		return !sched.IsRunning(fx.job.ID)
	}, 5*time.Second, 5*time.Millisecond)

	job, err := fx.registry.Get(fx.job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
}
