package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/pagewatch/internal/annotator"
	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/datastore"
	"github.com/aleister1102/pagewatch/internal/models"
)

// sequenceFetcher serves snapshots from a script, repeating the last step.
type sequenceFetcher struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
}

type fetchStep struct {
	snapshot *models.PageSnapshot
	err      error
}

func (f *sequenceFetcher) Fetch(ctx context.Context, url string) (*models.PageSnapshot, error) {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	step := f.steps[idx]
	f.calls++
	f.mu.Unlock()

	if step.err != nil {
		return nil, step.err
	}
	snapshot := *step.snapshot
	snapshot.URL = url
	snapshot.FetchedAt = time.Now().UTC()
	return &snapshot, nil
}

func textSnapshot(text string) *models.PageSnapshot {
	return &models.PageSnapshot{Text: text}
}

func testConfig() *config.GlobalConfig {
	cfg := config.NewDefaultGlobalConfig()
	cfg.EngineConfig.MinCheckIntervalSeconds = 1
	return cfg
}

func newTestEngine(t *testing.T, f *sequenceFetcher) (*Engine, datastore.Store) {
	t.Helper()
	store, err := datastore.NewSQLiteStore(filepath.Join(t.TempDir(), "pagewatch.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng, err := NewEngine(testConfig(), f, store, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(eng.Shutdown)
	return eng, store
}

func stableFetcher() *sequenceFetcher {
	return &sequenceFetcher{steps: []fetchStep{
		{snapshot: textSnapshot("Stable page content that does not change between checks.")},
	}}
}

func changingFetcher() *sequenceFetcher {
	return &sequenceFetcher{steps: []fetchStep{
		{snapshot: textSnapshot("The portfolio currently lists twelve companies in total.")},
		{snapshot: textSnapshot("The portfolio currently lists twelve companies in total. Initech Industries has joined as the newest member.")},
	}}
}

func TestCreateJobValidation(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())

	_, err := eng.CreateJob("watch", "", time.Minute)
	assert.True(t, common.IsValidationError(err))

	_, err = eng.CreateJob("watch", "ftp://example.com", time.Minute)
	assert.True(t, common.IsValidationError(err))

	_, err = eng.CreateJob("watch", "https://example.com", 100*time.Millisecond)
	assert.True(t, common.IsValidationError(err))
}

func TestCreateJobDefaultsNameToURL(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())

	job, err := eng.CreateJob("", "https://example.com/portfolio", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/portfolio", job.Name)
	assert.Equal(t, models.JobStatusCreated, job.Status)
	assert.NotEmpty(t, job.ID)
}

func TestStartStopLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())
	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)

	started, err := eng.StartJob(job.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, started.Status)

	_, err = eng.StartJob(job.ID, "")
	assert.ErrorIs(t, err, models.ErrJobAlreadyRunning)

	stopped, err := eng.StopJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusStopped, stopped.Status)

	_, err = eng.StopJob(job.ID)
	assert.ErrorIs(t, err, models.ErrJobNotRunning)
}

func TestPauseAndResume(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())
	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)

	_, err = eng.StartJob(job.ID, "")
	require.NoError(t, err)

	paused, err := eng.PauseJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPaused, paused.Status)

	resumed, err := eng.StartJob(job.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, resumed.Status)
}

func TestDeleteJobTombstonesID(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())
	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)

	_, err = eng.StartJob(job.ID, "")
	require.NoError(t, err)

	require.NoError(t, eng.DeleteJob(job.ID))

	_, err = eng.GetJob(job.ID)
	assert.ErrorIs(t, err, models.ErrJobDeleted)

	_, err = eng.StartJob(job.ID, "")
	assert.ErrorIs(t, err, models.ErrJobDeleted)

	_, err = eng.Results(job.ID, 10)
	assert.ErrorIs(t, err, models.ErrJobDeleted)
}

func TestResultsAndStatsFromRunningJob(t *testing.T) {
	eng, _ := newTestEngine(t, changingFetcher())
	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)

	_, err = eng.StartJob(job.ID, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		records, err := eng.Results(job.ID, 0)
		return err == nil && len(records) > 0
	}, 10*time.Second, 20*time.Millisecond)

	_, err = eng.StopJob(job.ID)
	require.NoError(t, err)

	records, err := eng.Results(job.ID, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ChangeTypeTextChange, records[0].Type)

	jobStats, err := eng.Stats(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, jobStats.JobID)
	assert.GreaterOrEqual(t, jobStats.TotalChecks, int64(2))
	assert.GreaterOrEqual(t, jobStats.ChangesDetected, int64(1))
	assert.Equal(t, jobStats.RetainedChanges, len(records))
	assert.Positive(t, jobStats.ChangeTypeCounts[models.ChangeTypeTextChange])
}

func TestFailingJobEscalatesAndCanRestart(t *testing.T) {
	failing := &sequenceFetcher{steps: []fetchStep{{err: errors.New("connection refused")}}}
	eng, _ := newTestEngine(t, failing)
	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)

	_, err = eng.StartJob(job.ID, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := eng.GetJob(job.ID)
		return err == nil && got.Status == models.JobStatusError
	}, 10*time.Second, 20*time.Millisecond)

	got, err := eng.GetJob(job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.ErrorMessage, "connection refused")

	// An errored job is resumable and the restart clears the message.
	restarted, err := eng.StartJob(job.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, restarted.Status)
	assert.Empty(t, restarted.ErrorMessage)
}

func TestSystemStatusCounts(t *testing.T) {
	eng, _ := newTestEngine(t, stableFetcher())
	_, err := eng.CreateJob("a", "https://example.com/a", time.Second)
	require.NoError(t, err)
	b, err := eng.CreateJob("b", "https://example.com/b", time.Second)
	require.NoError(t, err)

	_, err = eng.StartJob(b.ID, "")
	require.NoError(t, err)

	status := eng.SystemStatus()
	assert.Equal(t, 2, status.TotalJobs)
	assert.Equal(t, 1, status.CreatedJobs)
	assert.Equal(t, 1, status.RunningJobs)
}

func TestEngineRecoversStateAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pagewatch.db")
	store, err := datastore.NewSQLiteStore(dbPath, zerolog.Nop())
	require.NoError(t, err)

	eng, err := NewEngine(testConfig(), changingFetcher(), store, zerolog.Nop())
	require.NoError(t, err)

	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)
	_, err = eng.StartJob(job.ID, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		records, err := eng.Results(job.ID, 0)
		return err == nil && len(records) > 0
	}, 10*time.Second, 20*time.Millisecond)

	eng.Shutdown()
	require.NoError(t, store.Close())

	store2, err := datastore.NewSQLiteStore(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	eng2, err := NewEngine(testConfig(), stableFetcher(), store2, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(eng2.Shutdown)

	recovered, err := eng2.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusStopped, recovered.Status)
	assert.Positive(t, recovered.TotalChecks)

	records, err := eng2.Results(job.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}

func TestStartJobWithCredentialUsesAnnotatorFactory(t *testing.T) {
	eng, _ := newTestEngine(t, changingFetcher())

	var gotCredential string
	eng.SetAnnotatorFactory(func(credential string) annotator.Annotator {
		gotCredential = credential
		return nil
	})

	job, err := eng.CreateJob("watch", "https://example.com", time.Second)
	require.NoError(t, err)
	_, err = eng.StartJob(job.ID, "sk-test-credential")
	require.NoError(t, err)

	assert.Equal(t, "sk-test-credential", gotCredential)
}
