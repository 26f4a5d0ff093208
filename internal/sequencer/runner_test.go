package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocker struct{ mock.Mock }

func (m *mockLocker) Acquire(ctx context.Context, lockID, workerID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, lockID, workerID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, lockID, workerID string) error {
	return m.Called(ctx, lockID, workerID).Error(0)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) Start(ctx context.Context, jobType string) (int64, error) {
	args := m.Called(ctx, jobType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockHistory) Finish(ctx context.Context, id int64, status string, items int, jobErr error) error {
	return m.Called(ctx, id, status, items, jobErr).Error(0)
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []*RunSummary
	err  error
}

func (o *recordingObserver) ObserveRun(_ context.Context, s *RunSummary) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, s)
	return o.err
}

func newTestRunner(store *memStore, locks JobLocker, history JobHistory, observers ...RunObserver) *Runner {
	return NewRunner(RunnerConfig{
		Engine:    newTestEngine(store, &fakeDispatcher{}, testConfig()),
		Locks:     locks,
		History:   history,
		Observers: observers,
		LockTTL:   time.Minute,
		WorkerID:  "worker-1",
		Clock:     func() time.Time { return testNow },
		Logger:    quietLogger(),
	})
}

func TestRunner_RunsUnderLock(t *testing.T) {
	store := seedMixedWork()
	locks := new(mockLocker)
	locks.On("Acquire", mock.Anything, JobType, "worker-1", time.Minute).Return(true, nil)
	locks.On("Release", mock.Anything, JobType, "worker-1").Return(nil)
	history := new(mockHistory)
	history.On("Start", mock.Anything, JobType).Return(int64(7), nil)
	history.On("Finish", mock.Anything, int64(7), "success", 12, nil).Return(nil)
	obs := &recordingObserver{}

	summary, err := newTestRunner(store, locks, history, obs).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 12, summary.TotalSent)
	require.Len(t, obs.seen, 1)
	assert.Same(t, summary, obs.seen[0])
	locks.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestRunner_LockHeldElsewhere(t *testing.T) {
	store := seedMixedWork()
	locks := new(mockLocker)
	locks.On("Acquire", mock.Anything, JobType, "worker-1", time.Minute).Return(false, nil)
	history := new(mockHistory)
	history.On("Start", mock.Anything, JobType).Return(int64(3), nil)
	history.On("Finish", mock.Anything, int64(3), "skipped", 0, nil).Return(nil)
	obs := &recordingObserver{}

	summary, err := newTestRunner(store, locks, history, obs).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, summary.Success)
	assert.Equal(t, SkippedReasonLocked, summary.SkippedReason)
	assert.Equal(t, 200, summary.DailyLimit)
	assert.Zero(t, store.calls["SentOn"])
	assert.Empty(t, obs.seen)
	locks.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	history.AssertExpectations(t)
}

func TestRunner_LockError(t *testing.T) {
	locks := new(mockLocker)
	locks.On("Acquire", mock.Anything, JobType, "worker-1", time.Minute).Return(false, errors.New("db down"))

	_, err := newTestRunner(seedMixedWork(), locks, nil).Run(context.Background())

	assert.ErrorContains(t, err, "acquiring run lock")
}

func TestRunner_EngineFailureRecordedAndLockReleased(t *testing.T) {
	store := seedMixedWork()
	store.errs["SentOn"] = errors.New("db down")
	locks := new(mockLocker)
	locks.On("Acquire", mock.Anything, JobType, "worker-1", time.Minute).Return(true, nil)
	locks.On("Release", mock.Anything, JobType, "worker-1").Return(nil)
	history := new(mockHistory)
	history.On("Start", mock.Anything, JobType).Return(int64(9), nil)
	history.On("Finish", mock.Anything, int64(9), "failed", 0, mock.Anything).Return(nil)
	obs := &recordingObserver{}

	_, err := newTestRunner(store, locks, history, obs).Run(context.Background())

	require.Error(t, err)
	assert.Empty(t, obs.seen)
	locks.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestRunner_ObserverAndHistoryFailuresAreNonFatal(t *testing.T) {
	history := new(mockHistory)
	history.On("Start", mock.Anything, JobType).Return(int64(0), errors.New("insert failed"))
	bad := &recordingObserver{err: errors.New("queue unavailable")}
	good := &recordingObserver{}

	summary, err := newTestRunner(seedMixedWork(), nil, history, bad, good).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Len(t, bad.seen, 1)
	assert.Len(t, good.seen, 1)
	history.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_ConcurrentCallsNeverDoubleSend(t *testing.T) {
	store := seedMixedWork()
	disp := &fakeDispatcher{}
	r := NewRunner(RunnerConfig{
		Engine: newTestEngine(store, disp, testConfig()),
		Clock:  func() time.Time { return testNow },
		Logger: quietLogger(),
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Calls either share one flight or run after it and find nothing due.
	assert.Len(t, disp.sent, 12)
	assert.Len(t, store.sequences, 12)
	assert.Equal(t, 12, store.daily[dayKey(testNow)])
}

func TestRunner_SendTestSkipsLock(t *testing.T) {
	locks := new(mockLocker)
	r := newTestRunner(newMemStore(), locks, nil)

	res, err := r.SendTest(context.Background(), validTestRequest())

	require.NoError(t, err)
	assert.True(t, res.Success)
	locks.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
