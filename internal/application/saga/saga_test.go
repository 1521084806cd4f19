package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, f Failure) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

type countingMetrics struct {
	mu          sync.Mutex
	completed   int
	compensated int
	failedSteps []string
}

func (c *countingMetrics) Completed(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed++
}

func (c *countingMetrics) Compensated(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compensated++
}

func (c *countingMetrics) CompensationFailed(_ context.Context, _, step string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedSteps = append(c.failedSteps, step)
}

// journal collects the order in which forwards and inverses ran
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) step(name string, forwardErr, inverseErr error) Step {
	return Step{
		Name: name,
		Forward: func(context.Context) error {
			j.add("do " + name)
			return forwardErr
		},
		Inverse: func(context.Context) error {
			j.add("undo " + name)
			return inverseErr
		},
	}
}

func TestSaga_Run_Success(t *testing.T) {
	j := &journal{}
	metrics := &countingMetrics{}

	err := New("register", zap.NewNop(), WithMetrics(metrics)).
		Add(j.step("a", nil, nil), j.step("b", nil, nil)).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"do a", "do b"}, j.entries)
	assert.Equal(t, 1, metrics.completed)
	assert.Equal(t, 0, metrics.compensated)
}

func TestSaga_Run_CompensatesInReverse(t *testing.T) {
	j := &journal{}
	boom := errors.New("boom")
	metrics := &countingMetrics{}

	err := New("register", zap.NewNop(), WithMetrics(metrics)).
		Add(j.step("a", nil, nil), j.step("b", nil, nil), j.step("c", boom, nil)).
		Run(context.Background())

	assert.Same(t, boom, err, "original error is returned unchanged")
	assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, j.entries)
	assert.Equal(t, 1, metrics.compensated)
}

func TestSaga_Run_CompensateOnFailure(t *testing.T) {
	j := &journal{}
	boom := errors.New("insert timed out")
	partial := j.step("insert", boom, nil)
	partial.CompensateOnFailure = true

	err := New("fee", nil).Add(partial).Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"do insert", "undo insert"}, j.entries)
}

func TestSaga_Run_InverseFailure(t *testing.T) {
	j := &journal{}
	boom := errors.New("decrement failed")
	pullErr := errors.New("pull failed")
	recorder := new(MockRecorder)
	metrics := &countingMetrics{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	recorder.On("Record", mock.Anything, mock.MatchedBy(func(f Failure) bool {
		return f.Saga == "sale_debt.register" &&
			f.Step == "push_debt" &&
			f.StoreID == "store-1" &&
			errors.Is(f.Err, pullErr) &&
			errors.Is(f.Original, boom) &&
			f.OccurredAt.Equal(at)
	})).Return(nil).Once()

	err := New("sale_debt.register", zap.NewNop(),
		WithRecorder(recorder),
		WithMetrics(metrics),
		WithStoreID("store-1"),
		WithClock(func() time.Time { return at }),
	).Add(j.step("push_debt", nil, pullErr), j.step("decrement", boom, nil)).Run(context.Background())

	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.KindCompensation, de.Kind)
	assert.ErrorIs(t, err, boom, "original error stays reachable")
	assert.Contains(t, de.Message, "push_debt: pull failed")
	assert.Equal(t, []string{"push_debt"}, metrics.failedSteps)
	recorder.AssertExpectations(t)
}

func TestSaga_Run_RecorderErrorIsSwallowed(t *testing.T) {
	j := &journal{}
	recorder := new(MockRecorder)
	recorder.On("Record", mock.Anything, mock.Anything).Return(errors.New("journal down"))

	err := New("s", nil, WithRecorder(recorder)).
		Add(j.step("a", nil, errors.New("undo failed")), j.step("b", errors.New("fail"), nil)).
		Run(context.Background())

	assert.Equal(t, shared.KindCompensation, shared.KindOf(err))
	recorder.AssertNumberOfCalls(t, "Record", 1)
}

func TestSaga_Run_CompensationSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var inverseCtxErr error

	err := New("s", nil).Add(
		Step{
			Name:    "a",
			Forward: func(context.Context) error { return nil },
			Inverse: func(ctx context.Context) error {
				inverseCtxErr = ctx.Err()
				return nil
			},
		},
		Step{
			Name: "b",
			Forward: func(context.Context) error {
				cancel()
				return context.Canceled
			},
		},
	).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, inverseCtxErr, "inverses run on a detached context")
}

func TestSaga_Run_StepTimeout(t *testing.T) {
	err := New("s", nil, WithStepTimeout(10*time.Millisecond)).Add(Step{
		Name: "slow",
		Forward: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}).Run(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParallel(t *testing.T) {
	t.Run("all members run and failure undoes every member that landed", func(t *testing.T) {
		j := &journal{}
		boom := errors.New("p2 conflict")

		err := New("s", nil).Add(
			j.step("push", nil, nil),
			Parallel("products",
				j.step("p1", nil, nil),
				j.step("p2", boom, nil),
				j.step("p3", nil, nil),
			),
		).Run(context.Background())

		assert.ErrorIs(t, err, boom)
		assert.ElementsMatch(t, []string{
			"do push", "do p1", "do p2", "do p3",
			"undo p1", "undo p3", "undo push",
		}, j.entries)
		assert.Equal(t, "undo push", j.entries[len(j.entries)-1])
	})

	t.Run("member inverse errors are joined", func(t *testing.T) {
		j := &journal{}
		e1 := errors.New("restore p1")
		e3 := errors.New("restore p3")

		step := Parallel("products",
			j.step("p1", nil, e1),
			j.step("p2", errors.New("fail"), nil),
			j.step("p3", nil, e3),
		)
		require.Error(t, step.Forward(context.Background()))

		err := step.Inverse(context.Background())
		assert.ErrorIs(t, err, e1)
		assert.ErrorIs(t, err, e3)
	})

	t.Run("failed member marked for compensation is undone", func(t *testing.T) {
		j := &journal{}
		partial := j.step("p2", errors.New("timeout"), nil)
		partial.CompensateOnFailure = true

		step := Parallel("products", j.step("p1", errors.New("conflict"), nil), partial)
		require.Error(t, step.Forward(context.Background()))
		require.NoError(t, step.Inverse(context.Background()))

		assert.ElementsMatch(t, []string{"do p1", "do p2", "undo p2"}, j.entries)
	})

	t.Run("cancelled context starts nothing", func(t *testing.T) {
		j := &journal{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := Parallel("products", j.step("p1", nil, nil))
		assert.ErrorIs(t, step.Forward(ctx), context.Canceled)
		assert.NoError(t, step.Inverse(context.Background()))
		assert.Empty(t, j.entries)
	})
}
