// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// --- test helpers ---

type counter map[string]int

func testSetup(t *testing.T) (*Registry, *facts.MemoryStore, counter) {
	t.Helper()
	return NewRegistry(), facts.NewMemoryStore(0), counter{}
}

// always succeeds and emits one fact.
func opA(calls counter) RunFunc {
	return func(_ context.Context, b *facts.Batch) error {
		calls["A"]++
		b.Add(types.ResourceFact("a", "is", "done"))
		return nil
	}
}

// succeeds only once A has committed.
func opB(calls counter, store *facts.MemoryStore) RunFunc {
	return func(ctx context.Context, b *facts.Batch) error {
		calls["B"]++
		b.Add(types.ResourceFact("b", "is", "done"))
		return Require(ctx, store, "A")
	}
}

// always fails.
func opC(calls counter) RunFunc {
	return func(_ context.Context, b *facts.Batch) error {
		calls["C"]++
		b.Add(types.ResourceFact("c", "is", "staged"))
		return errors.New("no hole features")
	}
}

func byName(outcomes []Outcome) map[string]Outcome {
	m := map[string]Outcome{}
	for _, o := range outcomes {
		m[o.Name] = o
	}
	return m
}

// --- tests ---

func TestRunAll_DefersAndRetries(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("B", "", opB(calls, store)))
	require.NoError(t, reg.Register("A", "", opA(calls)))

	var progress bytes.Buffer
	o := New(reg, store, Config{Progress: &progress})
	outcomes := o.RunAll(context.Background())

	require.Len(t, outcomes, 2)
	assert.Equal(t, []string{"B", "A"}, []string{outcomes[0].Name, outcomes[1].Name})

	got := byName(outcomes)
	assert.Equal(t, Succeeded, got["A"].State)
	assert.False(t, got["A"].Deferred)
	assert.Equal(t, 1, got["A"].Attempts)

	assert.Equal(t, Succeeded, got["B"].State)
	assert.True(t, got["B"].Deferred)
	assert.Equal(t, 2, got["B"].Attempts)
	assert.ErrorIs(t, got["B"].DeferReason, ErrPrecondition)
	assert.NoError(t, got["B"].Err)

	// B's first attempt staged a fact that must not have been stored twice.
	stored, err := store.Retrieve(context.Background(), facts.QueryOptions{Subject: "b"})
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	assert.Contains(t, progress.String(), "pending   B")
	assert.Contains(t, progress.String(), "OK (retry) B")

	s := Summarize(outcomes)
	assert.Equal(t, Summary{Succeeded: 2, Retried: 1}, s)
	assert.False(t, s.HasFailures())
}

func TestRunAll_FailsAfterExactlyTwoAttempts(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("C", "", opC(calls)))
	require.NoError(t, reg.Register("A", "", opA(calls)))

	outcomes := New(reg, store, Config{}).RunAll(context.Background())

	c := byName(outcomes)["C"]
	assert.Equal(t, Failed, c.State)
	assert.Equal(t, 2, c.Attempts)
	assert.Equal(t, 2, calls["C"])
	assert.ErrorIs(t, c.Err, ErrOperationFailed)
	assert.True(t, c.Deferred)

	// Facts of failed attempts are discarded.
	stored, err := store.Retrieve(context.Background(), facts.QueryOptions{Subject: "c"})
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.Equal(t, Summary{Succeeded: 1, Failed: 1}, Summarize(outcomes))
}

func TestRunAll_DependencyOnFailedOperationAlsoFails(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("D", "", func(ctx context.Context, _ *facts.Batch) error {
		calls["D"]++
		return Require(ctx, store, "C")
	}))
	require.NoError(t, reg.Register("C", "", opC(calls)))

	outcomes := New(reg, store, Config{}).RunAll(context.Background())
	got := byName(outcomes)
	assert.Equal(t, Failed, got["C"].State)
	assert.Equal(t, Failed, got["D"].State)
	assert.Equal(t, 2, calls["D"])
}

func TestRunAll_FatalIsNotDeferred(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("F", "", func(context.Context, *facts.Batch) error {
		calls["F"]++
		return Fatal(errors.New("unsupported provider"))
	}))

	outcomes := New(reg, store, Config{}).RunAll(context.Background())
	assert.Equal(t, Failed, outcomes[0].State)
	assert.False(t, outcomes[0].Deferred)
	assert.Equal(t, 1, calls["F"])
}

func TestRunAll_RecoversPanics(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("P", "", func(context.Context, *facts.Batch) error {
		panic("index out of range")
	}))
	require.NoError(t, reg.Register("A", "", opA(calls)))

	outcomes := New(reg, store, Config{}).RunAll(context.Background())
	got := byName(outcomes)
	assert.Equal(t, Failed, got["P"].State)
	assert.Equal(t, 1, got["P"].Attempts)
	assert.Equal(t, Succeeded, got["A"].State)
}

// failingCommitter rejects every commit.
type failingCommitter struct{}

func (failingCommitter) Commit(context.Context, string, []types.Fact) error {
	return errors.New("disk full")
}

func TestRunAll_CommitFailureIsRetriedOnce(t *testing.T) {
	reg, _, calls := testSetup(t)
	require.NoError(t, reg.Register("A", "", opA(calls)))

	outcomes := New(reg, failingCommitter{}, Config{}).RunAll(context.Background())
	assert.Equal(t, Failed, outcomes[0].State)
	assert.Equal(t, 2, calls["A"])
}

func TestRunAll_CancelledContext(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("A", "", opA(calls)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := New(reg, store, Config{}).RunAll(ctx)
	assert.Equal(t, Failed, outcomes[0].State)
	assert.Equal(t, 0, outcomes[0].Attempts)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
	assert.Zero(t, calls["A"])
}

func TestRunSelected_NoDeferral(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("A", "", opA(calls)))
	require.NoError(t, reg.Register("C", "", opC(calls)))

	outcomes := New(reg, store, Config{}).RunSelected(context.Background(), []string{"C"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, Failed, outcomes[0].State)
	assert.Equal(t, 1, outcomes[0].Attempts)
	assert.False(t, outcomes[0].Deferred)
	assert.Equal(t, 1, calls["C"])
	assert.Zero(t, calls["A"])
}

func TestRunSelected_OrderAndUnknownNames(t *testing.T) {
	reg, store, calls := testSetup(t)
	require.NoError(t, reg.Register("A", "", opA(calls)))
	require.NoError(t, reg.Register("B", "", opB(calls, store)))

	// B before A fails because selective mode never defers.
	outcomes := New(reg, store, Config{}).RunSelected(context.Background(), []string{"B", "nope", "A"})

	require.Len(t, outcomes, 3)
	assert.Equal(t, Failed, outcomes[0].State)
	assert.ErrorIs(t, outcomes[1].Err, ErrUnknownOperation)
	assert.Equal(t, Succeeded, outcomes[2].State)
	assert.Equal(t, 1, outcomes[2].Facts)
}

func TestProgress(t *testing.T) {
	reg, store, calls := testSetup(t)
	o := New(reg, store, Config{})

	index, count := o.Progress()
	assert.Equal(t, 0, index)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, o.Percent())

	var seen [][2]int
	observe := func(context.Context, *facts.Batch) error {
		i, c := o.Progress()
		seen = append(seen, [2]int{i, c})
		return nil
	}
	require.NoError(t, reg.Register("C", "", opC(calls)))
	require.NoError(t, reg.Register("X", "", observe))
	require.NoError(t, reg.Register("Y", "", observe))

	o.RunAll(context.Background())

	// C is deferred and not yet settled when X and Y run.
	assert.Equal(t, [][2]int{{0, 3}, {1, 3}}, seen)
	index, count = o.Progress()
	assert.Equal(t, 3, index)
	assert.Equal(t, 3, count)
	assert.Equal(t, 100, o.Percent())

	// A new invocation resets progress.
	seen = nil
	o.RunSelected(context.Background(), []string{"X"})
	assert.Equal(t, [][2]int{{0, 1}}, seen)
	assert.Equal(t, 100, o.Percent())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("components", "component individuals", opA(counter{})))
	require.NoError(t, reg.Register("mass", "", opA(counter{})))

	assert.ErrorIs(t, reg.Register("mass", "", opA(counter{})), ErrDuplicateOperation)
	assert.Error(t, reg.Register("", "", opA(counter{})))
	assert.Error(t, reg.Register("nil-run", "", nil))

	assert.Equal(t, []string{"components", "mass"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Has("mass"))

	op, ok := reg.Get("components")
	require.True(t, ok)
	assert.Equal(t, "component individuals", op.Description)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not-run", NotRun.String())
	assert.Equal(t, "deferred", Deferred.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
}
