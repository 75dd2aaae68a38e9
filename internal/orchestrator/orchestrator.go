// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator runs registered extraction operations. A full run
// makes two passes: operations that fail in the first pass are deferred and
// retried exactly once after every other operation has had its turn.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/metrics"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// State is the lifecycle position of one operation in one invocation.
type State int

const (
	NotRun State = iota
	Deferred
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Deferred:
		return "deferred"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "not-run"
	}
}

// Outcome is the final result of one operation.
type Outcome struct {
	Name  string
	State State

	// Deferred is true when the first attempt failed and the operation was
	// retried in the second pass.
	Deferred bool

	Attempts int

	// DeferReason is the error of the first attempt of a deferred operation.
	DeferReason error

	// Err is set when State is Failed and wraps ErrOperationFailed.
	Err error

	// Facts is the number of facts committed.
	Facts int

	Duration time.Duration
}

// Summary holds outcome counts of one invocation.
type Summary struct {
	Succeeded int
	Retried   int
	Failed    int
}

// Total returns the number of operations run.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

// HasFailures reports whether any operation failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Summarize counts outcomes. Retried counts succeeded operations that
// needed the second pass.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.State {
		case Succeeded:
			s.Succeeded++
			if o.Deferred {
				s.Retried++
			}
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Committer receives the staged facts of a successful attempt.
// facts.Store satisfies it.
type Committer interface {
	Commit(ctx context.Context, operation string, facts []types.Fact) error
}

// Config holds orchestrator settings.
type Config struct {
	Logger *zap.Logger

	// Progress receives one status line per attempt. Nil discards them.
	Progress io.Writer
}

// Orchestrator executes operations from a registry one at a time. It is the
// only writer of its progress state; Progress may be polled from another
// goroutine.
type Orchestrator struct {
	reg      *Registry
	sink     Committer
	logger   *zap.Logger
	progress io.Writer

	mu    sync.Mutex
	index int
	count int
}

// New returns an orchestrator that commits to sink.
func New(reg *Registry, sink Committer, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := cfg.Progress
	if progress == nil {
		progress = io.Discard
	}
	return &Orchestrator{reg: reg, sink: sink, logger: logger, progress: progress}
}

// Progress returns the number of operations settled and the number of
// operations in the current invocation.
func (o *Orchestrator) Progress() (index, count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.index, o.count
}

// Percent returns progress as a whole percentage, 0 when nothing is
// scheduled.
func (o *Orchestrator) Percent() int {
	index, count := o.Progress()
	if count == 0 {
		return 0
	}
	return index * 100 / count
}

func (o *Orchestrator) begin(count int) {
	o.mu.Lock()
	o.index, o.count = 0, count
	o.mu.Unlock()
}

func (o *Orchestrator) settle() {
	o.mu.Lock()
	o.index++
	o.mu.Unlock()
}

// RunAll runs every registered operation in registration order, defers the
// ones that fail, and retries each deferred operation once in deferral
// order. Outcomes are returned in registration order.
func (o *Orchestrator) RunAll(ctx context.Context) []Outcome {
	start := time.Now()
	ops := o.reg.Operations()
	o.begin(len(ops))

	outcomes := make([]Outcome, len(ops))
	var deferred []int

	for i, op := range ops {
		out := &outcomes[i]
		out.Name = op.Name
		if err := ctx.Err(); err != nil {
			o.fail(out, err)
			continue
		}

		n, elapsed, err := o.attempt(ctx, op)
		out.Attempts++
		out.Duration += elapsed
		switch {
		case err == nil:
			o.succeed(out, n, "OK")
		case IsFatal(err):
			o.fail(out, err)
		default:
			out.State = Deferred
			out.Deferred = true
			out.DeferReason = err
			deferred = append(deferred, i)
			metrics.RecordDeferral(op.Name)
			o.logger.Debug("operation deferred", zap.String("operation", op.Name), zap.Error(err))
			fmt.Fprintf(o.progress, "pending   %s\n", op.Name)
		}
	}

	for _, i := range deferred {
		out := &outcomes[i]
		if err := ctx.Err(); err != nil {
			o.fail(out, err)
			continue
		}

		op := ops[i]
		n, elapsed, err := o.attempt(ctx, op)
		out.Attempts++
		out.Duration += elapsed
		if err != nil {
			o.fail(out, err)
			continue
		}
		o.succeed(out, n, "OK (retry)")
	}

	o.finish("all", start, outcomes)
	return outcomes
}

// RunSelected runs the named operations in the given order, one attempt
// each and without deferral. Unknown names fail with ErrUnknownOperation.
func (o *Orchestrator) RunSelected(ctx context.Context, names []string) []Outcome {
	start := time.Now()
	o.begin(len(names))

	outcomes := make([]Outcome, len(names))
	for i, name := range names {
		out := &outcomes[i]
		out.Name = name

		op, ok := o.reg.Get(name)
		if !ok {
			o.fail(out, ErrUnknownOperation)
			continue
		}
		if err := ctx.Err(); err != nil {
			o.fail(out, err)
			continue
		}

		n, elapsed, err := o.attempt(ctx, op)
		out.Attempts++
		out.Duration += elapsed
		if err != nil {
			o.fail(out, err)
			continue
		}
		o.succeed(out, n, "OK")
	}

	o.finish("selected", start, outcomes)
	return outcomes
}

// attempt runs op once and commits its facts on success.
func (o *Orchestrator) attempt(ctx context.Context, op Operation) (n int, elapsed time.Duration, err error) {
	start := time.Now()
	b := facts.NewBatch(op.Name)

	err = invoke(ctx, op, b)
	if err == nil {
		if cerr := o.sink.Commit(ctx, op.Name, b.Facts()); cerr != nil {
			err = fmt.Errorf("committing facts: %w", cerr)
		}
	}

	elapsed = time.Since(start)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	metrics.RecordAttempt(op.Name, status, elapsed)

	if err != nil {
		return 0, elapsed, err
	}
	metrics.RecordFacts(op.Name, b.Len())
	return b.Len(), elapsed, nil
}

// invoke calls op.Run, turning a panic into a fatal error.
func invoke(ctx context.Context, op Operation, b *facts.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Fatal(fmt.Errorf("panic: %v", r))
		}
	}()
	return op.Run(ctx, b)
}

func (o *Orchestrator) succeed(out *Outcome, n int, label string) {
	out.State = Succeeded
	out.Facts = n
	out.Err = nil
	o.settle()
	o.logger.Info("operation succeeded",
		zap.String("operation", out.Name),
		zap.Int("facts", n),
		zap.Int("attempts", out.Attempts))
	fmt.Fprintf(o.progress, "%-9s %s (%d facts)\n", label, out.Name, n)
}

func (o *Orchestrator) fail(out *Outcome, err error) {
	out.State = Failed
	out.Err = fmt.Errorf("%s: %w: %w", out.Name, ErrOperationFailed, err)
	o.settle()
	o.logger.Warn("operation failed",
		zap.String("operation", out.Name),
		zap.Int("attempts", out.Attempts),
		zap.Error(err))
	fmt.Fprintf(o.progress, "N/A       %s: %v\n", out.Name, err)
}

func (o *Orchestrator) finish(mode string, start time.Time, outcomes []Outcome) {
	elapsed := time.Since(start)
	metrics.RecordSession(mode, elapsed)

	s := Summarize(outcomes)
	o.logger.Info("extraction finished",
		zap.String("mode", mode),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("retried", s.Retried),
		zap.Int("failed", s.Failed),
		zap.Duration("elapsed", elapsed))
	fmt.Fprintf(o.progress, "\nsucceeded: %d (retried: %d), failed: %d\n", s.Succeeded, s.Retried, s.Failed)
}
