// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity carries persisted component ids from one snapshot of an
// assembly to another by matching components on name and placement.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/metrics"
	"github.com/pdiddy/cadfacts/pkg/types"
)

var (
	// ErrSynchronizationMismatch marks a single source component that could
	// not be matched. It never aborts a run.
	ErrSynchronizationMismatch = errors.New("component not synchronized")

	// ErrSynchronizationAborted marks a run that produced no mapping.
	ErrSynchronizationAborted = errors.New("synchronization aborted")

	errNoMatch = errors.New("no target with equal name and transform")
)

// Options control matching.
type Options struct {
	// Tolerance is the absolute per-entry tolerance for position and
	// rotation. Zero requires exact equality.
	Tolerance float64

	Logger *zap.Logger
}

// Mismatch records one source component left unmatched.
type Mismatch struct {
	SourceID string
	Name     string
	Err      error
}

// Result is the outcome of a synchronization run.
type Result struct {
	// Mapping maps target ids to source ids.
	Mapping map[string]string

	// Order lists mapped target ids in the order they were first matched.
	Order []string

	Mismatches []Mismatch

	// Skipped lists target components whose name or transform could not be
	// read. They are never matched.
	Skipped []string
}

// Matched returns the number of mapped target components.
func (r *Result) Matched() int {
	return len(r.Mapping)
}

type occurrence struct {
	id        string
	name      string
	transform types.Transform
}

// Synchronize matches every source component against the target's
// components. For each source component, in order, the first target
// component (never the target root) with the same display name and an equal
// transform receives the source id. Failures for one component are
// recorded and skipped; failure to enumerate either snapshot aborts.
func Synchronize(ctx context.Context, source, target assembly.Provider, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	src, err := assembly.NewGraph(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: reading source: %w", ErrSynchronizationAborted, err)
	}
	dst, err := assembly.NewGraph(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: reading target: %w", ErrSynchronizationAborted, err)
	}

	res := &Result{Mapping: map[string]string{}}

	candidates := make([]occurrence, 0, dst.Len())
	for _, t := range dst.Components() {
		if t.ID == dst.Root().ID {
			continue
		}
		occ, err := read(ctx, dst, t.ID)
		if err != nil {
			logger.Warn("skipping unreadable target component",
				zap.String("component", t.ID), zap.Error(err))
			res.Skipped = append(res.Skipped, t.ID)
			continue
		}
		candidates = append(candidates, occ)
	}

	for _, s := range src.Components() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSynchronizationAborted, err)
		}

		occ, err := read(ctx, src, s.ID)
		if err != nil {
			res.mismatch(logger, s.ID, s.DisplayName, err)
			continue
		}

		matched := false
		for _, t := range candidates {
			if t.name != occ.name || !t.transform.Equal(occ.transform, opts.Tolerance) {
				continue
			}
			if _, seen := res.Mapping[t.id]; !seen {
				res.Order = append(res.Order, t.id)
			}
			res.Mapping[t.id] = occ.id
			matched = true
			break
		}
		if !matched {
			res.mismatch(logger, s.ID, occ.name, errNoMatch)
		}
	}

	metrics.RecordSync(res.Matched(), len(res.Mismatches))
	logger.Info("synchronization finished",
		zap.Int("matched", res.Matched()),
		zap.Int("mismatched", len(res.Mismatches)),
		zap.Int("skipped_targets", len(res.Skipped)))
	return res, nil
}

func (r *Result) mismatch(logger *zap.Logger, id, name string, err error) {
	err = fmt.Errorf("%s (%s): %w: %w", id, name, ErrSynchronizationMismatch, err)
	logger.Debug("component not synchronized", zap.String("component", id), zap.Error(err))
	r.Mismatches = append(r.Mismatches, Mismatch{SourceID: id, Name: name, Err: err})
}

func read(ctx context.Context, g *assembly.Graph, id string) (occurrence, error) {
	name, err := g.DisplayName(ctx, id)
	if err != nil {
		return occurrence{}, fmt.Errorf("reading name: %w", err)
	}
	tr, err := g.Transform(ctx, id)
	if err != nil {
		return occurrence{}, fmt.Errorf("reading transform: %w", err)
	}
	return occurrence{id: id, name: name, transform: tr}, nil
}

// Apply writes the mapped source ids into the target. Ids are moved through
// temporary values first so that swaps and chains cannot collide. It
// returns the number of components renamed; per-component failures are
// joined into the error.
func Apply(w assembly.IDWriter, res *Result) (int, error) {
	type rename struct{ from, tmp, to string }
	pending := make([]rename, 0, len(res.Order))
	var errs []error

	for _, targetID := range res.Order {
		sourceID := res.Mapping[targetID]
		if sourceID == targetID {
			continue
		}
		tmp := uuid.NewString()
		if err := w.SetID(targetID, tmp); err != nil {
			errs = append(errs, fmt.Errorf("renaming %s: %w", targetID, err))
			continue
		}
		pending = append(pending, rename{from: targetID, tmp: tmp, to: sourceID})
	}

	applied := 0
	for _, r := range pending {
		if err := w.SetID(r.tmp, r.to); err != nil {
			errs = append(errs, fmt.Errorf("renaming %s to %s: %w", r.from, r.to, err))
			// Put the original id back.
			if rerr := w.SetID(r.tmp, r.from); rerr != nil {
				errs = append(errs, fmt.Errorf("restoring %s: %w", r.from, rerr))
			}
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}
