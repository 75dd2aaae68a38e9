// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package operations

import (
	"context"
	"fmt"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// boundingBoxes writes one relational bounding box per component that has
// geometry, directly or through its descendants. Components without any
// geometry get no box.
func (b *builder) boundingBoxes() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		if err := b.require(ctx, ChildComponents); err != nil {
			return err
		}
		p := b.v.Predicates
		unit := b.unit(b.lengthUnit())
		for _, c := range b.Graph.Components() {
			bounds, err := b.Engine.BoundingBox(ctx, c.ID)
			if err != nil {
				return err
			}
			if bounds.Empty() {
				continue
			}
			attr := b.attribute(batch, b.geo, b.v.Classes.RelationalBoundingBox, b.component(c.ID), true)
			box := bounds.Box
			batch.Add(types.FloatFact(attr, b.geo(p.HasMinimumCoordinateX), box.Min.X))
			batch.Add(types.FloatFact(attr, b.geo(p.HasMinimumCoordinateY), box.Min.Y))
			batch.Add(types.FloatFact(attr, b.geo(p.HasMinimumCoordinateZ), box.Min.Z))
			batch.Add(types.FloatFact(attr, b.geo(p.HasMaximumCoordinateX), box.Max.X))
			batch.Add(types.FloatFact(attr, b.geo(p.HasMaximumCoordinateY), box.Max.Y))
			batch.Add(types.FloatFact(attr, b.geo(p.HasMaximumCoordinateZ), box.Max.Z))
			batch.Add(types.ResourceFact(attr, b.base(p.HasUnit), unit))
		}
		return nil
	}
}

func (b *builder) mass() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		if err := b.require(ctx, ChildComponents); err != nil {
			return err
		}
		p := b.v.Predicates
		unit := b.unit(b.Engine.MassUnit())
		for _, c := range b.Graph.Components() {
			rec, err := b.Engine.Mass(ctx, c.ID)
			if err != nil {
				return err
			}
			attr := b.attribute(batch, b.dyn, b.v.Classes.Mass, b.component(c.ID), false)
			batch.Add(types.FloatFact(attr, b.base(p.HasValueFloat), rec.Mass))
			batch.Add(types.ResourceFact(attr, b.base(p.HasUnit), unit))
		}
		return nil
	}
}

// momentsOfInertia skips components whose moments are all zero.
func (b *builder) momentsOfInertia() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		fp, err := b.features()
		if err != nil {
			return err
		}
		p := b.v.Predicates
		for _, c := range b.Graph.Components() {
			in, ok, err := fp.Inertia(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("reading inertia of %s: %w", c.ID, err)
			}
			if !ok || in.IsZero() {
				continue
			}
			attr := b.attribute(batch, b.dyn, b.v.Classes.MomentOfInertia, b.component(c.ID), false)
			batch.Add(types.FloatFact(attr, b.dyn(p.HasInertiaMassCenterX), in.Moments.X))
			batch.Add(types.FloatFact(attr, b.dyn(p.HasInertiaMassCenterY), in.Moments.Y))
			batch.Add(types.FloatFact(attr, b.dyn(p.HasInertiaMassCenterZ), in.Moments.Z))
			batch.Add(types.ResourceFact(attr, b.base(p.HasUnit), b.unit(in.Unit)))
		}
		return nil
	}
}
