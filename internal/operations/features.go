// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package operations

import (
	"context"
	"fmt"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// holes returns every hole in the assembly in component pre-order.
func (b *builder) holes(ctx context.Context) ([]types.Hole, error) {
	fp, err := b.features()
	if err != nil {
		return nil, err
	}
	var all []types.Hole
	for _, c := range b.Graph.Components() {
		hs, err := fp.Holes(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("reading holes of %s: %w", c.ID, err)
		}
		all = append(all, hs...)
	}
	return all, nil
}

func (b *builder) hole(h types.Hole) string { return b.geo(h.ID) }

func (b *builder) holeFeatures() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		holes, err := b.holes(ctx)
		if err != nil {
			return err
		}
		if len(holes) == 0 {
			return orchestrator.Fatal(ErrNoHoles)
		}
		p := b.v.Predicates
		class := b.geo(b.v.Classes.HoleFeature)
		for _, h := range holes {
			comp := b.component(h.ComponentID)
			batch.Add(types.ResourceFact(b.hole(h), b.rdfType(), class))
			batch.Add(types.ResourceFact(comp, b.base(p.HasSubEntity), b.hole(h)))
			batch.Add(types.ResourceFact(b.hole(h), b.base(p.HasSuperEntity), comp))
		}
		return nil
	}
}

// eachHole is the shared body of the hole detail operations, which all read
// hole individuals written by hole-features.
func (b *builder) eachHole(fn func(*facts.Batch, types.Hole)) orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		if err := b.require(ctx, HoleFeatures); err != nil {
			return err
		}
		holes, err := b.holes(ctx)
		if err != nil {
			return err
		}
		for _, h := range holes {
			fn(batch, h)
		}
		return nil
	}
}

func (b *builder) holePositions() orchestrator.RunFunc {
	unit := b.unit(b.lengthUnit())
	return b.eachHole(func(batch *facts.Batch, h types.Hole) {
		attr := b.attribute(batch, b.geo, b.v.Classes.PositionCartesian3D, b.hole(h), true)
		b.coordinates(batch, attr, h.Position.X, h.Position.Y, h.Position.Z)
		batch.Add(types.ResourceFact(attr, b.base(b.v.Predicates.HasUnit), unit))
	})
}

func (b *builder) holeDirections() orchestrator.RunFunc {
	return b.eachHole(func(batch *facts.Batch, h types.Hole) {
		p := b.v.Predicates
		attr := b.attribute(batch, b.geo, b.v.Classes.Direction, b.hole(h), true)
		batch.Add(types.FloatFact(attr, b.geo(p.HasDirectionX), h.Direction.X))
		batch.Add(types.FloatFact(attr, b.geo(p.HasDirectionY), h.Direction.Y))
		batch.Add(types.FloatFact(attr, b.geo(p.HasDirectionZ), h.Direction.Z))
	})
}

func (b *builder) holeExpressions() orchestrator.RunFunc {
	return b.eachHole(func(batch *facts.Batch, h types.Hole) {
		p := b.v.Predicates
		for _, e := range h.Expressions {
			attr := b.attribute(batch, b.geo, b.v.Classes.HoleExpression, b.hole(h), false)
			batch.Add(types.StringFact(attr, b.base(p.HasValueString), e.Name))
			batch.Add(types.FloatFact(attr, b.base(p.HasValueFloat), e.Value))
			if e.Unit != "" {
				batch.Add(types.ResourceFact(attr, b.base(p.HasUnit), b.unit(e.Unit)))
			}
		}
	})
}
