// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package operations

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

func (b *builder) components() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		class := b.base(b.v.Classes.PhysicalComponent)
		for _, c := range b.Graph.Components() {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch.Add(types.ResourceFact(b.component(c.ID), b.rdfType(), class))
		}
		return nil
	}
}

func (b *builder) childComponents() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		pred := b.base(b.v.Predicates.HasSubEntity)
		for _, c := range b.Graph.Components() {
			if err := ctx.Err(); err != nil {
				return err
			}
			children, err := b.Graph.Children(c.ID)
			if err != nil {
				return err
			}
			for _, child := range children {
				batch.Add(types.ResourceFact(b.component(c.ID), pred, b.component(child.ID)))
			}
		}
		return nil
	}
}

func (b *builder) parentComponents() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		pred := b.base(b.v.Predicates.HasSuperEntity)
		for _, c := range b.Graph.Components() {
			if err := ctx.Err(); err != nil {
				return err
			}
			parent, ok, err := b.Graph.Parent(c.ID)
			if err != nil {
				return err
			}
			if ok {
				batch.Add(types.ResourceFact(b.component(c.ID), pred, b.component(parent.ID)))
			}
		}
		return nil
	}
}

func (b *builder) componentNames() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		pred := b.base(b.v.Predicates.HasValueString)
		for _, c := range b.Graph.Components() {
			name, err := b.Graph.DisplayName(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("reading name of %s: %w", c.ID, err)
			}
			attr := b.attribute(batch, b.geo, b.v.Classes.NameInAssembly, b.component(c.ID), true)
			batch.Add(types.StringFact(attr, pred, name))
		}
		return nil
	}
}

// componentPositions places every component origin in the root frame.
// Components without a readable placement are skipped.
func (b *builder) componentPositions() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		unit := b.unit(b.lengthUnit())
		for _, c := range b.Graph.Components() {
			t, err := b.Graph.Transform(ctx, c.ID)
			if errors.Is(err, assembly.ErrMissingTransform) {
				b.Logger.Warn("skipping component without placement", zap.String("component", c.ID))
				continue
			}
			if err != nil {
				return fmt.Errorf("reading placement of %s: %w", c.ID, err)
			}
			attr := b.attribute(batch, b.geo, b.v.Classes.PositionCartesian3D, b.component(c.ID), true)
			b.coordinates(batch, attr, t.Position.X, t.Position.Y, t.Position.Z)
			batch.Add(types.ResourceFact(attr, b.base(b.v.Predicates.HasUnit), unit))
		}
		return nil
	}
}

func (b *builder) coordinates(batch *facts.Batch, attr string, x, y, z float64) {
	p := b.v.Predicates
	batch.Add(types.FloatFact(attr, b.geo(p.HasCoordinateX), x))
	batch.Add(types.FloatFact(attr, b.geo(p.HasCoordinateY), y))
	batch.Add(types.FloatFact(attr, b.geo(p.HasCoordinateZ), z))
}
