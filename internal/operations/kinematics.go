// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package operations

import (
	"context"
	"fmt"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

func (b *builder) links() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		fp, err := b.features()
		if err != nil {
			return err
		}
		links, err := fp.Links(ctx)
		if err != nil {
			return fmt.Errorf("reading links: %w", err)
		}
		p := b.v.Predicates
		class := b.dyn(b.v.Classes.Link)
		for _, l := range links {
			link := b.dyn(l.ID)
			batch.Add(types.ResourceFact(link, b.rdfType(), class))
			for _, id := range l.ComponentIDs {
				batch.Add(types.ResourceFact(link, b.base(p.IsAttributeOf), b.component(id)))
				batch.Add(types.ResourceFact(b.component(id), b.base(p.HasAttribute), link))
			}
		}
		return nil
	}
}

func (b *builder) joints() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		fp, err := b.features()
		if err != nil {
			return err
		}
		joints, err := fp.Joints(ctx)
		if err != nil {
			return fmt.Errorf("reading joints: %w", err)
		}
		p := b.v.Predicates
		class := b.dyn(b.v.Classes.Joint)
		for _, j := range joints {
			joint := b.dyn(j.ID)
			batch.Add(types.ResourceFact(joint, b.rdfType(), class))
			for _, id := range j.LinkIDs {
				batch.Add(types.ResourceFact(joint, b.base(p.HasSubAttribute), b.dyn(id)))
				batch.Add(types.ResourceFact(b.dyn(id), b.base(p.HasSuperAttribute), joint))
			}
		}
		return nil
	}
}

// mechanicalConnections writes one connection per connector component. The
// connector realizes the connection, and each connected component carries
// it as an attribute.
func (b *builder) mechanicalConnections() orchestrator.RunFunc {
	return func(ctx context.Context, batch *facts.Batch) error {
		fp, err := b.features()
		if err != nil {
			return err
		}
		connectors, err := fp.Connectors(ctx)
		if err != nil {
			return fmt.Errorf("reading connectors: %w", err)
		}
		p := b.v.Predicates
		class := b.assem(b.v.Classes.MechanicalConnection)
		for _, c := range connectors {
			conn := b.assem(b.v.Classes.MechanicalConnection + "-" + b.NewID())
			connector := b.component(c.ComponentID)

			batch.Add(types.ResourceFact(conn, b.rdfType(), class))
			batch.Add(types.ResourceFact(conn, b.assem(p.IsRealizedBy), connector))
			batch.Add(types.ResourceFact(connector, b.assem(p.IsRealizationOf), conn))
			batch.Add(types.ResourceFact(conn, b.base(p.HasReferenceTo), b.root()))
			batch.Add(types.ResourceFact(b.root(), b.base(p.IsReferenceOf), conn))
			for _, id := range c.ConnectedIDs {
				batch.Add(types.ResourceFact(b.component(id), b.base(p.HasAttribute), conn))
				batch.Add(types.ResourceFact(conn, b.base(p.IsAttributeOf), b.component(id)))
			}
		}
		return nil
	}
}
