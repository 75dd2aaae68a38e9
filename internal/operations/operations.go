// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package operations defines the extraction operations that turn an
// assembly snapshot into facts. Register wires them into an orchestrator
// registry in their canonical order.
package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/aggregate"
	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// Operation names.
const (
	Components            = "components"
	ChildComponents       = "child-components"
	ParentComponents      = "parent-components"
	ComponentNames        = "component-names"
	ComponentPositions    = "component-positions"
	BoundingBoxes         = "bounding-boxes"
	Mass                  = "mass"
	MomentsOfInertia      = "moments-of-inertia"
	HoleFeatures          = "hole-features"
	HolePositions         = "hole-positions"
	HoleDirections        = "hole-directions"
	HoleExpressions       = "hole-expressions"
	Links                 = "links"
	Joints                = "joints"
	MechanicalConnections = "mechanical-connections"
)

// ErrNoHoles is returned when the assembly has no hole features.
var ErrNoHoles = errors.New("assembly has no hole features")

// Deps are the collaborators every operation reads from.
type Deps struct {
	Graph  *assembly.Graph
	Engine *aggregate.Engine

	// Store answers which operations have committed.
	Store orchestrator.CompletionReader

	Vocabulary types.VocabularyConfig
	Logger     *zap.Logger

	// NewID names attribute individuals. Defaults to random UUIDs.
	NewID func() string
}

type entry struct {
	name        string
	description string
	run         func(*builder) orchestrator.RunFunc
}

// catalogue lists operations in canonical order: classes first, then
// datatype properties, then object properties.
var catalogue = []entry{
	{Components, "component individuals", (*builder).components},
	{HoleFeatures, "hole feature individuals", (*builder).holeFeatures},
	{Links, "kinematic link individuals", (*builder).links},
	{Joints, "kinematic joint individuals", (*builder).joints},
	{MechanicalConnections, "connections realized by connector components", (*builder).mechanicalConnections},
	{ComponentNames, "display names", (*builder).componentNames},
	{ComponentPositions, "component origins in the root frame", (*builder).componentPositions},
	{BoundingBoxes, "relational bounding boxes, aggregated where missing", (*builder).boundingBoxes},
	{Mass, "component masses, aggregated where partial", (*builder).mass},
	{MomentsOfInertia, "principal moments of inertia in the mass center", (*builder).momentsOfInertia},
	{HolePositions, "hole positions", (*builder).holePositions},
	{HoleDirections, "hole axis directions", (*builder).holeDirections},
	{HoleExpressions, "hole parameters", (*builder).holeExpressions},
	{ChildComponents, "parent to child edges", (*builder).childComponents},
	{ParentComponents, "child to parent edges", (*builder).parentComponents},
}

// Names returns every operation name in canonical order.
func Names() []string {
	names := make([]string, len(catalogue))
	for i, e := range catalogue {
		names[i] = e.name
	}
	return names
}

// Description returns the one-line description of the named operation.
func Description(name string) string {
	for _, e := range catalogue {
		if e.name == name {
			return e.description
		}
	}
	return ""
}

// Register adds every operation to reg in canonical order.
func Register(reg *orchestrator.Registry, d Deps) error {
	if d.Graph == nil || d.Engine == nil || d.Store == nil {
		return fmt.Errorf("operations need a graph, an engine and a store")
	}
	b := newBuilder(d)
	for _, e := range catalogue {
		if err := reg.Register(e.name, e.description, e.run(b)); err != nil {
			return err
		}
	}
	return nil
}

// builder holds shared state and IRI helpers for the operations.
type builder struct {
	Deps
	v types.VocabularyConfig
}

func newBuilder(d Deps) *builder {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &builder{Deps: d, v: d.Vocabulary}
}

func (b *builder) base(local string) string  { return types.IRI(b.v.Namespaces.Base, local) }
func (b *builder) geo(local string) string   { return types.IRI(b.v.Namespaces.Geometry, local) }
func (b *builder) dyn(local string) string   { return types.IRI(b.v.Namespaces.Dynamics, local) }
func (b *builder) assem(local string) string { return types.IRI(b.v.Namespaces.Assembly, local) }
func (b *builder) rdfType() string           { return types.IRI(b.v.Namespaces.RDF, b.v.Predicates.Type) }

func (b *builder) component(id string) string { return b.base(id) }
func (b *builder) root() string               { return b.component(b.Graph.Root().ID) }

func (b *builder) unit(unit string) string {
	return types.IRI(b.v.Namespaces.Units, b.v.UnitName(unit))
}

// attribute stages a new attribute individual of class (in namespace ns)
// attached to owner and returns its IRI. Attributes located in the root
// frame also reference the root component.
func (b *builder) attribute(batch *facts.Batch, ns func(string) string, class, owner string, rootFrame bool) string {
	p := b.v.Predicates
	id := ns(class + "-" + b.NewID())

	batch.Add(types.ResourceFact(id, b.rdfType(), ns(class)))
	batch.Add(types.ResourceFact(owner, b.base(p.HasAttribute), id))
	batch.Add(types.ResourceFact(id, b.base(p.IsAttributeOf), owner))
	if rootFrame {
		batch.Add(types.ResourceFact(id, b.base(p.HasReferenceTo), b.root()))
		batch.Add(types.ResourceFact(b.root(), b.base(p.IsReferenceOf), id))
	}
	return id
}

func (b *builder) features() (assembly.FeatureProvider, error) {
	fp, ok := b.Graph.Features()
	if !ok {
		return nil, orchestrator.Fatal(assembly.ErrNoFeatures)
	}
	return fp, nil
}

func (b *builder) lengthUnit() string {
	if fp, ok := b.Graph.Features(); ok {
		return fp.LengthUnit()
	}
	return "mm"
}

func (b *builder) require(ctx context.Context, ops ...string) error {
	return orchestrator.Require(ctx, b.Store, ops...)
}
