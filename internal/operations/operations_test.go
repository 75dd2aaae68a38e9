// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package operations

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cadfacts/internal/aggregate"
	"github.com/pdiddy/cadfacts/internal/assembly"
	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/orchestrator"
	"github.com/pdiddy/cadfacts/pkg/types"
)

const pumpYAML = `
name: pump
length_unit: mm
root:
  id: asm
  name: Pump
  children:
    - id: housing
      name: Housing
      position: [0, 0, 0]
      bounds: [0, 0, 0, 2, 2, 2]
      mass: 3.0
      inertia: [1, 2, 3]
      holes:
        - id: h1
          position: [1, 1, 2]
          direction: [0, 0, -1]
          expressions:
            - {name: diameter, value: 5, unit: mm}
    - id: shaft
      name: Shaft
      position: [10, 0, 0]
      bounds: [10, 0, 0, 12, 1, 1]
      mass: 2.0
      inertia: [0, 0, 0]
    - id: cover
      name: Cover
links:
  - id: L1
    component_ids: [shaft]
joints:
  - id: J1
    link_ids: [L1]
connectors:
  - component_id: housing
    connected_ids: [shaft]
`

// --- test helpers ---

type fixture struct {
	reg   *orchestrator.Registry
	store *facts.MemoryStore
	v     types.VocabularyConfig
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func setup(t *testing.T, yaml string, wrap func(*assembly.Snapshot) assembly.Provider) *fixture {
	t.Helper()
	ctx := context.Background()

	snap, err := assembly.ParseSnapshot([]byte(yaml))
	require.NoError(t, err)
	var p assembly.Provider = snap
	if wrap != nil {
		p = wrap(snap)
	}

	g, err := assembly.NewGraph(ctx, p)
	require.NoError(t, err)
	eng, err := aggregate.NewEngine(g, aggregate.Config{MassUnit: "kg"})
	require.NoError(t, err)

	f := &fixture{
		reg:   orchestrator.NewRegistry(),
		store: facts.NewMemoryStore(100000),
		v:     types.DefaultVocabulary(),
	}
	require.NoError(t, Register(f.reg, Deps{
		Graph:      g,
		Engine:     eng,
		Store:      f.store,
		Vocabulary: f.v,
		NewID:      sequentialIDs(),
	}))
	return f
}

// withoutFeatures hides the snapshot's feature view.
func withoutFeatures(s *assembly.Snapshot) assembly.Provider {
	return struct{ assembly.Provider }{s}
}

func (f *fixture) base(local string) string { return types.IRI(f.v.Namespaces.Base, local) }
func (f *fixture) geo(local string) string  { return types.IRI(f.v.Namespaces.Geometry, local) }
func (f *fixture) dyn(local string) string  { return types.IRI(f.v.Namespaces.Dynamics, local) }
func (f *fixture) rdfType() string          { return types.IRI(f.v.Namespaces.RDF, f.v.Predicates.Type) }

func (f *fixture) query(t *testing.T, q facts.QueryOptions) []types.Fact {
	t.Helper()
	got, err := f.store.Retrieve(context.Background(), q)
	require.NoError(t, err)
	return got
}

// attributes returns the attribute individuals of owner typed with class.
func (f *fixture) attributes(t *testing.T, owner, class string) []string {
	t.Helper()
	var out []string
	for _, a := range f.query(t, facts.QueryOptions{Subject: owner, Predicate: f.base(f.v.Predicates.HasAttribute)}) {
		typed := f.query(t, facts.QueryOptions{Subject: a.Object, Predicate: f.rdfType(), Object: class})
		if len(typed) > 0 {
			out = append(out, a.Object)
		}
	}
	return out
}

func (f *fixture) float(t *testing.T, subject, predicate string) float64 {
	t.Helper()
	got := f.query(t, facts.QueryOptions{Subject: subject, Predicate: predicate})
	require.Len(t, got, 1, "%s %s", subject, predicate)
	v, err := got[0].Float()
	require.NoError(t, err)
	return v
}

func (f *fixture) object(t *testing.T, subject, predicate string) string {
	t.Helper()
	got := f.query(t, facts.QueryOptions{Subject: subject, Predicate: predicate})
	require.Len(t, got, 1, "%s %s", subject, predicate)
	return got[0].Object
}

func (f *fixture) runAll(t *testing.T) map[string]orchestrator.Outcome {
	t.Helper()
	outcomes := orchestrator.New(f.reg, f.store, orchestrator.Config{}).RunAll(context.Background())
	m := map[string]orchestrator.Outcome{}
	for _, o := range outcomes {
		m[o.Name] = o
	}
	return m
}

// --- tests ---

func TestRegister_CanonicalOrder(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	assert.Equal(t, Names(), f.reg.Names())
	assert.Equal(t, 15, f.reg.Len())
	assert.Equal(t, Components, f.reg.Names()[0])
}

func TestRegister_RequiresDeps(t *testing.T) {
	assert.Error(t, Register(orchestrator.NewRegistry(), Deps{}))
}

func TestRunAll_EveryOperationSucceeds(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	got := f.runAll(t)

	for _, name := range Names() {
		assert.Equal(t, orchestrator.Succeeded, got[name].State, "%s: %v", name, got[name].Err)
	}

	// Both read the hierarchy edges committed by child-components, which
	// registers last.
	assert.True(t, got[BoundingBoxes].Deferred)
	assert.True(t, got[Mass].Deferred)
	assert.False(t, got[HolePositions].Deferred)
	assert.False(t, got[Components].Deferred)
}

func TestComponents(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	typed := f.query(t, facts.QueryOptions{Predicate: f.rdfType(), Object: f.base("PhysicalComponent")})
	assert.Len(t, typed, 4)

	children := f.query(t, facts.QueryOptions{Subject: f.base("asm"), Predicate: f.base("hasSubEntity")})
	assert.Len(t, children, 3)
	assert.Equal(t, f.base("housing"), children[0].Object)

	assert.Equal(t, f.base("asm"), f.object(t, f.base("cover"), f.base("hasSuperEntity")))
	assert.Empty(t, f.query(t, facts.QueryOptions{Subject: f.base("asm"), Predicate: f.base("hasSuperEntity")}))
}

func TestComponentNames(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	names := f.attributes(t, f.base("shaft"), f.geo("NameInAssembly"))
	require.Len(t, names, 1)
	attr := names[0]

	got := f.query(t, facts.QueryOptions{Subject: attr, Predicate: f.base("hasValueString")})
	require.Len(t, got, 1)
	assert.Equal(t, "Shaft", got[0].Object)
	assert.Equal(t, types.DatatypeString, got[0].Datatype)

	assert.Equal(t, f.base("shaft"), f.object(t, attr, f.base("isAttributeOf")))
	assert.Equal(t, f.base("asm"), f.object(t, attr, f.base("hasReferenceTo")))
	assert.NotEmpty(t, f.query(t, facts.QueryOptions{Subject: f.base("asm"), Predicate: f.base("isReferenceOf"), Object: attr}))
}

func TestComponentPositions(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	pos := f.attributes(t, f.base("shaft"), f.geo("PositionCartesian3D"))
	require.Len(t, pos, 1)
	assert.Equal(t, 10.0, f.float(t, pos[0], f.geo("hasCoordinateX")))
	assert.Equal(t, 0.0, f.float(t, pos[0], f.geo("hasCoordinateY")))
	assert.Equal(t, 0.0, f.float(t, pos[0], f.geo("hasCoordinateZ")))
	assert.Equal(t, types.IRI(f.v.Namespaces.Units, "milli_meter"), f.object(t, pos[0], f.base("hasUnit")))

	// cover has no placement.
	assert.Empty(t, f.attributes(t, f.base("cover"), f.geo("PositionCartesian3D")))
}

func TestBoundingBoxes(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	boxes := f.attributes(t, f.base("asm"), f.geo("RelationalBoundingBox"))
	require.Len(t, boxes, 1)
	box := boxes[0]

	tests := []struct {
		pred string
		want float64
	}{
		{"hasMinimumCoordinateX", 0},
		{"hasMinimumCoordinateY", 0},
		{"hasMinimumCoordinateZ", 0},
		{"hasMaximumCoordinateX", 12},
		{"hasMaximumCoordinateY", 2},
		{"hasMaximumCoordinateZ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.pred, func(t *testing.T) {
			assert.Equal(t, tt.want, f.float(t, box, f.geo(tt.pred)))
		})
	}

	// No geometry, no box.
	assert.Empty(t, f.attributes(t, f.base("cover"), f.geo("RelationalBoundingBox")))
}

func TestMass(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	tests := []struct {
		component string
		want      float64
	}{
		{"asm", 5},
		{"housing", 3},
		{"shaft", 2},
		{"cover", 0},
	}
	for _, tt := range tests {
		t.Run(tt.component, func(t *testing.T) {
			masses := f.attributes(t, f.base(tt.component), f.dyn("Mass"))
			require.Len(t, masses, 1)
			assert.InDelta(t, tt.want, f.float(t, masses[0], f.base("hasValueFloat")), 1e-12)
			assert.Equal(t, types.IRI(f.v.Namespaces.Units, "kilogram"), f.object(t, masses[0], f.base("hasUnit")))
			assert.Empty(t, f.query(t, facts.QueryOptions{Subject: masses[0], Predicate: f.base("hasReferenceTo")}))
		})
	}
}

func TestMomentsOfInertia_SkipsZero(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	moments := f.attributes(t, f.base("housing"), f.dyn("MomentOfInertiaInMassCenter"))
	require.Len(t, moments, 1)
	assert.Equal(t, 1.0, f.float(t, moments[0], f.dyn("hasInertiaMassCenterX")))
	assert.Equal(t, 2.0, f.float(t, moments[0], f.dyn("hasInertiaMassCenterY")))
	assert.Equal(t, 3.0, f.float(t, moments[0], f.dyn("hasInertiaMassCenterZ")))

	assert.Empty(t, f.attributes(t, f.base("shaft"), f.dyn("MomentOfInertiaInMassCenter")))
}

func TestHoles(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	hole := f.geo("h1")
	assert.Equal(t, f.geo("HoleFeature"), f.object(t, hole, f.rdfType()))
	assert.Equal(t, f.base("housing"), f.object(t, hole, f.base("hasSuperEntity")))
	assert.NotEmpty(t, f.query(t, facts.QueryOptions{Subject: f.base("housing"), Predicate: f.base("hasSubEntity"), Object: hole}))

	pos := f.attributes(t, hole, f.geo("PositionCartesian3D"))
	require.Len(t, pos, 1)
	assert.Equal(t, 2.0, f.float(t, pos[0], f.geo("hasCoordinateZ")))

	dir := f.attributes(t, hole, f.geo("Direction"))
	require.Len(t, dir, 1)
	assert.Equal(t, -1.0, f.float(t, dir[0], f.geo("hasDirectionZ")))
	assert.Empty(t, f.query(t, facts.QueryOptions{Subject: dir[0], Predicate: f.base("hasUnit")}))

	exprs := f.attributes(t, hole, f.geo("HoleExpression"))
	require.Len(t, exprs, 1)
	assert.Equal(t, 5.0, f.float(t, exprs[0], f.base("hasValueFloat")))
	assert.Equal(t, "diameter", f.object(t, exprs[0], f.base("hasValueString")))
	assert.Empty(t, f.query(t, facts.QueryOptions{Subject: exprs[0], Predicate: f.base("hasReferenceTo")}))
}

func TestHoleFeatures_NoHolesIsFatal(t *testing.T) {
	f := setup(t, `
root:
  id: asm
  name: Plate
  children:
    - {id: plate, name: Plate, position: [0, 0, 0], bounds: [0, 0, 0, 1, 1, 1]}
`, nil)
	got := f.runAll(t)

	holes := got[HoleFeatures]
	assert.Equal(t, orchestrator.Failed, holes.State)
	assert.False(t, holes.Deferred)
	assert.ErrorIs(t, holes.Err, ErrNoHoles)

	// Hole details depend on hole-features and fail after their retry.
	for _, name := range []string{HolePositions, HoleDirections, HoleExpressions} {
		assert.Equal(t, orchestrator.Failed, got[name].State, name)
		assert.Equal(t, 2, got[name].Attempts, name)
	}
	assert.Equal(t, orchestrator.Succeeded, got[Components].State)
}

func TestFeatureOperations_WithoutFeatureProvider(t *testing.T) {
	f := setup(t, pumpYAML, withoutFeatures)
	got := f.runAll(t)

	for _, name := range []string{HoleFeatures, MomentsOfInertia, Links, Joints, MechanicalConnections} {
		assert.Equal(t, orchestrator.Failed, got[name].State, name)
		assert.False(t, got[name].Deferred, name)
		assert.ErrorIs(t, got[name].Err, assembly.ErrNoFeatures, name)
	}
	for _, name := range []string{Components, ComponentNames, BoundingBoxes, Mass} {
		assert.Equal(t, orchestrator.Succeeded, got[name].State, name)
	}
}

func TestKinematics(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	link, joint := f.dyn("L1"), f.dyn("J1")
	assert.Equal(t, f.dyn("Link"), f.object(t, link, f.rdfType()))
	assert.Equal(t, f.base("shaft"), f.object(t, link, f.base("isAttributeOf")))
	assert.NotEmpty(t, f.query(t, facts.QueryOptions{Subject: f.base("shaft"), Predicate: f.base("hasAttribute"), Object: link}))

	assert.Equal(t, f.dyn("Joint"), f.object(t, joint, f.rdfType()))
	assert.Equal(t, link, f.object(t, joint, f.base("hasSubAttribute")))
	assert.Equal(t, joint, f.object(t, link, f.base("hasSuperAttribute")))
}

func TestMechanicalConnections(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	f.runAll(t)

	asm := func(local string) string { return types.IRI(f.v.Namespaces.Assembly, local) }
	conns := f.query(t, facts.QueryOptions{Predicate: f.rdfType(), Object: asm("MechanicalConnection")})
	require.Len(t, conns, 1)
	conn := conns[0].Subject

	assert.Equal(t, f.base("housing"), f.object(t, conn, asm("isRealizedBy")))
	assert.Equal(t, conn, f.object(t, f.base("housing"), asm("isRealizationOf")))
	assert.Equal(t, f.base("shaft"), f.object(t, conn, f.base("isAttributeOf")))
	assert.Equal(t, f.base("asm"), f.object(t, conn, f.base("hasReferenceTo")))
}

func TestRunSelected_PreconditionWithoutDeferral(t *testing.T) {
	f := setup(t, pumpYAML, nil)
	o := orchestrator.New(f.reg, f.store, orchestrator.Config{})

	outcomes := o.RunSelected(context.Background(), []string{Mass, ChildComponents, Mass})
	require.Len(t, outcomes, 3)
	assert.Equal(t, orchestrator.Failed, outcomes[0].State)
	assert.ErrorIs(t, outcomes[0].Err, orchestrator.ErrPrecondition)
	assert.Equal(t, orchestrator.Succeeded, outcomes[1].State)
	assert.Equal(t, orchestrator.Succeeded, outcomes[2].State)
}
