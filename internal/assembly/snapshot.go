// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assembly

import (
	"context"
	"fmt"
	"os"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cadfacts/pkg/types"
)

const (
	defaultLengthUnit  = "mm"
	defaultMassUnit    = "kg"
	defaultInertiaUnit = "kg - m2"
)

// ComponentSpec is one component in a snapshot file.
type ComponentSpec struct {
	ID   string `yaml:"id,omitempty"`
	Name string `yaml:"name"`

	// Position and Orientation place the component in the root frame.
	// A missing orientation is the identity rotation. A missing position
	// is only allowed on the root.
	Position    []float64 `yaml:"position,omitempty,flow"`
	Orientation []float64 `yaml:"orientation,omitempty,flow"`

	// Bounds is an explicit root-frame box (minX minY minZ maxX maxY maxZ).
	// It takes precedence over Solid.
	Bounds []float64  `yaml:"bounds,omitempty,flow"`
	Solid  *SolidSpec `yaml:"solid,omitempty"`
	Mass   *float64   `yaml:"mass,omitempty"`

	// MassComplete marks Mass as covering all descendants. It defaults to
	// true for leaves and false for sub-assemblies.
	MassComplete *bool `yaml:"mass_complete,omitempty"`

	Inertia []float64  `yaml:"inertia,omitempty,flow"`
	Holes   []HoleSpec `yaml:"holes,omitempty"`

	Children []*ComponentSpec `yaml:"children,omitempty"`
}

// HoleSpec is a hole feature in a snapshot file.
type HoleSpec struct {
	ID          string                 `yaml:"id,omitempty"`
	Position    []float64              `yaml:"position,flow"`
	Direction   []float64              `yaml:"direction,flow"`
	Expressions []types.HoleExpression `yaml:"expressions,omitempty"`
}

// Document is the YAML form of a snapshot file.
type Document struct {
	Name        string            `yaml:"name"`
	LengthUnit  string            `yaml:"length_unit,omitempty"`
	MassUnit    string            `yaml:"mass_unit,omitempty"`
	InertiaUnit string            `yaml:"inertia_unit,omitempty"`
	Root        *ComponentSpec    `yaml:"root"`
	Links       []types.Link      `yaml:"links,omitempty"`
	Joints      []types.Joint     `yaml:"joints,omitempty"`
	Connectors  []types.Connector `yaml:"connectors,omitempty"`
}

// Snapshot is a file-backed Provider. Components listed without an id get a
// fresh one on load; Save persists them.
type Snapshot struct {
	doc     Document
	index   map[string]*ComponentSpec
	parents map[string]string
}

// NewSnapshot indexes an in-memory document.
func NewSnapshot(doc Document) (*Snapshot, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("snapshot has no root component")
	}
	s := &Snapshot{doc: doc}
	s.assignIDs()
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the snapshot name.
func (s *Snapshot) Name() string {
	return s.doc.Name
}

// LoadSnapshot reads and indexes a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	s, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return s, nil
}

// ParseSnapshot decodes and indexes snapshot YAML.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return NewSnapshot(doc)
}

// Save writes the snapshot, including any assigned ids, to path.
func (s *Snapshot) Save(path string) error {
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

func (s *Snapshot) assignIDs() {
	walk(s.doc.Root, func(c *ComponentSpec, _ string) {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	})
}

func (s *Snapshot) reindex() error {
	s.index = map[string]*ComponentSpec{}
	s.parents = map[string]string{}
	var dup error
	walk(s.doc.Root, func(c *ComponentSpec, parent string) {
		if c.ID == "" || dup != nil {
			return
		}
		if _, ok := s.index[c.ID]; ok {
			dup = fmt.Errorf("component %s: %w", c.ID, ErrDuplicateID)
			return
		}
		s.index[c.ID] = c
		s.parents[c.ID] = parent
	})
	return dup
}

// walk visits c and its descendants depth first.
func walk(c *ComponentSpec, fn func(c *ComponentSpec, parent string)) {
	type item struct {
		c      *ComponentSpec
		parent string
	}
	stack := []item{{c: c}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.c == nil {
			continue
		}
		fn(it.c, it.parent)
		for i := len(it.c.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{c: it.c.Children[i], parent: it.c.ID})
		}
	}
}

func (s *Snapshot) lookup(id string) (*ComponentSpec, error) {
	c, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *Snapshot) component(c *ComponentSpec) types.Component {
	comp := types.Component{
		ID:          c.ID,
		DisplayName: c.Name,
		ParentID:    s.parents[c.ID],
	}
	for _, child := range c.Children {
		comp.ChildIDs = append(comp.ChildIDs, child.ID)
	}
	if t, err := s.transform(c); err == nil {
		comp.Transform = t
	}
	if len(c.Bounds) > 0 || c.Solid != nil {
		comp.GeometryRef = c.ID
	}
	return comp
}

// Root implements Provider.
func (s *Snapshot) Root(_ context.Context) (types.Component, error) {
	return s.component(s.doc.Root), nil
}

// Children implements Provider.
func (s *Snapshot) Children(_ context.Context, id string) ([]types.Component, error) {
	c, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make([]types.Component, 0, len(c.Children))
	for _, child := range c.Children {
		out = append(out, s.component(child))
	}
	return out, nil
}

// DisplayName implements Provider.
func (s *Snapshot) DisplayName(_ context.Context, id string) (string, error) {
	c, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Transform implements Provider.
func (s *Snapshot) Transform(_ context.Context, id string) (types.Transform, error) {
	c, err := s.lookup(id)
	if err != nil {
		return types.Transform{}, err
	}
	return s.transform(c)
}

func (s *Snapshot) transform(c *ComponentSpec) (types.Transform, error) {
	t := types.Transform{Orientation: types.IdentityOrientation}
	switch {
	case c.Position == nil && c == s.doc.Root:
	case c.Position == nil:
		return types.Transform{}, fmt.Errorf("%s has no position: %w", c.ID, ErrMissingTransform)
	case len(c.Position) != 3:
		return types.Transform{}, fmt.Errorf("%s position has %d values: %w", c.ID, len(c.Position), ErrMissingTransform)
	default:
		t.Position = v3.Vec{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]}
	}

	if c.Orientation != nil {
		if len(c.Orientation) != 9 {
			return types.Transform{}, fmt.Errorf("%s orientation has %d values: %w", c.ID, len(c.Orientation), ErrMissingTransform)
		}
		copy(t.Orientation[:], c.Orientation)
	}
	return t, nil
}

// DirectBoundingBox implements Provider.
func (s *Snapshot) DirectBoundingBox(_ context.Context, id string) (types.BoundingBox, bool, error) {
	c, err := s.lookup(id)
	if err != nil {
		return types.BoundingBox{}, false, err
	}

	switch {
	case len(c.Bounds) > 0:
		if len(c.Bounds) != 6 {
			return types.BoundingBox{}, false, fmt.Errorf("%s bounds have %d values, want 6", id, len(c.Bounds))
		}
		var coords [6]float64
		copy(coords[:], c.Bounds)
		box := types.NewBoundingBox(coords)
		if !box.Valid() {
			return types.BoundingBox{}, false, fmt.Errorf("%s bounds have min greater than max", id)
		}
		return box, true, nil
	case c.Solid != nil:
		t, err := s.transform(c)
		if err != nil {
			return types.BoundingBox{}, false, err
		}
		box, err := SolidBounds(*c.Solid, t)
		if err != nil {
			return types.BoundingBox{}, false, fmt.Errorf("%s solid: %w", id, err)
		}
		return box, true, nil
	}
	return types.BoundingBox{}, false, nil
}

// DirectMass implements Provider.
func (s *Snapshot) DirectMass(_ context.Context, id string) (types.MassRecord, bool, error) {
	c, err := s.lookup(id)
	if err != nil {
		return types.MassRecord{}, false, err
	}
	if c.Mass == nil {
		return types.MassRecord{}, false, nil
	}
	complete := len(c.Children) == 0
	if c.MassComplete != nil {
		complete = *c.MassComplete
	}
	return types.MassRecord{Mass: *c.Mass, Complete: complete, Unit: orDefault(s.doc.MassUnit, defaultMassUnit)}, true, nil
}

// LengthUnit implements FeatureProvider.
func (s *Snapshot) LengthUnit() string {
	return orDefault(s.doc.LengthUnit, defaultLengthUnit)
}

// Holes implements FeatureProvider.
func (s *Snapshot) Holes(_ context.Context, componentID string) ([]types.Hole, error) {
	c, err := s.lookup(componentID)
	if err != nil {
		return nil, err
	}
	holes := make([]types.Hole, 0, len(c.Holes))
	for i, h := range c.Holes {
		if len(h.Position) != 3 || len(h.Direction) != 3 {
			return nil, fmt.Errorf("hole %d of %s needs 3 position and 3 direction values", i, componentID)
		}
		id := h.ID
		if id == "" {
			id = fmt.Sprintf("%s-hole-%d", componentID, i+1)
		}
		holes = append(holes, types.Hole{
			ID:          id,
			ComponentID: componentID,
			Position:    v3.Vec{X: h.Position[0], Y: h.Position[1], Z: h.Position[2]},
			Direction:   v3.Vec{X: h.Direction[0], Y: h.Direction[1], Z: h.Direction[2]},
			Expressions: h.Expressions,
		})
	}
	return holes, nil
}

// Inertia implements FeatureProvider.
func (s *Snapshot) Inertia(_ context.Context, componentID string) (types.Inertia, bool, error) {
	c, err := s.lookup(componentID)
	if err != nil {
		return types.Inertia{}, false, err
	}
	if c.Inertia == nil {
		return types.Inertia{}, false, nil
	}
	if len(c.Inertia) != 3 {
		return types.Inertia{}, false, fmt.Errorf("%s inertia has %d values, want 3", componentID, len(c.Inertia))
	}
	return types.Inertia{
		Moments: v3.Vec{X: c.Inertia[0], Y: c.Inertia[1], Z: c.Inertia[2]},
		Unit:    orDefault(s.doc.InertiaUnit, defaultInertiaUnit),
	}, true, nil
}

// Links implements FeatureProvider.
func (s *Snapshot) Links(_ context.Context) ([]types.Link, error) {
	return append([]types.Link(nil), s.doc.Links...), nil
}

// Joints implements FeatureProvider.
func (s *Snapshot) Joints(_ context.Context) ([]types.Joint, error) {
	return append([]types.Joint(nil), s.doc.Joints...), nil
}

// Connectors implements FeatureProvider.
func (s *Snapshot) Connectors(_ context.Context) ([]types.Connector, error) {
	return append([]types.Connector(nil), s.doc.Connectors...), nil
}

// SetID implements IDWriter. References from links and connectors follow
// the renamed component.
func (s *Snapshot) SetID(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	c, err := s.lookup(oldID)
	if err != nil {
		return err
	}
	if _, taken := s.index[newID]; taken {
		return fmt.Errorf("component %s: %w", newID, ErrDuplicateID)
	}

	c.ID = newID
	for i := range s.doc.Links {
		renameIn(s.doc.Links[i].ComponentIDs, oldID, newID)
	}
	for i := range s.doc.Connectors {
		if s.doc.Connectors[i].ComponentID == oldID {
			s.doc.Connectors[i].ComponentID = newID
		}
		renameIn(s.doc.Connectors[i].ConnectedIDs, oldID, newID)
	}
	return s.reindex()
}

// ClearIDs implements IDWriter. Components referenced by links or
// connectors keep their id and are counted as failed. The snapshot must be
// saved and reloaded before it is read again.
func (s *Snapshot) ClearIDs() (cleared, failed int) {
	referenced := map[string]bool{}
	for _, l := range s.doc.Links {
		for _, id := range l.ComponentIDs {
			referenced[id] = true
		}
	}
	for _, c := range s.doc.Connectors {
		referenced[c.ComponentID] = true
		for _, id := range c.ConnectedIDs {
			referenced[id] = true
		}
	}

	walk(s.doc.Root, func(c *ComponentSpec, _ string) {
		switch {
		case c.ID == "":
		case referenced[c.ID]:
			failed++
		default:
			c.ID = ""
			cleared++
		}
	})
	// Clearing only drops ids from an index that was already free of
	// duplicates, so reindex cannot fail here.
	_ = s.reindex()
	return cleared, failed
}

func renameIn(ids []string, oldID, newID string) {
	for i, id := range ids {
		if id == oldID {
			ids[i] = newID
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
