// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Component is one occurrence in an assembly snapshot.
type Component struct {
	// ID is unique within one snapshot. It is assigned and persisted by the
	// CAD side, never by the extractor.
	ID string `json:"id" yaml:"id"`

	// DisplayName is the human-readable part name. It is not unique.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// ParentID references the owning component. Empty for the root.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// ChildIDs lists direct children in CAD traversal order.
	ChildIDs []string `json:"child_ids,omitempty" yaml:"child_ids,omitempty"`

	// Transform places the component in the root coordinate frame.
	Transform Transform `json:"transform" yaml:"transform"`

	// GeometryRef is an opaque handle for direct measurement queries.
	// Empty when the component has no own geometry.
	GeometryRef string `json:"geometry_ref,omitempty" yaml:"geometry_ref,omitempty"`
}

// IsRoot reports whether the component has no parent.
func (c Component) IsRoot() bool {
	return c.ParentID == ""
}

// IdentityOrientation is the row-major 3x3 identity rotation.
var IdentityOrientation = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Transform is a position plus a row-major 3x3 rotation matrix
// (Xx Xy Xz Yx Yy Yz Zx Zy Zz).
type Transform struct {
	Position    v3.Vec     `json:"position" yaml:"position"`
	Orientation [9]float64 `json:"orientation" yaml:"orientation"`
}

// Equal reports whether every position coordinate and every rotation entry
// of t and o differ by at most tolerance. A zero tolerance is exact
// floating-point equality.
func (t Transform) Equal(o Transform, tolerance float64) bool {
	if !near(t.Position.X, o.Position.X, tolerance) ||
		!near(t.Position.Y, o.Position.Y, tolerance) ||
		!near(t.Position.Z, o.Position.Z, tolerance) {
		return false
	}
	for i := range t.Orientation {
		if !near(t.Orientation[i], o.Orientation[i], tolerance) {
			return false
		}
	}
	return true
}

// Apply maps a point from component coordinates into the root frame.
func (t Transform) Apply(p v3.Vec) v3.Vec {
	m := t.Orientation
	return v3.Vec{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + t.Position.X,
		Y: m[3]*p.X + m[4]*p.Y + m[5]*p.Z + t.Position.Y,
		Z: m[6]*p.X + m[7]*p.Y + m[8]*p.Z + t.Position.Z,
	}
}

func near(a, b, tolerance float64) bool {
	if tolerance <= 0 {
		return a == b
	}
	return math.Abs(a-b) <= tolerance
}

// BoundingBox is an axis-aligned box in the snapshot's length unit.
// The all-zero box is the "no geometry" sentinel; see aggregate.Bounds for
// how callers tell it apart from a real single-point box.
type BoundingBox struct {
	Min v3.Vec `json:"min" yaml:"min"`
	Max v3.Vec `json:"max" yaml:"max"`
}

// NewBoundingBox builds a box from (minX, minY, minZ, maxX, maxY, maxZ).
func NewBoundingBox(c [6]float64) BoundingBox {
	return BoundingBox{
		Min: v3.Vec{X: c[0], Y: c[1], Z: c[2]},
		Max: v3.Vec{X: c[3], Y: c[4], Z: c[5]},
	}
}

// Coordinates returns (minX, minY, minZ, maxX, maxY, maxZ).
func (b BoundingBox) Coordinates() [6]float64 {
	return [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}

// IsZero reports whether all six coordinates are zero.
func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}

// Valid reports whether min <= max on every axis.
func (b BoundingBox) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// MassRecord is a mass measurement. Complete is false when the value covers
// the component's own geometry only and descendants still have to be added.
type MassRecord struct {
	Mass     float64 `json:"mass" yaml:"mass"`
	Complete bool    `json:"complete" yaml:"complete"`
	Unit     string  `json:"unit" yaml:"unit"`
}

// Inertia holds the principal moments of inertia in the mass center.
type Inertia struct {
	Moments v3.Vec `json:"moments" yaml:"moments"`
	Unit    string `json:"unit" yaml:"unit"`
}

// IsZero reports whether all moments are zero.
func (i Inertia) IsZero() bool {
	return i.Moments == v3.Vec{}
}

// HoleExpression is one named parameter of a hole feature (diameter, depth, tip angle).
type HoleExpression struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit" yaml:"unit"`
}

// Hole is a hole feature owned by a component.
type Hole struct {
	ID          string           `json:"id" yaml:"id"`
	ComponentID string           `json:"component_id" yaml:"component_id"`
	Position    v3.Vec           `json:"position" yaml:"position"`
	Direction   v3.Vec           `json:"direction" yaml:"direction"`
	Expressions []HoleExpression `json:"expressions,omitempty" yaml:"expressions,omitempty"`
}

// Link is a rigid body of a kinematic simulation, realized by components.
type Link struct {
	ID           string   `json:"id" yaml:"id"`
	ComponentIDs []string `json:"component_ids" yaml:"component_ids"`
}

// Joint connects links of a kinematic simulation.
type Joint struct {
	ID      string   `json:"id" yaml:"id"`
	LinkIDs []string `json:"link_ids" yaml:"link_ids"`
}

// Connector is a component that realizes a mechanical connection between
// other components (a bolt, a weld, a pin).
type Connector struct {
	ComponentID  string   `json:"component_id" yaml:"component_id"`
	ConnectedIDs []string `json:"connected_ids" yaml:"connected_ids"`
}
