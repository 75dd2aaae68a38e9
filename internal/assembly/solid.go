// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assembly

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// Solid shapes understood by SolidSpec.
const (
	ShapeBox      = "box"
	ShapeCylinder = "cylinder"
	ShapeSphere   = "sphere"
)

// SolidSpec describes a component's own geometry as a primitive solid in
// component coordinates. Box and cylinder are centered on the origin; the
// cylinder axis is Z.
type SolidSpec struct {
	Shape  string    `yaml:"shape"`
	Size   []float64 `yaml:"size,omitempty,flow"`
	Radius float64   `yaml:"radius,omitempty"`
	Height float64   `yaml:"height,omitempty"`

	// Offset moves the solid within the component frame.
	Offset []float64 `yaml:"offset,omitempty,flow"`
}

// build returns the signed distance function for the spec.
func (s SolidSpec) build() (sdf.SDF3, error) {
	var (
		solid sdf.SDF3
		err   error
	)
	switch s.Shape {
	case ShapeBox:
		if len(s.Size) != 3 {
			return nil, fmt.Errorf("box needs 3 size values, got %d", len(s.Size))
		}
		solid, err = sdf.Box3D(v3.Vec{X: s.Size[0], Y: s.Size[1], Z: s.Size[2]}, 0)
	case ShapeCylinder:
		solid, err = sdf.Cylinder3D(s.Height, s.Radius, 0)
	case ShapeSphere:
		solid, err = sdf.Sphere3D(s.Radius)
	default:
		return nil, fmt.Errorf("unknown solid shape %q", s.Shape)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", s.Shape, err)
	}

	if len(s.Offset) > 0 {
		if len(s.Offset) != 3 {
			return nil, fmt.Errorf("offset needs 3 values, got %d", len(s.Offset))
		}
		m := sdf.Translate3d(v3.Vec{X: s.Offset[0], Y: s.Offset[1], Z: s.Offset[2]})
		solid = sdf.Transform3D(solid, m)
	}
	return solid, nil
}

// SolidBounds returns the axis-aligned box, in the root frame, of the solid
// placed by t.
func SolidBounds(s SolidSpec, t types.Transform) (types.BoundingBox, error) {
	solid, err := s.build()
	if err != nil {
		return types.BoundingBox{}, err
	}
	local := solid.BoundingBox()

	var out sdf.Box3
	for i := 0; i < 8; i++ {
		corner := v3.Vec{X: local.Min.X, Y: local.Min.Y, Z: local.Min.Z}
		if i&1 != 0 {
			corner.X = local.Max.X
		}
		if i&2 != 0 {
			corner.Y = local.Max.Y
		}
		if i&4 != 0 {
			corner.Z = local.Max.Z
		}
		p := t.Apply(corner)
		if i == 0 {
			out = sdf.Box3{Min: p, Max: p}
			continue
		}
		out = out.Extend(sdf.Box3{Min: p, Max: p})
	}
	return types.BoundingBox{Min: out.Min, Max: out.Max}, nil
}
