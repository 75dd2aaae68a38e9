// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate computes mass and bounding boxes for assembly
// components, combining descendant values where a component's own
// measurement is missing or partial.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// ErrMeasurementUnavailable is returned when the CAD collaborator cannot
// report a measurement or reports it in a unit the engine cannot convert.
var ErrMeasurementUnavailable = errors.New("measurement unavailable")

// Origin records which path produced a bounding box.
type Origin int

const (
	// OriginEmpty marks the zero sentinel: no geometry anywhere beneath.
	OriginEmpty Origin = iota
	// OriginDirect marks a box measured on the component itself.
	OriginDirect
	// OriginAggregated marks the union of descendant boxes.
	OriginAggregated
)

func (o Origin) String() string {
	switch o {
	case OriginDirect:
		return "direct"
	case OriginAggregated:
		return "aggregated"
	default:
		return "empty"
	}
}

// Bounds is a bounding box together with how it was obtained. An empty
// result carries the all-zero box; a real single-point box at the origin
// has the same coordinates but a different Origin.
type Bounds struct {
	Box    types.BoundingBox
	Origin Origin
}

// Empty reports whether no geometry contributed to the box.
func (b Bounds) Empty() bool {
	return b.Origin == OriginEmpty
}

// Source is the part of the component graph the engine reads.
// *assembly.Graph satisfies it.
type Source interface {
	Children(id string) ([]types.Component, error)
	DirectBoundingBox(ctx context.Context, id string) (types.BoundingBox, bool, error)
	DirectMass(ctx context.Context, id string) (types.MassRecord, bool, error)
}

// Config holds engine settings.
type Config struct {
	// MassUnit is the unit masses are reported in (default "kg").
	MassUnit string

	Logger *zap.Logger
}

// Engine aggregates measurements over one immutable snapshot. Results are
// cached by component id. An Engine belongs to a single extraction session
// and is not safe for concurrent use.
type Engine struct {
	src    Source
	unit   string
	scale  float64 // kilograms per reporting unit
	logger *zap.Logger

	boxes  map[string]Bounds
	masses map[string]float64 // reporting unit
}

// NewEngine returns an engine over src. It fails when the reporting unit
// is unknown.
func NewEngine(src Source, cfg Config) (*Engine, error) {
	unit := cfg.MassUnit
	if unit == "" {
		unit = "kg"
	}
	scale, ok := massScale(unit)
	if !ok {
		return nil, fmt.Errorf("reporting unit %q: %w", unit, ErrMeasurementUnavailable)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		src:    src,
		unit:   unit,
		scale:  scale,
		logger: logger,
		boxes:  map[string]Bounds{},
		masses: map[string]float64{},
	}, nil
}

// MassUnit returns the unit Mass reports in.
func (e *Engine) MassUnit() string {
	return e.unit
}

// BoundingBox returns the direct box of id if it has one, otherwise the
// per-axis union of its children's boxes, otherwise the zero sentinel.
func (e *Engine) BoundingBox(ctx context.Context, id string) (Bounds, error) {
	if b, ok := e.boxes[id]; ok {
		return b, nil
	}

	direct, ok, err := e.src.DirectBoundingBox(ctx, id)
	if err != nil {
		return Bounds{}, fmt.Errorf("bounding box of %s: %w: %w", id, ErrMeasurementUnavailable, err)
	}
	if ok {
		b := Bounds{Box: direct, Origin: OriginDirect}
		e.boxes[id] = b
		return b, nil
	}

	children, err := e.src.Children(id)
	if err != nil {
		return Bounds{}, fmt.Errorf("children of %s: %w", id, err)
	}

	var (
		union sdf.Box3
		found bool
	)
	for _, c := range children {
		cb, err := e.BoundingBox(ctx, c.ID)
		if err != nil {
			return Bounds{}, err
		}
		if cb.Empty() {
			continue
		}
		box := sdf.Box3{Min: cb.Box.Min, Max: cb.Box.Max}
		if !found {
			union, found = box, true
			continue
		}
		union = union.Extend(box)
	}

	b := Bounds{Origin: OriginEmpty}
	if found {
		b = Bounds{Box: types.BoundingBox{Min: union.Min, Max: union.Max}, Origin: OriginAggregated}
	} else {
		e.logger.Debug("no geometry beneath component", zap.String("component", id))
	}
	e.boxes[id] = b
	return b, nil
}

// Mass returns the total mass of id in the engine's reporting unit. A
// complete direct measurement is returned as is; a partial one has the
// children's masses added; without a direct measurement the children's
// masses are summed.
func (e *Engine) Mass(ctx context.Context, id string) (types.MassRecord, error) {
	m, err := e.mass(ctx, id)
	if err != nil {
		return types.MassRecord{}, err
	}
	return types.MassRecord{Mass: m, Complete: true, Unit: e.unit}, nil
}

func (e *Engine) mass(ctx context.Context, id string) (float64, error) {
	if m, ok := e.masses[id]; ok {
		return m, nil
	}

	rec, ok, err := e.src.DirectMass(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("mass of %s: %w: %w", id, ErrMeasurementUnavailable, err)
	}

	var total float64
	if ok {
		scale, known := massScale(rec.Unit)
		if !known {
			return 0, fmt.Errorf("mass of %s in unit %q: %w", id, rec.Unit, ErrMeasurementUnavailable)
		}
		total = e.convert(rec.Mass, scale)
		if rec.Complete {
			e.masses[id] = total
			return total, nil
		}
	}

	children, err := e.src.Children(id)
	if err != nil {
		return 0, fmt.Errorf("children of %s: %w", id, err)
	}
	for _, c := range children {
		m, err := e.mass(ctx, c.ID)
		if err != nil {
			return 0, err
		}
		total += m
	}

	e.masses[id] = total
	return total, nil
}

// convert expresses m, given in a unit of scale kilograms, in the reporting
// unit. Values already in the reporting unit pass through untouched.
func (e *Engine) convert(m, scale float64) float64 {
	if scale == e.scale {
		return m
	}
	return m * scale / e.scale
}

// massScale returns kilograms per unit. An empty unit is kilograms.
func massScale(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "kg", "kilogram", "kilograms":
		return 1, true
	case "g", "gram", "grams":
		return 1e-3, true
	case "mg", "milligram", "milligrams":
		return 1e-6, true
	case "t", "tonne", "tonnes":
		return 1e3, true
	case "lb", "lbm", "pound", "pounds", "pound mass":
		return 0.45359237, true
	}
	return 0, false
}
