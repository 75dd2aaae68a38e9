// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assembly reads component hierarchies from a CAD collaborator and
// indexes them for constant-time lookup by component id.
package assembly

import (
	"context"
	"errors"

	"github.com/pdiddy/cadfacts/pkg/types"
)

var (
	// ErrNotFound is returned when a component id is unknown to the snapshot.
	ErrNotFound = errors.New("component not found")

	// ErrMissingTransform is returned when a component has no readable placement.
	ErrMissingTransform = errors.New("component transform unavailable")

	// ErrDuplicateID is returned when two components share an id, which also
	// covers hierarchies that revisit a component.
	ErrDuplicateID = errors.New("duplicate component id")

	// ErrNoFeatures is returned when the provider does not expose feature data.
	ErrNoFeatures = errors.New("feature data not supported by provider")
)

// Provider is the read-only view of one assembly snapshot supplied by the CAD
// collaborator. Implementations must return children in a stable order.
type Provider interface {
	// Root returns the top-level component.
	Root(ctx context.Context) (types.Component, error)

	// Children returns the direct children of id in CAD traversal order.
	Children(ctx context.Context, id string) ([]types.Component, error)

	// DirectBoundingBox returns the box of the component's own geometry.
	// ok is false when the component has no geometry of its own.
	DirectBoundingBox(ctx context.Context, id string) (box types.BoundingBox, ok bool, err error)

	// DirectMass returns the mass measured on the component's own geometry.
	// ok is false when the component has no measurable body.
	DirectMass(ctx context.Context, id string) (rec types.MassRecord, ok bool, err error)

	// Transform returns the placement of id in the root frame.
	Transform(ctx context.Context, id string) (types.Transform, error)

	// DisplayName returns the human-readable name of id.
	DisplayName(ctx context.Context, id string) (string, error)
}

// FeatureProvider is implemented by providers that also expose manufacturing
// and kinematic features. It is optional.
type FeatureProvider interface {
	// LengthUnit is the unit of every coordinate in the snapshot.
	LengthUnit() string

	Holes(ctx context.Context, componentID string) ([]types.Hole, error)

	// Inertia returns principal moments in the mass center. ok is false
	// when the component has no body.
	Inertia(ctx context.Context, componentID string) (in types.Inertia, ok bool, err error)

	Links(ctx context.Context) ([]types.Link, error)
	Joints(ctx context.Context) ([]types.Joint, error)
	Connectors(ctx context.Context) ([]types.Connector, error)
}

// IDWriter is implemented by providers that can persist component ids back
// to the CAD side.
type IDWriter interface {
	// SetID replaces the id of the component currently identified by oldID.
	SetID(oldID, newID string) error

	// ClearIDs removes every persisted id and reports how many components
	// were cleared and how many failed.
	ClearIDs() (cleared, failed int)
}
