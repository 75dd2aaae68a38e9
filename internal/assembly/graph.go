// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assembly

import (
	"context"
	"fmt"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// node is the index entry for one component.
type node struct {
	comp     types.Component
	parent   string
	children []string
}

// Graph is the adapter over a Provider. It walks the hierarchy once at
// construction and answers structural queries from a hash index. Geometry
// and placement queries are forwarded to the provider.
type Graph struct {
	provider Provider
	root     string
	order    []string // pre-order, root first
	index    map[string]*node
}

// NewGraph walks the provider's hierarchy and builds the index. It fails
// when any component is unreadable or an id appears twice.
func NewGraph(ctx context.Context, p Provider) (*Graph, error) {
	root, err := p.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading root component: %w", err)
	}
	if root.ID == "" {
		return nil, fmt.Errorf("root component: %w", ErrNotFound)
	}

	g := &Graph{
		provider: p,
		root:     root.ID,
		index:    map[string]*node{},
	}
	root.ParentID = ""
	g.index[root.ID] = &node{comp: root}

	stack := []string{root.ID}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		g.order = append(g.order, id)

		children, err := p.Children(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reading children of %s: %w", id, err)
		}

		n := g.index[id]
		n.children = make([]string, 0, len(children))
		for _, c := range children {
			if _, dup := g.index[c.ID]; dup {
				return nil, fmt.Errorf("component %s under %s: %w", c.ID, id, ErrDuplicateID)
			}
			c.ParentID = id
			g.index[c.ID] = &node{comp: c, parent: id}
			n.children = append(n.children, c.ID)
		}
		n.comp.ChildIDs = n.children

		// Push in reverse so the first child is visited next.
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}

	return g, nil
}

// Provider returns the underlying provider.
func (g *Graph) Provider() Provider {
	return g.provider
}

// Len returns the number of indexed components.
func (g *Graph) Len() int {
	return len(g.order)
}

// Root returns the top-level component.
func (g *Graph) Root() types.Component {
	return g.index[g.root].comp
}

// Component returns the component with the given id.
func (g *Graph) Component(id string) (types.Component, bool) {
	n, ok := g.index[id]
	if !ok {
		return types.Component{}, false
	}
	return n.comp, true
}

// Contains reports whether id is indexed.
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Children returns the direct children of id in traversal order.
func (g *Graph) Children(id string) ([]types.Component, error) {
	n, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	out := make([]types.Component, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, g.index[c].comp)
	}
	return out, nil
}

// Parent returns the parent of id. ok is false for the root.
func (g *Graph) Parent(id string) (types.Component, bool, error) {
	n, ok := g.index[id]
	if !ok {
		return types.Component{}, false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if n.parent == "" {
		return types.Component{}, false, nil
	}
	return g.index[n.parent].comp, true, nil
}

// AllDescendants returns every component below id in pre-order, not
// including id itself.
func (g *Graph) AllDescendants(id string) ([]types.Component, error) {
	n, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	var out []types.Component
	stack := make([]string, 0, len(n.children))
	for i := len(n.children) - 1; i >= 0; i-- {
		stack = append(stack, n.children[i])
	}
	for len(stack) > 0 {
		cur := g.index[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		out = append(out, cur.comp)
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
	return out, nil
}

// Components returns every component in pre-order, root first.
func (g *Graph) Components() []types.Component {
	out := make([]types.Component, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.index[id].comp)
	}
	return out
}

// DisplayName returns the indexed name of id, falling back to the provider
// when the component was listed without one.
func (g *Graph) DisplayName(ctx context.Context, id string) (string, error) {
	n, ok := g.index[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if n.comp.DisplayName != "" {
		return n.comp.DisplayName, nil
	}
	return g.provider.DisplayName(ctx, id)
}

// Transform returns the placement of id as reported by the provider.
func (g *Graph) Transform(ctx context.Context, id string) (types.Transform, error) {
	if !g.Contains(id) {
		return types.Transform{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return g.provider.Transform(ctx, id)
}

// DirectBoundingBox forwards to the provider after checking the id.
func (g *Graph) DirectBoundingBox(ctx context.Context, id string) (types.BoundingBox, bool, error) {
	if !g.Contains(id) {
		return types.BoundingBox{}, false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return g.provider.DirectBoundingBox(ctx, id)
}

// DirectMass forwards to the provider after checking the id.
func (g *Graph) DirectMass(ctx context.Context, id string) (types.MassRecord, bool, error) {
	if !g.Contains(id) {
		return types.MassRecord{}, false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return g.provider.DirectMass(ctx, id)
}

// Features returns the provider's feature view, if it has one.
func (g *Graph) Features() (FeatureProvider, bool) {
	fp, ok := g.provider.(FeatureProvider)
	return fp, ok
}
