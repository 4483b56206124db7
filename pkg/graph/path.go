package graph

import "fmt"

// Path is an ordered walk through the graph: N entities joined by N-1
// relations, where edge i runs from node i to node i+1.
//
// That chaining invariant is checked at construction by NewPath; a violation
// is a construction error, never silently coerced. Score is attached by the
// path scorer (pkg/score), not at construction, and a missing score reads as
// zero.
type Path struct {
	Nodes []*Entity   `json:"nodes"`
	Edges []*Relation `json:"edges"`
	Score float64     `json:"score,omitempty"`
}

// NewPath constructs a validated path.
//
// A single-node path (length 0) has no edges. Returns ErrInvalidPath if the
// edge count doesn't match the node count or any edge's endpoints don't line
// up with its adjacent nodes.
func NewPath(nodes []*Entity, edges []*Relation) (*Path, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: a path requires at least one node", ErrInvalidPath)
	}
	if len(edges) != len(nodes)-1 {
		return nil, fmt.Errorf("%w: %d nodes require %d edges, got %d",
			ErrInvalidPath, len(nodes), len(nodes)-1, len(edges))
	}
	for i, edge := range edges {
		if edge == nil {
			return nil, fmt.Errorf("%w: edge %d is nil", ErrInvalidPath, i)
		}
		if edge.Source != nodes[i].ID || edge.Target != nodes[i+1].ID {
			return nil, fmt.Errorf("%w: edge %d (%s->%s) does not connect nodes %s->%s",
				ErrInvalidPath, i, edge.Source, edge.Target, nodes[i].ID, nodes[i+1].ID)
		}
	}
	return &Path{Nodes: nodes, Edges: edges}, nil
}

// Length returns the number of edges. A single-node path has length 0.
func (p *Path) Length() int {
	return len(p.Edges)
}

// StartNode returns the first entity, or nil for an empty path.
func (p *Path) StartNode() *Entity {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[0]
}

// EndNode returns the last entity, or nil for an empty path.
func (p *Path) EndNode() *Entity {
	if len(p.Nodes) == 0 {
		return nil
	}
	return p.Nodes[len(p.Nodes)-1]
}

// NodeIDs returns the path's entity ids in order.
func (p *Path) NodeIDs() []EntityID {
	ids := make([]EntityID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// HasCycle reports whether any entity id repeats within the path.
func (p *Path) HasCycle() bool {
	seen := make(map[EntityID]struct{}, len(p.Nodes))
	for _, n := range p.Nodes {
		if _, ok := seen[n.ID]; ok {
			return true
		}
		seen[n.ID] = struct{}{}
	}
	return false
}
