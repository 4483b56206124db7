package graph

// Direction selects which relations to follow from an entity.
type Direction int

const (
	// Outgoing follows relations where the entity is the source.
	Outgoing Direction = iota
	// Incoming follows relations where the entity is the target.
	Incoming
	// Both follows relations in either direction.
	Both
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Both:
		return "both"
	}
	return "unknown"
}

// PathPattern constrains pattern-bounded traversal (pkg/traverse).
//
// Zero values are permissive: an empty EntityTypes slice admits every entity
// type, an empty RelationTypes slice admits every relation type, and a nil
// RelationSequence imposes no positional constraint. RelationSequence
// constrains only depths shorter than its own length; deeper hops fall back
// to RelationTypes (or to "anything" when that too is empty).
type PathPattern struct {
	// MaxDepth bounds the number of edges in any discovered path.
	MaxDepth int
	// MinPathLength drops shorter paths from the output, even though they
	// were valid intermediate traversal states.
	MinPathLength int
	// EntityTypes restricts which entity types may appear on a path.
	EntityTypes []string
	// RelationTypes is an allow-list of relation types.
	RelationTypes []string
	// RelationSequence requires relation i of a path to have type
	// RelationSequence[i], for i < len(RelationSequence).
	RelationSequence []string
	// ExcludedEntities are entity ids traversal must never visit.
	ExcludedEntities []EntityID
	// Direction selects which relations to expand through.
	Direction Direction
	// AllowCycles permits an entity id to repeat within one path.
	AllowCycles bool
}

// AllowsEntity reports whether the entity passes the type and exclusion
// constraints.
func (p *PathPattern) AllowsEntity(e *Entity) bool {
	if e == nil {
		return false
	}
	if p.IsExcluded(e.ID) {
		return false
	}
	if len(p.EntityTypes) == 0 {
		return true
	}
	for _, t := range p.EntityTypes {
		if e.Type == t {
			return true
		}
	}
	return false
}

// IsExcluded reports whether the id is on the exclusion list.
func (p *PathPattern) IsExcluded(id EntityID) bool {
	for _, ex := range p.ExcludedEntities {
		if ex == id {
			return true
		}
	}
	return false
}

// AllowsRelationAt reports whether a relation of the given type may occupy
// position depth (0-based edge index) on a path.
func (p *PathPattern) AllowsRelationAt(relType string, depth int) bool {
	if depth < len(p.RelationSequence) {
		return p.RelationSequence[depth] == relType
	}
	if len(p.RelationTypes) == 0 {
		return true
	}
	for _, t := range p.RelationTypes {
		if relType == t {
			return true
		}
	}
	return false
}
