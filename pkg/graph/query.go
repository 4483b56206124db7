package graph

import "time"

// QueryKind tags a GraphQuery with the operation it requests.
//
// Queries are a closed tagged variant: one struct, one kind field, and
// kind-specific parameter fields, dispatched by a single switch in the
// engine. There is deliberately no query interface hierarchy.
type QueryKind string

const (
	QueryEntityLookup QueryKind = "entity_lookup"
	QueryVectorSearch QueryKind = "vector_search"
	QueryTraversal    QueryKind = "traversal"
	QueryPathFinding  QueryKind = "path_finding"
	QuerySubgraph     QueryKind = "subgraph"
	QueryFiltered     QueryKind = "filtered"
	QueryCustom       QueryKind = "custom"
)

// GraphQuery describes a single retrieval or traversal request.
//
// Only the fields relevant to Kind are consulted; the rest stay zero.
//
//	q := graph.GraphQuery{
//		Kind:     graph.QueryTraversal,
//		EntityID: "person-alice",
//		MaxDepth: 2,
//	}
type GraphQuery struct {
	Kind QueryKind `json:"kind"`

	// EntityID seeds lookup, traversal, path-finding and subgraph queries.
	EntityID EntityID `json:"entity_id,omitempty"`
	// TargetID is the destination for path-finding queries.
	TargetID EntityID `json:"target_id,omitempty"`
	// Embedding is the query vector for vector-search queries.
	Embedding []float32 `json:"embedding,omitempty"`
	// EntityType scopes filtered queries.
	EntityType string `json:"entity_type,omitempty"`
	// PropertyFilters are exact-value constraints for filtered queries.
	PropertyFilters map[string]any `json:"property_filters,omitempty"`
	// Pattern constrains traversal and path-finding queries.
	Pattern *PathPattern `json:"-"`

	MaxDepth       int     `json:"max_depth,omitempty"`
	MaxResults     int     `json:"max_results,omitempty"`
	ScoreThreshold float64 `json:"score_threshold,omitempty"`

	// Custom carries free-form parameters for custom queries.
	Custom map[string]any `json:"custom,omitempty"`
}

// GraphResult is the uniform result shape for every query kind.
//
// Scores, when present, parallels Entities index-for-index. Scores are not
// normalized across components: ranking scores are propagated mass, path
// scores always lie in [0, 1].
type GraphResult struct {
	Entities      []*Entity     `json:"entities"`
	Scores        []float64     `json:"scores,omitempty"`
	Relations     []*Relation   `json:"relations,omitempty"`
	Paths         []*Path       `json:"paths,omitempty"`
	TotalCount    int           `json:"total_count"`
	ExecutionTime time.Duration `json:"execution_time"`
}
