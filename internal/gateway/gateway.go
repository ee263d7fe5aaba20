// Package gateway defines the contract with the document index backend.
// The engine builds requests against this interface and interprets the
// responses; how the index executes them is the backend's business.
package gateway

import (
	"context"

	"github.com/cloo-solutions/recall/internal/domain"
)

// BoostedField names a lexical match field with its scoring boost.
type BoostedField struct {
	Name  string
	Boost float64
}

// SortField is an explicit sort clause for browse-style listings.
type SortField struct {
	Field string
	Desc  bool
}

// KNNClause requests approximate-nearest-neighbor search. The vector carries
// its own dimension; backends must not infer it from field names.
type KNNClause struct {
	Vector          domain.Vector
	K               int
	SimilarityFloor float64
	NumCandidates   int
}

// SearchRequest is a combined lexical + vector query. Filter clauses are not
// scored; FilterBoost keeps them from dominating relevance when the question
// is empty.
type SearchRequest struct {
	Question           string
	Keywords           []string
	MatchFields        []BoostedField
	MinimumShouldMatch string
	KBIDs              []string
	DocIDs             []string
	Availability       domain.Availability
	FilterBoost        float64
	Page               int
	PageSize           int
	TopK               int
	Fields             []string
	Sort               []SortField
	Highlight          bool
	KNN                *KNNClause
	AggregateField     string
}

// Hit is one scored index entry. Field values arrive flattened to strings;
// list-valued fields are tab-joined. A hit indexed without an embedding has
// an empty Embedding.
type Hit struct {
	ID                 string
	Score              float64
	Fields             map[string]string
	Embedding          domain.Vector
	HighlightFragments []string
}

// Bucket is one aggregation bucket: a field value and its document count.
type Bucket struct {
	Value string
	Count int
}

// SearchResponse carries the raw index answer for one SearchRequest.
type SearchResponse struct {
	Total        int
	Hits         []Hit
	Aggregations map[string][]Bucket
}

// Column describes one column of a structured query result.
type Column struct {
	Name string
	Type string
}

// SQLResult is the tabular answer of the index's SQL-compatible endpoint.
type SQLResult struct {
	Columns []Column
	Rows    [][]any
}

// Gateway executes queries against the document index. Implementations must
// honor context cancellation; the engine applies its own generous deadline
// around large aggregation queries.
type Gateway interface {
	Search(ctx context.Context, index string, req *SearchRequest) (*SearchResponse, error)
	SQL(ctx context.Context, query string, fetchSize int) (*SQLResult, error)
}
