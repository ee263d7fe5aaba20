package domain

// Availability filters chunks by their enabled flag. The zero value applies
// no availability filter.
type Availability int

const (
	AvailabilityAny Availability = iota
	AvailabilityDisabledOnly
	AvailabilityEnabledOnly
)

// Position locates a chunk fragment on a source page: page number followed by
// the bounding box (left, right, top, bottom).
type Position [5]float32

// RankedChunk is a retrieved chunk augmented with its similarity scores and
// source document identity. It is rebuilt on every retrieval call and never
// cached across requests.
type RankedChunk struct {
	ChunkID           string     `json:"chunk_id"`
	Content           string     `json:"content_with_weight"`
	ContentTokens     string     `json:"content_ltks"`
	DocID             string     `json:"doc_id"`
	DocName           string     `json:"docnm_kwd"`
	KBID              string     `json:"kb_id"`
	ImportantKeywords []string   `json:"important_kwd"`
	ImageID           string     `json:"img_id"`
	ImageURL          string     `json:"img_url,omitempty"`
	Similarity        float64    `json:"similarity"`
	VectorSimilarity  float64    `json:"vector_similarity"`
	TermSimilarity    float64    `json:"term_similarity"`
	Embedding         Vector     `json:"-"`
	Positions         []Position `json:"positions"`
}

// DocAgg counts how many chunks of one document contributed to the current
// result window.
type DocAgg struct {
	DocName string `json:"doc_name"`
	DocID   string `json:"doc_id"`
	Count   int    `json:"count"`
}

// RankedResult is the retrieval output handed to the chat-orchestration
// layer: qualifying total, the requested page of chunks, and per-document
// aggregates ordered by descending count.
type RankedResult struct {
	Total    int           `json:"total"`
	Chunks   []RankedChunk `json:"chunks"`
	DocAggs  []DocAgg      `json:"doc_aggs"`
	Keywords []string      `json:"keywords,omitempty"`
}
