package engine

import (
	"strings"

	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/gateway"
)

// Boost table for lexical matching. Titles and curated keywords dominate raw
// content; fine-granularity fields back up their coarse counterparts.
var defaultMatchFields = []gateway.BoostedField{
	{Name: "title_tks", Boost: 10},
	{Name: "title_sm_tks", Boost: 5},
	{Name: "important_kwd", Boost: 30},
	{Name: "important_tks", Boost: 20},
	{Name: "content_ltks", Boost: 2},
	{Name: "content_sm_ltks", Boost: 1},
}

// Filter clauses must not dominate relevance when the question is empty.
const filterBoost = 0.05

var defaultSourceFields = []string{
	"docnm_kwd", "content_ltks", "kb_id", "img_id", "title_tks",
	"important_kwd", "doc_id", "position_int", "available_int",
	"content_with_weight",
}

// browseSort orders listing queries when there is no question to score by:
// page position, pinned flag, then newest first.
var browseSort = []gateway.SortField{
	{Field: "page_num_int"},
	{Field: "top_int"},
	{Field: "create_timestamp_flt", Desc: true},
}

// SearchParams is the engine-level query request, one step above the
// gateway's wire request.
type SearchParams struct {
	Question        string
	KBIDs           []string
	DocIDs          []string
	Page            int
	PageSize        int
	TopK            int
	SimilarityFloor float64
	Vector          bool
	Availability    domain.Availability
	Fields          []string
	Sort            []gateway.SortField
}

// QueryBuilder turns a free-text question plus structured filters into a
// gateway request. Construction is pure: no network, no side effects.
type QueryBuilder struct {
	tok    *Tokenizer
	fields []gateway.BoostedField
}

func NewQueryBuilder(tok *Tokenizer) *QueryBuilder {
	return &QueryBuilder{tok: tok, fields: defaultMatchFields}
}

// Question extracts the keyword set used for lexical matching and term
// similarity.
func (b *QueryBuilder) Question(text string) []string {
	return b.tok.Tokenize(text)
}

// Build assembles the lexical part of the query. The KNN clause is attached
// by the caller once the question has been embedded. minMatch loosens the
// term-overlap requirement on the relaxed retry ("" means the default).
func (b *QueryBuilder) Build(p *SearchParams, minMatch string) (*gateway.SearchRequest, []string) {
	question := strings.TrimSpace(p.Question)
	keywords := b.Question(question)

	topK := p.TopK
	if topK <= 0 {
		topK = 1024
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = topK
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}

	fields := p.Fields
	if len(fields) == 0 {
		fields = defaultSourceFields
	}

	req := &gateway.SearchRequest{
		Question:           question,
		Keywords:           keywords,
		MinimumShouldMatch: minMatch,
		KBIDs:              p.KBIDs,
		DocIDs:             p.DocIDs,
		Availability:       p.Availability,
		FilterBoost:        filterBoost,
		Page:               page,
		PageSize:           pageSize,
		TopK:               topK,
		Fields:             fields,
		AggregateField:     "docnm_kwd",
	}

	if question == "" {
		// Browse listing: nothing to score, fall back to explicit ordering.
		req.Sort = p.Sort
		if len(req.Sort) == 0 {
			req.Sort = browseSort
		}
		return req, keywords
	}

	req.MatchFields = b.fields
	req.Highlight = true
	return req, keywords
}
