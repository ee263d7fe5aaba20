// Package engine implements the hybrid retrieval and ranking core: query
// construction, lexical/vector score fusion, paginated result assembly with
// per-document aggregation, answer citation, and the structured query bridge.
package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/gateway"
	"github.com/cloo-solutions/recall/internal/telemetry"
)

const (
	// defaultSearchTimeout is deliberately generous: large aggregation
	// queries against big indexes are slow and must not be cut short.
	defaultSearchTimeout = 10 * time.Minute

	// Relaxed retry settings used when the primary query returns zero hits.
	relaxedMinMatch        = "10%"
	relaxedSimilarityFloor = 0.17

	defaultKNNFloor = 0.1
	defaultTopK     = 1024
)

// IndexName maps a tenant to its index namespace.
func IndexName(tenantID string) string {
	return "recall_" + tenantID
}

// SearchResult is the interpreted index response for one query.
type SearchResult struct {
	Total       int
	IDs         []string
	QueryVector domain.Vector
	Fields      map[string]map[string]string
	Embeddings  map[string]domain.Vector
	Highlights  map[string]string
	Aggregation []gateway.Bucket
	Keywords    []string
}

// RetrieveRequest carries one end-to-end retrieval invocation. The embedder
// and optional reranker are injected per call rather than held as ambient
// state.
type RetrieveRequest struct {
	Question            string
	Embedder            Embedder
	Reranker            Reranker
	TenantID            string
	KBIDs               []string
	DocIDs              []string
	Page                int
	PageSize            int
	SimilarityThreshold float64
	VectorWeight        float64
	TopK                int
	Aggregate           bool
}

// Dealer drives retrieval against the index gateway. It is stateless between
// calls; all sharing lives at the gateway and model boundaries.
type Dealer struct {
	gw      gateway.Gateway
	builder *QueryBuilder
	tok     *Tokenizer
	kbs     KnowledgebaseResolver
	timeout time.Duration
}

// NewDealer creates a Dealer. The resolver may be nil when shared-
// knowledgebase routing is not needed (e.g. single-tenant tests).
func NewDealer(gw gateway.Gateway, kbs KnowledgebaseResolver) *Dealer {
	tok := NewTokenizer()
	return &Dealer{
		gw:      gw,
		builder: NewQueryBuilder(tok),
		tok:     tok,
		kbs:     kbs,
		timeout: defaultSearchTimeout,
	}
}

// WithTimeout overrides the per-query gateway deadline.
func (d *Dealer) WithTimeout(timeout time.Duration) *Dealer {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Search executes one combined lexical+vector query, with a single relaxed
// retry when the primary query matches nothing. The embedder is required iff
// p.Vector is set, and the check happens before any network call.
func (d *Dealer) Search(ctx context.Context, p *SearchParams, index string, emb Embedder) (*SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Dealer.Search", telemetry.SpanAttributes{
		Index:     index,
		Operation: "search",
	})
	defer span.End()

	if p.Vector && emb == nil {
		return nil, domain.ErrMissingEmbedder
	}

	req, keywords := d.builder.Build(p, "")

	var queryVec domain.Vector
	if p.Vector && req.Question != "" {
		qv, _, err := emb.EncodeQuery(ctx, req.Question)
		if err != nil {
			return nil, err
		}
		queryVec = qv
		req.KNN = d.knnClause(qv, p)
		// Highlighting is lexical; it has nothing to attach to on a KNN hit.
		req.Highlight = false
	}

	resp, err := d.searchGateway(ctx, index, req)
	if err != nil {
		return nil, err
	}

	if resp.Total == 0 && req.KNN != nil {
		// Loosen the term-overlap requirement and the vector floor, once.
		req, _ = d.builder.Build(p, relaxedMinMatch)
		req.Highlight = false
		req.KNN = d.knnClause(queryVec, p)
		req.KNN.SimilarityFloor = relaxedSimilarityFloor

		resp, err = d.searchGateway(ctx, index, req)
		if err != nil {
			return nil, err
		}
	}

	return d.interpret(resp, req, queryVec, keywords), nil
}

func (d *Dealer) knnClause(qv domain.Vector, p *SearchParams) *gateway.KNNClause {
	topK := p.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	floor := p.SimilarityFloor
	if floor <= 0 {
		floor = defaultKNNFloor
	}
	return &gateway.KNNClause{
		Vector:          qv,
		K:               topK,
		SimilarityFloor: floor,
		NumCandidates:   topK * 2,
	}
}

func (d *Dealer) searchGateway(ctx context.Context, index string, req *gateway.SearchRequest) (*gateway.SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.gw.Search(ctx, index, req)
	if err != nil {
		return nil, domain.NewGatewayError(req.Question, err)
	}
	return resp, nil
}

// interpret turns the raw gateway response into a SearchResult: per-id field
// maps, merged highlights, aggregation buckets, and the keyword set enriched
// with fine-grained sub-tokens.
func (d *Dealer) interpret(resp *gateway.SearchResponse, req *gateway.SearchRequest, queryVec domain.Vector, keywords []string) *SearchResult {
	res := &SearchResult{
		Total:       resp.Total,
		IDs:         make([]string, 0, len(resp.Hits)),
		QueryVector: queryVec,
		Fields:      make(map[string]map[string]string, len(resp.Hits)),
		Embeddings:  make(map[string]domain.Vector, len(resp.Hits)),
		Highlights:  make(map[string]string),
	}

	for _, hit := range resp.Hits {
		res.IDs = append(res.IDs, hit.ID)
		fields := make(map[string]string, len(hit.Fields))
		for _, name := range req.Fields {
			if v, ok := hit.Fields[name]; ok {
				// Token fields carry tokenizer-inserted spaces; collapse
				// them for display the same way highlights are collapsed.
				if strings.Contains(name, "tks") {
					v = collapseTokenSpacing(v)
				}
				fields[name] = v
			}
		}
		res.Fields[hit.ID] = fields
		res.Embeddings[hit.ID] = hit.Embedding
		if len(hit.HighlightFragments) > 0 {
			res.Highlights[hit.ID] = collapseTokenSpacing(strings.Join(hit.HighlightFragments, ""))
		}
	}

	if buckets, ok := resp.Aggregations[req.AggregateField]; ok {
		res.Aggregation = buckets
	}

	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res.Keywords = append(res.Keywords, k)
	}
	for _, k := range d.tok.FineGrained(keywords) {
		if len(k) < 2 {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res.Keywords = append(res.Keywords, k)
	}

	return res
}

// hitTokens collects the token material of one hit: content tokens plus
// title tokens plus curated keywords.
func hitTokens(fields map[string]string) []string {
	toks := strings.Fields(fields["content_ltks"])
	for _, t := range strings.Fields(fields["title_tks"]) {
		toks = append(toks, t)
	}
	for _, kwd := range strings.Split(fields["important_kwd"], "\t") {
		if kwd != "" {
			toks = append(toks, kwd)
		}
	}
	return toks
}

// Rerank scores every hit with the internal hybrid formula.
func (d *Dealer) Rerank(sres *SearchResult, question string, tkWeight, vtWeight float64) (sim, tksim, vtsim []float64, err error) {
	keywords := d.builder.Question(question)

	embds := make([]domain.Vector, 0, len(sres.IDs))
	tokens := make([][]string, 0, len(sres.IDs))
	for _, id := range sres.IDs {
		embds = append(embds, sres.Embeddings[id])
		tokens = append(tokens, hitTokens(sres.Fields[id]))
	}
	if len(embds) == 0 {
		return nil, nil, nil, nil
	}

	return HybridSimilarity(sres.QueryVector, embds, keywords, tokens, tkWeight, vtWeight)
}

// RerankByModel substitutes an external cross-encoder for the vector role.
// Token similarity is still computed locally for diagnostics and fusion.
func (d *Dealer) RerankByModel(ctx context.Context, rr Reranker, sres *SearchResult, question string, tkWeight, vtWeight float64) (sim, tksim, vtsim []float64, err error) {
	keywords := d.builder.Question(question)

	tokens := make([][]string, 0, len(sres.IDs))
	texts := make([]string, 0, len(sres.IDs))
	for _, id := range sres.IDs {
		toks := hitTokens(sres.Fields[id])
		tokens = append(tokens, toks)
		texts = append(texts, collapseTokenSpacing(strings.Join(toks, " ")))
	}
	if len(texts) == 0 {
		return nil, nil, nil, nil
	}

	tksim = TokenSimilarity(keywords, tokens)
	vtsim, err = rr.Similarity(ctx, strings.Join(keywords, " "), texts)
	if err != nil {
		return nil, nil, nil, err
	}

	return fuseWithModelScores(tksim, vtsim, tkWeight, vtWeight), tksim, vtsim, nil
}

// Retrieve runs the full flow: shared-knowledgebase routing, combined query
// with relaxed retry, score fusion, threshold cutoff, pagination, and
// per-document aggregation.
func (d *Dealer) Retrieve(ctx context.Context, req *RetrieveRequest) (*domain.RankedResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Dealer.Retrieve", telemetry.SpanAttributes{
		TenantID:  req.TenantID,
		Operation: "retrieve",
	})
	defer span.End()

	ranks := &domain.RankedResult{Chunks: []domain.RankedChunk{}, DocAggs: []domain.DocAgg{}}
	if strings.TrimSpace(req.Question) == "" {
		return ranks, nil
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.2
	}
	vectorWeight := req.VectorWeight
	if vectorWeight <= 0 {
		vectorWeight = 0.3
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	tenantID := req.TenantID
	if len(req.KBIDs) > 0 && d.kbs != nil {
		// Shared knowledgebases are physically indexed under the
		// administrative tenant's namespace.
		shared, err := d.kbs.IsShared(ctx, req.KBIDs[0])
		if err != nil {
			return nil, err
		}
		if shared {
			adminID, err := d.kbs.AdminTenantID(ctx)
			if err != nil {
				return nil, err
			}
			tenantID = adminID
		}
	}

	params := &SearchParams{
		Question:        req.Question,
		KBIDs:           req.KBIDs,
		DocIDs:          req.DocIDs,
		TopK:            topK,
		PageSize:        topK,
		SimilarityFloor: threshold,
		Vector:          true,
		Availability:    domain.AvailabilityEnabledOnly,
	}

	sres, err := d.Search(ctx, params, IndexName(tenantID), req.Embedder)
	if err != nil {
		return nil, err
	}
	ranks.Keywords = sres.Keywords

	tkWeight := 1 - vectorWeight
	var sim, tksim, vtsim []float64
	if req.Reranker != nil {
		sim, tksim, vtsim, err = d.RerankByModel(ctx, req.Reranker, sres, req.Question, tkWeight, vectorWeight)
	} else {
		sim, tksim, vtsim, err = d.Rerank(sres, req.Question, tkWeight, vectorWeight)
	}
	if err != nil {
		return nil, err
	}

	idx := argsortDesc(sim)
	dim := sres.QueryVector.Dim
	aggs := make(map[string]*domain.DocAgg)
	start := (page - 1) * pageSize

	for _, i := range idx {
		if sim[i] < threshold {
			break
		}
		ranks.Total++
		start--
		if start >= 0 {
			continue
		}
		if len(ranks.Chunks) >= pageSize {
			if req.Aggregate {
				// Keep scanning so Total covers the whole qualifying set.
				continue
			}
			break
		}

		id := sres.IDs[i]
		fields := sres.Fields[id]
		docName := fields["docnm_kwd"]
		docID := fields["doc_id"]

		embedding := sres.Embeddings[id]
		if embedding.IsEmpty() && dim > 0 {
			embedding = domain.ZeroVector(dim)
		}

		chunk := domain.RankedChunk{
			ChunkID:           id,
			Content:           fields["content_with_weight"],
			ContentTokens:     fields["content_ltks"],
			DocID:             docID,
			DocName:           docName,
			KBID:              fields["kb_id"],
			ImportantKeywords: splitTabbed(fields["important_kwd"]),
			ImageID:           fields["img_id"],
			Similarity:        sim[i],
			VectorSimilarity:  vtsim[i],
			TermSimilarity:    tksim[i],
			Embedding:         embedding,
			Positions:         parsePositions(fields["position_int"]),
		}
		ranks.Chunks = append(ranks.Chunks, chunk)

		agg, ok := aggs[docName]
		if !ok {
			agg = &domain.DocAgg{DocName: docName, DocID: docID}
			aggs[docName] = agg
		}
		agg.Count++
	}

	ranks.DocAggs = make([]domain.DocAgg, 0, len(aggs))
	for _, agg := range aggs {
		ranks.DocAggs = append(ranks.DocAggs, *agg)
	}
	sort.SliceStable(ranks.DocAggs, func(i, j int) bool {
		return ranks.DocAggs[i].Count > ranks.DocAggs[j].Count
	})

	return ranks, nil
}

// ChunkList returns a document's chunks in index order, for browse and
// citation-fetch use cases. No scoring is involved.
func (d *Dealer) ChunkList(ctx context.Context, docID, tenantID string, maxCount int, fields []string) ([]map[string]string, error) {
	if maxCount <= 0 {
		maxCount = defaultTopK
	}
	if len(fields) == 0 {
		fields = []string{"docnm_kwd", "content_with_weight", "img_id"}
	}

	params := &SearchParams{
		DocIDs:   []string{docID},
		TopK:     maxCount,
		PageSize: maxCount,
		Fields:   fields,
	}
	sres, err := d.Search(ctx, params, IndexName(tenantID), nil)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, 0, len(sres.IDs))
	for _, id := range sres.IDs {
		out = append(out, sres.Fields[id])
	}
	return out, nil
}

// ValidateKnowledgebases rejects a request mixing knowledgebases whose
// embedding models disagree on dimension. Callers run this before Retrieve.
func (d *Dealer) ValidateKnowledgebases(ctx context.Context, kbIDs []string) error {
	if d.kbs == nil || len(kbIDs) < 2 {
		return nil
	}
	dim, err := d.kbs.EmbeddingDim(ctx, kbIDs[0])
	if err != nil {
		return err
	}
	for _, id := range kbIDs[1:] {
		other, err := d.kbs.EmbeddingDim(ctx, id)
		if err != nil {
			return err
		}
		if other != dim {
			return domain.ErrMixedDimensions
		}
	}
	return nil
}

// argsortDesc returns indices ordered by descending score; equal scores keep
// their original index order.
func argsortDesc(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}

func splitTabbed(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "\t") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePositions decodes position metadata stored as tab-joined numbers in
// groups of five (page, left, right, top, bottom). Anything else is ignored.
func parsePositions(raw string) []domain.Position {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\t")
	if len(parts)%5 != 0 {
		return nil
	}
	out := make([]domain.Position, 0, len(parts)/5)
	for i := 0; i+4 < len(parts); i += 5 {
		var pos domain.Position
		ok := true
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(parts[i+j], 32)
			if err != nil {
				ok = false
				break
			}
			pos[j] = float32(v)
		}
		if !ok {
			return nil
		}
		out = append(out, pos)
	}
	return out
}
