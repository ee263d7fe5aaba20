package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/gateway"
)

// stubGateway replays scripted responses and records every request it saw.
type stubGateway struct {
	responses []*gateway.SearchResponse
	requests  []*gateway.SearchRequest
	indexes   []string
	err       error

	sqlResult  *gateway.SQLResult
	sqlErr     error
	sqlQueries []string
}

func (g *stubGateway) Search(ctx context.Context, index string, req *gateway.SearchRequest) (*gateway.SearchResponse, error) {
	g.indexes = append(g.indexes, index)
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.responses) == 0 {
		return &gateway.SearchResponse{}, nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

func (g *stubGateway) SQL(ctx context.Context, query string, fetchSize int) (*gateway.SQLResult, error) {
	g.sqlQueries = append(g.sqlQueries, query)
	if g.sqlErr != nil {
		return nil, g.sqlErr
	}
	if g.sqlResult != nil {
		return g.sqlResult, nil
	}
	return &gateway.SQLResult{}, nil
}

type stubEmbedder struct {
	queryVec domain.Vector
	vecs     []domain.Vector
	err      error
	calls    int
}

func (e *stubEmbedder) Encode(ctx context.Context, texts []string) ([]domain.Vector, int, error) {
	e.calls++
	if e.err != nil {
		return nil, 0, e.err
	}
	out := make([]domain.Vector, len(texts))
	for i := range texts {
		if i < len(e.vecs) {
			out[i] = e.vecs[i]
		} else {
			out[i] = e.queryVec
		}
	}
	return out, len(texts), nil
}

func (e *stubEmbedder) EncodeQuery(ctx context.Context, text string) (domain.Vector, int, error) {
	e.calls++
	if e.err != nil {
		return domain.Vector{}, 0, e.err
	}
	return e.queryVec, 1, nil
}

type stubResolver struct {
	shared  map[string]bool
	adminID string
	dims    map[string]int
	err     error
}

func (r *stubResolver) IsShared(ctx context.Context, kbID string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.shared[kbID], nil
}

func (r *stubResolver) AdminTenantID(ctx context.Context) (string, error) {
	if r.adminID == "" {
		return "", domain.ErrAdminTenantNotFound
	}
	return r.adminID, nil
}

func (r *stubResolver) EmbeddingDim(ctx context.Context, kbID string) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	dim, ok := r.dims[kbID]
	if !ok {
		return 0, domain.ErrKnowledgebaseNotFound
	}
	return dim, nil
}

type stubReranker struct {
	scores []float64
	err    error
	query  string
	texts  []string
}

func (r *stubReranker) Similarity(ctx context.Context, query string, texts []string) ([]float64, error) {
	r.query = query
	r.texts = texts
	if r.err != nil {
		return nil, r.err
	}
	return r.scores[:len(texts)], nil
}

func hit(id string, embedding []float32, fields map[string]string) gateway.Hit {
	return gateway.Hit{ID: id, Fields: fields, Embedding: domain.NewVector(embedding)}
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "recall_t1", IndexName("t1"))
}

func TestSearchRequiresEmbedderForVectorQueries(t *testing.T) {
	d := NewDealer(&stubGateway{}, nil)

	_, err := d.Search(context.Background(), &SearchParams{Question: "alpha", Vector: true}, "recall_t1", nil)
	assert.ErrorIs(t, err, domain.ErrMissingEmbedder)
}

func TestSearchAttachesKNNAndDisablesHighlight(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{Total: 1, Hits: []gateway.Hit{
		hit("c1", []float32{1, 0}, map[string]string{"content_ltks": "alpha"}),
	}}}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	res, err := d.Search(context.Background(), &SearchParams{
		Question: "alpha beta", Vector: true, TopK: 64, SimilarityFloor: 0.25,
	}, "recall_t1", emb)
	require.NoError(t, err)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	require.NotNil(t, req.KNN)
	assert.Equal(t, 64, req.KNN.K)
	assert.Equal(t, 128, req.KNN.NumCandidates)
	assert.InDelta(t, 0.25, req.KNN.SimilarityFloor, 1e-9)
	assert.False(t, req.Highlight)
	assert.Equal(t, []string{"recall_t1"}, gw.indexes)

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []string{"c1"}, res.IDs)
	assert.Equal(t, domain.NewVector([]float32{1, 0}), res.QueryVector)
}

func TestSearchRelaxedRetryOnZeroHits(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{
		{Total: 0},
		{Total: 1, Hits: []gateway.Hit{hit("c1", []float32{1, 0}, map[string]string{"content_ltks": "alpha"})}},
	}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	res, err := d.Search(context.Background(), &SearchParams{Question: "alpha", Vector: true}, "recall_t1", emb)
	require.NoError(t, err)

	require.Len(t, gw.requests, 2)
	retry := gw.requests[1]
	assert.Equal(t, "10%", retry.MinimumShouldMatch)
	require.NotNil(t, retry.KNN)
	assert.InDelta(t, 0.17, retry.KNN.SimilarityFloor, 1e-9)
	assert.False(t, retry.Highlight)
	assert.Equal(t, 1, res.Total)
}

func TestSearchRetriesAtMostOnce(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{Total: 0}, {Total: 0}}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	res, err := d.Search(context.Background(), &SearchParams{Question: "alpha", Vector: true}, "recall_t1", emb)
	require.NoError(t, err)
	assert.Len(t, gw.requests, 2)
	assert.Equal(t, 0, res.Total)
}

func TestSearchNoRetryWithoutKNN(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{Total: 0}}}
	d := NewDealer(gw, nil)

	_, err := d.Search(context.Background(), &SearchParams{Question: "alpha"}, "recall_t1", nil)
	require.NoError(t, err)
	assert.Len(t, gw.requests, 1)
}

func TestSearchWrapsGatewayFailure(t *testing.T) {
	gw := &stubGateway{err: errors.New("connection refused")}
	d := NewDealer(gw, nil)

	_, err := d.Search(context.Background(), &SearchParams{Question: "alpha"}, "recall_t1", nil)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeGateway, derr.Code)
}

func TestSearchInterpretsHits(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{
		Total: 2,
		Hits: []gateway.Hit{
			{
				ID: "c1",
				Fields: map[string]string{
					"content_ltks": "alpha beta",
					"docnm_kwd":    "guide.pdf",
					"ignored":      "dropped",
				},
				Embedding:          domain.NewVector([]float32{1, 0}),
				HighlightFragments: []string{"alpha ", "beta"},
			},
			{ID: "c2", Fields: map[string]string{"content_ltks": "gamma"}},
		},
		Aggregations: map[string][]gateway.Bucket{
			"docnm_kwd": {{Value: "guide.pdf", Count: 2}},
		},
	}}}
	d := NewDealer(gw, nil)

	res, err := d.Search(context.Background(), &SearchParams{
		Question: "gpt4 model",
		Fields:   []string{"content_ltks", "docnm_kwd"},
	}, "recall_t1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, res.IDs)
	assert.Equal(t, map[string]string{"content_ltks": "alpha beta", "docnm_kwd": "guide.pdf"}, res.Fields["c1"])
	assert.Equal(t, "alpha beta", res.Highlights["c1"])
	assert.NotContains(t, res.Highlights, "c2")
	require.Len(t, res.Aggregation, 1)
	assert.Equal(t, "guide.pdf", res.Aggregation[0].Value)

	// Keywords carry the fine-grained sub-tokens, deduplicated.
	assert.Equal(t, []string{"gpt4", "model", "gpt"}, res.Keywords)
}

func TestSearchCollapsesTokenFieldSpacing(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{
		Total: 1,
		Hits: []gateway.Hit{{
			ID: "c1",
			Fields: map[string]string{
				"content_ltks":        "深 度 学 习 with transformers",
				"title_tks":           "machine learning guide",
				"content_with_weight": "深 度 学 习 with transformers",
			},
		}},
	}}}
	d := NewDealer(gw, nil)

	res, err := d.Search(context.Background(), &SearchParams{
		Question: "transformers",
		Fields:   []string{"content_ltks", "title_tks", "content_with_weight"},
	}, "recall_t1", nil)
	require.NoError(t, err)

	// Tokenizer-inserted spaces between CJK tokens disappear; Latin word
	// spacing survives. Non-token fields pass through untouched.
	assert.Equal(t, "深度学习with transformers", res.Fields["c1"]["content_ltks"])
	assert.Equal(t, "machine learning guide", res.Fields["c1"]["title_tks"])
	assert.Equal(t, "深 度 学 习 with transformers", res.Fields["c1"]["content_with_weight"])
}

func TestRerank(t *testing.T) {
	d := NewDealer(&stubGateway{}, nil)
	sres := &SearchResult{
		IDs:         []string{"c1", "c2"},
		QueryVector: domain.NewVector([]float32{1, 0}),
		Fields: map[string]map[string]string{
			"c1": {"content_ltks": "alpha beta"},
			"c2": {"content_ltks": "alpha", "important_kwd": "gamma\tdelta"},
		},
		Embeddings: map[string]domain.Vector{
			"c1": domain.NewVector([]float32{1, 0}),
			"c2": domain.NewVector([]float32{0, 1}),
		},
	}

	sim, tksim, vtsim, err := d.Rerank(sres, "alpha beta", 0.7, 0.3)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, tksim[0], 1e-9)
	assert.InDelta(t, 0.5, tksim[1], 1e-9)
	assert.InDelta(t, 1.0, vtsim[0], 1e-9)
	assert.InDelta(t, 0.0, vtsim[1], 1e-9)
	assert.InDelta(t, 1.0, sim[0], 1e-9)
	assert.InDelta(t, 0.35, sim[1], 1e-9)
}

func TestRerankEmptyResult(t *testing.T) {
	d := NewDealer(&stubGateway{}, nil)
	sim, tksim, vtsim, err := d.Rerank(&SearchResult{}, "alpha", 0.7, 0.3)
	require.NoError(t, err)
	assert.Nil(t, sim)
	assert.Nil(t, tksim)
	assert.Nil(t, vtsim)
}

func TestRerankByModel(t *testing.T) {
	d := NewDealer(&stubGateway{}, nil)
	rr := &stubReranker{scores: []float64{0.9, 0.1}}
	sres := &SearchResult{
		IDs: []string{"c1", "c2"},
		Fields: map[string]map[string]string{
			"c1": {"content_ltks": "alpha beta"},
			"c2": {"content_ltks": "gamma"},
		},
	}

	sim, tksim, vtsim, err := d.RerankByModel(context.Background(), rr, sres, "alpha beta", 0.3, 0.7)
	require.NoError(t, err)

	assert.Equal(t, "alpha beta", rr.query)
	assert.Equal(t, []string{"alpha beta", "gamma"}, rr.texts)
	assert.InDelta(t, 0.9, vtsim[0], 1e-9)
	assert.InDelta(t, 0.3*1.0+0.7*0.9, sim[0], 1e-9)
	assert.InDelta(t, 0.3*0.0+0.7*0.1, sim[1], 1e-9)
	assert.InDelta(t, 0.0, tksim[1], 1e-9)
}

func retrieveFixtureResponse() *gateway.SearchResponse {
	return &gateway.SearchResponse{
		Total: 3,
		Hits: []gateway.Hit{
			hit("c-low", []float32{0, 1}, map[string]string{
				"content_ltks": "unrelated", "content_with_weight": "Unrelated.",
				"docnm_kwd": "other.pdf", "doc_id": "docB", "kb_id": "kb1",
			}),
			hit("c-best", []float32{1, 0}, map[string]string{
				"content_ltks": "alpha beta", "content_with_weight": "Alpha beta.",
				"docnm_kwd": "guide.pdf", "doc_id": "docA", "kb_id": "kb1",
				"important_kwd": "alpha\tcore", "img_id": "img-1",
				"position_int": "1\t10\t20\t30\t40",
			}),
			hit("c-mid", []float32{1, 0}, map[string]string{
				"content_ltks": "alpha", "content_with_weight": "Alpha only.",
				"docnm_kwd": "guide.pdf", "doc_id": "docA", "kb_id": "kb1",
			}),
		},
	}
}

func TestRetrieve(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		TenantID: "t1",
		KBIDs:    []string{"kb1"},
	})
	require.NoError(t, err)

	// c-low scores 0.7*0 + 0.3*0 = 0 and falls below the 0.2 threshold.
	assert.Equal(t, 2, ranks.Total)
	require.Len(t, ranks.Chunks, 2)

	best := ranks.Chunks[0]
	assert.Equal(t, "c-best", best.ChunkID)
	assert.Equal(t, "Alpha beta.", best.Content)
	assert.Equal(t, "docA", best.DocID)
	assert.Equal(t, "guide.pdf", best.DocName)
	assert.Equal(t, []string{"alpha", "core"}, best.ImportantKeywords)
	assert.Equal(t, "img-1", best.ImageID)
	assert.InDelta(t, 1.0, best.Similarity, 1e-9)
	assert.InDelta(t, 1.0, best.VectorSimilarity, 1e-9)
	assert.InDelta(t, 1.0, best.TermSimilarity, 1e-9)
	require.Len(t, best.Positions, 1)
	assert.Equal(t, domain.Position{1, 10, 20, 30, 40}, best.Positions[0])

	assert.Equal(t, "c-mid", ranks.Chunks[1].ChunkID)
	assert.InDelta(t, 0.7*0.5+0.3*1.0, ranks.Chunks[1].Similarity, 1e-9)

	require.Len(t, ranks.DocAggs, 1)
	assert.Equal(t, domain.DocAgg{DocName: "guide.pdf", DocID: "docA", Count: 2}, ranks.DocAggs[0])

	assert.Equal(t, []string{"alpha", "beta"}, ranks.Keywords)
	assert.Equal(t, []string{"recall_t1"}, gw.indexes)

	// Enabled-only filter is always applied on retrieval.
	assert.Equal(t, domain.AvailabilityEnabledOnly, gw.requests[0].Availability)
}

func TestRetrieveEmptyQuestion(t *testing.T) {
	gw := &stubGateway{}
	d := NewDealer(gw, nil)

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{Question: "   "})
	require.NoError(t, err)
	assert.Equal(t, 0, ranks.Total)
	assert.Empty(t, ranks.Chunks)
	assert.Empty(t, ranks.DocAggs)
	assert.Empty(t, gw.requests)
}

func TestRetrievePagination(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		TenantID: "t1",
		Page:     2,
		PageSize: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, ranks.Total)
	require.Len(t, ranks.Chunks, 1)
	assert.Equal(t, "c-mid", ranks.Chunks[0].ChunkID)
}

func TestRetrieveThresholdCutoff(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question:            "alpha beta",
		Embedder:            emb,
		TenantID:            "t1",
		SimilarityThreshold: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ranks.Total)
	require.Len(t, ranks.Chunks, 1)
	assert.Equal(t, "c-best", ranks.Chunks[0].ChunkID)
}

func TestRetrieveZeroVectorPlaceholder(t *testing.T) {
	resp := &gateway.SearchResponse{
		Total: 1,
		Hits: []gateway.Hit{{
			ID: "c1",
			Fields: map[string]string{
				"content_ltks": "alpha beta", "content_with_weight": "Alpha beta.",
				"docnm_kwd": "guide.pdf", "doc_id": "docA", "kb_id": "kb1",
			},
		}},
	}
	gw := &stubGateway{responses: []*gateway.SearchResponse{resp, resp}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		TenantID: "t1",
	})
	require.NoError(t, err)

	require.Len(t, ranks.Chunks, 1)
	chunk := ranks.Chunks[0]
	assert.InDelta(t, 0.7, chunk.Similarity, 1e-9)
	assert.Equal(t, domain.ZeroVector(2), chunk.Embedding)
}

func TestRetrieveSharedKnowledgebaseReroutes(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	kbs := &stubResolver{shared: map[string]bool{"kb-shared": true}, adminID: "admin"}
	d := NewDealer(gw, kbs)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	_, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		TenantID: "t1",
		KBIDs:    []string{"kb-shared"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"recall_admin"}, gw.indexes)
}

func TestRetrievePrivateKnowledgebaseStaysLocal(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	kbs := &stubResolver{shared: map[string]bool{}, adminID: "admin"}
	d := NewDealer(gw, kbs)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}

	_, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		TenantID: "t1",
		KBIDs:    []string{"kb-private"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"recall_t1"}, gw.indexes)
}

func TestRetrieveWithReranker(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{retrieveFixtureResponse()}}
	d := NewDealer(gw, nil)
	emb := &stubEmbedder{queryVec: domain.NewVector([]float32{1, 0})}
	rr := &stubReranker{scores: []float64{0.1, 0.9, 0.5}}

	ranks, err := d.Retrieve(context.Background(), &RetrieveRequest{
		Question: "alpha beta",
		Embedder: emb,
		Reranker: rr,
		TenantID: "t1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ranks.Chunks)
	assert.Equal(t, "c-best", ranks.Chunks[0].ChunkID)
	assert.NotEmpty(t, rr.texts)
}

func TestRetrieveMissingEmbedder(t *testing.T) {
	d := NewDealer(&stubGateway{}, nil)
	_, err := d.Retrieve(context.Background(), &RetrieveRequest{Question: "alpha", TenantID: "t1"})
	assert.ErrorIs(t, err, domain.ErrMissingEmbedder)
}

func TestChunkList(t *testing.T) {
	gw := &stubGateway{responses: []*gateway.SearchResponse{{
		Total: 2,
		Hits: []gateway.Hit{
			{ID: "c1", Fields: map[string]string{"docnm_kwd": "guide.pdf", "content_with_weight": "First."}},
			{ID: "c2", Fields: map[string]string{"docnm_kwd": "guide.pdf", "content_with_weight": "Second."}},
		},
	}}}
	d := NewDealer(gw, nil)

	chunks, err := d.ChunkList(context.Background(), "docA", "t1", 0, nil)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "First.", chunks[0]["content_with_weight"])
	assert.Equal(t, "Second.", chunks[1]["content_with_weight"])

	req := gw.requests[0]
	assert.Equal(t, []string{"docA"}, req.DocIDs)
	assert.Equal(t, defaultTopK, req.TopK)
	assert.Equal(t, []string{"docnm_kwd", "content_with_weight", "img_id"}, req.Fields)
	assert.Equal(t, []string{"recall_t1"}, gw.indexes)
}

func TestValidateKnowledgebases(t *testing.T) {
	kbs := &stubResolver{dims: map[string]int{"kb1": 1536, "kb2": 1536, "kb3": 768}}
	d := NewDealer(&stubGateway{}, kbs)

	tests := []struct {
		name    string
		kbIDs   []string
		wantErr error
	}{
		{"single kb always passes", []string{"kb1"}, nil},
		{"matching dims pass", []string{"kb1", "kb2"}, nil},
		{"mixed dims rejected", []string{"kb1", "kb3"}, domain.ErrMixedDimensions},
		{"unknown kb surfaces not found", []string{"kb1", "kb-missing"}, domain.ErrKnowledgebaseNotFound},
		{"empty list passes", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.ValidateKnowledgebases(context.Background(), tt.kbIDs)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArgsortDesc(t *testing.T) {
	assert.Equal(t, []int{2, 0, 1}, argsortDesc([]float64{0.5, 0.1, 0.9}))
	// Ties keep original order.
	assert.Equal(t, []int{0, 1, 2}, argsortDesc([]float64{0.5, 0.5, 0.5}))
	assert.Empty(t, argsortDesc(nil))
}

func TestSplitTabbed(t *testing.T) {
	assert.Equal(t, []string{"alpha", "beta"}, splitTabbed("alpha\tbeta"))
	assert.Equal(t, []string{"alpha"}, splitTabbed("alpha\t"))
	assert.Nil(t, splitTabbed(""))
}

func TestParsePositions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []domain.Position
	}{
		{"single group", "1\t10\t20\t30\t40", []domain.Position{{1, 10, 20, 30, 40}}},
		{"two groups", "1\t10\t20\t30\t40\t2\t11\t21\t31\t41", []domain.Position{{1, 10, 20, 30, 40}, {2, 11, 21, 31, 41}}},
		{"empty", "", nil},
		{"wrong arity ignored", "1\t2\t3", nil},
		{"non-numeric ignored", "1\t2\t3\t4\tx", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePositions(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}
