package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/recall/internal/api"
	"github.com/cloo-solutions/recall/internal/api/middleware"
	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/engine"
)

// ImageResolver turns a stored image reference into a fetchable URL.
type ImageResolver interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// RetrievalHandler serves retrieval, citation, structured query, and chunk
// listing endpoints. The embedder and reranker are the process-wide model
// clients; per-request the reranker participates only when asked for.
type RetrievalHandler struct {
	dealer   *engine.Dealer
	embedder engine.Embedder
	reranker engine.Reranker
	images   ImageResolver
}

func NewRetrievalHandler(dealer *engine.Dealer, embedder engine.Embedder, reranker engine.Reranker, images ImageResolver) *RetrievalHandler {
	return &RetrievalHandler{
		dealer:   dealer,
		embedder: embedder,
		reranker: reranker,
		images:   images,
	}
}

type RetrievalRequest struct {
	Question            string   `json:"question"`
	KBIDs               []string `json:"kb_ids"`
	DocIDs              []string `json:"doc_ids,omitempty"`
	Page                int      `json:"page,omitempty"`
	PageSize            int      `json:"page_size,omitempty"`
	SimilarityThreshold float64  `json:"similarity_threshold,omitempty"`
	VectorWeight        float64  `json:"vector_weight,omitempty"`
	TopK                int      `json:"top_k,omitempty"`
	Aggregate           *bool    `json:"aggregate,omitempty"`
	Rerank              bool     `json:"rerank,omitempty"`
}

func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.KBIDs) == 0 {
		api.Error(w, http.StatusBadRequest, "kb_ids is required")
		return
	}

	if err := h.dealer.ValidateKnowledgebases(r.Context(), req.KBIDs); err != nil {
		api.HandleError(w, err)
		return
	}

	var reranker engine.Reranker
	if req.Rerank {
		reranker = h.reranker
	}

	// Totals cover the whole qualifying set unless the caller opts out of
	// the extra scanning.
	aggregate := true
	if req.Aggregate != nil {
		aggregate = *req.Aggregate
	}

	result, err := h.dealer.Retrieve(r.Context(), &engine.RetrieveRequest{
		Question:            req.Question,
		Embedder:            h.embedder,
		Reranker:            reranker,
		TenantID:            tenantID,
		KBIDs:               req.KBIDs,
		DocIDs:              req.DocIDs,
		Page:                req.Page,
		PageSize:            req.PageSize,
		SimilarityThreshold: req.SimilarityThreshold,
		VectorWeight:        req.VectorWeight,
		TopK:                req.TopK,
		Aggregate:           aggregate,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.resolveImages(r.Context(), result.Chunks)

	api.Success(w, http.StatusOK, result)
}

// resolveImages swaps img_id references for presigned URLs. Failures leave
// the reference untouched rather than failing the retrieval.
func (h *RetrievalHandler) resolveImages(ctx context.Context, chunks []domain.RankedChunk) {
	if h.images == nil {
		return
	}
	for i := range chunks {
		if chunks[i].ImageID == "" {
			continue
		}
		if url, err := h.images.GenerateDownloadURL(ctx, chunks[i].ImageID); err == nil {
			chunks[i].ImageURL = url
		}
	}
}

type CitationChunk struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

type CitationRequest struct {
	Answer       string          `json:"answer"`
	Chunks       []CitationChunk `json:"chunks"`
	TokenWeight  float64         `json:"token_weight,omitempty"`
	VectorWeight float64         `json:"vector_weight,omitempty"`
}

type CitationResponse struct {
	Answer string `json:"answer"`
	Cited  []int  `json:"cited"`
}

func (h *RetrievalHandler) InsertCitations(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	texts := make([]string, len(req.Chunks))
	vecs := make([]domain.Vector, len(req.Chunks))
	for i, c := range req.Chunks {
		texts[i] = c.Content
		vecs[i] = domain.NewVector(c.Embedding)
	}

	annotated, cited, err := h.dealer.InsertCitations(r.Context(), req.Answer, texts, vecs,
		h.embedder, req.TokenWeight, req.VectorWeight)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if cited == nil {
		cited = []int{}
	}
	api.Success(w, http.StatusOK, CitationResponse{Answer: annotated, Cited: cited})
}

type SQLRequest struct {
	SQL       string `json:"sql"`
	FetchSize int    `json:"fetch_size,omitempty"`
}

// ExecuteSQL bridges restricted SQL onto the index. The response is always
// 200; translation or backend failures travel in the result's error field so
// the caller's retry loop can react to them.
func (h *RetrievalHandler) ExecuteSQL(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		api.Error(w, http.StatusBadRequest, "sql is required")
		return
	}

	result := h.dealer.SQLRetrieval(r.Context(), req.SQL, req.FetchSize)
	api.Success(w, http.StatusOK, result)
}

type ChunkListResponse struct {
	Chunks []map[string]string `json:"chunks"`
}

func (h *RetrievalHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		api.Error(w, http.StatusBadRequest, "doc_id is required")
		return
	}

	maxCount := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "max must be a non-negative integer")
			return
		}
		maxCount = n
	}

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}

	chunks, err := h.dealer.ChunkList(r.Context(), docID, tenantID, maxCount, fields)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChunkListResponse{Chunks: chunks})
}
