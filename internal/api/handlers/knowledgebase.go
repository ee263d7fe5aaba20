package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloo-solutions/recall/internal/api"
	"github.com/cloo-solutions/recall/internal/api/middleware"
	"github.com/cloo-solutions/recall/internal/domain"
)

type KnowledgebaseRepository interface {
	Create(ctx context.Context, kb *domain.Knowledgebase) error
	GetByID(ctx context.Context, id string) (*domain.Knowledgebase, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error)
	Delete(ctx context.Context, id string) error
}

type KnowledgebaseHandler struct {
	repo KnowledgebaseRepository
}

func NewKnowledgebaseHandler(repo KnowledgebaseRepository) *KnowledgebaseHandler {
	return &KnowledgebaseHandler{repo: repo}
}

type CreateKnowledgebaseRequest struct {
	Name         string `json:"name"`
	EmbeddingDim int    `json:"embedding_dim"`
	Shared       bool   `json:"shared,omitempty"`
}

type KnowledgebaseResponse struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Name         string `json:"name"`
	EmbeddingDim int    `json:"embedding_dim"`
	Shared       bool   `json:"shared"`
	CreatedAt    string `json:"created_at"`
}

func toKnowledgebaseResponse(kb *domain.Knowledgebase) KnowledgebaseResponse {
	return KnowledgebaseResponse{
		ID:           kb.ID,
		TenantID:     kb.TenantID,
		Name:         kb.Name,
		EmbeddingDim: kb.EmbeddingDim,
		Shared:       kb.Shared,
		CreatedAt:    kb.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *KnowledgebaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateKnowledgebaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kb := &domain.Knowledgebase{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         req.Name,
		EmbeddingDim: req.EmbeddingDim,
		Shared:       req.Shared,
		CreatedAt:    time.Now().UTC(),
	}
	if err := domain.ValidateKnowledgebase(kb); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Create(r.Context(), kb); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, toKnowledgebaseResponse(kb))
}

func (h *KnowledgebaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kb, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if kb.TenantID != tenantID && !kb.Shared {
		api.Error(w, http.StatusNotFound, domain.ErrKnowledgebaseNotFound.Error())
		return
	}

	api.Success(w, http.StatusOK, toKnowledgebaseResponse(kb))
}

func (h *KnowledgebaseHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kbs, err := h.repo.ListByTenant(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]KnowledgebaseResponse, len(kbs))
	for i, kb := range kbs {
		responses[i] = toKnowledgebaseResponse(kb)
	}
	api.Success(w, http.StatusOK, responses)
}

func (h *KnowledgebaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	kb, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if kb.TenantID != tenantID {
		api.Error(w, http.StatusNotFound, domain.ErrKnowledgebaseNotFound.Error())
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
