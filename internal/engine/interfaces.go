package engine

import (
	"context"

	"github.com/cloo-solutions/recall/internal/domain"
)

// Embedder encodes text into embedding vectors. The second return value is
// the token count consumed, for usage accounting upstream.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([]domain.Vector, int, error)
	EncodeQuery(ctx context.Context, text string) (domain.Vector, int, error)
}

// Reranker is an external cross-encoder scoring candidate texts against a
// query. Scores are similarity-like, higher is better.
type Reranker interface {
	Similarity(ctx context.Context, query string, texts []string) ([]float64, error)
}

// KnowledgebaseResolver answers the knowledgebase-management questions the
// engine needs: shared-knowledgebase routing and embedding dimensions.
type KnowledgebaseResolver interface {
	IsShared(ctx context.Context, kbID string) (bool, error)
	AdminTenantID(ctx context.Context) (string, error)
	EmbeddingDim(ctx context.Context, kbID string) (int, error)
}
