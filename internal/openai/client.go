package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/recall/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when no text is given to embed
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for batch embedding generation. The
// second return value is the total token count the call consumed.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error)
}

// Embedder wraps the OpenAI API behind the engine's embedding contract.
type Embedder struct {
	api        EmbeddingAPI
	dimensions int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, resp.Usage.TotalTokens, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewEmbedder creates an Embedder using defaults.
func NewEmbedder(apiKey string) *Embedder {
	return NewEmbedderWithConfig(Config{APIKey: apiKey})
}

// NewEmbedderWithConfig creates an Embedder with explicit configuration.
func NewEmbedderWithConfig(cfg Config) *Embedder {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Embedder{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
	}
}

// NewEmbedderFromEnv creates an Embedder using the OPENAI_API_KEY environment variable
func NewEmbedderFromEnv() (*Embedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewEmbedder(apiKey), nil
}

// Encode embeds a batch of texts. Every returned vector is checked against
// the configured dimension so a model mixup fails loudly here rather than as
// a silent score anomaly downstream.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([]domain.Vector, int, error) {
	if len(texts) == 0 {
		return nil, 0, ErrEmptyText
	}
	for _, t := range texts {
		if t == "" {
			return nil, 0, ErrEmptyText
		}
	}

	raw, tokens, err := e.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create embeddings: %w", err)
	}

	vecs := make([]domain.Vector, len(raw))
	for i, values := range raw {
		if len(values) != e.dimensions {
			return nil, 0, domain.NewDimensionMismatch(e.dimensions, len(values))
		}
		vecs[i] = domain.NewVector(values)
	}
	return vecs, tokens, nil
}

// EncodeQuery embeds a single query string.
func (e *Embedder) EncodeQuery(ctx context.Context, text string) (domain.Vector, int, error) {
	vecs, tokens, err := e.Encode(ctx, []string{text})
	if err != nil {
		return domain.Vector{}, 0, err
	}
	return vecs[0], tokens, nil
}
