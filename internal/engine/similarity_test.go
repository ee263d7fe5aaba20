package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/recall/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        domain.Vector
		b        domain.Vector
		expected float64
	}{
		{"identical vectors", domain.NewVector([]float32{1, 0, 0}), domain.NewVector([]float32{1, 0, 0}), 1.0},
		{"orthogonal vectors", domain.NewVector([]float32{1, 0}), domain.NewVector([]float32{0, 1}), 0.0},
		{"opposite vectors", domain.NewVector([]float32{1, 0}), domain.NewVector([]float32{-1, 0}), -1.0},
		{"empty left side scores zero", domain.Vector{}, domain.NewVector([]float32{1, 2}), 0.0},
		{"empty right side scores zero", domain.NewVector([]float32{1, 2}), domain.Vector{}, 0.0},
		{"all-zero placeholder scores zero", domain.NewVector([]float32{1, 2}), domain.ZeroVector(2), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity(domain.NewVector([]float32{1, 2}), domain.NewVector([]float32{1, 2, 3}))
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeDimensionMismatch, derr.Code)
}

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		name        string
		queryTokens []string
		chunkTokens [][]string
		expected    []float64
	}{
		{
			"full overlap",
			[]string{"alpha", "beta"},
			[][]string{{"alpha", "beta", "gamma"}},
			[]float64{1.0},
		},
		{
			"partial overlap",
			[]string{"alpha", "beta"},
			[][]string{{"alpha"}},
			[]float64{0.5},
		},
		{
			"no overlap",
			[]string{"alpha"},
			[][]string{{"beta"}},
			[]float64{0.0},
		},
		{
			"duplicate query tokens count once",
			[]string{"alpha", "alpha", "beta"},
			[][]string{{"alpha"}},
			[]float64{0.5},
		},
		{
			"digit tokens are discounted",
			[]string{"alpha", "2024"},
			[][]string{{"2024"}},
			[]float64{0.3 / 1.3},
		},
		{
			"empty query yields zeros",
			nil,
			[][]string{{"alpha"}, {"beta"}},
			[]float64{0.0, 0.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSimilarity(tt.queryTokens, tt.chunkTokens)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], got[i], 1e-9)
			}
		})
	}
}

func TestHybridSimilarity(t *testing.T) {
	queryVec := domain.NewVector([]float32{1, 0})
	chunkVecs := []domain.Vector{
		domain.NewVector([]float32{1, 0}), // cosine 1
		domain.NewVector([]float32{0, 1}), // cosine 0
	}
	queryTokens := []string{"alpha", "beta"}
	chunkTokens := [][]string{
		{"alpha", "beta"}, // token 1
		{"alpha"},         // token 0.5
	}

	fused, tksim, vtsim, err := HybridSimilarity(queryVec, chunkVecs, queryTokens, chunkTokens, 0.7, 0.3)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, tksim[0], 1e-9)
	assert.InDelta(t, 0.5, tksim[1], 1e-9)
	assert.InDelta(t, 1.0, vtsim[0], 1e-9)
	assert.InDelta(t, 0.0, vtsim[1], 1e-9)
	assert.InDelta(t, 0.7*1.0+0.3*1.0, fused[0], 1e-9)
	assert.InDelta(t, 0.7*0.5+0.3*0.0, fused[1], 1e-9)
}

func TestHybridSimilarityEmptyChunkVector(t *testing.T) {
	// A chunk indexed without an embedding ranks on its lexical side alone.
	fused, _, vtsim, err := HybridSimilarity(
		domain.NewVector([]float32{1, 0}),
		[]domain.Vector{{}},
		[]string{"alpha"},
		[][]string{{"alpha"}},
		0.7, 0.3,
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, vtsim[0], 1e-9)
	assert.InDelta(t, 0.7, fused[0], 1e-9)
}

func TestFuseWithModelScores(t *testing.T) {
	fused := fuseWithModelScores([]float64{1.0, 0.5}, []float64{0.8, 0.2}, 0.3, 0.7)
	assert.InDelta(t, 0.3*1.0+0.7*0.8, fused[0], 1e-9)
	assert.InDelta(t, 0.3*0.5+0.7*0.2, fused[1], 1e-9)
}
