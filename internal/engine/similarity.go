package engine

import (
	"math"

	"github.com/cloo-solutions/recall/internal/domain"
)

// CosineSimilarity computes the cosine of the angle between two embeddings.
// An empty or all-zero vector on either side scores 0 rather than erroring:
// chunks indexed without an embedding simply rank low. Non-empty vectors of
// different dimensions are a fatal mismatch.
func CosineSimilarity(a, b domain.Vector) (float64, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return 0, nil
	}
	if len(a.Values) != len(b.Values) {
		return 0, domain.NewDimensionMismatch(len(a.Values), len(b.Values))
	}

	var dot, na, nb float64
	for i := range a.Values {
		av := float64(a.Values[i])
		bv := float64(b.Values[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// TokenSimilarity measures weighted distinct-term overlap between the query
// tokens and each chunk's tokens. Order is irrelevant; duplicate query tokens
// count once. Scores are in [0, 1].
func TokenSimilarity(queryTokens []string, chunkTokens [][]string) []float64 {
	weights := make(map[string]float64, len(queryTokens))
	var total float64
	for _, tok := range queryTokens {
		if _, seen := weights[tok]; seen {
			continue
		}
		w := tokenWeight(tok)
		weights[tok] = w
		total += w
	}

	sims := make([]float64, len(chunkTokens))
	if total == 0 {
		return sims
	}

	for i, toks := range chunkTokens {
		present := make(map[string]struct{}, len(toks))
		for _, tok := range toks {
			present[tok] = struct{}{}
		}
		var matched float64
		for tok, w := range weights {
			if _, ok := present[tok]; ok {
				matched += w
			}
		}
		sims[i] = matched / total
	}
	return sims
}

// HybridSimilarity fuses lexical and vector similarity into one score per
// chunk: fused = tkWeight*token + vtWeight*vector. The weights are the
// caller's responsibility; they conventionally sum to 1 but need not.
func HybridSimilarity(queryVec domain.Vector, chunkVecs []domain.Vector,
	queryTokens []string, chunkTokens [][]string,
	tkWeight, vtWeight float64) (fused, tksim, vtsim []float64, err error) {

	tksim = TokenSimilarity(queryTokens, chunkTokens)

	vtsim = make([]float64, len(chunkVecs))
	for i, cv := range chunkVecs {
		vtsim[i], err = CosineSimilarity(queryVec, cv)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	fused = make([]float64, len(chunkVecs))
	for i := range fused {
		fused[i] = tkWeight*tksim[i] + vtWeight*vtsim[i]
	}
	return fused, tksim, vtsim, nil
}

// fuseWithModelScores applies the same weighted-sum formula when the vector
// role is played by an external cross-encoder's scores.
func fuseWithModelScores(tksim, modelSim []float64, tkWeight, vtWeight float64) []float64 {
	fused := make([]float64, len(tksim))
	for i := range fused {
		fused[i] = tkWeight*tksim[i] + vtWeight*modelSim[i]
	}
	return fused
}
