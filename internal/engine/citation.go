package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/telemetry"
)

const (
	// Adaptive citation threshold: start high, decay geometrically, but
	// never cite below the floor. The loop terminates because the decay is
	// strictly below 1 and the floor check runs before every pass.
	citationStartThreshold = 0.63
	citationDecay          = 0.8
	citationFloor          = 0.3

	citationMaxPerSegment = 4
	minSegmentRunes       = 5

	// Segments are short, so fusion leans on the vector side by default.
	defaultCitationTokenWeight  = 0.1
	defaultCitationVectorWeight = 0.9
)

// Sentence boundaries covering both CJK and Latin terminators. The Latin
// variant requires a following space or newline so decimals and
// abbreviations survive.
var (
	sentenceBoundary       = regexp.MustCompile(`[^\|][；。？!！\n]|[a-z][.?;!][ \n]`)
	sentenceBoundaryPrefix = regexp.MustCompile(`^(?:[^\|][；。？!！\n]|[a-z][.?;!][ \n])`)
	codeFence              = regexp.MustCompile("```")
)

// InsertCitations segments an answer into sentence-like units, scores each
// unit against the retrieved chunks, and appends citation markers of the form
// " ##<idx>$$" after units whose best match clears the adaptive threshold.
// Each chunk is cited at most once across the whole answer. Returns the
// annotated text plus the sorted set of cited chunk indices.
func (d *Dealer) InsertCitations(ctx context.Context, answer string, chunks []string, chunkVecs []domain.Vector,
	emb Embedder, tkWeight, vtWeight float64) (string, []int, error) {

	ctx, span := telemetry.StartSpan(ctx, "Dealer.InsertCitations", telemetry.SpanAttributes{
		Operation: "citations",
	})
	defer span.End()

	if len(chunks) != len(chunkVecs) {
		return "", nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("chunk texts and vectors differ in length: %d vs %d", len(chunks), len(chunkVecs)))
	}
	if tkWeight <= 0 && vtWeight <= 0 {
		tkWeight = defaultCitationTokenWeight
		vtWeight = defaultCitationVectorWeight
	}

	pieces := segmentAnswer(answer)

	// Only segments long enough to carry meaning are scored; everything
	// still appears in the output.
	var idx []int
	var kept []string
	for i, p := range pieces {
		if utf8.RuneCountInString(p) < minSegmentRunes {
			continue
		}
		idx = append(idx, i)
		kept = append(kept, p)
	}
	if len(kept) == 0 || len(chunks) == 0 {
		return answer, nil, nil
	}

	segVecs, _, err := emb.Encode(ctx, kept)
	if err != nil {
		return "", nil, err
	}
	if len(segVecs) != len(kept) {
		return "", nil, domain.NewDomainError(domain.ErrCodeInternalError,
			fmt.Sprintf("embedder returned %d vectors for %d segments", len(segVecs), len(kept)))
	}
	if !chunkVecs[0].IsEmpty() && segVecs[0].Dim != chunkVecs[0].Dim {
		return "", nil, domain.NewDimensionMismatch(segVecs[0].Dim, chunkVecs[0].Dim)
	}

	chunkTokens := make([][]string, len(chunks))
	for i, ck := range chunks {
		chunkTokens[i] = d.tok.Tokenize(ck)
	}

	// The similarity matrix does not change between threshold iterations,
	// so it is computed once and only the comparison is re-evaluated.
	simMatrix := make([][]float64, len(kept))
	for i, seg := range kept {
		sim, _, _, err := HybridSimilarity(segVecs[i], chunkVecs, d.tok.Tokenize(seg), chunkTokens, tkWeight, vtWeight)
		if err != nil {
			return "", nil, err
		}
		simMatrix[i] = sim
	}

	cites := make(map[int][]int)
	for thr := citationStartThreshold; thr > citationFloor && len(cites) == 0; thr *= citationDecay {
		for i := range kept {
			row := simMatrix[i]
			mx := maxFloat(row) * 0.99
			if mx < thr {
				continue
			}
			var refs []int
			for ii, s := range row {
				if s > mx {
					refs = append(refs, ii)
				}
			}
			if len(refs) > citationMaxPerSegment {
				refs = refs[:citationMaxPerSegment]
			}
			cites[idx[i]] = refs
		}
	}

	var b strings.Builder
	seen := make(map[int]struct{})
	var cited []int
	for i, p := range pieces {
		b.WriteString(p)
		for _, c := range cites[i] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			fmt.Fprintf(&b, " ##%d$$", c)
			cited = append(cited, c)
		}
	}
	sort.Ints(cited)

	return b.String(), cited, nil
}

// segmentAnswer splits the answer at sentence boundaries while keeping
// fenced code blocks atomic. The returned pieces concatenate back to the
// original text (code blocks gain a trailing newline), with boundary
// punctuation re-attached to the segment it terminates.
func segmentAnswer(answer string) []string {
	fenceParts := splitKeep(codeFence, answer)

	var pieces []string
	if len(fenceParts) >= 3 {
		i := 0
		for i < len(fenceParts) {
			if fenceParts[i] == "```" {
				st := i
				i++
				for i < len(fenceParts) && fenceParts[i] != "```" {
					i++
				}
				if i < len(fenceParts) {
					i++
				}
				pieces = append(pieces, strings.Join(fenceParts[st:i], "")+"\n")
				continue
			}
			pieces = append(pieces, splitKeep(sentenceBoundary, fenceParts[i])...)
			i++
		}
	} else {
		pieces = splitKeep(sentenceBoundary, answer)
	}

	// The boundary match swallows the sentence's last character; hand it
	// back to the preceding piece.
	for i := 1; i < len(pieces); i++ {
		if !sentenceBoundaryPrefix.MatchString(pieces[i]) {
			continue
		}
		r, size := utf8.DecodeRuneInString(pieces[i])
		if r == utf8.RuneError && size == 0 {
			continue
		}
		pieces[i-1] += pieces[i][:size]
		pieces[i] = pieces[i][size:]
	}

	return pieces
}

// splitKeep partitions s at every match of re, keeping the matched text as
// its own element so the pieces concatenate back to s.
func splitKeep(re *regexp.Regexp, s string) []string {
	var out []string
	last := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		out = append(out, s[last:loc[0]], s[loc[0]:loc[1]])
		last = loc[1]
	}
	out = append(out, s[last:])
	return out
}

func maxFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mx := xs[0]
	for _, x := range xs[1:] {
		if x > mx {
			mx = x
		}
	}
	return mx
}
