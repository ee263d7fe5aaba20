package engine

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {}, "who": {},
	"whom": {}, "whose": {}, "please": {}, "tell": {},
	"的": {}, "了": {}, "吗": {}, "呢": {}, "是": {}, "什么": {}, "怎么": {}, "如何": {}, "为什么": {}, "哪": {}, "谁": {},
}

// Tokenizer normalizes question and chunk text into comparable token lists.
// Latin words are case-folded and stopword-filtered; CJK text is segmented
// per rune so overlap works without a dictionary.
type Tokenizer struct{}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits text into normalized tokens. Order is preserved but the
// similarity measures downstream treat the result as a set.
func (t *Tokenizer) Tokenize(text string) []string {
	words := segment(strings.ToLower(text))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		// Single Latin letters carry no signal; single CJK runes do.
		if len(w) < 2 && !isCJKToken(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// FineGrained emits the sub-tokens hiding inside compound tokens, cut at
// letter/digit boundaries ("gpt4" yields "gpt"). Tokens that do not split
// produce nothing; sub-tokens shorter than two bytes are dropped.
func (t *Tokenizer) FineGrained(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		parts := splitBoundaries(tok)
		if len(parts) < 2 {
			continue
		}
		for _, sub := range parts {
			if len(sub) < 2 {
				continue
			}
			out = append(out, sub)
		}
	}
	return out
}

// tokenWeight discounts tokens that match almost anything.
func tokenWeight(tok string) float64 {
	if isDigits(tok) {
		return 0.3
	}
	return 1.0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isCJKToken(s string) bool {
	for _, r := range s {
		if !isCJK(r) {
			return false
		}
	}
	return s != ""
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// segment walks runes, accumulating Latin/digit words and emitting each CJK
// rune as its own token.
func segment(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			words = append(words, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return words
}

// splitBoundaries cuts a token at letter/digit transitions ("gpt4" -> "gpt", "4").
func splitBoundaries(tok string) []string {
	var parts []string
	var current strings.Builder
	var lastDigit bool

	for i, r := range tok {
		digit := unicode.IsDigit(r)
		if i > 0 && digit != lastDigit {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		lastDigit = digit
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// collapseTokenSpacing removes the spaces a tokenizer inserted between CJK
// tokens while keeping the single space between adjacent Latin words.
func collapseTokenSpacing(line string) string {
	var out []string
	for _, t := range strings.Fields(line) {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if endsLatin(prev) && startsLatin(t) {
				out = append(out, " ")
			}
		}
		out = append(out, t)
	}
	return strings.Join(out, "")
}

func endsLatin(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	r := runes[len(runes)-1]
	return r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func startsLatin(s string) bool {
	for _, r := range s {
		return r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r))
	}
	return false
}
