// Package textsim turns free text into bag-of-words vectors and compares them.
//
// Tokens are maximal runs of [a-z0-9_] in the lower-cased text. There is no
// stemming and no stop-word removal, so "fix" and "fixed" are different terms.
package textsim

import (
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// Tokenize lower-cases text and returns its tokens left to right.
// Duplicates are kept.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Vector is a sparse term-count vector. Every count is >= 1.
type Vector map[string]int

// Extract builds the term-count vector for text.
func Extract(text string) Vector {
	tokens := Tokenize(text)
	v := make(Vector, len(tokens))
	for _, tok := range tokens {
		v[tok]++
	}
	return v
}

// Magnitude returns the Euclidean norm of v.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.sumSquares())
}

func (v Vector) sumSquares() float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return sum
}

// TokenSet is an unordered set of tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from tokens.
func NewTokenSet(tokens []string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, tok := range tokens {
		s[tok] = struct{}{}
	}
	return s
}

// TokenSetOf is shorthand for NewTokenSet(Tokenize(text)).
func TokenSetOf(text string) TokenSet {
	return NewTokenSet(Tokenize(text))
}

// UniqueTokens returns the distinct tokens of text in first-occurrence order.
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Cosine returns the cosine similarity of a and b.
// It is 0 when either vector is empty, including an empty vector against itself.
func Cosine(a, b Vector) float64 {
	sqA, sqB := a.sumSquares(), b.sumSquares()
	if sqA == 0 || sqB == 0 {
		return 0.0
	}

	// Terms missing from either side contribute nothing to the dot product,
	// so iterating the smaller vector covers the union.
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for term, c := range small {
		dot += float64(c) * float64(large[term])
	}

	// sqrt(sqA*sqB) instead of |a|*|b| keeps Cosine(v, v) exactly 1.
	sim := dot / math.Sqrt(sqA*sqB)
	if sim > 1.0 {
		sim = 1.0
	}
	return sim
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
