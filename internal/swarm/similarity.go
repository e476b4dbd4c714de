package swarm

import (
	"fmt"

	"github.com/fyrsmithlabs/swarmintel/internal/textsim"
)

const (
	// SemanticWeight and TokenWeight blend cosine and Jaccard similarity.
	SemanticWeight = 0.7
	TokenWeight    = 0.3

	// MatchWeight and SuccessWeight blend text similarity with a pattern's
	// success rate.
	MatchWeight   = 0.8
	SuccessWeight = 0.2

	// MatchThreshold is the minimum blended score for a query result.
	MatchThreshold = 0.3

	// MergeThreshold is the cosine similarity above which an observation
	// merges into an existing pattern.
	MergeThreshold = 0.7
)

// queryFeatures caches the representations of one text across a scan.
type queryFeatures struct {
	vector textsim.Vector
	tokens textsim.TokenSet
}

func newQueryFeatures(text string) queryFeatures {
	return queryFeatures{
		vector: textsim.Extract(text),
		tokens: textsim.TokenSetOf(text),
	}
}

// BlendedSimilarity scores how well text matches a pattern:
//
//	combined = 0.7*cosine + 0.3*jaccard
//	score    = 0.8*combined + 0.2*successRate
//
// The result lies in [0, 1] for success rates in [0, 1].
func BlendedSimilarity(text string, p *Pattern) float64 {
	return newQueryFeatures(text).blended(p)
}

func (q queryFeatures) blended(p *Pattern) float64 {
	semantic := textsim.Cosine(q.vector, textsim.Extract(p.Description))

	var patternTokens textsim.TokenSet
	if len(p.Characteristics) > 0 {
		patternTokens = textsim.NewTokenSet(p.Characteristics)
	} else {
		patternTokens = textsim.TokenSetOf(p.Description)
	}
	token := textsim.Jaccard(q.tokens, patternTokens)

	combined := semantic*SemanticWeight + token*TokenWeight
	return combined*MatchWeight + p.SuccessRate*SuccessWeight
}

// MergePolicy picks the pattern an observation merges into. It returns
// the index into patterns and the cosine similarity, or -1 when the
// observation should start a new pattern.
type MergePolicy func(task textsim.Vector, patterns []*Pattern) (int, float64)

// FirstMatch selects the first pattern in storage order whose description
// has cosine similarity above threshold. This differs from query ranking,
// which orders by the best blended score.
func FirstMatch(threshold float64) MergePolicy {
	return func(task textsim.Vector, patterns []*Pattern) (int, float64) {
		for i, p := range patterns {
			if sim := textsim.Cosine(task, textsim.Extract(p.Description)); sim > threshold {
				return i, sim
			}
		}
		return -1, 0
	}
}

// BestMatch selects the pattern with the highest cosine similarity above
// threshold. Ties keep the earlier pattern.
func BestMatch(threshold float64) MergePolicy {
	return func(task textsim.Vector, patterns []*Pattern) (int, float64) {
		best, bestSim := -1, threshold
		for i, p := range patterns {
			if sim := textsim.Cosine(task, textsim.Extract(p.Description)); sim > bestSim {
				best, bestSim = i, sim
			}
		}
		if best < 0 {
			return -1, 0
		}
		return best, bestSim
	}
}

// MergePolicyByName maps "first" and "best" to their policies at MergeThreshold.
func MergePolicyByName(name string) (MergePolicy, error) {
	switch name {
	case "", "first":
		return FirstMatch(MergeThreshold), nil
	case "best":
		return BestMatch(MergeThreshold), nil
	}
	return nil, fmt.Errorf("unknown merge policy %q", name)
}
