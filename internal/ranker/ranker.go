// Package ranker implements the scoring model that orders the day's
// candidate events: a local keyword heuristic, a fixed 40/60 blend with
// the externally supplied AI relevance score, and the two-phase
// selection that bounds the expensive scoring call.
package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
)

const (
	baseScore       = 10.0
	maxScore        = 100.0
	pageBonus       = 5.0
	heuristicWeight = 0.4
	aiWeight        = 0.6
)

// keywordBonuses maps lowercase text signals to score bonuses. Matches
// are cumulative, not mutually exclusive.
var keywordBonuses = map[string]float64{
	"war":          50,
	"revolution":   50,
	"independence": 45,
	"assassinated": 45,
	"declared":     40,
	"constitution": 40,
	"discovered":   35,
	"battle":       35,
	"invented":     35,
	"founded":      30,
	"signed":       30,
	"treaty":       30,
	"died":         15,
	"born":         10,
}

// HeuristicScore computes the fast, local relevance estimate for a raw
// candidate: base 10, +5 per associated reference page, plus every
// keyword bonus whose signal appears in the lowercased text, clamped
// at 100.
func HeuristicScore(c models.RawCandidate) float64 {
	score := baseScore
	text := strings.ToLower(c.Text)

	score += float64(len(c.Pages)) * pageBonus

	for word, bonus := range keywordBonuses {
		if strings.Contains(text, word) {
			score += bonus
		}
	}

	return math.Min(score, maxScore)
}

// Hybrid blends the local heuristic with the external AI score using
// the fixed 40/60 weighting. The result is rounded to 2 decimal places,
// half away from zero (so 58.005 becomes 58.01).
func Hybrid(heuristic, aiScore float64) float64 {
	final := heuristicWeight*heuristic + aiWeight*aiScore
	return math.Round(final*100) / 100
}

// BatchLookup resolves the external scoring reply for the candidate at
// a given batch index. Implementations must apply the degradation
// defaults themselves: a missing index yields score 50 and empty titles.
type BatchLookup interface {
	Result(index int) (float64, models.Translations)
}

// PreSelect is phase one of selection: rank all raw candidates by
// heuristic score descending and truncate to at most max, bounding the
// batch handed to the external scorer. The sort is stable, so ties keep
// original feed order.
func PreSelect(raw []models.RawCandidate, max int) []models.ScoredCandidate {
	cands := make([]models.ScoredCandidate, 0, len(raw))
	for _, item := range raw {
		cands = append(cands, models.ScoredCandidate{
			RawCandidate:   item,
			HeuristicScore: HeuristicScore(item),
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].HeuristicScore > cands[j].HeuristicScore
	})

	if len(cands) > max {
		cands = cands[:max]
	}
	return cands
}

// Finalize is phase two: fill in each candidate's AI score and titles
// from the batch reply, derive the final score, and re-sort descending.
// The stable sort keeps phase-one order for exact ties.
func Finalize(cands []models.ScoredCandidate, results BatchLookup) []models.ScoredCandidate {
	for i := range cands {
		score, titles := results.Result(i)
		cands[i].AIScore = score
		cands[i].Titles = titles
		cands[i].FinalScore = Hybrid(cands[i].HeuristicScore, score)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FinalScore > cands[j].FinalScore
	})
	return cands
}
