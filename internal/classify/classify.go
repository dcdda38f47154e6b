// Package classify turns a 70%-occupancy profit into a score and RAG tier.
package classify

import (
	"math"

	"github.com/yourorg/rentradar/internal/listing"
)

const MaxScore = 10.0

// Classify scores profit70 against target on a 0-10 scale (one decimal) and
// assigns green at or above target, amber at or above 70% of it, red below.
func Classify(profit70, target int) (float64, listing.Tier) {
	if target <= 0 {
		if profit70 >= 0 {
			return MaxScore, listing.TierGreen
		}
		return 0, listing.TierRed
	}
	score := float64(profit70) / float64(target) * MaxScore
	score = math.Max(0, math.Min(MaxScore, score))
	score = math.Round(score*10) / 10

	// amber threshold is 0.7*target, compared in integers
	switch {
	case profit70 >= target:
		return score, listing.TierGreen
	case int64(profit70)*10 >= int64(target)*7:
		return score, listing.TierAmber
	default:
		return score, listing.TierRed
	}
}
