package services

import (
	"github.com/fayyadalaas-cell/fxleagues-sub000/models"
)

// PrizeSchedule is the final per-rank payout list for a tournament, either
// taken verbatim from the operator's breakdown or derived from the pool.
type PrizeSchedule struct {
	Tiers   []models.PrizeTier `json:"tiers"`
	Derived bool               `json:"derived"`
	Total   int64              `json:"total"`
	// SumMatchesPool is false when an explicit breakdown doesn't add up to
	// the pool. That's allowed — operators see it as a warning, and the
	// amounts are never auto-corrected.
	SumMatchesPool bool `json:"sum_matches_pool"`
}

// Default payout weights (percent) by winner count. Four or more winners
// split the pool evenly.
var defaultPrizeWeights = map[int][]int64{
	1: {100},
	2: {70, 30},
	3: {50, 30, 20},
}

// ComputePrizeSchedule derives the payout schedule for a pool and winner
// count. When an explicit breakdown exists it is normalized to exactly
// winners entries (missing positions filled with 0, negatives clamped to 0)
// and used as-is. Otherwise the default weighted split applies, with the
// rounding remainder folded into the last rank so the derived amounts always
// sum to the pool exactly.
func ComputePrizeSchedule(pool int64, winners int, explicit []models.PrizeTier) PrizeSchedule {
	if winners < 1 {
		winners = 1
	}
	if pool < 0 {
		pool = 0
	}

	if len(explicit) > 0 {
		return explicitSchedule(pool, winners, explicit)
	}
	return derivedSchedule(pool, winners)
}

func explicitSchedule(pool int64, winners int, explicit []models.PrizeTier) PrizeSchedule {
	byPosition := make(map[int]int64, len(explicit))
	for _, tier := range explicit {
		amount := tier.Amount
		if amount < 0 {
			amount = 0
		}
		byPosition[tier.Position] = amount
	}

	tiers := make([]models.PrizeTier, 0, winners)
	var total int64
	for pos := 1; pos <= winners; pos++ {
		amount := byPosition[pos] // missing positions pay 0
		tiers = append(tiers, models.PrizeTier{Position: pos, Amount: amount})
		total += amount
	}

	return PrizeSchedule{
		Tiers:          tiers,
		Derived:        false,
		Total:          total,
		SumMatchesPool: total == pool,
	}
}

func derivedSchedule(pool int64, winners int) PrizeSchedule {
	tiers := make([]models.PrizeTier, 0, winners)
	var sum int64

	if weights, ok := defaultPrizeWeights[winners]; ok {
		for i, pct := range weights {
			amount := roundHalfUp(pool*pct, 100)
			tiers = append(tiers, models.PrizeTier{Position: i + 1, Amount: amount})
			sum += amount
		}
	} else {
		for pos := 1; pos <= winners; pos++ {
			amount := roundHalfUp(pool, int64(winners))
			tiers = append(tiers, models.PrizeTier{Position: pos, Amount: amount})
			sum += amount
		}
	}

	// Fold the rounding remainder into the last rank: the derived schedule
	// must reconcile to the pool exactly for every pool and winner count.
	tiers[len(tiers)-1].Amount += pool - sum

	return PrizeSchedule{
		Tiers:          tiers,
		Derived:        true,
		Total:          pool,
		SumMatchesPool: true,
	}
}

// roundHalfUp computes round(num/den) for non-negative num and positive den
// in pure integer arithmetic.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
