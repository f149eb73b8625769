package engine

import (
	"math/rand"
	"sort"
)

// Decision is the bucket a robot picks its move from.
type Decision string

const (
	DecisionBest   Decision = "best"
	DecisionMiddle Decision = "middle"
	DecisionWorst  Decision = "worst"
	DecisionRandom Decision = "random"
)

// Decide maps a difficulty and a uniform roll in [0, 1) onto a bucket.
//
//	3: always best
//	2: best 70%, middle 20%, random 5%, worst 5%
//	1: best 5%, worst 45%, middle 15%, random 35%
//	0: always random
func Decide(difficulty int, roll float64) Decision {
	switch {
	case difficulty >= 3:
		return DecisionBest
	case difficulty == 2:
		switch {
		case roll < 0.70:
			return DecisionBest
		case roll < 0.90:
			return DecisionMiddle
		case roll < 0.95:
			return DecisionRandom
		default:
			return DecisionWorst
		}
	case difficulty == 1:
		switch {
		case roll < 0.05:
			return DecisionBest
		case roll < 0.50:
			return DecisionWorst
		case roll < 0.65:
			return DecisionMiddle
		default:
			return DecisionRandom
		}
	default:
		return DecisionRandom
	}
}

// SelectMove chooses a frontier cell for a robot. ok is false on an empty
// frontier.
func SelectMove(entries []FrontierEntry, difficulty int, rng *rand.Rand) (FrontierEntry, bool) {
	if len(entries) == 0 {
		return FrontierEntry{}, false
	}

	sorted := make([]FrontierEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank > sorted[j].Rank
	})

	high, low := sorted[0].Rank, sorted[len(sorted)-1].Rank
	var bucket []FrontierEntry
	switch Decide(difficulty, rng.Float64()) {
	case DecisionBest:
		bucket = filterRank(sorted, func(r int) bool { return r == high })
	case DecisionWorst:
		bucket = filterRank(sorted, func(r int) bool { return r == low })
	case DecisionMiddle:
		bucket = filterRank(sorted, func(r int) bool { return r > low && r < high })
	}
	if len(bucket) == 0 {
		bucket = sorted
	}
	return bucket[rng.Intn(len(bucket))], true
}

func filterRank(entries []FrontierEntry, keep func(int) bool) []FrontierEntry {
	var out []FrontierEntry
	for _, e := range entries {
		if keep(e.Rank) {
			out = append(out, e)
		}
	}
	return out
}
