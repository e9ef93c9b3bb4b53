package mutate

import (
	"math/rand"
	"sync"
)

// rewardTable tracks the running value of each ambiguity token using an
// incremental update with a fixed learning rate, and picks tokens
// epsilon-greedily: mostly the best known earner, sometimes a random one so
// unproven tokens still get a turn.
type rewardTable struct {
	mu sync.RWMutex

	values map[string]float64
	counts map[string]int

	alpha   float64 // learning rate
	epsilon float64 // exploration rate
}

func newRewardTable() *rewardTable {
	return &rewardTable{
		values:  make(map[string]float64, len(ambiguityTokens)),
		counts:  make(map[string]int, len(ambiguityTokens)),
		alpha:   0.1,
		epsilon: 0.2,
	}
}

// Choose returns a token to splice into the next candidate stream.
func (rt *rewardTable) Choose(rng *rand.Rand) string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if rng.Float64() < rt.epsilon || len(rt.values) == 0 {
		return ambiguityTokens[rng.Intn(len(ambiguityTokens))]
	}

	best := ""
	bestValue := 0.0
	for _, token := range ambiguityTokens {
		if v := rt.values[token]; best == "" || v > bestValue {
			best, bestValue = token, v
		}
	}
	return best
}

// Update folds an observed reward into a token's running value.
func (rt *rewardTable) Update(token string, reward float64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.counts[token]++
	rt.values[token] += rt.alpha * (reward - rt.values[token])
}

// Value reports a token's current estimate and how often it was tried.
func (rt *rewardTable) Value(token string) (float64, int) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.values[token], rt.counts[token]
}
