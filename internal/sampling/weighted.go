// Package sampling implements the probability-weighted draw of candidate
// sites without replacement.
package sampling

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
)

// WithoutReplacement draws k unique ids, at each step picking one remaining
// id with probability proportional to its weight, then removing it from the
// pool. The random source is caller-supplied, so a fixed seed reproduces the
// draw.
//
// Weights must be finite and non-negative. A zero-weight id is never drawn
// while a positive-weight id remains; once only zero-weight ids are left,
// the remaining slots are filled uniformly at random, so k = len(ids)
// always returns the whole pool.
func WithoutReplacement(rng *rand.Rand, ids []string, weights []float64, k int) ([]string, error) {
	if rng == nil {
		return nil, eris.New("sampling: random source is required")
	}
	if len(ids) != len(weights) {
		return nil, eris.Errorf("sampling: %d ids but %d weights", len(ids), len(weights))
	}
	if k < 0 {
		return nil, eris.Errorf("sampling: sample size %d is negative", k)
	}
	if k > len(ids) {
		return nil, eris.Errorf("sampling: sample size %d exceeds pool size %d", k, len(ids))
	}

	var total float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, eris.Errorf("sampling: invalid weight %v for id %q", w, ids[i])
		}
		total += w
	}

	// Working copies; the draw mutates the pool.
	pool := make([]string, len(ids))
	copy(pool, ids)
	w := make([]float64, len(weights))
	copy(w, weights)

	selected := make([]string, 0, k)
	for len(selected) < k {
		var idx int
		if total > 0 {
			r := rng.Float64() * total
			acc := 0.0
			idx = -1
			for i, wi := range w {
				acc += wi
				if r < acc {
					idx = i
					break
				}
			}
			if idx < 0 {
				// Float accumulation overshoot: fall back to the last
				// positive-weight id.
				for i := len(w) - 1; i >= 0; i-- {
					if w[i] > 0 {
						idx = i
						break
					}
				}
			}
		}
		if idx < 0 || total <= 0 {
			// Only zero-weight ids remain. The running total can hold a
			// tiny positive residue after the positive weights are drawn
			// down, so this also catches the case where the scan found
			// nothing to land on.
			idx = rng.Intn(len(pool))
		}

		selected = append(selected, pool[idx])
		total -= w[idx]
		if total < 0 {
			total = 0
		}

		last := len(pool) - 1
		pool[idx], w[idx] = pool[last], w[last]
		pool = pool[:last]
		w = w[:last]
	}

	return selected, nil
}
