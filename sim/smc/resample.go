package smc

import "math/rand"

// Resample draws len(weights) ancestor indices by multinomial resampling:
// each output slot takes a uniform draw in [0, sum) and scans the
// cumulative weights. A scan running past the end because of rounding
// selects the last index with positive weight. dst is reused when it has
// enough capacity.
func Resample(rng *rand.Rand, weights []float64, sum float64, dst []int) []int {
	n := len(weights)
	if cap(dst) < n {
		dst = make([]int, n)
	}
	dst = dst[:n]
	last := n - 1
	for last > 0 && !(weights[last] > 0) {
		last--
	}
	for i := range dst {
		u := rng.Float64() * sum
		cum := 0.0
		chosen := last
		for j, w := range weights {
			cum += w
			if u < cum {
				chosen = j
				break
			}
		}
		dst[i] = chosen
	}
	return dst
}
