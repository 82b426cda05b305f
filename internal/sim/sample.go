package sim

import (
	"math/rand"
	"sort"
)

// uniformHours draws a duration uniformly from an HourRange.
func uniformHours(rng *rand.Rand, hr HourRange) float64 {
	if hr.MaxHours <= hr.MinHours {
		return hr.MinHours
	}
	return hr.MinHours + rng.Float64()*(hr.MaxHours-hr.MinHours)
}

// weightedIndex draws an index in [0,n) by cumulative-distribution sampling.
// Weights are normalized at sampling time so floating-point drift in a
// configured table never fails a draw.
func weightedIndex(rng *rand.Rand, n int, weight func(int) float64) int {
	var total float64
	for i := 0; i < n; i++ {
		if w := weight(i); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(n)
	}
	target := rng.Float64() * total
	var cum float64
	for i := 0; i < n; i++ {
		w := weight(i)
		if w <= 0 {
			continue
		}
		cum += w
		if target < cum {
			return i
		}
	}
	return n - 1
}

// weightedKey draws a key from a weight map. Keys are visited in sorted order
// so draws are reproducible across runs despite map iteration order.
func weightedKey[K ~string](rng *rand.Rand, m map[K]float64) K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	i := weightedIndex(rng, len(keys), func(i int) float64 { return m[keys[i]] })
	return keys[i]
}

// hoursFor looks up a (stage, triage) entry in a wait or transit table.
// Missing entries mean no delay; a generator batch never fails on a sparse
// table.
func hoursFor(table map[string]map[TriageCategory]HourRange, stage string, tri TriageCategory) HourRange {
	byTriage, ok := table[stage]
	if !ok {
		return HourRange{}
	}
	return byTriage[tri]
}
