package community

import (
	"slices"
)

const (
	maxLevels      = 20
	maxLocalPasses = 100
	minModularGain = 1e-12
)

// louvain returns a community index per node.
func louvain(adj []map[int]float64, resolution float64) []int {
	n := len(adj)
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}

	level := adj
	for l := 0; l < maxLevels; l++ {
		comm, moved := localMoving(level, resolution)
		if !moved {
			break
		}
		comm = canonical(comm)
		for i := range membership {
			membership[i] = comm[membership[i]]
		}
		level = aggregate(level, comm)
		if len(level) == 1 {
			break
		}
	}
	return membership
}

// localMoving greedily moves nodes to the neighbouring community with the
// largest modularity gain until no move improves modularity.
func localMoving(adj []map[int]float64, resolution float64) ([]int, bool) {
	n := len(adj)
	comm := make([]int, n)
	degree := make([]float64, n)
	tot := make([]float64, n)
	var m2 float64
	neighbours := make([][]int, n)
	for i, row := range adj {
		comm[i] = i
		for _, j := range sortedKeys(row) {
			degree[i] += row[j]
			if j != i {
				neighbours[i] = append(neighbours[i], j)
			}
		}
		tot[i] = degree[i]
		m2 += degree[i]
	}
	if m2 == 0 {
		return comm, false
	}

	movedAny := false
	weights := make(map[int]float64)
	var order []int
	for pass := 0; pass < maxLocalPasses; pass++ {
		moved := false
		for i := 0; i < n; i++ {
			current := comm[i]
			clear(weights)
			order = order[:0]
			for _, j := range neighbours[i] {
				c := comm[j]
				if _, ok := weights[c]; !ok {
					order = append(order, c)
				}
				weights[c] += adj[i][j]
			}

			tot[current] -= degree[i]
			gain := func(c int) float64 {
				return weights[c] - resolution*tot[c]*degree[i]/m2
			}

			best, bestGain := current, gain(current)
			slices.Sort(order)
			for _, c := range order {
				if g := gain(c); g > bestGain+minModularGain {
					best, bestGain = c, g
				}
			}
			tot[best] += degree[i]
			if best != current {
				comm[i] = best
				moved = true
				movedAny = true
			}
		}
		if !moved {
			break
		}
	}
	return comm, movedAny
}

// aggregate collapses each community into one node. Internal weight becomes
// a self loop entry so node degrees are preserved.
func aggregate(adj []map[int]float64, comm []int) []map[int]float64 {
	k := 0
	for _, c := range comm {
		k = max(k, c+1)
	}
	out := make([]map[int]float64, k)
	for i := range out {
		out[i] = make(map[int]float64)
	}
	for i, row := range adj {
		for _, j := range sortedKeys(row) {
			out[comm[i]][comm[j]] += row[j]
		}
	}
	return out
}

// sortedKeys returns the neighbour indices of a row in ascending order so
// floating point sums are accumulated in a fixed order.
func sortedKeys(row map[int]float64) []int {
	keys := make([]int, 0, len(row))
	for j := range row {
		keys = append(keys, j)
	}
	slices.Sort(keys)
	return keys
}
