package community

import "sort"

const maxPropagationIterations = 100

// labelPropagation assigns each node the label carrying the most edge weight
// among its neighbours. Nodes update in index order and ties go to the
// smaller label.
func labelPropagation(adj []map[int]float64) []int {
	labels := make([]int, len(adj))
	for i := range labels {
		labels[i] = i
	}

	type labelScore struct {
		label  int
		weight float64
	}

	for iteration := 0; iteration < maxPropagationIterations; iteration++ {
		changed := false
		for i, row := range adj {
			if len(row) == 0 {
				continue
			}
			weights := make(map[int]float64)
			for _, j := range sortedKeys(row) {
				if j != i {
					weights[labels[j]] += row[j]
				}
			}
			if len(weights) == 0 {
				continue
			}

			scores := make([]labelScore, 0, len(weights))
			for l, w := range weights {
				scores = append(scores, labelScore{label: l, weight: w})
			}
			// Sort by weight (descending), then by label for tie-breaking
			sort.Slice(scores, func(a, b int) bool {
				if scores[a].weight != scores[b].weight {
					return scores[a].weight > scores[b].weight
				}
				return scores[a].label < scores[b].label
			})

			best := scores[0]
			if best.label != labels[i] && best.weight > weights[labels[i]] {
				labels[i] = best.label
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
