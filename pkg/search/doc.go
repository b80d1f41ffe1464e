// Package search provides read-only query engines over mindgraph graphs.
//
// All operations run against a consistent view of one graph taken under the
// graph's read lock; none of them mutate state.
//
// # Traversal
//
//   - BFS and DFS follow edge direction (outgoing by default)
//   - ShortestPath treats edges as undirected with unit cost
//   - PathsWithinHops enumerates simple paths of at most MaxHops edges
//   - ExpandNode returns the induced subgraph within a number of hops
//
// Neighbours are visited in edge insertion order, which makes every result
// deterministic for an unchanged graph.
//
// # Similarity
//
// FindSimilar ranks nodes by cosine similarity of their embeddings with a
// linear scan and a bounded heap. Nodes without embeddings never appear in
// results.
//
// # Usage
//
//	searcher := search.NewSearcher(st, logger)
//	order, err := searcher.BFS(graphID, nodeID, search.Outgoing)
//	similar, err := searcher.FindSimilar(graphID, nodeID, 5)
package search
