package utils

// UnionFind implements the Union-Find data structure over string keys.
type UnionFind struct {
	parent map[string]string
	size   map[string]int
	order  []string
}

// NewUnionFind creates a new UnionFind data structure. Component listings
// follow the order of elements.
func NewUnionFind(elements []string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(elements)),
		size:   make(map[string]int, len(elements)),
		order:  make([]string, 0, len(elements)),
	}
	for _, element := range elements {
		uf.Add(element)
	}
	return uf
}

// Add inserts x as a singleton set if it is not present.
func (uf *UnionFind) Add(x string) {
	if _, ok := uf.parent[x]; ok {
		return
	}
	uf.parent[x] = x
	uf.size[x] = 1
	uf.order = append(uf.order, x)
}

// Find returns the root of the set containing x (with path compression)
func (uf *UnionFind) Find(x string) string {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets containing a and b. Returns false when they were
// already joined.
func (uf *UnionFind) Union(a, b string) bool {
	rootA, rootB := uf.Find(a), uf.Find(b)
	if rootA == rootB {
		return false
	}
	// union by size; on ties a's root survives
	if uf.size[rootA] < uf.size[rootB] {
		rootA, rootB = rootB, rootA
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	return true
}

// Components returns every set, ordered by the position of its first member.
// Members keep insertion order.
func (uf *UnionFind) Components() [][]string {
	index := make(map[string]int)
	var out [][]string
	for _, x := range uf.order {
		root := uf.Find(x)
		i, ok := index[root]
		if !ok {
			i = len(out)
			index[root] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], x)
	}
	return out
}
