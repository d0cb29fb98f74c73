package tonegraph

import (
	"sort"

	"github.com/emirpasic/gods/trees/binaryheap"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// edge is a dependency between positions of two nodes.
type edge struct {
	from, to int
}

// schedule sorts n nodes with Kahn's algorithm. Nodes are positions in
// declaration order and ready nodes are taken lowest position first. If
// some nodes can't be ordered, every cycle is returned.
func schedule(n int, edges []edge) ([]int, [][]int) {
	indegree := make([]int, n)
	adjacent := make([][]int, n)
	for _, e := range edges {
		adjacent[e.from] = append(adjacent[e.from], e.to)
		indegree[e.to]++
	}

	ready := binaryheap.NewWithIntComparator()
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready.Push(i)
		}
	}
	order := make([]int, 0, n)
	for !ready.Empty() {
		v, _ := ready.Pop()
		i := v.(int)
		order = append(order, i)
		for _, j := range adjacent[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready.Push(j)
			}
		}
	}
	if len(order) == n {
		return order, nil
	}
	return order, cycles(n, edges, indegree)
}

// cycles returns strongly connected components of nodes left unordered.
func cycles(n int, edges []edge, indegree []int) [][]int {
	g := multi.NewDirectedGraph()
	for i := 0; i < n; i++ {
		if indegree[i] > 0 {
			g.AddNode(multi.Node(i))
		}
	}
	for _, e := range edges {
		if indegree[e.from] > 0 && indegree[e.to] > 0 {
			g.SetLine(g.NewLine(multi.Node(e.from), multi.Node(e.to)))
		}
	}

	var result [][]int
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) == 1 && !g.HasEdgeFromTo(scc[0].ID(), scc[0].ID()) {
			continue
		}
		c := make([]int, 0, len(scc))
		for _, v := range scc {
			c = append(c, int(v.ID()))
		}
		sort.Ints(c)
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})
	return result
}
