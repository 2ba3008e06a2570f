package graph

import (
	"sort"

	"github.com/buffrs-dev/buffrs/errs"
)

// TopoSort orders the graph "dependencies before dependants" via Kahn's
// algorithm, breaking ties lexicographically by name at every step for
// fully deterministic output (§4.8, §9 "fixes the stable, name-ordered
// Kahn's algorithm").
func (g *Graph) TopoSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(g.nodes))
	dependantsOf := make(map[string][]string, len(g.nodes))

	for key, node := range g.nodes {
		count := 0
		for _, dep := range node.Dependencies {
			depKey := dep.String()
			if _, ok := g.nodes[depKey]; ok {
				count++
				dependantsOf[depKey] = append(dependantsOf[depKey], key)
			}
		}
		inDegree[key] = count
	}

	queue := make([]string, 0, len(g.nodes))
	for key, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, key)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		sort.Strings(queue)
		key := queue[0]
		queue = queue[1:]
		order = append(order, key)

		dependants := append([]string(nil), dependantsOf[key]...)
		sort.Strings(dependants)
		for _, dependant := range dependants {
			inDegree[dependant]--
			if inDegree[dependant] == 0 {
				queue = append(queue, dependant)
			}
		}
	}

	if len(order) < len(g.nodes) {
		return nil, errs.New(errs.KindCircularDependency, "topological sort: graph contains a cycle")
	}

	nodes := make([]*Node, len(order))
	for i, key := range order {
		nodes[i] = g.nodes[key]
	}
	return nodes, nil
}
