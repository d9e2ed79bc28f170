package store

import "fmt"

// FindCircularDependencies detects cycles among the nodes tagged with the
// given namespace. Edges are bulk-loaded into an adjacency map and walked
// with a depth-first search that keeps an explicit recursion stack; a
// cycle is reported as the ordered RDF-address sequence closed by the
// back-edge target. The visited set guarantees termination on any graph,
// repeated edges included.
func (s *Store) FindCircularDependencies(namespace string) ([][]string, error) {
	nodes, err := s.FindNodes(NodeFilter{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: %w", err)
	}

	inScope := make(map[int64]string, len(nodes)) // id -> rdf address
	for _, n := range nodes {
		inScope[n.ID] = n.RDFAddress
	}

	edges, err := s.queryEdges(
		`SELECT e.id, e.from_node_id, e.to_node_id, e.type, e.source_file, e.confidence, e.metadata
		 FROM edges e
		 JOIN nodes nf ON nf.id = e.from_node_id
		 JOIN nodes nt ON nt.id = e.to_node_id
		 WHERE nf.namespace = ? AND nt.namespace = ?
		 ORDER BY e.id`,
		namespace, namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: load edges: %w", err)
	}

	adj := make(map[int64][]int64)
	for _, e := range edges {
		adj[e.FromNodeID] = append(adj[e.FromNodeID], e.ToNodeID)
	}

	const (
		white = 0 // unexplored
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[int64]int, len(inScope))

	var cycles [][]string

	// frame is one level of the explicit DFS stack: a node and a cursor
	// into its adjacency list.
	type frame struct {
		id   int64
		next int
	}

	for _, root := range nodes {
		if color[root.ID] != white {
			continue
		}
		stack := []frame{{id: root.ID}}
		color[root.ID] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := adj[top.id]
			if top.next < len(succs) {
				succ := succs[top.next]
				top.next++
				switch color[succ] {
				case white:
					color[succ] = gray
					stack = append(stack, frame{id: succ})
				case gray:
					// Back edge: the cycle is the stack suffix starting at succ,
					// closed by succ itself.
					var cycle []string
					start := 0
					for i := range stack {
						if stack[i].id == succ {
							start = i
							break
						}
					}
					for _, fr := range stack[start:] {
						cycle = append(cycle, inScope[fr.id])
					}
					cycle = append(cycle, inScope[succ])
					cycles = append(cycles, cycle)
				}
				// black successors were fully explored on an earlier pass.
			} else {
				color[top.id] = black
				stack = stack[:len(stack)-1]
			}
		}
	}

	if cycles == nil {
		cycles = [][]string{}
	}
	return cycles, nil
}
