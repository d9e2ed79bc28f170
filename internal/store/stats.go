package store

import "fmt"

// Stats counts graph contents. An empty namespace counts the whole graph.
func (s *Store) Stats(namespace string) (*Stats, error) {
	st := &Stats{}

	nodeQuery := "SELECT COUNT(*) FROM nodes"
	edgeQuery := `SELECT COUNT(*) FROM edges e
		JOIN nodes nf ON nf.id = e.from_node_id
		JOIN nodes nt ON nt.id = e.to_node_id`
	unknownQuery := "SELECT COUNT(*) FROM unknown_symbols u JOIN nodes n ON n.id = u.node_id"
	resolvedQuery := unknownQuery + " WHERE u.state = ?"

	var args, edgeArgs, unknownArgs, resolvedArgs []any
	resolvedArgs = append(resolvedArgs, StateInferred)
	if namespace != "" {
		nodeQuery += " WHERE namespace = ?"
		args = append(args, namespace)
		edgeQuery += " WHERE nf.namespace = ? OR nt.namespace = ?"
		edgeArgs = append(edgeArgs, namespace, namespace)
		unknownQuery += " WHERE n.namespace = ?"
		unknownArgs = append(unknownArgs, namespace)
		resolvedQuery = "SELECT COUNT(*) FROM unknown_symbols u JOIN nodes n ON n.id = u.node_id WHERE n.namespace = ? AND u.state = ?"
		resolvedArgs = []any{namespace, StateInferred}
	}

	if err := s.db.QueryRow(nodeQuery, args...).Scan(&st.Nodes); err != nil {
		return nil, fmt.Errorf("stats: count nodes: %w", err)
	}
	if err := s.db.QueryRow(edgeQuery, edgeArgs...).Scan(&st.Edges); err != nil {
		return nil, fmt.Errorf("stats: count edges: %w", err)
	}
	if err := s.db.QueryRow(unknownQuery, unknownArgs...).Scan(&st.UnknownSymbols); err != nil {
		return nil, fmt.Errorf("stats: count unknowns: %w", err)
	}
	if err := s.db.QueryRow(resolvedQuery, resolvedArgs...).Scan(&st.ResolvedUnknowns); err != nil {
		return nil, fmt.Errorf("stats: count resolved: %w", err)
	}
	return st, nil
}
