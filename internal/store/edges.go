package store

import (
	"fmt"
	"strings"
)

const edgeCols = `id, from_node_id, to_node_id, type, source_file, confidence, metadata`

// InsertEdge persists an edge after validating its metadata against the
// edge type's declared schema. Unregistered types are rejected so every
// edge is covered by registry flags.
func (s *Store) InsertEdge(e *Edge) (int64, error) {
	def, err := s.EdgeType(e.Type)
	if err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	if def == nil {
		return 0, fmt.Errorf("insert edge: %w: %s", ErrUnknownEdgeType, e.Type)
	}
	if err := ValidateMetadata(def.MetadataSchema, e.Metadata); err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	if e.Confidence == 0 {
		e.Confidence = 1.0
	}

	res, err := s.db.Exec(
		`INSERT INTO edges (from_node_id, to_node_id, type, source_file, confidence, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.FromNodeID, e.ToNodeID, e.Type, e.SourceFile, e.Confidence, marshalMetadata(e.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

func (s *Store) scanEdge(scanner interface{ Scan(...any) error }) (*Edge, error) {
	e := &Edge{}
	var meta string
	err := scanner.Scan(
		&e.ID, &e.FromNodeID, &e.ToNodeID, &e.Type, &e.SourceFile, &e.Confidence, &meta,
	)
	if err != nil {
		return nil, err
	}
	e.Metadata = unmarshalMetadata(meta)
	return e, nil
}

func (s *Store) queryEdges(query string, args ...any) ([]*Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*Edge
	for rows.Next() {
		e, err := s.scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// FindEdges returns edges matching the filter, in insertion order.
func (s *Store) FindEdges(filter EdgeFilter) ([]*Edge, error) {
	var where []string
	var args []any

	if filter.FromNodeID != 0 {
		where = append(where, "from_node_id = ?")
		args = append(args, filter.FromNodeID)
	}
	if filter.ToNodeID != 0 {
		where = append(where, "to_node_id = ?")
		args = append(args, filter.ToNodeID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.SourceFile != "" {
		where = append(where, "source_file = ?")
		args = append(args, filter.SourceFile)
	}

	query := "SELECT " + edgeCols + " FROM edges"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	edges, err := s.queryEdges(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find edges: %w", err)
	}
	return edges, nil
}

// EdgesByType returns all edges of one type. Used for bulk-loading into
// in-memory adjacency maps for traversal.
func (s *Store) EdgesByType(edgeType string) ([]*Edge, error) {
	edges, err := s.queryEdges("SELECT "+edgeCols+" FROM edges WHERE type = ? ORDER BY id", edgeType)
	if err != nil {
		return nil, fmt.Errorf("edges by type: %w", err)
	}
	return edges, nil
}

// EdgesByTypes returns all edges whose type is in the given set.
func (s *Store) EdgesByTypes(edgeTypes []string) ([]*Edge, error) {
	if len(edgeTypes) == 0 {
		return nil, nil
	}
	edges, err := s.queryEdges(
		"SELECT "+edgeCols+" FROM edges WHERE type IN ("+placeholderList(len(edgeTypes))+") ORDER BY id",
		stringsToArgs(edgeTypes)...,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by types: %w", err)
	}
	return edges, nil
}

// CrossNamespaceDependencies returns edges whose endpoint namespaces differ.
// Endpoints missing a namespace are not cross-boundary.
func (s *Store) CrossNamespaceDependencies() ([]*Edge, error) {
	edges, err := s.queryEdges(
		`SELECT e.id, e.from_node_id, e.to_node_id, e.type, e.source_file, e.confidence, e.metadata
		 FROM edges e
		 JOIN nodes nf ON nf.id = e.from_node_id
		 JOIN nodes nt ON nt.id = e.to_node_id
		 WHERE nf.namespace != '' AND nt.namespace != '' AND nf.namespace != nt.namespace
		 ORDER BY e.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("cross namespace dependencies: %w", err)
	}
	return edges, nil
}
