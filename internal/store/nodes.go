package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const nodeCols = `id, rdf_address, type, source_file, namespace, name, start_line, start_col, semantic_tags, metadata`

// UpsertNode inserts a node keyed by its RDF address. A colliding creation
// attempt collapses into an update of the existing row, so concurrent
// ingestion of the same declaration is an idempotent no-op. Returns the
// node's id (existing or new) and sets it on the node.
func (s *Store) UpsertNode(n *Node) (int64, error) {
	_, err := s.db.Exec(
		`INSERT INTO nodes (rdf_address, type, source_file, namespace, name, start_line, start_col, semantic_tags, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(rdf_address) DO UPDATE SET
		   type = excluded.type,
		   source_file = excluded.source_file,
		   namespace = excluded.namespace,
		   name = excluded.name,
		   start_line = excluded.start_line,
		   start_col = excluded.start_col,
		   semantic_tags = excluded.semantic_tags,
		   metadata = excluded.metadata`,
		n.RDFAddress, n.Type, n.SourceFile, n.Namespace, n.Name,
		n.StartLine, n.StartCol, marshalTags(n.Tags), marshalMetadata(n.Metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert node: %w", err)
	}
	// LastInsertId is unreliable under DO UPDATE; read the id back by address.
	var id int64
	if err := s.db.QueryRow("SELECT id FROM nodes WHERE rdf_address = ?", n.RDFAddress).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert node: read id: %w", err)
	}
	n.ID = id
	return id, nil
}

func (s *Store) scanNode(scanner interface{ Scan(...any) error }) (*Node, error) {
	n := &Node{}
	var tags, meta string
	err := scanner.Scan(
		&n.ID, &n.RDFAddress, &n.Type, &n.SourceFile, &n.Namespace, &n.Name,
		&n.StartLine, &n.StartCol, &tags, &meta,
	)
	if err != nil {
		return nil, err
	}
	n.Tags = unmarshalTags(tags)
	n.Metadata = unmarshalMetadata(meta)
	return n, nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*Node, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []*Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodeByID returns the node with the given id, or (nil, nil) if absent.
func (s *Store) NodeByID(id int64) (*Node, error) {
	n, err := s.scanNode(s.db.QueryRow("SELECT "+nodeCols+" FROM nodes WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by id: %w", err)
	}
	return n, nil
}

// NodeByAddress returns the node with the given RDF address, or (nil, nil).
func (s *Store) NodeByAddress(address string) (*Node, error) {
	n, err := s.scanNode(s.db.QueryRow("SELECT "+nodeCols+" FROM nodes WHERE rdf_address = ?", address))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by address: %w", err)
	}
	return n, nil
}

// NodesByName returns all nodes with the given declared name.
func (s *Store) NodesByName(name string) ([]*Node, error) {
	return s.queryNodes("SELECT "+nodeCols+" FROM nodes WHERE name = ? ORDER BY id", name)
}

// FindNodes returns nodes matching the filter, in insertion order.
func (s *Store) FindNodes(filter NodeFilter) ([]*Node, error) {
	var where []string
	var args []any

	if len(filter.SourceFiles) > 0 {
		where = append(where, "source_file IN ("+placeholderList(len(filter.SourceFiles))+")")
		args = append(args, stringsToArgs(filter.SourceFiles)...)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Namespace != "" {
		where = append(where, "namespace = ?")
		args = append(args, filter.Namespace)
	}
	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}

	query := "SELECT " + nodeCols + " FROM nodes"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	nodes, err := s.queryNodes(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	return nodes, nil
}

// NodesByIDs bulk-loads nodes keyed by id.
func (s *Store) NodesByIDs(ids []int64) (map[int64]*Node, error) {
	result := make(map[int64]*Node, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	nodes, err := s.queryNodes(
		"SELECT "+nodeCols+" FROM nodes WHERE id IN ("+placeholderList(len(ids))+")",
		int64sToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes by ids: %w", err)
	}
	for _, n := range nodes {
		result[n.ID] = n
	}
	return result, nil
}
