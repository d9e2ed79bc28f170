package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch applies all buffered facts from a BatchedStore inside a
// single transaction. Insert order respects dependencies:
//
//  1. Nodes (upserted by rdf_address; colliding addresses collapse)
//  2. Unknown-symbol records (depend on their placeholder nodes)
//  3. Edges (endpoints resolved by address: batch first, then database)
//
// Edge metadata is validated against each type's schema before insert,
// the same check InsertEdge performs on the direct path.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	schemaByType, err := s.loadSchemas()
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := commitBatchTx(tx, batch, schemaByType); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return tx.Commit()
}

// ReplaceFileData atomically swaps one file's facts for the batch's.
// The file's previously recorded edges are dropped, re-declared nodes
// are upserted in place (keeping their ids, so other files' edges into
// them survive), and concrete nodes the file no longer declares are
// removed along with any edges touching them. Unknown placeholders are
// never removed. The whole replacement is one transaction: a failed
// batch leaves the file's old facts intact.
func (s *Store) ReplaceFileData(sourceFile string, batch *BatchedStore) error {
	schemaByType, err := s.loadSchemas()
	if err != nil {
		return fmt.Errorf("replace file data: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace file data: begin: %w", err)
	}
	defer tx.Rollback()

	// Prior concrete declarations, keyed by address, so stale ones can
	// be identified after the upserts.
	rows, err := tx.Query(
		"SELECT id, rdf_address FROM nodes WHERE source_file = ? AND type != ?",
		sourceFile, NodeTypeUnknown,
	)
	if err != nil {
		return fmt.Errorf("replace file data: query prior nodes: %w", err)
	}
	prior := map[string]int64{}
	for rows.Next() {
		var id int64
		var address string
		if err := rows.Scan(&id, &address); err != nil {
			rows.Close()
			return fmt.Errorf("replace file data: scan prior node: %w", err)
		}
		prior[address] = id
	}
	rows.Close()

	// The file's own recorded edges are always rebuilt from the batch.
	if _, err := tx.Exec("DELETE FROM edges WHERE source_file = ?", sourceFile); err != nil {
		return fmt.Errorf("replace file data: delete edges: %w", err)
	}

	if err := commitBatchTx(tx, batch, schemaByType); err != nil {
		return fmt.Errorf("replace file data: %w", err)
	}

	// Stale nodes: declared before, absent now. Their incoming edges
	// dangle and go with them.
	declared := make(map[string]bool, len(batch.Nodes))
	for i := range batch.Nodes {
		declared[batch.Nodes[i].RDFAddress] = true
	}
	var staleIDs []int64
	for address, id := range prior {
		if !declared[address] {
			staleIDs = append(staleIDs, id)
		}
	}
	if len(staleIDs) > 0 {
		placeholders := placeholderList(len(staleIDs))
		args := int64sToArgs(staleIDs)
		if _, err := tx.Exec(
			"DELETE FROM edges WHERE from_node_id IN ("+placeholders+") OR to_node_id IN ("+placeholders+")",
			repeatArgs(args, 2)...,
		); err != nil {
			return fmt.Errorf("replace file data: delete stale edges: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM nodes WHERE id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("replace file data: delete stale nodes: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) loadSchemas() (map[string]map[string]string, error) {
	defs, err := s.AllEdgeTypes()
	if err != nil {
		return nil, fmt.Errorf("load edge types: %w", err)
	}
	schemaByType := make(map[string]map[string]string, len(defs))
	for _, def := range defs {
		schemaByType[def.Name] = def.MetadataSchema
	}
	return schemaByType, nil
}

// commitBatchTx writes a batch's nodes, unknowns, and edges inside an
// open transaction.
func commitBatchTx(tx *sql.Tx, batch *BatchedStore, schemaByType map[string]map[string]string) error {
	addressToID := make(map[string]int64, len(batch.Nodes))

	// 1. Nodes
	for i := range batch.Nodes {
		n := &batch.Nodes[i]
		id, err := upsertNodeTx(tx, n)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.RDFAddress, err)
		}
		addressToID[n.RDFAddress] = id
	}

	// 2. Unknown-symbol records
	for _, u := range batch.Unknowns {
		nodeID, err := resolveAddressTx(tx, addressToID, u.NodeAddress)
		if err != nil {
			return fmt.Errorf("unknown %q: %w", u.NodeAddress, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO unknown_symbols (node_id, is_imported, is_alias, original_name, imported_from, confidence, state)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(node_id) DO NOTHING`,
			nodeID, u.IsImported, u.IsAlias, u.OriginalName, u.ImportedFrom, u.Confidence, StateRegistered,
		); err != nil {
			return fmt.Errorf("unknown %q: %w", u.NodeAddress, err)
		}
	}

	// 3. Edges
	for _, e := range batch.Edges {
		schema, registered := schemaByType[e.Type]
		if !registered {
			return fmt.Errorf("edge %s -> %s: %w: %s",
				e.FromAddress, e.ToAddress, ErrUnknownEdgeType, e.Type)
		}
		if err := ValidateMetadata(schema, e.Metadata); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", e.FromAddress, e.ToAddress, err)
		}
		fromID, err := resolveAddressTx(tx, addressToID, e.FromAddress)
		if err != nil {
			return fmt.Errorf("edge from %q: %w", e.FromAddress, err)
		}
		toID, err := resolveAddressTx(tx, addressToID, e.ToAddress)
		if err != nil {
			return fmt.Errorf("edge to %q: %w", e.ToAddress, err)
		}
		confidence := e.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		if _, err := tx.Exec(
			`INSERT INTO edges (from_node_id, to_node_id, type, source_file, confidence, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			fromID, toID, e.Type, e.SourceFile, confidence, marshalMetadata(e.Metadata),
		); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", e.FromAddress, e.ToAddress, err)
		}
	}

	return nil
}

// upsertNodeTx mirrors UpsertNode but runs inside the batch transaction.
func upsertNodeTx(tx *sql.Tx, n *Node) (int64, error) {
	_, err := tx.Exec(
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
		return 0, err
	}
	var id int64
	if err := tx.QueryRow("SELECT id FROM nodes WHERE rdf_address = ?", n.RDFAddress).Scan(&id); err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

// resolveAddressTx maps an RDF address to a node id: batch-local nodes
// first, then nodes already committed by earlier ingestions.
func resolveAddressTx(tx *sql.Tx, local map[string]int64, address string) (int64, error) {
	if id, ok := local[address]; ok {
		return id, nil
	}
	var id int64
	err := tx.QueryRow("SELECT id FROM nodes WHERE rdf_address = ?", address).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("address %q: %w", address, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
