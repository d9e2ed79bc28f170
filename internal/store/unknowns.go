package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const unknownCols = `id, node_id, is_imported, is_alias, original_name, imported_from, confidence, state`

// InsertUnknownSymbol persists the placeholder record for an unresolved
// reference. The caller has already created (or found) the backing node.
func (s *Store) InsertUnknownSymbol(u *UnknownSymbol) (int64, error) {
	if u.State == "" {
		u.State = StateRegistered
	}
	res, err := s.db.Exec(
		`INSERT INTO unknown_symbols (node_id, is_imported, is_alias, original_name, imported_from, confidence, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(node_id) DO NOTHING`,
		u.NodeID, u.IsImported, u.IsAlias, u.OriginalName, u.ImportedFrom, u.Confidence, u.State,
	)
	if err != nil {
		return 0, fmt.Errorf("insert unknown symbol: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Re-registration of an existing placeholder: return the prior row.
		existing, err := s.UnknownByNodeID(u.NodeID)
		if err != nil {
			return 0, err
		}
		*u = *existing
		return u.ID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return id, nil
}

func (s *Store) scanUnknown(scanner interface{ Scan(...any) error }) (*UnknownSymbol, error) {
	u := &UnknownSymbol{}
	return u, scanner.Scan(
		&u.ID, &u.NodeID, &u.IsImported, &u.IsAlias,
		&u.OriginalName, &u.ImportedFrom, &u.Confidence, &u.State,
	)
}

// UnknownByNodeID returns the placeholder record riding on the given node,
// or (nil, nil) if the node is not an unknown symbol.
func (s *Store) UnknownByNodeID(nodeID int64) (*UnknownSymbol, error) {
	u, err := s.scanUnknown(
		s.db.QueryRow("SELECT "+unknownCols+" FROM unknown_symbols WHERE node_id = ?", nodeID),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unknown by node id: %w", err)
	}
	return u, nil
}

// UnknownQuery narrows SearchUnknownSymbols. Zero-valued fields are ignored.
type UnknownQuery struct {
	Name       string
	SourceFile string
	State      string
	Imported   *bool
}

// SearchUnknownSymbols returns placeholder records with their backing nodes.
func (s *Store) SearchUnknownSymbols(q UnknownQuery) ([]*UnknownSymbol, error) {
	var where []string
	var args []any

	if q.Name != "" {
		where = append(where, "n.name = ?")
		args = append(args, q.Name)
	}
	if q.SourceFile != "" {
		where = append(where, "n.source_file = ?")
		args = append(args, q.SourceFile)
	}
	if q.State != "" {
		where = append(where, "u.state = ?")
		args = append(args, q.State)
	}
	if q.Imported != nil {
		where = append(where, "u.is_imported = ?")
		args = append(args, *q.Imported)
	}

	query := `SELECT u.id, u.node_id, u.is_imported, u.is_alias, u.original_name, u.imported_from, u.confidence, u.state
		FROM unknown_symbols u JOIN nodes n ON n.id = u.node_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search unknown symbols: %w", err)
	}
	defer rows.Close()
	var unknowns []*UnknownSymbol
	for rows.Next() {
		u, err := s.scanUnknown(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unknown symbol: %w", err)
		}
		unknowns = append(unknowns, u)
	}
	return unknowns, rows.Err()
}

// UpdateUnknownState advances the placeholder's resolution state.
func (s *Store) UpdateUnknownState(nodeID int64, state string) error {
	res, err := s.db.Exec("UPDATE unknown_symbols SET state = ? WHERE node_id = ?", state, nodeID)
	if err != nil {
		return fmt.Errorf("update unknown state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update unknown state: node %d: %w", nodeID, ErrNotFound)
	}
	return nil
}

// --- EquivalenceRelation operations ---

const equivCols = `id, unknown_node_id, known_node_id, confidence, match_type, created_at`

// InsertEquivalenceRelation persists a confidence-scored link from an
// unknown-symbol node to a concrete node. The placeholder is untouched;
// resolution is additive.
func (s *Store) InsertEquivalenceRelation(r *EquivalenceRelation) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO equivalence_relations (unknown_node_id, known_node_id, confidence, match_type, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.UnknownNodeID, r.KnownNodeID, r.Confidence, r.MatchType, r.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert equivalence relation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// EquivalenceRelationsByUnknown returns every relation recorded for the
// given unknown-symbol node.
func (s *Store) EquivalenceRelationsByUnknown(unknownNodeID int64) ([]*EquivalenceRelation, error) {
	rows, err := s.db.Query(
		"SELECT "+equivCols+" FROM equivalence_relations WHERE unknown_node_id = ? ORDER BY id",
		unknownNodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("equivalence relations by unknown: %w", err)
	}
	defer rows.Close()
	var rels []*EquivalenceRelation
	for rows.Next() {
		r := &EquivalenceRelation{}
		if err := rows.Scan(&r.ID, &r.UnknownNodeID, &r.KnownNodeID,
			&r.Confidence, &r.MatchType, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan equivalence relation: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
