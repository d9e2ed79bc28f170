package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the dependency graph: nodes,
// edges, edge types, unknown symbols, and equivalence relations.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  rdf_address     TEXT NOT NULL UNIQUE,
  type            TEXT NOT NULL,
  source_file     TEXT NOT NULL,
  namespace       TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL,
  start_line      INTEGER DEFAULT 0,
  start_col       INTEGER DEFAULT 0,
  semantic_tags   TEXT DEFAULT '[]',
  metadata        TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edge_types (
  name            TEXT PRIMARY KEY,
  description     TEXT DEFAULT '',
  is_directed     BOOLEAN NOT NULL DEFAULT TRUE,
  is_transitive   BOOLEAN NOT NULL DEFAULT FALSE,
  is_inheritable  BOOLEAN NOT NULL DEFAULT FALSE,
  priority        INTEGER NOT NULL DEFAULT 0,
  metadata_schema TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  from_node_id    INTEGER NOT NULL REFERENCES nodes(id),
  to_node_id      INTEGER NOT NULL REFERENCES nodes(id),
  type            TEXT NOT NULL REFERENCES edge_types(name),
  source_file     TEXT NOT NULL DEFAULT '',
  confidence      REAL NOT NULL DEFAULT 1.0,
  metadata        TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS unknown_symbols (
  id              INTEGER PRIMARY KEY,
  node_id         INTEGER NOT NULL UNIQUE REFERENCES nodes(id),
  is_imported     BOOLEAN NOT NULL DEFAULT FALSE,
  is_alias        BOOLEAN NOT NULL DEFAULT FALSE,
  original_name   TEXT DEFAULT '',
  imported_from   TEXT DEFAULT '',
  confidence      REAL NOT NULL DEFAULT 0,
  state           TEXT NOT NULL DEFAULT 'registered'
);

CREATE TABLE IF NOT EXISTS equivalence_relations (
  id              INTEGER PRIMARY KEY,
  unknown_node_id INTEGER NOT NULL REFERENCES nodes(id),
  known_node_id   INTEGER NOT NULL REFERENCES nodes(id),
  confidence      REAL NOT NULL,
  match_type      TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_source_file ON nodes(source_file);
CREATE INDEX IF NOT EXISTS idx_nodes_namespace ON nodes(namespace);
CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
CREATE INDEX IF NOT EXISTS idx_edges_source_file ON edges(source_file);
CREATE INDEX IF NOT EXISTS idx_unknown_state ON unknown_symbols(state);
CREATE INDEX IF NOT EXISTS idx_equiv_unknown ON equivalence_relations(unknown_node_id);
CREATE INDEX IF NOT EXISTS idx_equiv_known ON equivalence_relations(known_node_id);
`

// DeleteFileData transactionally removes a file's prior facts so the file
// can be re-ingested. Unknown-symbol placeholder nodes are never deleted;
// everything else belonging to the file goes, along with edges that touch
// the deleted nodes from either side.
func (s *Store) DeleteFileData(sourceFile string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Collect this file's concrete node IDs (placeholders stay).
	rows, err := tx.Query(
		"SELECT id FROM nodes WHERE source_file = ? AND type != ?", sourceFile, NodeTypeUnknown,
	)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	var nodeIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan node id: %w", err)
		}
		nodeIDs = append(nodeIDs, id)
	}
	rows.Close()

	// Edges recorded during this file's ingestion.
	if _, err := tx.Exec("DELETE FROM edges WHERE source_file = ?", sourceFile); err != nil {
		return fmt.Errorf("delete edges by file: %w", err)
	}

	if len(nodeIDs) > 0 {
		placeholders := placeholderList(len(nodeIDs))
		args := int64sToArgs(nodeIDs)

		// Edges from other files that point at the deleted nodes.
		if _, err := tx.Exec(
			"DELETE FROM edges WHERE from_node_id IN ("+placeholders+") OR to_node_id IN ("+placeholders+")",
			repeatArgs(args, 2)...,
		); err != nil {
			return fmt.Errorf("delete edges by node: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM nodes WHERE id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("delete nodes: %w", err)
		}
	}

	return tx.Commit()
}
