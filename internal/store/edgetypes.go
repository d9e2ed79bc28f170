package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const edgeTypeCols = `name, description, is_directed, is_transitive, is_inheritable, priority, metadata_schema`

// CreateEdgeType registers an edge type. Re-registration under an existing
// name is a no-op, not an error: flags are immutable once registered and
// repeated bootstrap must be tolerated.
func (s *Store) CreateEdgeType(def *EdgeTypeDefinition) error {
	schema, err := json.Marshal(def.MetadataSchema)
	if err != nil {
		return fmt.Errorf("create edge type: marshal schema: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO edge_types (name, description, is_directed, is_transitive, is_inheritable, priority, metadata_schema)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		def.Name, def.Description, def.IsDirected, def.IsTransitive, def.IsInheritable,
		def.Priority, string(schema),
	)
	if err != nil {
		return fmt.Errorf("create edge type: %w", err)
	}
	return nil
}

func (s *Store) scanEdgeType(scanner interface{ Scan(...any) error }) (*EdgeTypeDefinition, error) {
	def := &EdgeTypeDefinition{}
	var schema string
	err := scanner.Scan(
		&def.Name, &def.Description, &def.IsDirected, &def.IsTransitive,
		&def.IsInheritable, &def.Priority, &schema,
	)
	if err != nil {
		return nil, err
	}
	if schema != "" && schema != "null" {
		_ = json.Unmarshal([]byte(schema), &def.MetadataSchema)
	}
	return def, nil
}

// EdgeType returns the registered definition for name, or (nil, nil).
func (s *Store) EdgeType(name string) (*EdgeTypeDefinition, error) {
	def, err := s.scanEdgeType(
		s.db.QueryRow("SELECT "+edgeTypeCols+" FROM edge_types WHERE name = ?", name),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("edge type: %w", err)
	}
	return def, nil
}

// AllEdgeTypes returns every registered edge type, highest priority first.
func (s *Store) AllEdgeTypes() ([]*EdgeTypeDefinition, error) {
	rows, err := s.db.Query("SELECT " + edgeTypeCols + " FROM edge_types ORDER BY priority DESC, name")
	if err != nil {
		return nil, fmt.Errorf("all edge types: %w", err)
	}
	defer rows.Close()
	var defs []*EdgeTypeDefinition
	for rows.Next() {
		def, err := s.scanEdgeType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge type: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ValidateMetadata checks a metadata payload against a declared schema.
// Every present key must be declared and carry the declared kind; declared
// keys may be absent. An empty schema accepts any payload.
func ValidateMetadata(schema map[string]string, metadata map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	for key, value := range metadata {
		kind, declared := schema[key]
		if !declared {
			return fmt.Errorf("%w: undeclared field %q", ErrInvalidMetadata, key)
		}
		if !metadataKindMatches(kind, value) {
			return fmt.Errorf("%w: field %q is not a %s", ErrInvalidMetadata, key, kind)
		}
	}
	return nil
}

func metadataKindMatches(kind string, value any) bool {
	switch kind {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		// Unknown kind in the schema itself: accept rather than reject,
		// the registry owns schema hygiene.
		return true
	}
}
