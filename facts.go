package deplink

import (
	"encoding/json"
	"fmt"
	"io"
)

// FileFacts is the normalized output of an external parser for one source
// file: symbol declarations plus relations between symbols. Relation
// targets that cannot be located anywhere in the graph become
// unknown-symbol placeholders during ingestion.
type FileFacts struct {
	Project   string `json:"project"`
	FilePath  string `json:"filePath"`
	Namespace string `json:"namespace,omitempty"`

	Declarations []Declaration `json:"declarations"`
	Relations    []Relation    `json:"relations"`
}

// Declaration is one symbol declared in the file.
type Declaration struct {
	NodeType   string         `json:"nodeType"`
	SymbolName string         `json:"symbolName"`
	Line       int            `json:"line,omitempty"`
	Col        int            `json:"col,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Relation is one typed relation emitted by the parser. FromSymbol names a
// declaration in this file; ToSymbol may resolve anywhere in the project,
// or not at all. An unresolvable target carries optional import context so
// the resolver has something to work with later.
type Relation struct {
	FromSymbol string         `json:"fromSymbol"`
	EdgeType   string         `json:"edgeType"`
	ToSymbol   string         `json:"toSymbol"`
	ToType     string         `json:"toType,omitempty"` // parser's guess at the target's node type
	Metadata   map[string]any `json:"metadata,omitempty"`

	// Import context for unresolvable targets.
	IsImported   bool   `json:"isImported,omitempty"`
	IsAlias      bool   `json:"isAlias,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	ImportedFrom string `json:"importedFrom,omitempty"`
}

// DecodeFacts reads one JSON facts document, as emitted by the external
// parsers. Facts without a file path are rejected up front: every write
// is scoped to a source file.
func DecodeFacts(r io.Reader) (*FileFacts, error) {
	var facts FileFacts
	dec := json.NewDecoder(r)
	if err := dec.Decode(&facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	if facts.FilePath == "" {
		return nil, fmt.Errorf("decode facts: missing filePath")
	}
	return &facts, nil
}
