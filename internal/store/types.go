package store

import "time"

// Node type names used by the engine itself. Parsers may emit any type
// string; these are the ones the store treats specially.
const (
	NodeTypeUnknown = "Unknown"
	NodeTypeFile    = "File"
)

// Unknown-symbol resolution states.
const (
	StateRegistered      = "registered"
	StateCandidatesFound = "candidates_found"
	StateInferred        = "inferred"
	StateUnresolved      = "unresolved"
)

// Node is a declared symbol (or placeholder) in the dependency graph.
// RDFAddress is globally unique within a project.
type Node struct {
	ID         int64
	RDFAddress string
	Type       string
	SourceFile string
	Namespace  string
	Name       string
	StartLine  int
	StartCol   int
	Tags       []string
	Metadata   map[string]any
}

// Edge is a typed relation between two nodes. Type keys into edge_types.
// Confidence defaults to 1.0 for explicit, parser-emitted edges.
type Edge struct {
	ID         int64
	FromNodeID int64
	ToNodeID   int64
	Type       string
	SourceFile string
	Confidence float64
	Metadata   map[string]any
}

// EdgeTypeDefinition describes a registered relation kind. The three flags
// gate which inference strategies apply to edges of this type. Flags are
// immutable once registered.
type EdgeTypeDefinition struct {
	Name           string
	Description    string
	IsDirected     bool
	IsTransitive   bool
	IsInheritable  bool
	Priority       int
	MetadataSchema map[string]string // field name -> "string" | "number" | "boolean"
}

// UnknownSymbol is the placeholder record for an unresolved cross-file
// reference. It rides on a node of type Unknown and is never deleted.
type UnknownSymbol struct {
	ID           int64
	NodeID       int64
	IsImported   bool
	IsAlias      bool
	OriginalName string
	ImportedFrom string
	Confidence   float64
	State        string
}

// EquivalenceRelation links an unknown-symbol node to a concrete node.
type EquivalenceRelation struct {
	ID            int64
	UnknownNodeID int64
	KnownNodeID   int64
	Confidence    float64
	MatchType     string
	CreatedAt     time.Time
}

// NodeFilter narrows FindNodes. Zero-valued fields are ignored.
type NodeFilter struct {
	SourceFiles []string
	Type        string
	Namespace   string
	Name        string
}

// EdgeFilter narrows FindEdges. Zero-valued fields are ignored.
type EdgeFilter struct {
	FromNodeID int64
	ToNodeID   int64
	Type       string
	SourceFile string
}

// Stats summarizes graph contents, optionally scoped to one namespace.
type Stats struct {
	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	UnknownSymbols   int `json:"unknownSymbols"`
	ResolvedUnknowns int `json:"resolvedUnknowns"`
}
