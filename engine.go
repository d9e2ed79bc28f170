package deplink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
)

// Node and Edge are re-exported for callers of the public contract.
type (
	Node                = store.Node
	Edge                = store.Edge
	UnknownSymbol       = store.UnknownSymbol
	EquivalenceRelation = store.EquivalenceRelation
	NodeFilter          = store.NodeFilter
	EdgeFilter          = store.EdgeFilter
	GraphStats          = store.Stats
)

// Engine owns the dependency graph for one project: a file-backed store,
// the registered edge types, and the ingestion path that turns normalized
// parser facts into nodes, edges, and unknown-symbol placeholders.
//
// The engine is a synchronous library. It imposes no scheduling of its
// own; callers decide whether ingestion and queries run concurrently
// (see IngestFilesParallel for the built-in convenience pipeline).
type Engine struct {
	store   *store.Store
	project string
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithProject sets the project name used when deriving RDF addresses for
// nodes created without one. Defaults to "project".
func WithProject(name string) Option {
	return func(e *Engine) {
		e.project = name
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine backed by a SQLite database at dbPath, migrates
// the schema, and registers the built-in edge types. Bootstrap is
// idempotent: re-opening an existing database re-registers the same set
// as a no-op.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("deplink: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("deplink: migrate: %w", err)
	}

	e := &Engine{
		store:   s,
		project: "project",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, def := range BuiltinEdgeTypes() {
		if err := s.CreateEdgeType(def); err != nil {
			s.Close()
			return nil, fmt.Errorf("deplink: register edge type %s: %w", def.Name, err)
		}
	}

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying store for direct access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Resolver returns a new EquivalenceResolver wrapping the store.
func (e *Engine) Resolver() *EquivalenceResolver {
	return &EquivalenceResolver{store: e.store, logger: e.logger}
}

// CreateEdgeType registers an edge type. Re-registration under an
// existing name is a no-op; flags are immutable once registered.
func (e *Engine) CreateEdgeType(def *EdgeTypeDefinition) error {
	return e.store.CreateEdgeType(def)
}

// CreateNode persists a node. When the node carries no RDF address, one
// is derived from the engine's project plus the node's own fields. A
// malformed address is an ErrInvalidAddress; the store is untouched.
// Creating a node whose address already exists updates it in place.
func (e *Engine) CreateNode(n *Node) (int64, error) {
	if n.RDFAddress == "" {
		n.RDFAddress = CreateRDFAddress(e.project, n.SourceFile, n.Type, n.Name)
	}
	if parsed := ParseRDFAddress(n.RDFAddress); !parsed.IsValid {
		return 0, fmt.Errorf("create node: %w: %v", ErrInvalidAddress, parsed.Errors)
	}
	return e.store.UpsertNode(n)
}

// CreateEdge persists an edge after checking that both endpoints exist
// and the metadata satisfies the edge type's schema.
func (e *Engine) CreateEdge(edge *Edge) (int64, error) {
	for _, id := range []int64{edge.FromNodeID, edge.ToNodeID} {
		n, err := e.store.NodeByID(id)
		if err != nil {
			return 0, fmt.Errorf("create edge: %w", err)
		}
		if n == nil {
			return 0, fmt.Errorf("create edge: node %d: %w", id, ErrNotFound)
		}
	}
	return e.store.InsertEdge(edge)
}

// IngestFile replaces a file's facts in the graph in one transaction.
// Symbols the file re-declares keep their node ids, so edges from other
// files into them survive; symbols the file no longer declares are
// removed along with edges touching them. Unknown placeholders are kept.
// A failed ingestion leaves the file's previous facts intact.
func (e *Engine) IngestFile(ctx context.Context, facts *FileFacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := store.NewBatchedStore(e.store)
	if err := e.normalizeFacts(facts, batch); err != nil {
		return fmt.Errorf("ingest %s: %w", facts.FilePath, err)
	}

	if err := e.store.ReplaceFileData(facts.FilePath, batch); err != nil {
		return fmt.Errorf("ingest %s: %w", facts.FilePath, err)
	}
	return nil
}

// normalizeFacts turns parser facts into buffered graph writes. Relation
// targets resolve against this file's declarations first, then against
// nodes already in the graph by name; anything else becomes an
// unknown-symbol placeholder at an #Unknown: address.
func (e *Engine) normalizeFacts(facts *FileFacts, batch *store.BatchedStore) error {
	project := facts.Project
	if project == "" {
		project = e.project
	}

	declared := make(map[string]string, len(facts.Declarations)) // symbol -> address
	for _, decl := range facts.Declarations {
		address := CreateRDFAddress(project, facts.FilePath, decl.NodeType, decl.SymbolName)
		if parsed := ParseRDFAddress(address); !parsed.IsValid {
			return fmt.Errorf("declaration %q: %w: %v", decl.SymbolName, ErrInvalidAddress, parsed.Errors)
		}
		batch.AddNode(store.Node{
			RDFAddress: address,
			Type:       decl.NodeType,
			SourceFile: facts.FilePath,
			Namespace:  facts.Namespace,
			Name:       decl.SymbolName,
			StartLine:  decl.Line,
			StartCol:   decl.Col,
			Tags:       decl.Tags,
			Metadata:   decl.Metadata,
		})
		declared[decl.SymbolName] = address
	}

	for _, rel := range facts.Relations {
		fromAddress, ok := declared[rel.FromSymbol]
		if !ok {
			return fmt.Errorf("relation %s: from symbol %q not declared in %s",
				rel.EdgeType, rel.FromSymbol, facts.FilePath)
		}

		toAddress, err := e.resolveTarget(project, facts, rel, declared, batch)
		if err != nil {
			return err
		}

		batch.AddEdge(store.EdgeFact{
			FromAddress: fromAddress,
			ToAddress:   toAddress,
			Type:        rel.EdgeType,
			SourceFile:  facts.FilePath,
			Metadata:    rel.Metadata,
		})
	}
	return nil
}

// resolveTarget locates a relation target: same-file declaration, then
// any graph node by name, then a fresh unknown-symbol placeholder.
func (e *Engine) resolveTarget(
	project string,
	facts *FileFacts,
	rel Relation,
	declared map[string]string,
	batch *store.BatchedStore,
) (string, error) {
	if address, ok := declared[rel.ToSymbol]; ok {
		return address, nil
	}

	candidates, err := batch.NodesByName(rel.ToSymbol)
	if err != nil {
		return "", fmt.Errorf("relation %s -> %s: lookup: %w", rel.FromSymbol, rel.ToSymbol, err)
	}
	for _, c := range candidates {
		if c.Type != store.NodeTypeUnknown {
			return c.RDFAddress, nil
		}
	}

	// Unresolved: register a placeholder owned by the referencing file.
	address := CreateRDFAddress(project, facts.FilePath, store.NodeTypeUnknown, rel.ToSymbol)
	guessed := rel.ToType
	meta := map[string]any{}
	if guessed != "" {
		meta["guessedType"] = guessed
	}
	batch.AddNode(store.Node{
		RDFAddress: address,
		Type:       store.NodeTypeUnknown,
		SourceFile: facts.FilePath,
		Namespace:  facts.Namespace,
		Name:       rel.ToSymbol,
		Metadata:   meta,
	})
	batch.AddUnknown(store.UnknownFact{
		NodeAddress:  address,
		IsImported:   rel.IsImported,
		IsAlias:      rel.IsAlias,
		OriginalName: rel.OriginalName,
		ImportedFrom: rel.ImportedFrom,
	})
	declared[rel.ToSymbol] = address
	return address, nil
}
