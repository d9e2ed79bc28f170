package store

import "sync"

// EdgeFact is a buffered edge that names its endpoints by RDF address
// instead of node id. Node ids are only assigned at commit time, so
// parallel workers record address pairs and let CommitBatch resolve them.
type EdgeFact struct {
	FromAddress string
	ToAddress   string
	Type        string
	SourceFile  string
	Confidence  float64
	Metadata    map[string]any
}

// UnknownFact is a buffered unknown-symbol registration keyed by the
// placeholder node's RDF address.
type UnknownFact struct {
	NodeAddress  string
	IsImported   bool
	IsAlias      bool
	OriginalName string
	ImportedFrom string
	Confidence   float64
}

// BatchedStore buffers one file's graph facts in memory so normalization
// can run off the SQLite writer goroutine. It supports concurrent appends;
// reads pass through to the underlying Store.
//
// Node identity derives from rdf_address, so buffered nodes carry no ids
// at all; CommitBatch upserts them and resolves edge endpoints by
// address within a single transaction.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Nodes    []Node
	Edges    []EdgeFact
	Unknowns []UnknownFact
}

// NewBatchedStore creates a BatchedStore backed by the given Store for
// read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s}
}

// AddNode buffers a node declaration.
func (b *BatchedStore) AddNode(n Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Nodes = append(b.Nodes, n)
}

// AddEdge buffers an edge fact.
func (b *BatchedStore) AddEdge(e EdgeFact) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Edges = append(b.Edges, e)
}

// AddUnknown buffers an unknown-symbol registration.
func (b *BatchedStore) AddUnknown(u UnknownFact) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Unknowns = append(b.Unknowns, u)
}

// NodeByAddress passes through to the underlying Store for cross-file
// lookups, merging any buffered (not yet committed) node first.
func (b *BatchedStore) NodeByAddress(address string) (*Node, error) {
	b.mu.Lock()
	for i := range b.Nodes {
		if b.Nodes[i].RDFAddress == address {
			n := b.Nodes[i]
			b.mu.Unlock()
			return &n, nil
		}
	}
	b.mu.Unlock()
	return b.store.NodeByAddress(address)
}

// NodesByName passes through to the underlying Store.
func (b *BatchedStore) NodesByName(name string) ([]*Node, error) {
	return b.store.NodesByName(name)
}
