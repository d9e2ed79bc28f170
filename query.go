package deplink

import (
	"sync"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
)

// QueryBuilder answers structural questions over the graph. All queries
// are pure reads and may run concurrently with each other and with
// ingestion of unrelated files; a query racing a re-ingest observes a
// read-committed snapshot.
type QueryBuilder struct {
	store *store.Store

	memoMu sync.Mutex
	memo   map[memoKey][]InferredRelation
}

// NewQueryBuilder wraps a store for querying.
func NewQueryBuilder(s *store.Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// NodeByID returns the node with the given id, or (nil, nil) if absent.
func (q *QueryBuilder) NodeByID(id int64) (*Node, error) {
	return q.store.NodeByID(id)
}

// NodeByAddress returns the node with the given RDF address, or (nil, nil).
func (q *QueryBuilder) NodeByAddress(address string) (*Node, error) {
	return q.store.NodeByAddress(address)
}

// FindNodes returns nodes matching the filter, in insertion order.
func (q *QueryBuilder) FindNodes(filter NodeFilter) ([]*Node, error) {
	return q.store.FindNodes(filter)
}

// FindEdges returns edges matching the filter, in insertion order.
func (q *QueryBuilder) FindEdges(filter EdgeFilter) ([]*Edge, error) {
	return q.store.FindEdges(filter)
}

// EdgeTypes lists every registered edge type, highest priority first.
func (q *QueryBuilder) EdgeTypes() ([]*EdgeTypeDefinition, error) {
	return q.store.AllEdgeTypes()
}

// CrossNamespaceDependencies returns edges whose endpoints belong to
// different namespaces. Endpoints missing a namespace never count as
// crossing a boundary.
func (q *QueryBuilder) CrossNamespaceDependencies() ([]*Edge, error) {
	return q.store.CrossNamespaceDependencies()
}

// FindCircularDependencies reports dependency cycles among the nodes of
// one namespace. Each cycle is a sequence of RDF addresses closed by
// repeating the entry node of the back-edge.
func (q *QueryBuilder) FindCircularDependencies(namespace string) ([][]string, error) {
	return q.store.FindCircularDependencies(namespace)
}

// Stats returns graph counters, optionally scoped to one namespace.
func (q *QueryBuilder) Stats(namespace string) (*GraphStats, error) {
	return q.store.Stats(namespace)
}
