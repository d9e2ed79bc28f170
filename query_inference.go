package deplink

import (
	"fmt"
	"time"
)

// InferredRelation is one relation derived by traversal rather than read
// directly off an edge row. Depth is the hierarchical depth, transitive
// path length, or inheritance depth depending on the strategy that
// produced it.
type InferredRelation struct {
	FromNodeID int64
	ToNodeID   int64
	EdgeType   string
	Method     string
	Depth      int
}

// Inference method names, reported in InferenceResult.MethodsUsed.
const (
	MethodHierarchical = "hierarchical"
	MethodTransitive   = "transitive"
	MethodInheritable  = "inheritable"
	MethodCustomRules  = "custom-rules"
	MethodOptimized    = "optimized"
	MethodRealTime     = "real-time"
	MethodLegacy       = "legacy"
)

const defaultTraversalBound = 10

// HierarchicalOptions controls QueryHierarchical. When neither direction
// is requested, children are walked. MaxDepth defaults to 10.
type HierarchicalOptions struct {
	IncludeChildren bool
	IncludeParents  bool
	MaxDepth        int
}

// TransitiveOptions controls QueryTransitive. MaxPathLength defaults to 10.
type TransitiveOptions struct {
	MaxPathLength int
}

// adjacency bulk-loads every edge of one type into forward and reverse
// neighbor maps. Traversals walk memory, not SQL.
func (q *QueryBuilder) adjacency(edgeTypes ...string) (forward, reverse map[int64][]int64, err error) {
	edges, err := q.store.EdgesByTypes(edgeTypes)
	if err != nil {
		return nil, nil, err
	}
	forward = make(map[int64][]int64)
	reverse = make(map[int64][]int64)
	for _, e := range edges {
		forward[e.FromNodeID] = append(forward[e.FromNodeID], e.ToNodeID)
		reverse[e.ToNodeID] = append(reverse[e.ToNodeID], e.FromNodeID)
	}
	return forward, reverse, nil
}

// bfs walks adj from root up to maxDepth, emitting one relation per
// traversed edge. The visited set keeps cyclic graphs terminating;
// depth annotates the level at which each neighbor was first reached.
func bfsRelations(adj map[int64][]int64, root int64, edgeType, method string, maxDepth int, flip bool) []InferredRelation {
	results := []InferredRelation{}
	visited := map[int64]bool{root: true}
	frontier := []int64{root}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			for _, neighbor := range adj[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				rel := InferredRelation{
					FromNodeID: id,
					ToNodeID:   neighbor,
					EdgeType:   edgeType,
					Method:     method,
					Depth:      depth,
				}
				if flip {
					rel.FromNodeID, rel.ToNodeID = rel.ToNodeID, rel.FromNodeID
				}
				results = append(results, rel)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return results
}

// QueryHierarchical treats edgeType as parent/child containment and walks
// outward from root, annotating each traversed edge with its depth. An
// undirected edge type has no parent/child orientation; the result is
// empty, not an error.
func (q *QueryBuilder) QueryHierarchical(rootID int64, edgeType string, opts HierarchicalOptions) ([]InferredRelation, error) {
	def, err := q.store.EdgeType(edgeType)
	if err != nil {
		return nil, fmt.Errorf("query hierarchical: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("query hierarchical: %w: %s", ErrUnknownEdgeType, edgeType)
	}
	if !def.IsDirected {
		return []InferredRelation{}, nil
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultTraversalBound
	}
	if !opts.IncludeChildren && !opts.IncludeParents {
		opts.IncludeChildren = true
	}

	forward, reverse, err := q.adjacency(edgeType)
	if err != nil {
		return nil, fmt.Errorf("query hierarchical: %w", err)
	}

	results := []InferredRelation{}
	if opts.IncludeChildren {
		results = append(results, bfsRelations(forward, rootID, edgeType, MethodHierarchical, opts.MaxDepth, false)...)
	}
	if opts.IncludeParents {
		results = append(results, bfsRelations(reverse, rootID, edgeType, MethodHierarchical, opts.MaxDepth, true)...)
	}
	return results, nil
}

// QueryTransitive composes reachability (A->B, B->C implies A->C) for a
// transitive edge type. Each result relates nodeID to one reachable node
// with Depth carrying the path length; paths longer than MaxPathLength
// are excluded. A non-transitive type yields an empty result.
func (q *QueryBuilder) QueryTransitive(nodeID int64, edgeType string, opts TransitiveOptions) ([]InferredRelation, error) {
	def, err := q.store.EdgeType(edgeType)
	if err != nil {
		return nil, fmt.Errorf("query transitive: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("query transitive: %w: %s", ErrUnknownEdgeType, edgeType)
	}
	if !def.IsTransitive {
		return []InferredRelation{}, nil
	}
	if opts.MaxPathLength <= 0 {
		opts.MaxPathLength = defaultTraversalBound
	}

	forward, _, err := q.adjacency(edgeType)
	if err != nil {
		return nil, fmt.Errorf("query transitive: %w", err)
	}
	return q.transitiveWalk(forward, nodeID, edgeType, MethodTransitive, opts.MaxPathLength), nil
}

// transitiveWalk is a BFS from nodeID where every reached node produces a
// composed relation back to the origin.
func (q *QueryBuilder) transitiveWalk(forward map[int64][]int64, nodeID int64, edgeType, method string, maxLen int) []InferredRelation {
	results := []InferredRelation{}
	visited := map[int64]bool{nodeID: true}
	frontier := []int64{nodeID}

	for length := 1; length <= maxLen && len(frontier) > 0; length++ {
		var next []int64
		for _, id := range frontier {
			for _, neighbor := range forward[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				results = append(results, InferredRelation{
					FromNodeID: nodeID,
					ToNodeID:   neighbor,
					EdgeType:   edgeType,
					Method:     method,
					Depth:      length,
				})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return results
}

// QueryInheritable propagates edges of edgeType from a supertype to its
// subtypes along extends/implements chains. maxDepth bounds how far down
// the subtype chain propagation reaches (0 means the default bound);
// each result's Depth is the inheritance distance. A non-inheritable
// type yields an empty result.
func (q *QueryBuilder) QueryInheritable(nodeID int64, edgeType string, maxDepth int) ([]InferredRelation, error) {
	def, err := q.store.EdgeType(edgeType)
	if err != nil {
		return nil, fmt.Errorf("query inheritable: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("query inheritable: %w: %s", ErrUnknownEdgeType, edgeType)
	}
	if !def.IsInheritable {
		return []InferredRelation{}, nil
	}
	if maxDepth <= 0 {
		maxDepth = defaultTraversalBound
	}

	// The supertype's own edges of this type are what propagates.
	direct, err := q.store.FindEdges(EdgeFilter{FromNodeID: nodeID, Type: edgeType})
	if err != nil {
		return nil, fmt.Errorf("query inheritable: %w", err)
	}
	if len(direct) == 0 {
		return []InferredRelation{}, nil
	}

	// Subtypes point at their supertype, so walk the reverse direction.
	_, subtypes, err := q.adjacency(EdgeExtends, EdgeImplements)
	if err != nil {
		return nil, fmt.Errorf("query inheritable: %w", err)
	}

	results := []InferredRelation{}
	visited := map[int64]bool{nodeID: true}
	frontier := []int64{nodeID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			for _, sub := range subtypes[id] {
				if visited[sub] {
					continue
				}
				visited[sub] = true
				for _, e := range direct {
					results = append(results, InferredRelation{
						FromNodeID: sub,
						ToNodeID:   e.ToNodeID,
						EdgeType:   edgeType,
						Method:     MethodInheritable,
						Depth:      depth,
					})
				}
				next = append(next, sub)
			}
		}
		frontier = next
	}
	return results, nil
}

type memoKey struct {
	nodeID   int64
	edgeType string
	maxLen   int
}

// QueryTransitiveMemoized is QueryTransitive with per-builder result
// caching. Semantically identical to the base strategy; the cache is
// not invalidated by writes, so use a fresh builder after ingestion.
// Callers always receive their own copy; mutating a result never
// reaches the cache.
func (q *QueryBuilder) QueryTransitiveMemoized(nodeID int64, edgeType string, opts TransitiveOptions) ([]InferredRelation, error) {
	if opts.MaxPathLength <= 0 {
		opts.MaxPathLength = defaultTraversalBound
	}
	key := memoKey{nodeID: nodeID, edgeType: edgeType, maxLen: opts.MaxPathLength}

	q.memoMu.Lock()
	if cached, ok := q.memo[key]; ok {
		q.memoMu.Unlock()
		return copyRelations(cached), nil
	}
	q.memoMu.Unlock()

	results, err := q.QueryTransitive(nodeID, edgeType, opts)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Method = MethodOptimized
	}

	q.memoMu.Lock()
	if q.memo == nil {
		q.memo = make(map[memoKey][]InferredRelation)
	}
	q.memo[key] = results
	q.memoMu.Unlock()
	return copyRelations(results), nil
}

func copyRelations(rels []InferredRelation) []InferredRelation {
	out := make([]InferredRelation, len(rels))
	copy(out, rels)
	return out
}

// InferOptions selects which strategies a composite Infer call runs.
type InferOptions struct {
	UseCustomRules bool // flag-gated hierarchical + transitive + inheritable set
	UseOptimized   bool // memoized transitive
	UseRealTime    bool // direct edge scan, no composition
	UseLegacy      bool // unmemoized transitive
	MaxDepth       int  // shared traversal bound, default 10
}

// InferenceResult aggregates the relations from every requested method.
// Results are concatenated without cross-method de-duplication so each
// relation's provenance survives; MethodsUsed lists the methods that ran.
type InferenceResult struct {
	Relations     []InferredRelation
	MethodsUsed   []string
	ExecutionTime time.Duration
}

// Infer runs every enabled inference method for one node and edge type
// and concatenates their relations.
func (q *QueryBuilder) Infer(nodeID int64, edgeType string, opts InferOptions) (*InferenceResult, error) {
	start := time.Now()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultTraversalBound
	}
	result := &InferenceResult{Relations: []InferredRelation{}}

	if opts.UseCustomRules {
		rels, err := q.customRules(nodeID, edgeType, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		result.Relations = append(result.Relations, rels...)
		result.MethodsUsed = append(result.MethodsUsed, MethodCustomRules)
	}
	if opts.UseOptimized {
		rels, err := q.QueryTransitiveMemoized(nodeID, edgeType, TransitiveOptions{MaxPathLength: opts.MaxDepth})
		if err != nil {
			return nil, err
		}
		result.Relations = append(result.Relations, rels...)
		result.MethodsUsed = append(result.MethodsUsed, MethodOptimized)
	}
	if opts.UseRealTime {
		rels, err := q.directScan(nodeID, edgeType)
		if err != nil {
			return nil, err
		}
		result.Relations = append(result.Relations, rels...)
		result.MethodsUsed = append(result.MethodsUsed, MethodRealTime)
	}
	if opts.UseLegacy {
		rels, err := q.QueryTransitive(nodeID, edgeType, TransitiveOptions{MaxPathLength: opts.MaxDepth})
		if err != nil {
			return nil, err
		}
		for i := range rels {
			rels[i].Method = MethodLegacy
		}
		result.Relations = append(result.Relations, rels...)
		result.MethodsUsed = append(result.MethodsUsed, MethodLegacy)
	}

	result.ExecutionTime = time.Since(start)
	return result, nil
}

// customRules runs whichever base strategies the edge type's flags
// permit. Flag gating inside each strategy keeps this a no-op for types
// carrying no traversal flags.
func (q *QueryBuilder) customRules(nodeID int64, edgeType string, maxDepth int) ([]InferredRelation, error) {
	var relations []InferredRelation

	hier, err := q.QueryHierarchical(nodeID, edgeType, HierarchicalOptions{IncludeChildren: true, MaxDepth: maxDepth})
	if err != nil {
		return nil, err
	}
	trans, err := q.QueryTransitive(nodeID, edgeType, TransitiveOptions{MaxPathLength: maxDepth})
	if err != nil {
		return nil, err
	}
	inher, err := q.QueryInheritable(nodeID, edgeType, maxDepth)
	if err != nil {
		return nil, err
	}

	relations = append(relations, hier...)
	relations = append(relations, trans...)
	relations = append(relations, inher...)
	for i := range relations {
		relations[i].Method = MethodCustomRules
	}
	return relations, nil
}

// directScan reads the node's outgoing edges of one type with no
// composition at all.
func (q *QueryBuilder) directScan(nodeID int64, edgeType string) ([]InferredRelation, error) {
	edges, err := q.store.FindEdges(EdgeFilter{FromNodeID: nodeID, Type: edgeType})
	if err != nil {
		return nil, err
	}
	relations := make([]InferredRelation, 0, len(edges))
	for _, e := range edges {
		relations = append(relations, InferredRelation{
			FromNodeID: e.FromNodeID,
			ToNodeID:   e.ToNodeID,
			EdgeType:   e.Type,
			Method:     MethodRealTime,
			Depth:      1,
		})
	}
	return relations, nil
}
