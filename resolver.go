package deplink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
)

// Match types, in rule-chain order. The first rule that fires names the
// match; later rules never run.
const (
	MatchExactName    = "exact-name"
	MatchTypeBased    = "type-based"
	MatchContextBased = "context-based"
	MatchSemantic     = "semantic"

	// MatchManual marks relations asserted by a human rather than the
	// rule chain; CreateEquivalenceRelation accepts it like any other.
	MatchManual = "manual"
)

// Confidence for the non-name rules. Below any exact-name score so an
// exact match always outranks a structural guess.
const (
	confidenceTypeBased    = 0.6
	confidenceContextBased = 0.5
	semanticWeight         = 0.4
)

// EquivalenceResolver reconciles unknown-symbol placeholders against
// concrete declarations. Resolution is additive: the placeholder node
// survives every state transition so the history stays auditable.
type EquivalenceResolver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewEquivalenceResolver wraps a store for resolution.
func NewEquivalenceResolver(s *store.Store, logger *slog.Logger) *EquivalenceResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &EquivalenceResolver{store: s, logger: logger}
}

// UnknownRegistration describes an unresolved reference to register
// outside the ingestion path. Address is derived from the other fields
// when empty. GuessedType is the caller's guess at the target's node
// type; the type-based resolution rule matches against it.
type UnknownRegistration struct {
	Address     string
	Project     string
	Name        string
	SourceFile  string
	Namespace   string
	GuessedType string

	IsImported   bool
	IsAlias      bool
	OriginalName string
	ImportedFrom string
}

// RegisterUnknownSymbol creates (or finds) the placeholder node and its
// unknown-symbol record. Registering at an address already owned by a
// concrete node is an ErrDuplicateAddress: the symbol is not unknown.
// Re-registering an existing placeholder returns the prior record.
func (r *EquivalenceResolver) RegisterUnknownSymbol(reg UnknownRegistration) (*UnknownSymbol, error) {
	project := reg.Project
	if project == "" {
		project = "project"
	}
	address := reg.Address
	if address == "" {
		address = CreateRDFAddress(project, reg.SourceFile, store.NodeTypeUnknown, reg.Name)
	}
	if parsed := ParseRDFAddress(address); !parsed.IsValid {
		return nil, fmt.Errorf("register unknown symbol: %w: %v", ErrInvalidAddress, parsed.Errors)
	}

	existing, err := r.store.NodeByAddress(address)
	if err != nil {
		return nil, fmt.Errorf("register unknown symbol: %w", err)
	}
	if existing != nil && existing.Type != store.NodeTypeUnknown {
		return nil, fmt.Errorf("register unknown symbol: %s: %w", address, ErrDuplicateAddress)
	}

	node := existing
	if node == nil {
		var meta map[string]any
		if reg.GuessedType != "" {
			meta = map[string]any{"guessedType": reg.GuessedType}
		}
		node = &Node{
			RDFAddress: address,
			Type:       store.NodeTypeUnknown,
			SourceFile: reg.SourceFile,
			Namespace:  reg.Namespace,
			Name:       reg.Name,
			Metadata:   meta,
		}
		if _, err := r.store.UpsertNode(node); err != nil {
			return nil, fmt.Errorf("register unknown symbol: %w", err)
		}
	}

	unknown := &UnknownSymbol{
		NodeID:       node.ID,
		IsImported:   reg.IsImported,
		IsAlias:      reg.IsAlias,
		OriginalName: reg.OriginalName,
		ImportedFrom: reg.ImportedFrom,
	}
	if _, err := r.store.InsertUnknownSymbol(unknown); err != nil {
		return nil, fmt.Errorf("register unknown symbol: %w", err)
	}
	return unknown, nil
}

// SearchUnknownSymbols lists placeholder records matching the query.
func (r *EquivalenceResolver) SearchUnknownSymbols(q store.UnknownQuery) ([]*UnknownSymbol, error) {
	return r.store.SearchUnknownSymbols(q)
}

// EquivalenceCandidate is one concrete node that might be what an
// unknown symbol refers to.
type EquivalenceCandidate struct {
	Node       *Node
	Confidence float64
}

// FindEquivalenceCandidates scores every concrete node against the
// unknown symbol's lookup name (the original name when the unknown is an
// alias). Candidates come back highest confidence first; finding any
// advances the placeholder to the candidates-found state.
func (r *EquivalenceResolver) FindEquivalenceCandidates(u *UnknownSymbol) ([]EquivalenceCandidate, error) {
	node, err := r.store.NodeByID(u.NodeID)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("find candidates: node %d: %w", u.NodeID, ErrNotFound)
	}

	lookupName := node.Name
	if u.IsAlias && u.OriginalName != "" {
		lookupName = u.OriginalName
	}

	nodes, err := r.store.FindNodes(store.NodeFilter{})
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	var candidates []EquivalenceCandidate
	for _, n := range nodes {
		if n.ID == node.ID || n.Type == store.NodeTypeUnknown {
			continue
		}
		if conf := matchConfidence(lookupName, node.SourceFile, n); conf > 0 {
			candidates = append(candidates, EquivalenceCandidate{Node: n, Confidence: conf})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Node.ID < candidates[j].Node.ID
	})

	if len(candidates) > 0 && u.State == store.StateRegistered {
		if err := r.store.UpdateUnknownState(u.NodeID, store.StateCandidatesFound); err != nil {
			return nil, fmt.Errorf("find candidates: %w", err)
		}
		u.State = store.StateCandidatesFound
	}
	return candidates, nil
}

// EquivalenceResult asserts that an unknown symbol refers to a concrete
// node, with the rule that decided it and how confident it was.
type EquivalenceResult struct {
	UnknownNodeID int64
	KnownNodeID   int64
	Confidence    float64
	MatchType     string
}

// InferEquivalence applies the rule chain to one (unknown, known) pair:
// exact-name, then type-based, then context-based, then semantic. The
// first rule that fires sets the match type. No rule firing is a nil
// result, not an error.
func (r *EquivalenceResolver) InferEquivalence(unknown, known *Node) (*EquivalenceResult, error) {
	if unknown == nil || known == nil {
		return nil, fmt.Errorf("infer equivalence: %w", ErrNotFound)
	}
	if known.Type == store.NodeTypeUnknown {
		return nil, nil
	}

	record, err := r.store.UnknownByNodeID(unknown.ID)
	if err != nil {
		return nil, fmt.Errorf("infer equivalence: %w", err)
	}

	lookupName := unknown.Name
	if record != nil && record.IsAlias && record.OriginalName != "" {
		lookupName = record.OriginalName
	}

	result := func(confidence float64, matchType string) *EquivalenceResult {
		return &EquivalenceResult{
			UnknownNodeID: unknown.ID,
			KnownNodeID:   known.ID,
			Confidence:    confidence,
			MatchType:     matchType,
		}
	}

	if known.Name == lookupName {
		conf := confidenceExactName
		if sameDirectory(unknown.SourceFile, known.SourceFile) {
			conf = confidenceExactSameDir
		}
		return result(conf, MatchExactName), nil
	}

	if guessed, ok := unknown.Metadata["guessedType"].(string); ok && guessed == known.Type {
		return result(confidenceTypeBased, MatchTypeBased), nil
	}

	shared, err := r.sharedImportNeighborhood(unknown.SourceFile, known.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("infer equivalence: %w", err)
	}
	if shared {
		return result(confidenceContextBased, MatchContextBased), nil
	}

	if overlap := tagOverlap(unknown.Tags, known.Tags); overlap > 0 {
		return result(semanticWeight * overlap, MatchSemantic), nil
	}

	return nil, nil
}

// sharedImportNeighborhood reports whether the two source files import at
// least one common target.
func (r *EquivalenceResolver) sharedImportNeighborhood(fileA, fileB string) (bool, error) {
	if fileA == "" || fileB == "" || fileA == fileB {
		return false, nil
	}
	targetsA, err := r.importTargets(fileA)
	if err != nil {
		return false, err
	}
	if len(targetsA) == 0 {
		return false, nil
	}
	edgesB, err := r.store.FindEdges(store.EdgeFilter{SourceFile: fileB, Type: EdgeImports})
	if err != nil {
		return false, err
	}
	for _, e := range edgesB {
		if targetsA[e.ToNodeID] {
			return true, nil
		}
	}
	return false, nil
}

func (r *EquivalenceResolver) importTargets(file string) (map[int64]bool, error) {
	edges, err := r.store.FindEdges(store.EdgeFilter{SourceFile: file, Type: EdgeImports})
	if err != nil {
		return nil, err
	}
	targets := make(map[int64]bool, len(edges))
	for _, e := range edges {
		targets[e.ToNodeID] = true
	}
	return targets, nil
}

// ValidateInferenceResult re-checks an asserted equivalence against the
// current graph, guarding the gap between candidate search and commit:
// the unknown node must still be an unresolvable placeholder and the
// known node must still be concrete.
func (r *EquivalenceResolver) ValidateInferenceResult(res *EquivalenceResult) (bool, error) {
	if res == nil {
		return false, nil
	}
	unknown, err := r.store.NodeByID(res.UnknownNodeID)
	if err != nil {
		return false, fmt.Errorf("validate inference result: %w", err)
	}
	if unknown == nil || unknown.Type != store.NodeTypeUnknown {
		return false, nil
	}
	known, err := r.store.NodeByID(res.KnownNodeID)
	if err != nil {
		return false, fmt.Errorf("validate inference result: %w", err)
	}
	if known == nil || known.Type == store.NodeTypeUnknown {
		return false, nil
	}
	return true, nil
}

// CreateEquivalenceRelation commits an inference result as a persistent
// relation and advances the placeholder to the inferred state. The
// result is re-validated first; a stale result is rejected. The Unknown
// node itself is never mutated or deleted.
func (r *EquivalenceResolver) CreateEquivalenceRelation(res *EquivalenceResult) (*EquivalenceRelation, error) {
	ok, err := r.ValidateInferenceResult(res)
	if err != nil {
		return nil, fmt.Errorf("create equivalence relation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("create equivalence relation: stale result for node %d", res.UnknownNodeID)
	}

	rel := &EquivalenceRelation{
		UnknownNodeID: res.UnknownNodeID,
		KnownNodeID:   res.KnownNodeID,
		Confidence:    res.Confidence,
		MatchType:     res.MatchType,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.store.InsertEquivalenceRelation(rel); err != nil {
		return nil, fmt.Errorf("create equivalence relation: %w", err)
	}
	if err := r.store.UpdateUnknownState(res.UnknownNodeID, store.StateInferred); err != nil {
		return nil, fmt.Errorf("create equivalence relation: %w", err)
	}

	r.logger.Debug("equivalence resolved",
		"unknown", res.UnknownNodeID,
		"known", res.KnownNodeID,
		"matchType", res.MatchType,
		"confidence", res.Confidence)
	return rel, nil
}

// GetEquivalenceRelations lists every relation recorded for an
// unknown-symbol node.
func (r *EquivalenceResolver) GetEquivalenceRelations(unknownNodeID int64) ([]*EquivalenceRelation, error) {
	return r.store.EquivalenceRelationsByUnknown(unknownNodeID)
}

// MarkUnresolved advances a placeholder to the terminal unresolved state
// after resolution has been attempted and nothing fired.
func (r *EquivalenceResolver) MarkUnresolved(nodeID int64) error {
	return r.store.UpdateUnknownState(nodeID, store.StateUnresolved)
}

// BatchInferEquivalence runs the rule chain over every (unknown, known)
// pair on a worker pool and returns the non-nil results, grouped by
// unknown in input order. Entries are independent, so the pass
// parallelizes cleanly across unknowns.
func (r *EquivalenceResolver) BatchInferEquivalence(ctx context.Context, unknowns, knowns []*Node) ([]*EquivalenceResult, error) {
	if len(unknowns) == 0 || len(knowns) == 0 {
		return []*EquivalenceResult{}, nil
	}

	workers := len(unknowns)
	if workers > 8 {
		workers = 8
	}

	perUnknown := make([][]*EquivalenceResult, len(unknowns))
	errs := make([]error, len(unknowns))
	workCh := make(chan int, len(unknowns))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				for _, known := range knowns {
					res, err := r.InferEquivalence(unknowns[idx], known)
					if err != nil {
						errs[idx] = err
						break
					}
					if res != nil {
						perUnknown[idx] = append(perUnknown[idx], res)
					}
				}
			}
		}()
	}

	for idx := range unknowns {
		workCh <- idx
	}
	close(workCh)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch infer equivalence: %w", err)
		}
	}

	results := []*EquivalenceResult{}
	for _, rs := range perUnknown {
		results = append(results, rs...)
	}
	return results, nil
}
