// Package deplink is a multi-language code-dependency graph engine. It
// records symbols and typed relations emitted by external parsers into a
// SQLite-backed graph and answers structural questions about a codebase:
// hierarchy, transitive reach, inheritance, cross-namespace dependencies,
// and cycles.
//
// # Addressing
//
// Every node is identified by a canonical RDF-style address:
//
//	<project>/<filePath>#<NodeType>:<symbolName>
//
// Addresses are deterministic, so re-creating the same declaration is an
// idempotent no-op. [CreateRDFAddress] and [ParseRDFAddress] round-trip
// for all valid inputs.
//
// # Usage
//
// Create an Engine, ingest parser facts, and query:
//
//	e, err := deplink.New("deplink.db", deplink.WithProject("my-app"))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IngestFile(ctx, facts)
//
//	q := e.Query()
//	reachable, err := q.QueryTransitive(nodeID, deplink.EdgeImports,
//		deplink.TransitiveOptions{MaxPathLength: 3})
//
// # Inference
//
// The [QueryBuilder] derives relations on demand, never materializing
// them. Strategies are gated by the edge type's registered flags:
//
//   - [QueryBuilder.QueryHierarchical]: parent/child walks over directed
//     edges, annotated with depth.
//   - [QueryBuilder.QueryTransitive]: composed reachability over
//     transitive edges, annotated with path length.
//   - [QueryBuilder.QueryInheritable]: supertype edges propagated to
//     subtypes along extends/implements chains.
//
// A flag that is not set yields an empty result, not an error. All
// traversals are bounded by explicit depth parameters.
//
// # Unknown symbols
//
// A relation target that cannot be located becomes an unknown-symbol
// placeholder. The [EquivalenceResolver] scores concrete declarations
// against placeholders and records confidence-scored equivalence
// relations; placeholders are never deleted, so resolution stays
// auditable.
//
// # Namespaces
//
// The [NamespaceAnalyzer] selects files per namespace from a YAML
// configuration, ingests them through a caller-supplied [Parser], and
// reports cross-namespace dependencies and dependency cycles.
package deplink
