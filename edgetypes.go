package deplink

import "github.com/mineclover/dependency-linker-sub002/internal/store"

// EdgeTypeDefinition is re-exported so callers can register custom edge
// types without importing the store package.
type EdgeTypeDefinition = store.EdgeTypeDefinition

// Built-in edge type names. Parsers emit relations keyed by these; custom
// types can be registered on top but the built-in set is always present.
const (
	EdgeDefines    = "defines"
	EdgeImports    = "imports"
	EdgeExports    = "exports"
	EdgeCalls      = "calls"
	EdgeExtends    = "extends"
	EdgeImplements = "implements"
	EdgeReferences = "references"
	EdgeContains   = "contains"
	EdgeUses       = "uses"
)

// BuiltinEdgeTypes is the fixed set registered at engine bootstrap. The
// flags gate inference: contains/defines drive hierarchical walks,
// imports/calls/extends compose transitively, and extends/implements
// propagate inheritable edges down the subtype chain.
func BuiltinEdgeTypes() []*EdgeTypeDefinition {
	return []*EdgeTypeDefinition{
		{
			Name:        EdgeContains,
			Description: "structural containment between a parent and child symbol",
			IsDirected:  true,
			Priority:    10,
		},
		{
			Name:        EdgeDefines,
			Description: "a file defines a top-level symbol",
			IsDirected:  true,
			Priority:    9,
		},
		{
			Name:         EdgeImports,
			Description:  "a file imports another file or module",
			IsDirected:   true,
			IsTransitive: true,
			Priority:     8,
			MetadataSchema: map[string]string{
				"importPath": "string",
				"isDefault":  "boolean",
			},
		},
		{
			Name:        EdgeExports,
			Description: "a file exports a symbol under a public name",
			IsDirected:  true,
			Priority:    7,
			MetadataSchema: map[string]string{
				"exportedName": "string",
			},
		},
		{
			Name:         EdgeCalls,
			Description:  "a function or method invokes another",
			IsDirected:   true,
			IsTransitive: true,
			Priority:     6,
			MetadataSchema: map[string]string{
				"line": "number",
				"col":  "number",
			},
		},
		{
			Name:          EdgeExtends,
			Description:   "a type inherits from a base type",
			IsDirected:    true,
			IsTransitive:  true,
			IsInheritable: true,
			Priority:      5,
		},
		{
			Name:          EdgeImplements,
			Description:   "a concrete type implements an interface",
			IsDirected:    true,
			IsInheritable: true,
			Priority:      4,
		},
		{
			Name:        EdgeReferences,
			Description: "a symbol references another symbol",
			IsDirected:  true,
			Priority:    3,
		},
		{
			Name:        EdgeUses,
			Description: "general usage of a type, variable, or constant",
			IsDirected:  true,
			Priority:    2,
		},
	}
}
