package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEdge_UnregisteredTypeRejected(t *testing.T) {
	s := newTestStore(t)
	a := insertNode(t, s, &Node{RDFAddress: "p/a.ts#Class:A", Type: "Class", SourceFile: "a.ts", Name: "A"})
	b := insertNode(t, s, &Node{RDFAddress: "p/b.ts#Class:B", Type: "Class", SourceFile: "b.ts", Name: "B"})

	_, err := s.InsertEdge(&Edge{FromNodeID: a, ToNodeID: b, Type: "nope"})
	assert.ErrorIs(t, err, ErrUnknownEdgeType)
}

func TestInsertEdge_ValidatesMetadataSchema(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateEdgeType(&EdgeTypeDefinition{
		Name: "calls", IsDirected: true,
		MetadataSchema: map[string]string{"line": "number"},
	}))
	a := insertNode(t, s, &Node{RDFAddress: "p/a.ts#Function:a", Type: "Function", SourceFile: "a.ts", Name: "a"})
	b := insertNode(t, s, &Node{RDFAddress: "p/b.ts#Function:b", Type: "Function", SourceFile: "b.ts", Name: "b"})

	_, err := s.InsertEdge(&Edge{
		FromNodeID: a, ToNodeID: b, Type: "calls",
		Metadata: map[string]any{"line": "twelve"},
	})
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	// A well-typed payload is accepted.
	_, err = s.InsertEdge(&Edge{
		FromNodeID: a, ToNodeID: b, Type: "calls",
		Metadata: map[string]any{"line": 12},
	})
	require.NoError(t, err)
}

func TestInsertEdge_ConfidenceDefaultsToOne(t *testing.T) {
	s := newTestStore(t)
	registerEdgeType(t, s, "calls")
	a := insertNode(t, s, &Node{RDFAddress: "p/a.ts#Function:a", Type: "Function", SourceFile: "a.ts", Name: "a"})
	b := insertNode(t, s, &Node{RDFAddress: "p/b.ts#Function:b", Type: "Function", SourceFile: "b.ts", Name: "b"})

	id, err := s.InsertEdge(&Edge{FromNodeID: a, ToNodeID: b, Type: "calls"})
	require.NoError(t, err)

	edges, err := s.FindEdges(EdgeFilter{FromNodeID: a})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, id, edges[0].ID)
	assert.Equal(t, 1.0, edges[0].Confidence)
}

func TestFindEdges_FilterByTypeAndFile(t *testing.T) {
	s := newTestStore(t)
	registerEdgeType(t, s, "calls")
	registerEdgeType(t, s, "uses")
	a := insertNode(t, s, &Node{RDFAddress: "p/a.ts#Function:a", Type: "Function", SourceFile: "a.ts", Name: "a"})
	b := insertNode(t, s, &Node{RDFAddress: "p/b.ts#Function:b", Type: "Function", SourceFile: "b.ts", Name: "b"})

	_, err := s.InsertEdge(&Edge{FromNodeID: a, ToNodeID: b, Type: "calls", SourceFile: "a.ts"})
	require.NoError(t, err)
	_, err = s.InsertEdge(&Edge{FromNodeID: a, ToNodeID: b, Type: "uses", SourceFile: "a.ts"})
	require.NoError(t, err)

	edges, err := s.FindEdges(EdgeFilter{Type: "calls", SourceFile: "a.ts"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "calls", edges[0].Type)
}

func TestCrossNamespaceDependencies(t *testing.T) {
	s := newTestStore(t)
	registerEdgeType(t, s, "imports")

	core := insertNode(t, s, &Node{RDFAddress: "p/core/a.ts#File:a.ts", Type: "File", SourceFile: "core/a.ts", Namespace: "core", Name: "a.ts"})
	util := insertNode(t, s, &Node{RDFAddress: "p/util/b.ts#File:b.ts", Type: "File", SourceFile: "util/b.ts", Namespace: "util", Name: "b.ts"})
	core2 := insertNode(t, s, &Node{RDFAddress: "p/core/c.ts#File:c.ts", Type: "File", SourceFile: "core/c.ts", Namespace: "core", Name: "c.ts"})
	bare := insertNode(t, s, &Node{RDFAddress: "p/x.ts#File:x.ts", Type: "File", SourceFile: "x.ts", Name: "x.ts"})

	// core -> util crosses; core -> core does not; edges touching a
	// namespace-less node never count.
	_, err := s.InsertEdge(&Edge{FromNodeID: core, ToNodeID: util, Type: "imports"})
	require.NoError(t, err)
	_, err = s.InsertEdge(&Edge{FromNodeID: core, ToNodeID: core2, Type: "imports"})
	require.NoError(t, err)
	_, err = s.InsertEdge(&Edge{FromNodeID: core, ToNodeID: bare, Type: "imports"})
	require.NoError(t, err)

	cross, err := s.CrossNamespaceDependencies()
	require.NoError(t, err)
	require.Len(t, cross, 1)
	assert.Equal(t, core, cross[0].FromNodeID)
	assert.Equal(t, util, cross[0].ToNodeID)
}
