package deplink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, WithProject("p"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNew_RegistersBuiltinEdgeTypes(t *testing.T) {
	e := newTestEngine(t)
	defs, err := e.Query().EdgeTypes()
	require.NoError(t, err)
	require.Len(t, defs, len(BuiltinEdgeTypes()))

	imports, err := e.Store().EdgeType(EdgeImports)
	require.NoError(t, err)
	require.NotNil(t, imports)
	assert.True(t, imports.IsTransitive)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	// Bootstrap re-registers the same set as a no-op.
	e, err = New(dbPath)
	require.NoError(t, err)
	defer e.Close()

	defs, err := e.Query().EdgeTypes()
	require.NoError(t, err)
	assert.Len(t, defs, len(BuiltinEdgeTypes()))
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/test.db")
	require.Error(t, err)
}

func TestCreateNode_DerivesAddress(t *testing.T) {
	e := newTestEngine(t)
	n := &Node{Type: "Class", SourceFile: "src/a.ts", Name: "A"}
	id, err := e.CreateNode(n)
	require.NoError(t, err)
	assert.Equal(t, "p/src/a.ts#Class:A", n.RDFAddress)

	stored, err := e.Query().NodeByID(id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, n.RDFAddress, stored.RDFAddress)
}

func TestCreateNode_InvalidAddressRejected(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.CreateNode(&Node{RDFAddress: "garbage", Type: "Class", Name: "A"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestCreateNode_DuplicateAddressIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	id1, err := e.CreateNode(&Node{Type: "Class", SourceFile: "a.ts", Name: "A"})
	require.NoError(t, err)
	id2, err := e.CreateNode(&Node{Type: "Class", SourceFile: "a.ts", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestCreateEdge_MissingEndpointIsNotFound(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.CreateNode(&Node{Type: "Function", SourceFile: "a.ts", Name: "f"})
	require.NoError(t, err)

	_, err = e.CreateEdge(&Edge{FromNodeID: id, ToNodeID: 999, Type: EdgeCalls})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIngestFile_CreatesDeclarationsAndEdges(t *testing.T) {
	e := newTestEngine(t)
	facts := &FileFacts{
		FilePath:  "src/service.ts",
		Namespace: "core",
		Declarations: []Declaration{
			{NodeType: "File", SymbolName: "service.ts"},
			{NodeType: "Class", SymbolName: "UserService", Line: 3},
		},
		Relations: []Relation{
			{FromSymbol: "service.ts", EdgeType: EdgeDefines, ToSymbol: "UserService"},
		},
	}
	require.NoError(t, e.IngestFile(context.Background(), facts))

	nodes, err := e.Query().FindNodes(NodeFilter{SourceFiles: []string{"src/service.ts"}})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	class, err := e.Query().NodeByAddress("p/src/service.ts#Class:UserService")
	require.NoError(t, err)
	require.NotNil(t, class)
	assert.Equal(t, "core", class.Namespace)
	assert.Equal(t, 3, class.StartLine)

	edges, err := e.Query().FindEdges(EdgeFilter{Type: EdgeDefines})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestIngestFile_UnresolvableTargetBecomesUnknown(t *testing.T) {
	e := newTestEngine(t)
	facts := &FileFacts{
		FilePath: "src/a.ts",
		Declarations: []Declaration{
			{NodeType: "File", SymbolName: "a.ts"},
		},
		Relations: []Relation{
			{
				FromSymbol: "a.ts", EdgeType: EdgeImports, ToSymbol: "lodash",
				IsImported: true, ImportedFrom: "lodash",
			},
		},
	}
	require.NoError(t, e.IngestFile(context.Background(), facts))

	placeholder, err := e.Query().NodeByAddress("p/src/a.ts#Unknown:lodash")
	require.NoError(t, err)
	require.NotNil(t, placeholder)
	assert.Equal(t, store.NodeTypeUnknown, placeholder.Type)

	u, err := e.Store().UnknownByNodeID(placeholder.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsImported)
	assert.Equal(t, "lodash", u.ImportedFrom)
	assert.Equal(t, store.StateRegistered, u.State)
}

func TestIngestFile_ResolvesTargetsAcrossFiles(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/b.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Helper"}},
	}))
	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Consumer"}},
		Relations: []Relation{
			{FromSymbol: "Consumer", EdgeType: EdgeUses, ToSymbol: "Helper"},
		},
	}))

	// No placeholder: the target resolved to b.ts's declaration.
	placeholder, err := e.Query().NodeByAddress("p/src/a.ts#Unknown:Helper")
	require.NoError(t, err)
	assert.Nil(t, placeholder)

	helper, err := e.Query().NodeByAddress("p/src/b.ts#Class:Helper")
	require.NoError(t, err)
	require.NotNil(t, helper)

	edges, err := e.Query().FindEdges(EdgeFilter{ToNodeID: helper.ID})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestIngestFile_ReingestReplacesFacts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath: "src/a.ts",
		Declarations: []Declaration{
			{NodeType: "Class", SymbolName: "Old"},
			{NodeType: "Class", SymbolName: "Kept"},
		},
	}))
	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Kept"}},
	}))

	old, err := e.Query().NodeByAddress("p/src/a.ts#Class:Old")
	require.NoError(t, err)
	assert.Nil(t, old)

	kept, err := e.Query().NodeByAddress("p/src/a.ts#Class:Kept")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestIngestFile_ReingestKeepsIncomingEdges(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/b.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Helper"}},
	}))
	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Consumer"}},
		Relations: []Relation{
			{FromSymbol: "Consumer", EdgeType: EdgeUses, ToSymbol: "Helper"},
		},
	}))

	// Re-ingesting b.ts keeps Helper's node id, so a.ts's edge survives.
	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/b.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Helper"}},
	}))

	helper, err := e.Query().NodeByAddress("p/src/b.ts#Class:Helper")
	require.NoError(t, err)
	require.NotNil(t, helper)

	edges, err := e.Query().FindEdges(EdgeFilter{ToNodeID: helper.ID})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestIngestFile_ReingestPreservesUnknowns(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	withImport := &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "File", SymbolName: "a.ts"}},
		Relations: []Relation{
			{FromSymbol: "a.ts", EdgeType: EdgeImports, ToSymbol: "mystery"},
		},
	}
	require.NoError(t, e.IngestFile(ctx, withImport))

	// New version no longer references the symbol; the placeholder stays.
	require.NoError(t, e.IngestFile(ctx, &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "File", SymbolName: "a.ts"}},
	}))

	placeholder, err := e.Query().NodeByAddress("p/src/a.ts#Unknown:mystery")
	require.NoError(t, err)
	require.NotNil(t, placeholder)

	u, err := e.Store().UnknownByNodeID(placeholder.ID)
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestIngestFile_FromSymbolNotDeclaredIsError(t *testing.T) {
	e := newTestEngine(t)
	err := e.IngestFile(context.Background(), &FileFacts{
		FilePath: "src/a.ts",
		Relations: []Relation{
			{FromSymbol: "ghost", EdgeType: EdgeCalls, ToSymbol: "x"},
		},
	})
	require.Error(t, err)
}

func TestIngestFilesParallel_IngestsAllFiles(t *testing.T) {
	e := newTestEngine(t)

	var files []*FileFacts
	for _, name := range []string{"a", "b", "c", "d"} {
		files = append(files, &FileFacts{
			FilePath:     "src/" + name + ".ts",
			Declarations: []Declaration{{NodeType: "File", SymbolName: name + ".ts"}},
		})
	}
	require.NoError(t, e.IngestFilesParallel(context.Background(), files))

	stats, err := e.Query().Stats("")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Nodes)
}

func TestIngestFilesParallel_DuplicatePathsCommitInOrder(t *testing.T) {
	e := newTestEngine(t)

	files := []*FileFacts{
		{
			FilePath:     "src/a.ts",
			Declarations: []Declaration{{NodeType: "Class", SymbolName: "First"}},
		},
		{
			FilePath:     "src/a.ts",
			Declarations: []Declaration{{NodeType: "Class", SymbolName: "Second"}},
		},
	}
	require.NoError(t, e.IngestFilesParallel(context.Background(), files))

	// The later entry replaces the earlier one's facts.
	first, err := e.Query().NodeByAddress("p/src/a.ts#Class:First")
	require.NoError(t, err)
	assert.Nil(t, first)

	second, err := e.Query().NodeByAddress("p/src/a.ts#Class:Second")
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func TestIngestFilesParallel_PartialFailureContinues(t *testing.T) {
	e := newTestEngine(t)

	files := []*FileFacts{
		{
			FilePath:     "src/good.ts",
			Declarations: []Declaration{{NodeType: "File", SymbolName: "good.ts"}},
		},
		{
			FilePath: "src/bad.ts",
			Relations: []Relation{
				{FromSymbol: "undeclared", EdgeType: EdgeCalls, ToSymbol: "x"},
			},
		},
	}
	err := e.IngestFilesParallel(context.Background(), files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/bad.ts")

	// The good file still committed.
	n, err := e.Query().NodeByAddress("p/src/good.ts#File:good.ts")
	require.NoError(t, err)
	assert.NotNil(t, n)
}
