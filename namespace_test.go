package deplink

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonParser reads pre-extracted facts documents, the same contract the
// CLI uses.
type jsonParser struct{}

func (jsonParser) Parse(path string, content []byte) (*FileFacts, error) {
	return DecodeFacts(bytes.NewReader(content))
}

func writeFacts(t *testing.T, root, relPath string, facts *FileFacts) {
	t.Helper()
	data, err := json.Marshal(facts)
	require.NoError(t, err)
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, data, 0644))
}

func newTestAnalyzer(t *testing.T, root string, cfg *Config) (*NamespaceAnalyzer, *Engine) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, WithProject(cfg.Project))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return NewNamespaceAnalyzer(e, cfg, jsonParser{}, root), e
}

func TestAnalyzeNamespace_PartialFailureContinues(t *testing.T) {
	root := t.TempDir()
	writeFacts(t, root, "src/a.facts.json", &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "A"}},
	})
	writeFacts(t, root, "src/b.facts.json", &FileFacts{
		FilePath:     "src/b.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "B"}},
	})
	// Unparsable facts file.
	require.NoError(t, os.WriteFile(filepath.Join(root, "src/broken.facts.json"), []byte("{not json"), 0644))

	cfg := &Config{
		Project: "p",
		Namespaces: map[string]NamespaceConfig{
			"app": {Patterns: []string{"src/**/*.facts.json"}},
		},
	}
	analyzer, e := newTestAnalyzer(t, root, cfg)

	report, err := analyzer.AnalyzeNamespace(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalFiles)
	assert.Equal(t, 2, report.AnalyzedFiles)
	require.Len(t, report.FailedFiles, 1)
	assert.Equal(t, "src/broken.facts.json", report.FailedFiles[0].File)
	assert.NotEmpty(t, report.FailedFiles[0].Reason)

	// The two good files are in the graph, tagged with the namespace.
	nodes, err := e.Query().FindNodes(NodeFilter{Namespace: "app"})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	require.NotNil(t, report.GraphStats)
	assert.Equal(t, 2, report.GraphStats.Nodes)
}

func TestAnalyzeNamespace_UnknownNamespaceIsFatal(t *testing.T) {
	cfg := &Config{
		Project:    "p",
		Namespaces: map[string]NamespaceConfig{"app": {Patterns: []string{"**/*.json"}}},
	}
	analyzer, _ := newTestAnalyzer(t, t.TempDir(), cfg)

	_, err := analyzer.AnalyzeNamespace(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}

func TestAnalyzeNamespace_ExcludesFilterFiles(t *testing.T) {
	root := t.TempDir()
	writeFacts(t, root, "src/a.facts.json", &FileFacts{
		FilePath:     "src/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "A"}},
	})
	writeFacts(t, root, "src/a.test.facts.json", &FileFacts{
		FilePath:     "src/a.test.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "ATest"}},
	})

	cfg := &Config{
		Project: "p",
		Namespaces: map[string]NamespaceConfig{
			"app": {
				Patterns: []string{"src/**/*.facts.json"},
				Excludes: []string{"**/*.test.facts.json"},
			},
		},
	}
	analyzer, _ := newTestAnalyzer(t, root, cfg)

	report, err := analyzer.AnalyzeNamespace(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalFiles)
	assert.Equal(t, 1, report.AnalyzedFiles)
}

func TestAnalyzeAll_ComputesCrossNamespaceDependencies(t *testing.T) {
	root := t.TempDir()
	// core declares Shared; util references it. Namespaces analyze in
	// name order, so the target exists when util's relation resolves.
	writeFacts(t, root, "core/shared.facts.json", &FileFacts{
		FilePath:     "core/shared.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "Shared"}},
	})
	writeFacts(t, root, "util/user.facts.json", &FileFacts{
		FilePath:     "util/user.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "User"}},
		Relations: []Relation{
			{FromSymbol: "User", EdgeType: EdgeUses, ToSymbol: "Shared"},
		},
	})

	cfg := &Config{
		Project: "p",
		Namespaces: map[string]NamespaceConfig{
			"core": {Patterns: []string{"core/**/*.facts.json"}},
			"util": {Patterns: []string{"util/**/*.facts.json"}},
		},
	}
	analyzer, _ := newTestAnalyzer(t, root, cfg)

	project, err := analyzer.AnalyzeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, project.Reports, 2)
	assert.Equal(t, "core", project.Reports[0].Namespace)
	assert.Equal(t, "util", project.Reports[1].Namespace)

	require.Len(t, project.CrossNamespace, 1)
	dep := project.CrossNamespace[0]
	assert.Equal(t, "util", dep.FromNamespace)
	assert.Equal(t, "core", dep.ToNamespace)
	assert.Equal(t, EdgeUses, dep.EdgeType)
	assert.Equal(t, "p/util/user.ts#Class:User", dep.FromAddress)
	assert.Equal(t, "p/core/shared.ts#Class:Shared", dep.ToAddress)
}

func TestNamespaceCycles_DetectsMutualDependency(t *testing.T) {
	root := t.TempDir()
	writeFacts(t, root, "a/a.facts.json", &FileFacts{
		FilePath:     "a/a.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "A"}},
		Relations:    []Relation{{FromSymbol: "A", EdgeType: EdgeUses, ToSymbol: "B"}},
	})
	writeFacts(t, root, "b/b.facts.json", &FileFacts{
		FilePath:     "b/b.ts",
		Declarations: []Declaration{{NodeType: "Class", SymbolName: "B"}},
		Relations:    []Relation{{FromSymbol: "B", EdgeType: EdgeUses, ToSymbol: "A"}},
	})

	cfg := &Config{
		Project: "p",
		Namespaces: map[string]NamespaceConfig{
			"a": {Patterns: []string{"a/**/*.facts.json"}},
			"b": {Patterns: []string{"b/**/*.facts.json"}},
		},
	}
	analyzer, _ := newTestAnalyzer(t, root, cfg)
	ctx := context.Background()

	// First pass: a's reference to B lands on a placeholder. Re-running
	// resolves it against b's now-present declaration.
	_, err := analyzer.AnalyzeAll(ctx)
	require.NoError(t, err)
	_, err = analyzer.AnalyzeAll(ctx)
	require.NoError(t, err)

	cycles, err := analyzer.NamespaceCycles()
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0])
}

func TestNamespaceCycles_AcyclicIsEmptyNotNil(t *testing.T) {
	cfg := &Config{
		Project:    "p",
		Namespaces: map[string]NamespaceConfig{"app": {Patterns: []string{"**/*.json"}}},
	}
	analyzer, _ := newTestAnalyzer(t, t.TempDir(), cfg)

	cycles, err := analyzer.NamespaceCycles()
	require.NoError(t, err)
	assert.NotNil(t, cycles)
	assert.Empty(t, cycles)
}
