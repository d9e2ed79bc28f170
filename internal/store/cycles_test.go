package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGraph inserts File nodes named by letter into one namespace and
// wires the given edges between them.
func buildGraph(t *testing.T, s *Store, namespace string, names []string, edges [][2]string) map[string]int64 {
	t.Helper()
	registerEdgeType(t, s, "imports")

	ids := make(map[string]int64, len(names))
	for _, name := range names {
		file := name + ".ts"
		ids[name] = insertNode(t, s, &Node{
			RDFAddress: fmt.Sprintf("p/%s#File:%s", file, file),
			Type:       "File", SourceFile: file, Namespace: namespace, Name: file,
		})
	}
	for _, e := range edges {
		_, err := s.InsertEdge(&Edge{FromNodeID: ids[e[0]], ToNodeID: ids[e[1]], Type: "imports"})
		require.NoError(t, err)
	}
	return ids
}

func TestFindCircularDependencies_SimpleCycle(t *testing.T) {
	s := newTestStore(t)
	buildGraph(t, s, "app",
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
	)

	cycles, err := s.FindCircularDependencies("app")
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	cycle := cycles[0]
	// Closed sequence: entry node repeated at the end.
	require.Len(t, cycle, 4)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.ElementsMatch(t,
		[]string{"p/a.ts#File:a.ts", "p/b.ts#File:b.ts", "p/c.ts#File:c.ts"},
		cycle[:3],
	)
}

func TestFindCircularDependencies_AcyclicIsEmptyNotNil(t *testing.T) {
	s := newTestStore(t)
	buildGraph(t, s, "app",
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}},
	)

	cycles, err := s.FindCircularDependencies("app")
	require.NoError(t, err)
	assert.NotNil(t, cycles)
	assert.Empty(t, cycles)
}

func TestFindCircularDependencies_SelfLoop(t *testing.T) {
	s := newTestStore(t)
	buildGraph(t, s, "app", []string{"a"}, [][2]string{{"a", "a"}})

	cycles, err := s.FindCircularDependencies("app")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"p/a.ts#File:a.ts", "p/a.ts#File:a.ts"}, cycles[0])
}

func TestFindCircularDependencies_ScopedToNamespace(t *testing.T) {
	s := newTestStore(t)
	// Cycle lives in "other"; querying "app" sees nothing.
	buildGraph(t, s, "other", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})

	cycles, err := s.FindCircularDependencies("app")
	require.NoError(t, err)
	assert.Empty(t, cycles)

	cycles, err = s.FindCircularDependencies("other")
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}

func TestFindCircularDependencies_RepeatedEdgesTerminate(t *testing.T) {
	s := newTestStore(t)
	ids := buildGraph(t, s, "app", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})

	// Duplicate edge rows between the same nodes must not loop the walk.
	_, err := s.InsertEdge(&Edge{FromNodeID: ids["a"], ToNodeID: ids["b"], Type: "imports"})
	require.NoError(t, err)

	cycles, err := s.FindCircularDependencies("app")
	require.NoError(t, err)
	require.NotEmpty(t, cycles)
	for _, cycle := range cycles {
		assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	}
}
