package deplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 1, levenshtein("kitten", "mitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("UserService", "UserService"))
	assert.Equal(t, 0.0, nameSimilarity("", ""))
	assert.Greater(t, nameSimilarity("UserService", "UserServices"), 0.9)
	assert.Less(t, nameSimilarity("UserService", "Logger"), 0.3)
}

func TestMatchConfidence_ExactNameSameDirectory(t *testing.T) {
	candidate := &Node{Name: "UserService", SourceFile: "src/user/service.ts"}
	conf := matchConfidence("UserService", "src/user/consumer.ts", candidate)
	assert.Equal(t, 0.9, conf)
}

func TestMatchConfidence_ExactNameElsewhere(t *testing.T) {
	candidate := &Node{Name: "UserService", SourceFile: "src/other/service.ts"}
	conf := matchConfidence("UserService", "src/user/consumer.ts", candidate)
	assert.Equal(t, 0.7, conf)
}

func TestMatchConfidence_FuzzyAboveThreshold(t *testing.T) {
	candidate := &Node{Name: "UserServices", SourceFile: "src/a.ts"}
	conf := matchConfidence("UserService", "src/b.ts", candidate)
	sim := nameSimilarity("UserService", "UserServices")
	assert.InDelta(t, 0.5*sim, conf, 1e-9)
	// Fuzzy always scores below an exact match anywhere.
	assert.Less(t, conf, 0.7)
}

func TestMatchConfidence_BelowThresholdIsZero(t *testing.T) {
	candidate := &Node{Name: "Logger", SourceFile: "src/a.ts"}
	conf := matchConfidence("UserService", "src/b.ts", candidate)
	assert.Equal(t, 0.0, conf)
}

func TestTagOverlap(t *testing.T) {
	assert.Equal(t, 0.0, tagOverlap(nil, []string{"a"}))
	assert.Equal(t, 0.0, tagOverlap([]string{"a"}, nil))
	assert.Equal(t, 1.0, tagOverlap([]string{"a", "b"}, []string{"a", "b"}))
	assert.InDelta(t, 1.0/3.0, tagOverlap([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.Equal(t, 0.0, tagOverlap([]string{"a"}, []string{"b"}))
}
