package deplink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Parser turns one source file into normalized facts. Implementations
// live outside the engine (tree-sitter based extractors, facts-file
// readers); the analyzer only needs this contract.
type Parser interface {
	Parse(path string, content []byte) (*FileFacts, error)
}

// NamespaceAnalyzer drives per-namespace analysis: glob file selection
// from the config, parsing, ingestion, and the cross-namespace and cycle
// queries layered on top.
type NamespaceAnalyzer struct {
	engine *Engine
	config *Config
	parser Parser
	root   string
	logger *slog.Logger
}

// NewNamespaceAnalyzer wires an analyzer. root is the directory the
// config's glob patterns are resolved against.
func NewNamespaceAnalyzer(engine *Engine, config *Config, parser Parser, root string) *NamespaceAnalyzer {
	return &NamespaceAnalyzer{
		engine: engine,
		config: config,
		parser: parser,
		root:   root,
		logger: engine.logger,
	}
}

// FileFailure records one file that could not be analyzed.
type FileFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Report is the result of analyzing one namespace. TotalFiles counts
// every file the globs selected; a failed file appears in FailedFiles
// and still counts toward the total.
type Report struct {
	Namespace     string        `json:"namespace"`
	TotalFiles    int           `json:"totalFiles"`
	AnalyzedFiles int           `json:"analyzedFiles"`
	FailedFiles   []FileFailure `json:"failedFiles,omitempty"`
	GraphStats    *GraphStats   `json:"graphStats,omitempty"`
}

// collectFiles resolves a namespace's patterns against the root and
// drops anything matching an exclude. Paths come back sorted and
// root-relative.
func (a *NamespaceAnalyzer) collectFiles(ns *NamespaceConfig) ([]string, error) {
	fsys := os.DirFS(a.root)
	seen := map[string]bool{}
	var files []string

	for _, pattern := range ns.Patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrConfig, pattern, err)
		}
	match:
		for _, m := range matches {
			if seen[m] {
				continue
			}
			for _, exclude := range ns.Excludes {
				ok, err := doublestar.Match(exclude, m)
				if err != nil {
					return nil, fmt.Errorf("%w: bad exclude %q: %v", ErrConfig, exclude, err)
				}
				if ok {
					continue match
				}
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// AnalyzeNamespace selects a namespace's files, parses each, and ingests
// the facts. A file that cannot be read or parsed is recorded in
// FailedFiles and the batch continues; only configuration-level problems
// abort the run.
func (a *NamespaceAnalyzer) AnalyzeNamespace(ctx context.Context, name string) (*Report, error) {
	ns, err := a.config.Namespace(name)
	if err != nil {
		return nil, err
	}
	files, err := a.collectFiles(ns)
	if err != nil {
		return nil, err
	}

	report := &Report{Namespace: name, TotalFiles: len(files)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.analyzeFile(ctx, name, file); err != nil {
			report.FailedFiles = append(report.FailedFiles, FileFailure{File: file, Reason: err.Error()})
			a.logger.Warn("file analysis failed", "namespace", name, "file", file, "error", err)
			continue
		}
		report.AnalyzedFiles++
	}

	stats, err := a.engine.Query().Stats(name)
	if err != nil {
		return nil, fmt.Errorf("analyze namespace %s: stats: %w", name, err)
	}
	report.GraphStats = stats
	return report, nil
}

func (a *NamespaceAnalyzer) analyzeFile(ctx context.Context, namespace, file string) error {
	content, err := os.ReadFile(filepath.Join(a.root, file))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	facts, err := a.parser.Parse(file, content)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	facts.FilePath = file
	facts.Namespace = namespace
	if facts.Project == "" {
		facts.Project = a.config.Project
	}
	return a.engine.IngestFile(ctx, facts)
}

// ProjectReport aggregates a whole-project analysis run.
type ProjectReport struct {
	Reports        []*Report
	CrossNamespace []CrossDependency
}

// AnalyzeAll analyzes every configured namespace in name order, then
// computes the dependencies crossing namespace boundaries.
func (a *NamespaceAnalyzer) AnalyzeAll(ctx context.Context) (*ProjectReport, error) {
	project := &ProjectReport{}
	for _, name := range a.config.NamespaceNames() {
		report, err := a.AnalyzeNamespace(ctx, name)
		if err != nil {
			return nil, err
		}
		project.Reports = append(project.Reports, report)
	}

	cross, err := a.CrossNamespaceDependencies()
	if err != nil {
		return nil, err
	}
	project.CrossNamespace = cross
	return project, nil
}

// CrossDependency is one edge whose endpoints live in different
// namespaces, resolved to addresses for reporting.
type CrossDependency struct {
	FromAddress   string `json:"from"`
	ToAddress     string `json:"to"`
	FromNamespace string `json:"fromNamespace"`
	ToNamespace   string `json:"toNamespace"`
	EdgeType      string `json:"edgeType"`
}

// CrossNamespaceDependencies resolves the raw cross-boundary edges into
// address-level dependencies.
func (a *NamespaceAnalyzer) CrossNamespaceDependencies() ([]CrossDependency, error) {
	edges, err := a.engine.Query().CrossNamespaceDependencies()
	if err != nil {
		return nil, fmt.Errorf("cross namespace dependencies: %w", err)
	}

	ids := make([]int64, 0, len(edges)*2)
	for _, e := range edges {
		ids = append(ids, e.FromNodeID, e.ToNodeID)
	}
	nodes, err := a.engine.Store().NodesByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("cross namespace dependencies: %w", err)
	}

	deps := []CrossDependency{}
	for _, e := range edges {
		from, to := nodes[e.FromNodeID], nodes[e.ToNodeID]
		if from == nil || to == nil {
			continue
		}
		deps = append(deps, CrossDependency{
			FromAddress:   from.RDFAddress,
			ToAddress:     to.RDFAddress,
			FromNamespace: from.Namespace,
			ToNamespace:   to.Namespace,
			EdgeType:      e.Type,
		})
	}
	return deps, nil
}

// NamespaceCycles detects circular dependencies between namespaces using
// Tarjan's strongly connected components over the namespace-level graph
// aggregated from cross-boundary edges. Each cycle lists namespace names
// with the first repeated at the end. Acyclic graphs yield an empty
// list, not nil.
func (a *NamespaceAnalyzer) NamespaceCycles() ([][]string, error) {
	cross, err := a.CrossNamespaceDependencies()
	if err != nil {
		return nil, fmt.Errorf("namespace cycles: %w", err)
	}

	adj := map[string][]string{}
	nsSet := map[string]bool{}
	for _, dep := range cross {
		adj[dep.FromNamespace] = append(adj[dep.FromNamespace], dep.ToNamespace)
		nsSet[dep.FromNamespace] = true
		nsSet[dep.ToNamespace] = true
	}
	for _, name := range a.config.NamespaceNames() {
		nsSet[name] = true
	}

	namespaces := make([]string, 0, len(nsSet))
	for name := range nsSet {
		namespaces = append(namespaces, name)
	}
	sort.Strings(namespaces)

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				wInfo = info[w]
				if wInfo.lowlink < ni.lowlink {
					ni.lowlink = wInfo.lowlink
				}
			} else if wInfo.onStack {
				if wInfo.index < ni.lowlink {
					ni.lowlink = wInfo.index
				}
			}
		}

		if ni.lowlink == ni.index {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				info[w].onStack = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Only SCCs larger than one node are cycles here: namespace
			// self-loops are ruled out because every contributing edge
			// crosses a boundary.
			if len(scc) > 1 {
				// Tarjan pops in reverse; restore natural cycle order.
				for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
					scc[i], scc[j] = scc[j], scc[i]
				}
				scc = append(scc, scc[0])
				result = append(result, scc)
			}
		}
	}

	for _, name := range namespaces {
		if _, visited := info[name]; !visited {
			strongconnect(name)
		}
	}

	if result == nil {
		result = [][]string{}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})
	return result, nil
}
