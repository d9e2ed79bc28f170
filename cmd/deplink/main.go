package main

import (
	"bytes"
	"fmt"
	"os"

	deplink "github.com/mineclover/dependency-linker-sub002"
	"github.com/mineclover/dependency-linker-sub002/internal/store"
	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
	flagRoot   string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "deplink",
	Short:         "Code-dependency graph analysis",
	Long:          "Deplink ingests normalized parser facts into a SQLite dependency graph and answers structural queries: cycles, cross-namespace dependencies, and unknown-symbol resolution.",
	Version:       deplink.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "deplink.db", "database path")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(crossCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(statsCmd)
}

// factsParser reads pre-extracted facts files (*.facts.json) emitted by
// the external language parsers.
type factsParser struct{}

func (factsParser) Parse(path string, content []byte) (*deplink.FileFacts, error) {
	return deplink.DecodeFacts(bytes.NewReader(content))
}

// openEngine opens the engine at the --db path.
func openEngine(project string) (*deplink.Engine, error) {
	var opts []deplink.Option
	if project != "" {
		opts = append(opts, deplink.WithProject(project))
	}
	engine, err := deplink.New(flagDB, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return engine, nil
}

// openAnalyzer loads the --config file and wires an analyzer around a
// fresh engine.
func openAnalyzer() (*deplink.NamespaceAnalyzer, *deplink.Engine, error) {
	cfg, err := deplink.LoadConfig(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	engine, err := openEngine(cfg.Project)
	if err != nil {
		return nil, nil, err
	}
	return deplink.NewNamespaceAnalyzer(engine, cfg, factsParser{}, flagRoot), engine, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [namespace]",
	Short: "Analyze configured namespaces into the dependency graph",
	Long:  "Selects each namespace's facts files via the config globs, ingests them, and reports per-namespace results. Without an argument, analyzes every configured namespace.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles <namespace>",
	Short: "Detect circular dependencies",
	Long:  "Reports dependency cycles among one namespace's nodes, or between namespaces with --level namespaces.",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  runCycles,
}

var crossCmd = &cobra.Command{
	Use:   "cross",
	Short: "List cross-namespace dependencies",
	RunE:  runCross,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve unknown symbols against concrete declarations",
	Long:  "Runs candidate search and the inference rule chain over every pending unknown symbol, recording equivalence relations for matches above the confidence floor.",
	RunE:  runResolve,
}

var statsCmd = &cobra.Command{
	Use:   "stats [namespace]",
	Short: "Show graph statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

var (
	flagCycleLevel    string
	flagMinConfidence float64
)

func init() {
	analyzeCmd.Flags().StringVar(&flagConfig, "config", "deplink.yaml", "namespace configuration file")
	analyzeCmd.Flags().StringVar(&flagRoot, "root", ".", "directory the config globs are resolved against")

	cyclesCmd.Flags().StringVar(&flagCycleLevel, "level", "nodes", "cycle granularity: nodes|namespaces")
	cyclesCmd.Flags().StringVar(&flagConfig, "config", "deplink.yaml", "namespace configuration file (namespaces level only)")

	crossCmd.Flags().StringVar(&flagConfig, "config", "deplink.yaml", "namespace configuration file")

	resolveCmd.Flags().Float64Var(&flagMinConfidence, "min-confidence", 0.5, "minimum confidence to record an equivalence relation")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	analyzer, engine, err := openAnalyzer()
	if err != nil {
		return outputError("analyze", err)
	}
	defer engine.Close()

	ctx := cmd.Context()
	var reports []*deplink.Report
	var cross []deplink.CrossDependency

	if len(args) == 1 {
		report, err := analyzer.AnalyzeNamespace(ctx, args[0])
		if err != nil {
			return outputError("analyze", err)
		}
		reports = append(reports, report)
	} else {
		project, err := analyzer.AnalyzeAll(ctx)
		if err != nil {
			return outputError("analyze", err)
		}
		reports = project.Reports
		cross = project.CrossNamespace
	}

	return outputAnalyze(reports, cross)
}

func runCycles(cmd *cobra.Command, args []string) error {
	switch flagCycleLevel {
	case "nodes":
		if len(args) != 1 {
			return outputError("cycles", fmt.Errorf("node-level cycles require a <namespace> argument"))
		}
		engine, err := openEngine("")
		if err != nil {
			return outputError("cycles", err)
		}
		defer engine.Close()

		cycles, err := engine.Query().FindCircularDependencies(args[0])
		if err != nil {
			return outputError("cycles", err)
		}
		return outputCycles(cycles)

	case "namespaces":
		analyzer, engine, err := openAnalyzer()
		if err != nil {
			return outputError("cycles", err)
		}
		defer engine.Close()

		cycles, err := analyzer.NamespaceCycles()
		if err != nil {
			return outputError("cycles", err)
		}
		return outputCycles(cycles)

	default:
		return outputError("cycles", fmt.Errorf("invalid level %q: must be nodes or namespaces", flagCycleLevel))
	}
}

func runCross(cmd *cobra.Command, args []string) error {
	analyzer, engine, err := openAnalyzer()
	if err != nil {
		return outputError("cross", err)
	}
	defer engine.Close()

	deps, err := analyzer.CrossNamespaceDependencies()
	if err != nil {
		return outputError("cross", err)
	}
	return outputCross(deps)
}

func runResolve(cmd *cobra.Command, args []string) error {
	engine, err := openEngine("")
	if err != nil {
		return outputError("resolve", err)
	}
	defer engine.Close()

	summary, err := resolveAll(engine, flagMinConfidence)
	if err != nil {
		return outputError("resolve", err)
	}
	return outputResolve(summary)
}

// resolveAll walks every pending unknown symbol through candidate search
// and the inference rule chain.
func resolveAll(engine *deplink.Engine, minConfidence float64) (*resolveSummary, error) {
	resolver := engine.Resolver()
	query := engine.Query()

	var unknowns []*deplink.UnknownSymbol
	for _, state := range []string{store.StateRegistered, store.StateCandidatesFound} {
		pending, err := resolver.SearchUnknownSymbols(store.UnknownQuery{State: state})
		if err != nil {
			return nil, err
		}
		unknowns = append(unknowns, pending...)
	}

	summary := &resolveSummary{Pending: len(unknowns)}
	for _, u := range unknowns {
		node, err := query.NodeByID(u.NodeID)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}

		candidates, err := resolver.FindEquivalenceCandidates(u)
		if err != nil {
			return nil, err
		}

		var resolved bool
		for _, c := range candidates {
			result, err := resolver.InferEquivalence(node, c.Node)
			if err != nil {
				return nil, err
			}
			if result == nil || result.Confidence < minConfidence {
				continue
			}
			rel, err := resolver.CreateEquivalenceRelation(result)
			if err != nil {
				return nil, err
			}
			summary.Resolved = append(summary.Resolved, resolvedEntry{
				Unknown:    node.RDFAddress,
				Known:      c.Node.RDFAddress,
				MatchType:  rel.MatchType,
				Confidence: rel.Confidence,
			})
			resolved = true
			break
		}
		if !resolved {
			if err := resolver.MarkUnresolved(u.NodeID); err != nil {
				return nil, err
			}
			summary.Unresolved = append(summary.Unresolved, node.RDFAddress)
		}
	}
	return summary, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := openEngine("")
	if err != nil {
		return outputError("stats", err)
	}
	defer engine.Close()

	namespace := ""
	if len(args) == 1 {
		namespace = args[0]
	}
	stats, err := engine.Query().Stats(namespace)
	if err != nil {
		return outputError("stats", err)
	}
	return outputStats(namespace, stats)
}
