package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	deplink "github.com/mineclover/dependency-linker-sub002"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error in the selected format and returns it so
// RunE can propagate it to Cobra. In JSON mode the error goes to stdout
// as an envelope; in text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = outputJSON(map[string]string{"command": command, "error": err.Error()})
	return err
}

type analyzeOutput struct {
	Reports        []*deplink.Report         `json:"reports"`
	CrossNamespace []deplink.CrossDependency `json:"crossNamespace,omitempty"`
}

func outputAnalyze(reports []*deplink.Report, cross []deplink.CrossDependency) error {
	if flagFormat == "text" {
		w := os.Stdout
		for _, r := range reports {
			fmt.Fprintf(w, "Namespace: %s\n", r.Namespace)
			fmt.Fprintf(w, "  Files: %d analyzed, %d failed, %d total\n",
				r.AnalyzedFiles, len(r.FailedFiles), r.TotalFiles)
			if r.GraphStats != nil {
				fmt.Fprintf(w, "  Graph: %d nodes, %d edges, %d unknown (%d resolved)\n",
					r.GraphStats.Nodes, r.GraphStats.Edges,
					r.GraphStats.UnknownSymbols, r.GraphStats.ResolvedUnknowns)
			}
			for _, f := range r.FailedFiles {
				fmt.Fprintf(w, "  FAILED %s: %s\n", f.File, f.Reason)
			}
		}
		if len(cross) > 0 {
			fmt.Fprintln(w)
			formatCrossText(w, cross)
		}
		return nil
	}
	return outputJSON(analyzeOutput{Reports: reports, CrossNamespace: cross})
}

func formatCrossText(w io.Writer, deps []deplink.CrossDependency) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM NS\tTO NS\tTYPE\tFROM\tTO")
	for _, d := range deps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.FromNamespace, d.ToNamespace, d.EdgeType, d.FromAddress, d.ToAddress)
	}
	tw.Flush()
}

func outputCross(deps []deplink.CrossDependency) error {
	if flagFormat == "text" {
		formatCrossText(os.Stdout, deps)
		return nil
	}
	return outputJSON(map[string]any{"dependencies": deps})
}

func outputCycles(cycles [][]string) error {
	if flagFormat == "text" {
		if len(cycles) == 0 {
			fmt.Println("No cycles found")
			return nil
		}
		for i, cycle := range cycles {
			fmt.Printf("Cycle %d: %s\n", i+1, strings.Join(cycle, " -> "))
		}
		return nil
	}
	return outputJSON(map[string]any{"cycles": cycles})
}

type resolvedEntry struct {
	Unknown    string  `json:"unknown"`
	Known      string  `json:"known"`
	MatchType  string  `json:"matchType"`
	Confidence float64 `json:"confidence"`
}

type resolveSummary struct {
	Pending    int             `json:"pending"`
	Resolved   []resolvedEntry `json:"resolved"`
	Unresolved []string        `json:"unresolved"`
}

func outputResolve(summary *resolveSummary) error {
	if flagFormat == "text" {
		fmt.Printf("Pending: %d, resolved: %d, unresolved: %d\n",
			summary.Pending, len(summary.Resolved), len(summary.Unresolved))
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, r := range summary.Resolved {
			fmt.Fprintf(tw, "%s\t->\t%s\t%s\t%.2f\n", r.Unknown, r.Known, r.MatchType, r.Confidence)
		}
		tw.Flush()
		for _, u := range summary.Unresolved {
			fmt.Printf("unresolved: %s\n", u)
		}
		return nil
	}
	return outputJSON(summary)
}

func outputStats(namespace string, stats *deplink.GraphStats) error {
	if flagFormat == "text" {
		if namespace != "" {
			fmt.Printf("Namespace: %s\n", namespace)
		}
		fmt.Printf("Nodes: %d\n", stats.Nodes)
		fmt.Printf("Edges: %d\n", stats.Edges)
		fmt.Printf("Unknown symbols: %d (%d resolved)\n", stats.UnknownSymbols, stats.ResolvedUnknowns)
		return nil
	}
	return outputJSON(map[string]any{"namespace": namespace, "stats": stats})
}
