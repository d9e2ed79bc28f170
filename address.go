package deplink

import (
	"fmt"
	"strings"
)

// CreateRDFAddress builds the canonical node identifier
// <project>/<filePath>#<NodeType>:<symbolName>. Pure and deterministic:
// the same four inputs always produce the same address, which is what
// makes duplicate node creation collapse into an idempotent no-op.
func CreateRDFAddress(project, filePath, nodeType, symbolName string) string {
	return fmt.Sprintf("%s/%s#%s:%s", project, filePath, nodeType, symbolName)
}

// ParsedAddress is the soft-failure result of ParseRDFAddress. When
// IsValid is false the Errors slice explains each failed check; the
// recognizable segments are still populated on a best-effort basis.
type ParsedAddress struct {
	IsValid     bool
	ProjectName string
	FilePath    string
	NodeType    string
	SymbolName  string
	Errors      []string
}

// ParseRDFAddress decomposes an RDF address into its four segments.
// Addresses may originate from untrusted input, so malformed values
// never produce an error return; diagnostics ride on the result.
// Validity requires exactly one '#', exactly one ':' inside the
// fragment, and four non-empty segments.
func ParseRDFAddress(address string) ParsedAddress {
	parsed := ParsedAddress{}

	if strings.Count(address, "#") != 1 {
		parsed.Errors = append(parsed.Errors, "address must contain exactly one '#' separator")
		return parsed
	}
	prefix, fragment, _ := strings.Cut(address, "#")

	if strings.Count(fragment, ":") != 1 {
		parsed.Errors = append(parsed.Errors, "fragment must contain exactly one ':' separator")
		return parsed
	}
	nodeType, symbolName, _ := strings.Cut(fragment, ":")

	// The project name is the first path segment; the file path is the rest
	// and may itself contain slashes.
	project, filePath, found := strings.Cut(prefix, "/")
	if !found {
		parsed.Errors = append(parsed.Errors, "address must contain a '/' between project and file path")
	}

	if project == "" {
		parsed.Errors = append(parsed.Errors, "project name is empty")
	}
	if filePath == "" {
		parsed.Errors = append(parsed.Errors, "file path is empty")
	}
	if nodeType == "" {
		parsed.Errors = append(parsed.Errors, "node type is empty")
	}
	if symbolName == "" {
		parsed.Errors = append(parsed.Errors, "symbol name is empty")
	}

	parsed.ProjectName = project
	parsed.FilePath = filePath
	parsed.NodeType = nodeType
	parsed.SymbolName = symbolName
	parsed.IsValid = len(parsed.Errors) == 0
	return parsed
}

// AddressOccurrence is one sighting of an address, carrying enough source
// position to make a duplicate report actionable.
type AddressOccurrence struct {
	Address    string
	SourceFile string
	Line       int
	Col        int
}

// UniquenessOptions controls address normalization during validation.
// CaseSensitive chooses whether differently-cased addresses are distinct;
// StrictMode additionally flags near-duplicates that differ only by case
// even when case-sensitive comparison keeps them apart.
type UniquenessOptions struct {
	StrictMode    bool
	CaseSensitive bool
}

// DuplicateGroup lists every occurrence of one (normalized) address that
// appeared more than once.
type DuplicateGroup struct {
	Address     string
	CaseOnly    bool // true when flagged by StrictMode case-folding, not exact collision
	Occurrences []AddressOccurrence
}

// UniquenessReport is the result of ValidateRDFUniqueness.
type UniquenessReport struct {
	IsUnique   bool
	Duplicates []DuplicateGroup
}

func (p UniquenessOptions) normalize(address string) string {
	if p.CaseSensitive {
		return address
	}
	return strings.ToLower(address)
}

// ValidateRDFUniqueness groups occurrences by normalized address and
// reports every group that appears more than once. An empty address in
// the occurrence list is an ErrInvalidAddress: the caller handed us
// garbage, not a graph fact.
func ValidateRDFUniqueness(occurrences []AddressOccurrence, opts UniquenessOptions) (*UniquenessReport, error) {
	groups := make(map[string][]AddressOccurrence)
	var order []string
	for _, occ := range occurrences {
		if occ.Address == "" {
			return nil, fmt.Errorf("%w: empty address in occurrence list", ErrInvalidAddress)
		}
		key := opts.normalize(occ.Address)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], occ)
	}

	report := &UniquenessReport{IsUnique: true}
	for _, key := range order {
		occs := groups[key]
		if len(occs) > 1 {
			report.IsUnique = false
			report.Duplicates = append(report.Duplicates, DuplicateGroup{
				Address:     occs[0].Address,
				Occurrences: occs,
			})
		}
	}

	// StrictMode flags case-only near-duplicates that case-sensitive
	// grouping kept apart.
	if opts.StrictMode && opts.CaseSensitive {
		folded := make(map[string][]AddressOccurrence)
		var foldedOrder []string
		for _, key := range order {
			lower := strings.ToLower(key)
			if _, seen := folded[lower]; !seen {
				foldedOrder = append(foldedOrder, lower)
			}
			folded[lower] = append(folded[lower], groups[key]...)
		}
		for _, lower := range foldedOrder {
			occs := folded[lower]
			if len(occs) <= 1 {
				continue
			}
			distinct := make(map[string]bool)
			for _, occ := range occs {
				distinct[occ.Address] = true
			}
			if len(distinct) > 1 {
				report.IsUnique = false
				report.Duplicates = append(report.Duplicates, DuplicateGroup{
					Address:     occs[0].Address,
					CaseOnly:    true,
					Occurrences: occs,
				})
			}
		}
	}

	return report, nil
}
