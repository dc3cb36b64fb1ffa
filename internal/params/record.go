// Package params normalizes tool-specific search parameter files into a
// common record with a fixed set of named fields. Each supported tool has
// its own extractor; what they share is the flatxml query contract the
// field locations are expressed against.
package params

import "errors"

// Record is the normalized parameter record. Fields a tool or tool
// version does not provide stay nil and serialize as explicit nulls,
// never silently omitted.
type Record struct {
	SearchEngine           *string `json:"search_engine"`
	SoftwareName           *string `json:"software_name"`
	SoftwareVersion        *string `json:"software_version"`
	IdentFDRPSM            *string `json:"ident_fdr_psm"`
	IdentFDRPeptide        *string `json:"ident_fdr_peptide"`
	IdentFDRProtein        *string `json:"ident_fdr_protein"`
	EnableMatchBetweenRuns *string `json:"enable_match_between_runs"`
	PrecursorMassTolerance *string `json:"precursor_mass_tolerance"`
	FragmentMassTolerance  *string `json:"fragment_mass_tolerance"`
	Enzyme                 *string `json:"enzyme"`
	AllowedMiscleavages    *string `json:"allowed_miscleavages"`
	MinPeptideLength       *string `json:"min_peptide_length"`
	MaxPeptideLength       *string `json:"max_peptide_length"`
	FixedMods              *string `json:"fixed_mods"`
	VariableMods           *string `json:"variable_mods"`
	MaxMods                *string `json:"max_mods"`
	MinPrecursorCharge     *string `json:"min_precursor_charge"`
	MaxPrecursorCharge     *string `json:"max_precursor_charge"`
}

// Extractor normalizes one tool's parameter file into a Record.
// A fatal condition (unreadable file, malformed XML, schema mismatch on
// a required field) aborts the call; no partial record is returned.
type Extractor interface {
	Extract(file string) (*Record, error)
}

var ErrUnsupportedTool = errors.New("params: no parameter extractor for this tool")

// ForTool returns the extractor for a tool's parameter files
func ForTool(name string) (Extractor, error) {
	switch name {
	case "MaxQuant":
		return maxQuantExtractor{}, nil
	}
	return nil, ErrUnsupportedTool
}

func strPtr(s string) *string {
	return &s
}
