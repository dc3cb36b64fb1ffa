package params

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/proteobench/probench/internal/flatxml"
)

// mqpar.xml paths are at most 4 tags deep for the fields we extract.
// Deeper documents fail with ErrPathTooDeep rather than being truncated.
const maxQuantIndexDepth = 4

// maxQuantVersionPivot is where fixedModifications moved from the top
// level of mqpar.xml into the parameter group
const maxQuantVersionPivot = "1.6.0.0"

type maxQuantExtractor struct{}

// Extract runs the full pipeline on an mqpar.xml file:
// parse, read the node tree, flatten, index, pull the named fields.
func (maxQuantExtractor) Extract(file string) (*Record, error) {
	node, err := flatxml.ParseFile(file)
	if err != nil {
		return nil, fmt.Errorf("maxquant: parse %s: %w", file, err)
	}
	pairs, err := flatxml.Flatten(node)
	if err != nil {
		return nil, fmt.Errorf("maxquant: flatten %s: %w", file, err)
	}
	idx, err := flatxml.NewIndex(pairs, maxQuantIndexDepth)
	if err != nil {
		return nil, fmt.Errorf("maxquant: index %s: %w", file, err)
	}
	return extractMaxQuant(idx)
}

func extractMaxQuant(idx *flatxml.Index) (*Record, error) {
	rec := &Record{
		SearchEngine: strPtr("Andromeda"),
		SoftwareName: strPtr("MaxQuant"),
	}

	// The version steers where later fields are looked up, so a record
	// without it is a schema mismatch, not a null field
	version, ok := idx.Lookup("maxQuantVersion").Single()
	if !ok {
		return nil, fmt.Errorf("maxquant: no maxQuantVersion in parameter file")
	}
	rec.SoftwareVersion = strPtr(version)

	// MaxQuant reports no separate PSM level FDR
	rec.IdentFDRPeptide = single(idx.Lookup("peptideFdr"))
	rec.IdentFDRProtein = single(idx.Lookup("proteinFdr"))
	rec.EnableMatchBetweenRuns = single(idx.Lookup("matchBetweenRuns"))

	if tol, ok := idx.Prefix("parameterGroups", "parameterGroup", "mainSearchTol").Single(); ok {
		rec.PrecursorMassTolerance = strPtr(tol + " ppm")
	}

	// The fragment tolerance location differs between MaxQuant versions
	// (<=1.5 vs >1.6); until that is mapped per version we report null
	// rather than guess a path.
	log.Printf("maxquant: fragment mass tolerance not supported for version %s, reporting null", version)

	rec.Enzyme = joined(idx.Lookup("parameterGroups", "parameterGroup", "enzymes", "string"))
	rec.AllowedMiscleavages = single(idx.Prefix("parameterGroups", "parameterGroup", "maxMissedCleavages"))
	rec.MinPeptideLength = single(idx.Lookup("minPepLen"))

	fixed := idx.Prefix("fixedModifications")
	if compareVersions(version, maxQuantVersionPivot) > 0 {
		fixed = idx.Prefix("parameterGroups", "parameterGroup", "fixedModifications")
	}
	rec.FixedMods = joined(fixed)
	rec.VariableMods = joined(idx.Prefix("parameterGroups", "parameterGroup", "variableModifications"))

	rec.MaxMods = single(idx.Lookup("parameterGroups", "parameterGroup", "maxNmods"))
	rec.MaxPrecursorCharge = single(idx.Prefix("parameterGroups", "parameterGroup", "maxCharge"))

	return rec, nil
}

// single squeezes a lookup to a nullable field: exactly one match is the
// value, no match is null
func single(r flatxml.Result) *string {
	if v, ok := r.Single(); ok {
		return strPtr(v)
	}
	return nil
}

// joined turns a lookup into a nullable field, joining multiple matches
// (modification and enzyme lists) with a comma
func joined(r flatxml.Result) *string {
	if r.Empty() {
		return nil
	}
	return strPtr(strings.Join(r.Values, ","))
}

// compareVersions compares dotted numeric version strings component by
// component, so that e.g. 1.10 orders after 1.6. Non-numeric components
// fall back to string comparison. Returns <0, 0 or >0.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		ac, bc := "0", "0"
		if i < len(as) {
			ac = as[i]
		}
		if i < len(bs) {
			bc = bs[i]
		}
		an, aerr := strconv.Atoi(ac)
		bn, berr := strconv.Atoi(bc)
		if aerr != nil || berr != nil {
			if ac != bc {
				return strings.Compare(ac, bc)
			}
			continue
		}
		if an != bn {
			return an - bn
		}
	}
	return 0
}
