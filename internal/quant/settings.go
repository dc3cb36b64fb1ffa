// Package quant reads tool-specific quantification result tables and
// normalizes them into one standardized long-format table: one row per
// precursor ion per run, with the species of origin resolved from the
// protein accessions. Per-tool column schemas are data, not code; each
// supported format is described by a Settings entry.
package quant

import (
	"errors"
	"math"
	"regexp"
)

var ErrUnknownFormat = errors.New("quant: unknown input format")

// Shape of the input table: long has one intensity cell per row, wide has
// one intensity column per run
type Shape int

const (
	ShapeLong Shape = iota
	ShapeWide
)

// Settings describes how one tool's result table maps onto the
// standardized format
type Settings struct {
	Format    string
	Comma     rune // cell separator
	Shape     Shape
	Sequence  string // modified peptide sequence column
	Charge    string // precursor charge column
	RawFile   string // run identifier column (long shape)
	Intensity string // intensity column (long shape)
	Protein   string // protein accession(s) column

	// Wide shape: a run intensity column either carries this suffix
	// (e.g. " Intensity" for MSFragger) or, when the suffix is empty,
	// is recognized by the run name pattern itself (Sage).
	WideSuffix string

	DecoyPrefix     string // protein prefix marking decoy hits
	ContaminantTag  string // protein substring marking contaminants
	decoyColumn     string // optional flag column ("+" marks decoys)
	contaminantFlag string // optional flag column ("+" marks contaminants)
}

// speciesMarkers resolves the species of origin from a protein
// accession. A row whose proteins match no species, or more than one,
// cannot be scored against an expected ratio and is dropped.
var speciesMarkers = map[string]string{
	"_HUMAN": "HUMAN",
	"_YEAST": "YEAST",
	"_ECOLI": "ECOLI",
}

// Expected condition A / condition B abundance ratios of the benchmark
// sample mixture, per species
var expectedRatios = map[string]float64{
	"HUMAN": 1.0,
	"YEAST": 2.0,
	"ECOLI": 0.25,
}

// ExpectedLog2Ratio returns the expected log2 fold change between
// conditions for a species, or NaN when the species is not part of the
// benchmark mixture
func ExpectedLog2Ratio(species string) float64 {
	if ratio, ok := expectedRatios[species]; ok {
		return math.Log2(ratio)
	}
	return math.NaN()
}

// runPattern extracts condition and replicate number from a benchmark
// run name, e.g. LFQ_Orbitrap_DDA_Condition_A_Sample_Alpha_01
var runPattern = regexp.MustCompile(`Condition_([A-Za-z]+)_Sample_[A-Za-z]+_0*(\d+)`)

// Replicate places one run in the experimental design
type Replicate struct {
	Condition string
	Number    int
}

var formats = map[string]*Settings{
	"MaxQuant": {
		Format:          "MaxQuant",
		Comma:           '\t',
		Shape:           ShapeLong,
		Sequence:        "Modified sequence",
		Charge:          "Charge",
		RawFile:         "Raw file",
		Intensity:       "Intensity",
		Protein:         "Proteins",
		DecoyPrefix:     "REV__",
		ContaminantTag:  "CON__",
		decoyColumn:     "Reverse",
		contaminantFlag: "Potential contaminant",
	},
	"MSFragger": {
		Format:     "MSFragger",
		Comma:      '\t',
		Shape:      ShapeWide,
		Sequence:   "Modified Sequence",
		Charge:     "Charge",
		Protein:    "Protein",
		WideSuffix: " Intensity",
		// MSFragger marks decoys with the rev_ accession prefix
		DecoyPrefix:    "rev_",
		ContaminantTag: "contam_",
	},
	"AlphaPept": {
		Format:         "AlphaPept",
		Comma:          ',',
		Shape:          ShapeLong,
		Sequence:       "sequence",
		Charge:         "charge",
		RawFile:        "raw_file",
		Intensity:      "int_sum",
		Protein:        "protein_group",
		DecoyPrefix:    "REV__",
		ContaminantTag: "CON__",
	},
	"Sage": {
		Format:         "Sage",
		Comma:          '\t',
		Shape:          ShapeWide,
		Sequence:       "peptide",
		Charge:         "charge",
		Protein:        "proteins",
		DecoyPrefix:    "rev_",
		ContaminantTag: "contam_",
	},
}

// Formats lists the supported input formats
func Formats() []string {
	return []string{"MaxQuant", "MSFragger", "AlphaPept", "Sage"}
}

// SettingsFor returns the table description for an input format
func SettingsFor(format string) (*Settings, error) {
	s, ok := formats[format]
	if !ok {
		return nil, ErrUnknownFormat
	}
	return s, nil
}
