package quant

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Row is one standardized observation: one precursor ion quantified in
// one run
type Row struct {
	Precursor string // sequence and charge, "<modified sequence>|<z>"
	Sequence  string
	Charge    int
	RawFile   string
	Intensity float64
	Species   string
}

// Table is the standardized long-format quantification table
type Table struct {
	Format string
	Rows   []Row

	// Rows removed during normalization
	Decoys       int
	Contaminants int
	Unassigned   int // no species or more than one species matched
}

// ReadFile normalizes a result file into the standardized table
func (s *Settings) ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Read(f)
}

// Read normalizes a result table into the standardized long format.
// Decoy and contaminant rows are dropped and counted, as are rows whose
// proteins resolve to no species or to several. Unquantified cells
// (empty or zero intensity) produce no row; a malformed number is an
// error, not a dropped cell.
func (s *Settings) Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = s.Comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("quant: parse %s table: %w", s.Format, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("quant: %s table has no header", s.Format)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[name] = i
	}

	table := &Table{Format: s.Format}
	switch s.Shape {
	case ShapeLong:
		err = s.readLong(header, records[1:], table)
	case ShapeWide:
		err = s.readWide(records[0], header, records[1:], table)
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

// column returns the index of a required column
func column(header map[string]int, name string, format string) (int, error) {
	i, ok := header[name]
	if !ok {
		return 0, fmt.Errorf("quant: %s table has no column %q", format, name)
	}
	return i, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (s *Settings) readLong(header map[string]int, records [][]string, table *Table) error {
	seqIdx, err := column(header, s.Sequence, s.Format)
	if err != nil {
		return err
	}
	chargeIdx, err := column(header, s.Charge, s.Format)
	if err != nil {
		return err
	}
	rawIdx, err := column(header, s.RawFile, s.Format)
	if err != nil {
		return err
	}
	intIdx, err := column(header, s.Intensity, s.Format)
	if err != nil {
		return err
	}
	protIdx, err := column(header, s.Protein, s.Format)
	if err != nil {
		return err
	}
	// Flag columns are optional; not every tool writes them
	decoyIdx := optional(header, s.decoyColumn)
	contIdx := optional(header, s.contaminantFlag)

	for n, record := range records {
		proteins := cell(record, protIdx)
		switch s.classify(proteins, cell(record, decoyIdx), cell(record, contIdx)) {
		case rowDecoy:
			table.Decoys++
			continue
		case rowContaminant:
			table.Contaminants++
			continue
		}
		species, ok := resolveSpecies(proteins)
		if !ok {
			table.Unassigned++
			continue
		}

		intensity, quantified, err := parseIntensity(cell(record, intIdx))
		if err != nil {
			return fmt.Errorf("quant: %s row %d: %w", s.Format, n+2, err)
		}
		if !quantified {
			continue
		}
		charge, err := strconv.Atoi(cell(record, chargeIdx))
		if err != nil {
			return fmt.Errorf("quant: %s row %d: bad charge: %w", s.Format, n+2, err)
		}
		seq := cell(record, seqIdx)
		table.Rows = append(table.Rows, Row{
			Precursor: precursor(seq, charge),
			Sequence:  seq,
			Charge:    charge,
			RawFile:   NormalizeRunName(cell(record, rawIdx)),
			Intensity: intensity,
			Species:   species,
		})
	}
	return nil
}

func (s *Settings) readWide(names []string, header map[string]int, records [][]string, table *Table) error {
	seqIdx, err := column(header, s.Sequence, s.Format)
	if err != nil {
		return err
	}
	chargeIdx, err := column(header, s.Charge, s.Format)
	if err != nil {
		return err
	}
	protIdx, err := column(header, s.Protein, s.Format)
	if err != nil {
		return err
	}

	// Identify the per-run intensity columns
	type runColumn struct {
		idx int
		run string
	}
	var runs []runColumn
	for i, name := range names {
		switch {
		case s.WideSuffix != "" && strings.HasSuffix(name, s.WideSuffix):
			runs = append(runs, runColumn{i, NormalizeRunName(strings.TrimSuffix(name, s.WideSuffix))})
		case s.WideSuffix == "" && runPattern.MatchString(name):
			runs = append(runs, runColumn{i, NormalizeRunName(name)})
		}
	}
	if len(runs) == 0 {
		return fmt.Errorf("quant: %s table has no run intensity columns", s.Format)
	}

	for n, record := range records {
		proteins := cell(record, protIdx)
		switch s.classify(proteins, "", "") {
		case rowDecoy:
			table.Decoys++
			continue
		case rowContaminant:
			table.Contaminants++
			continue
		}
		species, ok := resolveSpecies(proteins)
		if !ok {
			table.Unassigned++
			continue
		}
		charge, err := strconv.Atoi(cell(record, chargeIdx))
		if err != nil {
			return fmt.Errorf("quant: %s row %d: bad charge: %w", s.Format, n+2, err)
		}
		seq := cell(record, seqIdx)

		for _, rc := range runs {
			intensity, quantified, err := parseIntensity(cell(record, rc.idx))
			if err != nil {
				return fmt.Errorf("quant: %s row %d column %q: %w", s.Format, n+2, names[rc.idx], err)
			}
			if !quantified {
				continue
			}
			table.Rows = append(table.Rows, Row{
				Precursor: precursor(seq, charge),
				Sequence:  seq,
				Charge:    charge,
				RawFile:   rc.run,
				Intensity: intensity,
				Species:   species,
			})
		}
	}
	return nil
}

type rowClass int

const (
	rowKeep rowClass = iota
	rowDecoy
	rowContaminant
)

func (s *Settings) classify(proteins, decoyFlag, contFlag string) rowClass {
	if decoyFlag == "+" || (s.DecoyPrefix != "" && strings.Contains(proteins, s.DecoyPrefix)) {
		return rowDecoy
	}
	if contFlag == "+" || (s.ContaminantTag != "" && strings.Contains(proteins, s.ContaminantTag)) {
		return rowContaminant
	}
	return rowKeep
}

func optional(header map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := header[name]; ok {
		return i
	}
	return -1
}

func resolveSpecies(proteins string) (string, bool) {
	found := ""
	for marker, species := range speciesMarkers {
		if strings.Contains(proteins, marker) {
			if found != "" && found != species {
				return "", false // ambiguous, cannot be scored
			}
			found = species
		}
	}
	return found, found != ""
}

// parseIntensity reports whether the cell holds a usable quantification.
// Empty and zero cells mean "not quantified in this run"; anything else
// non-numeric is a data error.
func parseIntensity(s string) (float64, bool, error) {
	if s == "" || s == "NaN" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad intensity %q: %w", s, err)
	}
	if v <= 0 {
		return 0, false, nil
	}
	return v, true, nil
}

func precursor(sequence string, charge int) string {
	return sequence + "|" + strconv.Itoa(charge)
}

// NormalizeRunName strips directories and raw-data file extensions so
// run names compare across tools that report them differently
func NormalizeRunName(name string) string {
	// Some tools report Windows paths for the raw files
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = filepath.Base(name)
	for _, ext := range []string{".mzML", ".mzml", ".raw", ".RAW", ".d"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// RunReplicate places a run name in the experimental design via the
// benchmark naming convention. Runs outside the convention report false
// and cannot contribute to the condition comparison.
func RunReplicate(run string) (Replicate, bool) {
	m := runPattern.FindStringSubmatch(run)
	if m == nil {
		return Replicate{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Replicate{}, false
	}
	return Replicate{Condition: m[1], Number: n}, true
}

// Hash returns a stable digest of the standardized table, used to
// identify a submission's intermediate data
func (t *Table) Hash() string {
	h := sha256.New()
	for _, row := range t.Rows {
		fmt.Fprintf(h, "%s\x1f%s\x1f%g\x1f%s\n", row.Precursor, row.RawFile, row.Intensity, row.Species)
	}
	return hex.EncodeToString(h.Sum(nil))
}
