// Package metrics computes the comparative benchmark metrics from a
// standardized quantification table: per-precursor fold changes between
// conditions, coefficients of variation within conditions, and the
// deviation from the expected species ratio.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/proteobench/probench/internal/quant"
)

var ErrNoConditions = errors.New("metrics: no runs match the benchmark design")

// Summary holds the per-precursor comparative metrics
type Summary struct {
	Precursor    string  `json:"precursor"`
	Species      string  `json:"species"`
	NrObserved   int     `json:"nr_observed"` // runs with a quantification
	MeanA        float64 `json:"mean_a"`
	MeanB        float64 `json:"mean_b"`
	CVA          float64 `json:"cv_a"`
	CVB          float64 `json:"cv_b"`
	Log2FC       float64 `json:"log2_fc"`
	ExpectedLog2 float64 `json:"expected_log2_fc"`
	Epsilon      float64 `json:"epsilon"` // observed minus expected log2 ratio
}

// accumulation key: one precursor in one run
type runKey struct {
	precursor string
	run       string
}

// Intermediate aggregates a standardized table into per-precursor
// metrics. Intensities of one precursor within one run are summed,
// then runs are placed into condition A or B via the benchmark naming
// convention. Metrics that need both conditions are NaN when one side
// was never observed; such precursors are kept, the caller filters.
// Output is sorted by precursor, so equal inputs give equal outputs.
func Intermediate(table *quant.Table) ([]Summary, error) {
	perRun := make(map[runKey]float64)
	species := make(map[string]string)
	conditions := make(map[string]quant.Replicate)

	for _, row := range table.Rows {
		rep, ok := quant.RunReplicate(row.RawFile)
		if !ok {
			continue
		}
		conditions[row.RawFile] = rep
		perRun[runKey{row.Precursor, row.RawFile}] += row.Intensity
		species[row.Precursor] = row.Species
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w (%s table, %d rows)", ErrNoConditions, table.Format, len(table.Rows))
	}

	// Collect per-precursor intensity vectors per condition
	byPrecursor := make(map[string]map[string][]float64)
	for key, intensity := range perRun {
		rep := conditions[key.run]
		byCondition := byPrecursor[key.precursor]
		if byCondition == nil {
			byCondition = make(map[string][]float64)
			byPrecursor[key.precursor] = byCondition
		}
		byCondition[rep.Condition] = append(byCondition[rep.Condition], intensity)
	}

	summaries := make([]Summary, 0, len(byPrecursor))
	for prec, byCondition := range byPrecursor {
		a := byCondition["A"]
		b := byCondition["B"]
		// Map iteration filled these; fix the order so float summation
		// is reproducible run to run
		sort.Float64s(a)
		sort.Float64s(b)
		sp := species[prec]

		s := Summary{
			Precursor:    prec,
			Species:      sp,
			NrObserved:   len(a) + len(b),
			MeanA:        meanOrNaN(a),
			MeanB:        meanOrNaN(b),
			CVA:          cv(a),
			CVB:          cv(b),
			ExpectedLog2: quant.ExpectedLog2Ratio(sp),
		}
		s.Log2FC = math.Log2(s.MeanA / s.MeanB)
		s.Epsilon = s.Log2FC - s.ExpectedLog2
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Precursor < summaries[j].Precursor
	})
	return summaries, nil
}

// FilterMin keeps precursors observed in at least minObserved runs
func FilterMin(summaries []Summary, minObserved int) []Summary {
	kept := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if s.NrObserved >= minObserved {
			kept = append(kept, s)
		}
	}
	return kept
}

// MedianAbsEpsilon is the headline benchmark metric: the median absolute
// deviation of the observed log2 ratios from the expected species
// ratios. Precursors without a finite epsilon (observed in only one
// condition) do not contribute. NaN when nothing contributes.
func MedianAbsEpsilon(summaries []Summary) float64 {
	eps := make([]float64, 0, len(summaries))
	for _, s := range summaries {
		if !math.IsNaN(s.Epsilon) && !math.IsInf(s.Epsilon, 0) {
			eps = append(eps, math.Abs(s.Epsilon))
		}
	}
	if len(eps) == 0 {
		return math.NaN()
	}
	sort.Float64s(eps)
	n := len(eps)
	if n%2 == 1 {
		return eps[n/2]
	}
	return (eps[n/2-1] + eps[n/2]) / 2
}

func meanOrNaN(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// cv is the coefficient of variation of one condition's intensities.
// NaN with fewer than two observations.
func cv(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil) / stat.Mean(xs, nil)
}
