package metrics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteobench/probench/internal/quant"
)

func run(condition string, n int) string {
	return "LFQ_Orbitrap_DDA_Condition_" + condition + "_Sample_Alpha_0" + string(rune('0'+n))
}

func row(precursor, species, rawFile string, intensity float64) quant.Row {
	return quant.Row{
		Precursor: precursor,
		RawFile:   rawFile,
		Intensity: intensity,
		Species:   species,
	}
}

func TestIntermediate(t *testing.T) {
	table := &quant.Table{
		Format: "MaxQuant",
		Rows: []quant.Row{
			// Yeast precursor, expected log2 A/B = 1
			row("PEPTIDEK|2", "YEAST", run("A", 1), 200),
			row("PEPTIDEK|2", "YEAST", run("A", 2), 400),
			row("PEPTIDEK|2", "YEAST", run("B", 1), 100),
			row("PEPTIDEK|2", "YEAST", run("B", 2), 200),
			// Human precursor, expected log2 = 0, observed only in A
			row("AAAAK|2", "HUMAN", run("A", 1), 1000),
		},
	}

	summaries, err := Intermediate(table)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Sorted by precursor
	assert.Equal(t, "AAAAK|2", summaries[0].Precursor)
	assert.Equal(t, "PEPTIDEK|2", summaries[1].Precursor)

	yeast := summaries[1]
	assert.Equal(t, 4, yeast.NrObserved)
	assert.InDelta(t, 300.0, yeast.MeanA, 1e-9)
	assert.InDelta(t, 150.0, yeast.MeanB, 1e-9)
	assert.InDelta(t, 1.0, yeast.Log2FC, 1e-9)
	assert.InDelta(t, 1.0, yeast.ExpectedLog2, 1e-9)
	assert.InDelta(t, 0.0, yeast.Epsilon, 1e-9)
	// CV of {200,400}: stddev/mean = 141.42/300
	assert.InDelta(t, math.Sqrt2*100/300, yeast.CVA, 1e-9)

	human := summaries[0]
	assert.Equal(t, 1, human.NrObserved)
	assert.True(t, math.IsNaN(human.MeanB))
	assert.True(t, math.IsNaN(human.Log2FC) || math.IsInf(human.Log2FC, 0))
	assert.True(t, math.IsNaN(human.CVA), "single observation has no CV")
}

func TestIntermediateSumsWithinRun(t *testing.T) {
	// Multiple evidence rows of one precursor in one run are summed
	table := &quant.Table{
		Format: "MaxQuant",
		Rows: []quant.Row{
			row("PEPTIDEK|2", "HUMAN", run("A", 1), 100),
			row("PEPTIDEK|2", "HUMAN", run("A", 1), 50),
			row("PEPTIDEK|2", "HUMAN", run("B", 1), 150),
		},
	}
	summaries, err := Intermediate(table)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 2, summaries[0].NrObserved)
	assert.InDelta(t, 150.0, summaries[0].MeanA, 1e-9)
	assert.InDelta(t, 0.0, summaries[0].Log2FC, 1e-9)
}

func TestIntermediateIgnoresForeignRuns(t *testing.T) {
	table := &quant.Table{
		Format: "MaxQuant",
		Rows: []quant.Row{
			row("PEPTIDEK|2", "HUMAN", run("A", 1), 100),
			row("PEPTIDEK|2", "HUMAN", "QC_pool_before", 900),
		},
	}
	summaries, err := Intermediate(table)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].NrObserved)
}

func TestIntermediateNoConditions(t *testing.T) {
	table := &quant.Table{
		Format: "MaxQuant",
		Rows:   []quant.Row{row("PEPTIDEK|2", "HUMAN", "some_other_design", 100)},
	}
	_, err := Intermediate(table)
	require.ErrorIs(t, err, ErrNoConditions)
}

func TestIntermediateDeterministic(t *testing.T) {
	table := &quant.Table{
		Format: "MaxQuant",
		Rows: []quant.Row{
			row("B|2", "HUMAN", run("A", 1), 100),
			row("A|2", "YEAST", run("A", 1), 200),
			row("C|3", "ECOLI", run("B", 1), 300),
			row("A|2", "YEAST", run("B", 1), 100),
		},
	}
	first, err := Intermediate(table)
	require.NoError(t, err)
	second, err := Intermediate(table)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Intermediate not deterministic (-first +second):\n%s", diff)
	}
}

func TestFilterMin(t *testing.T) {
	summaries := []Summary{
		{Precursor: "A|2", NrObserved: 6},
		{Precursor: "B|2", NrObserved: 2},
		{Precursor: "C|2", NrObserved: 3},
	}
	kept := FilterMin(summaries, 3)
	require.Len(t, kept, 2)
	assert.Equal(t, "A|2", kept[0].Precursor)
	assert.Equal(t, "C|2", kept[1].Precursor)
}

func TestMedianAbsEpsilon(t *testing.T) {
	summaries := []Summary{
		{Epsilon: 0.5},
		{Epsilon: -1.0},
		{Epsilon: 0.1},
		{Epsilon: math.NaN()}, // one-sided precursor, does not contribute
	}
	assert.InDelta(t, 0.5, MedianAbsEpsilon(summaries), 1e-9)

	assert.True(t, math.IsNaN(MedianAbsEpsilon(nil)))
	assert.True(t, math.IsNaN(MedianAbsEpsilon([]Summary{{Epsilon: math.NaN()}})))
}
