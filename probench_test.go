package main

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/proteobench/probench/internal/metrics"
)

func testOpts(format, paramsFile, series string, minObserved int, args ...string) *options {
	return &options{
		format:         &format,
		paramsFilename: &paramsFile,
		series:         &series,
		minObserved:    &minObserved,
		args:           args,
	}
}

func TestValidateOpts(t *testing.T) {
	// Benchmark run with parameter file
	opts := testOpts("MaxQuant", "mqpar.xml", "", 3, "evidence.txt")
	if err := validateOpts(opts); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if opts.resultFilename != "evidence.txt" {
		t.Errorf("Expected result filename evidence.txt, got: %s", opts.resultFilename)
	}

	// Params-only run
	if err := validateOpts(testOpts("MaxQuant", "mqpar.xml", "", 3)); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Series append needs a result file to produce a datapoint
	if err := validateOpts(testOpts("MaxQuant", "mqpar.xml", "results.json", 3)); err == nil {
		t.Errorf("Expected error for -series without result file, got nil")
	}

	// Conflicting and missing parameters
	if err := validateOpts(testOpts("MaxQuant", "", "", 3, "a.txt", "b.txt")); err == nil {
		t.Errorf("Expected error for two result files, got nil")
	}
	if err := validateOpts(testOpts("MaxQuant", "", "", 3)); err == nil {
		t.Errorf("Expected error for empty invocation, got nil")
	}
	if err := validateOpts(testOpts("", "", "", 3, "evidence.txt")); err == nil {
		t.Errorf("Expected error for missing -format, got nil")
	}
	if err := validateOpts(testOpts("MaxQuant", "", "", 0, "evidence.txt")); err == nil {
		t.Errorf("Expected error for -minobs below 1, got nil")
	}
}

func TestFormatFloat(t *testing.T) {
	if got := formatFloat(1.5); got != "1.5" {
		t.Errorf("Expected 1.5, got: %s", got)
	}
	if got := formatFloat(math.NaN()); got != "" {
		t.Errorf("Expected empty cell for NaN, got: %s", got)
	}
}

func TestWriteSummaries(t *testing.T) {
	summaries := []metrics.Summary{
		{
			Precursor: "PEPTIDEK|2", Species: "YEAST", NrObserved: 6,
			MeanA: 200, MeanB: 100, CVA: 10, CVB: 12,
			Log2FC: 1, ExpectedLog2: 1, Epsilon: 0,
		},
		{
			Precursor: "QQQK|3", Species: "HUMAN", NrObserved: 3,
			MeanA: 50, MeanB: math.NaN(), CVA: 5, CVB: math.NaN(),
			Log2FC: math.NaN(), ExpectedLog2: 0, Epsilon: math.NaN(),
		},
	}
	filename := filepath.Join(t.TempDir(), "performance.csv")
	err := writeSummaries(filename, summaries)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := [][]string{
		{"precursor", "species", "nr_observed",
			"mean_a", "mean_b", "cv_a", "cv_b",
			"log2_fc", "expected_log2_fc", "epsilon"},
		{"PEPTIDEK|2", "YEAST", "6", "200", "100", "10", "12", "1", "1", "0"},
		{"QQQK|3", "HUMAN", "3", "50", "", "5", "", "", "0", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Performance table mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.json")
	err := writeJSON(filename, map[string]int{"nr_prec": 42})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if data[len(data)-1] != '\n' {
		t.Errorf("Expected trailing newline")
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if got["nr_prec"] != 42 {
		t.Errorf("Expected 42, got: %d", got["nr_prec"])
	}
}
