// SPDX-License-Identifier: MIT

package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/proteobench/probench/internal/datapoint"
	"github.com/proteobench/probench/internal/metrics"
	"github.com/proteobench/probench/internal/params"
	"github.com/proteobench/probench/internal/quant"
)

// Program name and version, written into datapoint ids and -version output
const progName = "probench"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type options struct {
	format         *string // input format of result and parameter files
	paramsFilename *string // tool parameter file (e.g. mqpar.xml)
	paramsOutput   *string // normalized parameter record JSON output
	perfFilename   *string // per-precursor performance table (CSV) output
	dpFilename     *string // datapoint JSON output
	series         *string // existing datapoint series, file or http(s) URL
	seriesOutput   *string // series output with the new datapoint appended
	minObserved    *int    // minimum runs a precursor must be observed in
	resultFilename string  // quantification result table
	verbosity      int     // verbosity of progress messages (infoDefault...)
	args           []string
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] [<resultfile>]

  This program benchmarks proteomics search-engine output. It normalizes
  the search parameter file, converts the quantification result table to
  a standardized long format, computes fold-change and CV metrics per
  precursor against the expected species ratios, and aggregates the run
  into a datapoint that can be appended to a shared results series.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
SUPPORTED FORMATS:
`)
	for _, f := range quant.Formats() {
		fmt.Fprintf(os.Stderr, "     %s\n", f)
	}
	fmt.Fprintf(os.Stderr,
		`
USAGE EXAMPLES:
  %s -format MaxQuant -params mqpar.xml evidence.txt
    Benchmark a MaxQuant run. Writes evidence-performance.csv with the
    per-precursor metrics and evidence-datapoint.json with the aggregated
    datapoint.

  %s -format MaxQuant -params mqpar.xml
    Only normalize the parameter file and print the record.

  %s -format Sage -series https://example.org/results.json -seriesout results.json lfq.tsv
    Benchmark a Sage run and append the datapoint to the public series.
`, exeName, exeName, exeName)
}

// validateOpts checks the command line parameters for conflicts and
// resolves the positional result filename
func validateOpts(opts *options) error {
	if len(opts.args) > 1 {
		return errors.New("At most one result file can be given")
	}
	if len(opts.args) == 1 {
		opts.resultFilename = opts.args[0]
	}
	if opts.resultFilename == "" && *opts.paramsFilename == "" {
		return errors.New("Nothing to do: give a result file, a parameter file, or both")
	}
	if *opts.format == "" {
		return errors.New("Option -format is required")
	}
	if *opts.minObserved < 1 {
		return errors.New("Option -minobs must be at least 1")
	}
	if opts.resultFilename == "" && *opts.series != "" {
		return errors.New("Option -series requires a result file to benchmark")
	}
	return nil
}

// sanitizeOpts does some checks on parameters, and fills missing
// filenames if possible
func sanitizeOpts(opts *options) {
	if err := validateOpts(opts); err != nil {
		exeName := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, `%s.
Type %s --help for usage
`, err, exeName)
		os.Exit(2)
	}

	if opts.resultFilename != "" {
		extension := filepath.Ext(opts.resultFilename)
		startName := opts.resultFilename[0 : len(opts.resultFilename)-len(extension)]
		if *opts.perfFilename == "" {
			*opts.perfFilename = startName + "-performance.csv"
		}
		if *opts.dpFilename == "" {
			*opts.dpFilename = startName + "-datapoint.json"
		}
		if *opts.series != "" && *opts.seriesOutput == "" {
			*opts.seriesOutput = startName + "-series.json"
		}
	}
}

// normalizeParams parses and normalizes the tool parameter file
func normalizeParams(opts options) *params.Record {
	extractor, err := params.ForTool(*opts.format)
	if err != nil {
		log.Fatalf("parameter files of format %s: %v", *opts.format, err)
	}

	t := time.Now()
	if opts.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Normalizing parameters from %s: ", *opts.paramsFilename)
	}
	debugDumpFlatRecord(*opts.paramsFilename)

	rec, err := extractor.Extract(*opts.paramsFilename)
	if err != nil {
		log.Fatalf("params.Extract: error return %v", err)
	}
	if opts.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	if *opts.paramsOutput != "" {
		if err := writeJSON(*opts.paramsOutput, rec); err != nil {
			log.Fatalf("write %s: %v", *opts.paramsOutput, err)
		}
	}
	if opts.verbosity != infoSilent {
		data, _ := json.MarshalIndent(rec, "", "    ")
		fmt.Fprintf(os.Stderr, "Normalized parameters:\n%s\n", data)
	}
	return rec
}

// benchmark runs the quantification pipeline on the result file:
// standardize the table, compute the per-precursor metrics, aggregate
// the datapoint, and optionally append it to an existing series
func benchmark(opts options, rec *params.Record) {
	settings, err := quant.SettingsFor(*opts.format)
	if err != nil {
		log.Fatalf("result files of format %s: %v", *opts.format, err)
	}

	t := time.Now()
	if opts.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Reading quantifications from %s: ", opts.resultFilename)
	}
	table, err := settings.ReadFile(opts.resultFilename)
	if err != nil {
		log.Fatalf("quant.ReadFile: error return %v", err)
	}
	if opts.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}
	if opts.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr,
			"Standardized rows: %d (dropped: %d decoy, %d contaminant, %d without species)\n",
			len(table.Rows), table.Decoys, table.Contaminants, table.Unassigned)
	}
	if opts.verbosity == infoVerbose {
		t = time.Now()
		fmt.Fprintf(os.Stderr, "Computing metrics: ")
	}

	summaries, err := metrics.Intermediate(table)
	if err != nil {
		log.Fatalf("metrics.Intermediate: error return %v", err)
	}
	if opts.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	if err := writeSummaries(*opts.perfFilename, summaries); err != nil {
		log.Fatalf("write %s: %v", *opts.perfFilename, err)
	}

	dp := datapoint.New(*opts.format, rec, summaries, table.Hash(), *opts.minObserved, time.Now())
	if err := writeJSON(*opts.dpFilename, dp); err != nil {
		log.Fatalf("write %s: %v", *opts.dpFilename, err)
	}
	kept := metrics.FilterMin(summaries, *opts.minObserved)
	if opts.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Datapoint %s: median |epsilon| %g over %d precursors (>=%d runs)\n",
			dp.ID, float64(dp.MedianAbsEpsilon), len(kept), *opts.minObserved)
	}

	if *opts.series != "" {
		appendToSeries(opts, dp)
	}
}

func appendToSeries(opts options, dp datapoint.Datapoint) {
	series, err := datapoint.ReadSeries(*opts.series)
	if err != nil {
		log.Fatalf("datapoint.ReadSeries: error return %v", err)
	}
	series = series.Append(dp)
	if err := series.WriteFile(*opts.seriesOutput); err != nil {
		log.Fatalf("write %s: %v", *opts.seriesOutput, err)
	}
	if opts.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Series: %d datapoints written to %s\n",
			len(series), *opts.seriesOutput)
	}
}

// writeSummaries stores the per-precursor performance table as CSV
func writeSummaries(filename string, summaries []metrics.Summary) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"precursor", "species", "nr_observed",
		"mean_a", "mean_b", "cv_a", "cv_b",
		"log2_fc", "expected_log2_fc", "epsilon"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range summaries {
		record := []string{
			s.Precursor,
			s.Species,
			strconv.Itoa(s.NrObserved),
			formatFloat(s.MeanA),
			formatFloat(s.MeanB),
			formatFloat(s.CVA),
			formatFloat(s.CVB),
			formatFloat(s.Log2FC),
			formatFloat(s.ExpectedLog2),
			formatFloat(s.Epsilon),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatFloat writes NaN as an empty cell, like the tools themselves do
func formatFloat(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var opts options

	opts.format = flag.String("format",
		"",
		"input `format` of the result and parameter files.\n"+
			"Run with --help to see the supported formats.")
	opts.paramsFilename = flag.String("params",
		"",
		"tool parameter `filename` (e.g. mqpar.xml) to normalize")
	opts.paramsOutput = flag.String("paramsout",
		"",
		"`filename` for output of the normalized parameter record (JSON)")
	opts.perfFilename = flag.String("o",
		"",
		"`filename` for output of the per-precursor performance table (CSV)")
	opts.dpFilename = flag.String("dp",
		"",
		"`filename` for output of the aggregated datapoint (JSON)")
	opts.series = flag.String("series",
		"",
		"existing datapoint series to append to, a `filename` or http(s) URL")
	opts.seriesOutput = flag.String("seriesout",
		"",
		"`filename` for output of the appended datapoint series")
	opts.minObserved = flag.Int("minobs",
		3,
		`minimum number of runs a precursor must be quantified in to count
towards the headline metric`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		opts.verbosity = infoVerbose
	}
	if *quiet {
		opts.verbosity = infoSilent
	}
	opts.args = flag.Args()

	sanitizeOpts(&opts)

	var rec *params.Record
	if *opts.paramsFilename != "" {
		rec = normalizeParams(opts)
	}
	if opts.resultFilename != "" {
		benchmark(opts, rec)
	}
}
