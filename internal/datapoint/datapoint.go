// Package datapoint aggregates one benchmark run into a datapoint and
// maintains the historical series of datapoints that public results are
// compared against.
package datapoint

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/proteobench/probench/internal/metrics"
	"github.com/proteobench/probench/internal/params"
)

// Cutoffs for which every datapoint carries precomputed metrics, so the
// series can be re-thresholded without access to the intermediate data
const (
	minCutoff = 1
	maxCutoff = 6
)

// NullableFloat serializes NaN and infinities as null, the way the
// shared series stores metrics that could not be computed
type NullableFloat float64

func (f NullableFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *NullableFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NullableFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = NullableFloat(v)
	return nil
}

// Metric is the summary metric of one benchmark run at one
// minimum-observations cutoff
type Metric struct {
	MedianAbsEpsilon NullableFloat `json:"median_abs_epsilon"`
	NrPrec           int           `json:"nr_prec"`
}

// Datapoint is one entry of the historical benchmark series. The search
// parameters of the run are flattened into the record; fields the tool
// did not report stay null.
type Datapoint struct {
	ID             string `json:"id"`
	Tool           string `json:"tool"`
	*params.Record        // search parameters, flattened into the JSON object

	MedianAbsEpsilon NullableFloat  `json:"median_abs_epsilon"`
	NrPrec           int            `json:"nr_prec"`
	Results          map[int]Metric `json:"results"`
	IntermediateHash string         `json:"intermediate_hash"`
	OldNew           string         `json:"old_new"`
}

// New builds the datapoint for one benchmark run. Metrics are
// precomputed for every supported cutoff; the headline metric is taken
// at minObserved.
func New(tool string, rec *params.Record, summaries []metrics.Summary, hash string, minObserved int, now time.Time) Datapoint {
	if rec == nil {
		rec = &params.Record{}
	}
	version := "unknown"
	if rec.SoftwareVersion != nil {
		version = *rec.SoftwareVersion
	}

	dp := Datapoint{
		ID:               fmt.Sprintf("%s_%s_%s", tool, version, now.Format("20060102_150405")),
		Tool:             tool,
		Record:           rec,
		Results:          make(map[int]Metric, maxCutoff),
		IntermediateHash: hash,
		OldNew:           "new",
	}
	for cutoff := minCutoff; cutoff <= maxCutoff; cutoff++ {
		kept := metrics.FilterMin(summaries, cutoff)
		dp.Results[cutoff] = Metric{
			MedianAbsEpsilon: NullableFloat(metrics.MedianAbsEpsilon(kept)),
			NrPrec:           len(kept),
		}
	}
	// The headline cutoff may lie outside the precomputed range
	kept := metrics.FilterMin(summaries, minObserved)
	dp.MedianAbsEpsilon = NullableFloat(metrics.MedianAbsEpsilon(kept))
	dp.NrPrec = len(kept)
	return dp
}

// Series is the historical datapoint collection
type Series []Datapoint

// ReadSeries loads a datapoint series from a local file or, when the
// source starts with http:// or https://, from the shared results
// repository over HTTP
func ReadSeries(src string) (Series, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return readSeriesURL(src)
	}
	return readSeriesFile(src)
}

func readSeriesFile(path string) (Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeSeries(data)
}

func readSeriesURL(url string) (Series, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datapoint: fetch %s: %s", url, resp.Status)
	}
	var series Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, fmt.Errorf("datapoint: decode %s: %w", url, err)
	}
	return series, nil
}

func decodeSeries(data []byte) (Series, error) {
	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("datapoint: decode series: %w", err)
	}
	return series, nil
}

// WriteFile stores the series as indented JSON, the format the shared
// results repository carries
func (s Series) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Append adds a new datapoint to the series. Existing entries are
// re-marked as old, the appended one as new.
func (s Series) Append(dp Datapoint) Series {
	out := make(Series, 0, len(s)+1)
	for _, existing := range s {
		existing.OldNew = "old"
		out = append(out, existing)
	}
	dp.OldNew = "new"
	return append(out, dp)
}

// AtCutoff re-thresholds the series: every datapoint's headline metric
// is replaced by its precomputed metric at the given cutoff. Datapoints
// from before per-cutoff metrics were recorded are left untouched.
func (s Series) AtCutoff(minObserved int) Series {
	out := make(Series, len(s))
	copy(out, s)
	for i := range out {
		if m, ok := out[i].Results[minObserved]; ok {
			out[i].MedianAbsEpsilon = m.MedianAbsEpsilon
			out[i].NrPrec = m.NrPrec
		}
	}
	return out
}
