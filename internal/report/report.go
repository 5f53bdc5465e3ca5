// Package report writes the results of a run to disk: the raw request log
// as a JMeter-compatible CSV, per-name statistics and failures as CSV, and
// a JSON summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"clickload/internal/runner"
	"clickload/internal/stats"
)

// Summary is the end-of-run view of a load test.
type Summary struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Duration time.Duration    `json:"duration"`
	Config   runner.Config    `json:"config"`
	Total    stats.Snapshot   `json:"total"`
	Entries  []stats.Snapshot `json:"entries"`
	Failures []stats.Failure  `json:"failures"`
}

func NewSummary(runID string, cfg runner.Config, started time.Time, reg *stats.Registry) Summary {
	return Summary{
		RunID:    runID,
		Started:  started,
		Duration: time.Since(started),
		Config:   cfg,
		Total:    reg.Total().Snapshot(),
		Entries:  reg.Entries(),
		Failures: reg.Failures(),
	}
}

// Failed reports whether any request failed.
func (s Summary) Failed() bool {
	return s.Total.Failures > 0
}

// ExportRequests writes one JMeter-style row per request.
func ExportRequests(w io.Writer, results []runner.RequestResult) error {
	cw := csv.NewWriter(w)

	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "dataType", "success", "failureMessage", "bytes",
		"sentBytes", "grpThreads", "allThreads", "URL", "Latency", "IdleTime", "Connect",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		elapsed := strconv.FormatInt(res.Latency.Milliseconds(), 10)
		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			elapsed,
			res.Name,
			strconv.Itoa(res.Status),
			http.StatusText(res.Status),
			res.Profile + "-" + res.UserID,
			"text",
			strconv.FormatBool(res.Success),
			res.Failure,
			strconv.FormatInt(res.Bytes, 10),
			"0",
			"1",
			"1",
			res.URL,
			elapsed,
			"0",
			"0",
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportStats writes one row per (method, name) followed by the aggregated row.
func ExportStats(w io.Writer, entries []stats.Snapshot, total stats.Snapshot) error {
	cw := csv.NewWriter(w)

	header := []string{
		"Type", "Name", "Request Count", "Failure Count",
		"Median Response Time", "Average Response Time", "Min Response Time", "Max Response Time",
		"Average Content Size", "Requests/s", "Failures/s",
		"50%", "90%", "95%", "99%",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	rows := append(entries[:len(entries):len(entries)], total)
	for _, s := range rows {
		failRate := 0.0
		if s.Requests > 0 {
			failRate = s.RPS * float64(s.Failures) / float64(s.Requests)
		}
		record := []string{
			s.Method,
			s.Name,
			strconv.FormatUint(s.Requests, 10),
			strconv.FormatUint(s.Failures, 10),
			millis(s.P50),
			millis(s.Mean),
			millis(s.Min),
			millis(s.Max),
			strconv.FormatFloat(s.AvgBodySize, 'f', 2, 64),
			strconv.FormatFloat(s.RPS, 'f', 2, 64),
			strconv.FormatFloat(failRate, 'f', 2, 64),
			millis(s.P50),
			millis(s.P90),
			millis(s.P95),
			millis(s.P99),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFailures writes one row per failure group.
func ExportFailures(w io.Writer, failures []stats.Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Method", "Name", "Error", "Occurrences"}); err != nil {
		return err
	}
	for _, f := range failures {
		if err := cw.Write([]string{f.Method, f.Name, f.Reason, strconv.FormatUint(f.Count, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportSummary(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64)
}

// WriteAll writes <prefix>_requests.csv, <prefix>_stats.csv,
// <prefix>_failures.csv and <prefix>_summary.json, returning the paths. The
// request log is skipped when results is nil.
func WriteAll(prefix string, results []runner.RequestResult, s Summary) ([]string, error) {
	type export struct {
		suffix string
		write  func(io.Writer) error
	}
	var exports []export
	if results != nil {
		exports = append(exports, export{"_requests.csv", func(w io.Writer) error { return ExportRequests(w, results) }})
	}
	exports = append(exports,
		export{"_stats.csv", func(w io.Writer) error { return ExportStats(w, s.Entries, s.Total) }},
		export{"_failures.csv", func(w io.Writer) error { return ExportFailures(w, s.Failures) }},
		export{"_summary.json", func(w io.Writer) error { return ExportSummary(w, s) }},
	)

	var paths []string
	for _, e := range exports {
		path := prefix + e.suffix
		if err := writeFile(path, e.write); err != nil {
			return paths, fmt.Errorf("export %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
