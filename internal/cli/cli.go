// Package cli runs a load test without the TUI: a progress line while the
// users run, then the per-name table, failures, reports and history entry.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickload/internal/report"
	"clickload/internal/runner"
	"clickload/internal/storage"
	"clickload/internal/tui/result"
	"clickload/internal/tui/styles"
)

const progressInterval = 500 * time.Millisecond

type Options struct {
	// Store receives the finished run. Nil disables history.
	Store *storage.Store
	Log   *zap.Logger

	// Out defaults to stdout.
	Out io.Writer
}

// Start runs r to completion and prints the results.
func Start(ctx context.Context, r *runner.Runner, opts Options) (report.Summary, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := r.Cfg

	printHeader(out, cfg)

	started := time.Now()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-r.Updates:
			// drained; the progress line reads the runner directly
		case <-ticker.C:
			printProgress(out, r.Snapshot(), cfg.TotalDuration())
		case runErr = <-done:
			break loop
		}
	}
	if runErr != nil {
		fmt.Fprintln(out)
		return report.Summary{}, runErr
	}

	summary := report.NewSummary(uuid.NewString(), cfg, started, r.Stats)
	printSummary(out, summary)
	autoReport(out, log, r, summary)
	saveHistory(out, log, opts.Store, summary)
	return summary, nil
}

func printHeader(w io.Writer, cfg runner.Config) {
	profiles := "all"
	if len(cfg.Profiles) > 0 {
		profiles = strings.Join(cfg.Profiles, ", ")
	}
	runTime := "until interrupted"
	if cfg.RunTime > 0 {
		runTime = cfg.RunTime.String()
	}

	fmt.Fprintf(w, "\n%s\n", styles.Title.Render("STARTING CLICKLOAD LOAD TEST"))
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Host       : %s\n", cfg.Host)
	fmt.Fprintf(w, "Profiles   : %s\n", profiles)
	fmt.Fprintf(w, "Users      : %d (spawn rate %.2f/s)\n", cfg.Users, cfg.SpawnRate)
	fmt.Fprintf(w, "Run time   : %s\n", runTime)
	fmt.Fprintf(w, "Timeout    : %s\n", cfg.Timeout)
	fmt.Fprintf(w, "%s\n\n", rule)
}

var rule = strings.Repeat("=", 70)

func printProgress(w io.Writer, s runner.StatsSnapshot, total time.Duration) {
	rps := 0.0
	if s.Elapsed > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}

	if total <= 0 {
		fmt.Fprintf(w, "\r%s | Users: %3d | RPS: %6.1f | OK: %d | Fail: %d | P90: %.0fms",
			s.Elapsed.Round(time.Second), s.Users, rps, s.Success, s.Fail, s.P90Ms)
		return
	}

	pct := s.Elapsed.Seconds() / total.Seconds()
	fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | Users: %3d | RPS: %6.1f | OK: %d | Fail: %d | P90: %.0fms",
		progressBar(pct, 20), min(pct, 1)*100,
		s.Elapsed.Round(time.Second), total,
		s.Users, rps, s.Success, s.Fail, s.P90Ms,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "\n\n%s\n", styles.Title.Render("LOAD TEST RESULTS"))
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Run        : %s\n", s.RunID)
	fmt.Fprintf(w, "Duration   : %s\n", s.Duration.Round(time.Second))
	fmt.Fprintf(w, "Requests   : %d\n", s.Total.Requests)
	fmt.Fprintf(w, "Failures   : %d (%.2f%%)\n", s.Total.Failures, s.Total.ErrorRate)
	fmt.Fprintf(w, "RPS        : %.2f\n\n", s.Total.RPS)
	fmt.Fprintln(w, result.StatsTable(s))

	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", styles.Error.Render("FAILURE SUMMARY"))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "   %d x %s %s: %s\n", f.Count, f.Method, f.Name, f.Reason)
		}
	}
	fmt.Fprintf(w, "%s\n", rule)
}

func autoReport(w io.Writer, log *zap.Logger, r *runner.Runner, s report.Summary) {
	if s.Config.OutPrefix == "" {
		return
	}

	fmt.Fprintf(w, "\nGenerating reports with prefix: %s\n", s.Config.OutPrefix)
	paths, err := report.WriteAll(s.Config.OutPrefix, r.ResultsCopy(), s)
	if err != nil {
		log.Error("report export failed", zap.Error(err))
		fmt.Fprintf(w, "%s\n", styles.Error.Render("Export failed: "+err.Error()))
		return
	}
	for _, p := range paths {
		fmt.Fprintf(w, "   %s\n", p)
	}
}

func saveHistory(w io.Writer, log *zap.Logger, store *storage.Store, s report.Summary) {
	if store == nil {
		return
	}
	item, err := storage.NewHistoryItem(s)
	if err == nil {
		err = store.Save(item)
	}
	if err != nil {
		log.Warn("history not saved", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "Saved to history as %s\n", item.ID)
}
