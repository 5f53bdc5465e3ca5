package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"clickload/internal/banner"
	"clickload/internal/cli"
	"clickload/internal/config"
	"clickload/internal/logging"
	"clickload/internal/metrics"
	"clickload/internal/report"
	"clickload/internal/runner"
	"clickload/internal/scenario"
	"clickload/internal/storage"
	"clickload/internal/tui"
)

// ErrRequestsFailed is returned with --fail-on-error when any request failed.
var ErrRequestsFailed = errors.New("some requests failed")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clickload",
	Short: "ClickLoad - load testing for the HomeworkClick backend",
	Long: `
ClickLoad simulates virtual users against the HomeworkClick chatbot backend:
webhook chat, menu navigation and account registration/login.

It runs with a live terminal dashboard by default, or headless with
--headless for CI usage.`,
	SilenceUsage: true,
	RunE:         runLoad,
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.clickload.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().String("history-path", "", "History database (default is $HOME/.clickload/history.db)")
	rootCmd.PersistentFlags().String("profiles-file", "", "YAML file with additional user profiles")

	f := rootCmd.Flags()
	f.StringP("host", "H", "http://localhost:8080", "Base URL of the system under test")
	f.StringSliceP("profile", "p", nil, "User profile to run, repeatable (default all)")
	f.IntP("users", "u", 10, "Number of concurrent virtual users")
	f.Float64P("spawn-rate", "r", 1, "Users started per second (0 starts all at once)")
	f.DurationP("run-time", "t", time.Minute, "Stop after this long (0 runs until interrupted)")
	f.Duration("timeout", 10*time.Second, "Per-request timeout")
	f.Bool("headless", false, "Run without the TUI")
	f.StringP("out", "o", "", "Output filename prefix for reports")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9646)")
	f.Bool("history", true, "Record the run in the history database")
	f.Bool("fail-on-error", false, "Exit non-zero when any request failed")

	rootCmd.AddCommand(profilesCmd, historyCmd, dummyCmd)
}

// loadConfig binds the command's flags into a fresh viper instance.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v, cfgFile)
}

func newLogger(cfg config.Config, quiet bool) (*zap.Logger, error) {
	// the TUI owns the terminal, so logs go to a file or nowhere
	if quiet && cfg.LogFile == "" {
		return zap.NewNop(), nil
	}
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogFile})
}

func loadCatalog(cfg config.Config) (*scenario.Catalog, error) {
	catalog := scenario.Default()
	if cfg.ProfilesFile == "" {
		return catalog, nil
	}
	extra, err := scenario.LoadFile(cfg.ProfilesFile, scenario.NewTemplateEngine())
	if err != nil {
		return nil, err
	}
	catalog.Merge(extra)
	return catalog, nil
}

func openStore(cfg config.Config) (*storage.Store, error) {
	path := cfg.HistoryPath
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

func serveMetrics(addr string, c *metrics.Collector, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg, !cfg.Headless)
	if err != nil {
		return err
	}
	defer log.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	var store *storage.Store
	if cfg.History {
		if store, err = openStore(cfg); err != nil {
			log.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
		}
	}

	updates := make(runner.StatsUpdateChan, 100)
	r := runner.NewRunner(cfg.Runner(), catalog, updates, log)

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		r.AddObserver(collector)
		srv := serveMetrics(cfg.MetricsAddr, collector, log)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summary *report.Summary
	if cfg.Headless {
		s, err := cli.Start(ctx, r, cli.Options{Store: store, Log: log, Out: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		summary = &s
	} else {
		m := tui.NewModel(ctx, r, tui.Options{Store: store, Log: log})
		if _, err := tea.NewProgram(&m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		if err := m.Err(); err != nil {
			return err
		}
		summary = m.Summary()
	}

	if summary != nil && !cfg.Headless {
		fmt.Fprintln(cmd.OutOrStdout(), summaryLine(*summary))
	}
	if cfg.FailOnError && summary != nil && summary.Failed() {
		return fmt.Errorf("%w: %d of %d", ErrRequestsFailed, summary.Total.Failures, summary.Total.Requests)
	}
	return nil
}

func summaryLine(s report.Summary) string {
	return fmt.Sprintf("%d requests, %d failures (%.2f%%), %.2f req/s, p90 %dms",
		s.Total.Requests, s.Total.Failures, s.Total.ErrorRate, s.Total.RPS, s.Total.P90.Milliseconds())
}
