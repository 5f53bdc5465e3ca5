package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clickload/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local stand-in for the HomeworkClick backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg, false)
		if err != nil {
			return err
		}
		defer log.Sync()

		port, _ := cmd.Flags().GetInt("port")
		errorRate, _ := cmd.Flags().GetFloat64("error-rate")
		latency, _ := cmd.Flags().GetDuration("latency")

		srv := dummy.NewServer(dummy.ServerConfig{
			Port:      port,
			ErrorRate: errorRate,
			Latency:   latency,
		}, log).Start()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Info("shutting down dummy server")
		return dummy.Shutdown(srv, 5*time.Second)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "P", 8080, "Port to listen on")
	dummyCmd.Flags().Float64("error-rate", 0, "Share of requests answered with 500 (0-1)")
	dummyCmd.Flags().Duration("latency", 0, "Upper bound of a random delay added to every request")
}

