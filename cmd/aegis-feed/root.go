package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisFeed/pkg/aegisfeed"
)

var (
	cfgPath  string        // Path to the supervisor YAML
	logLevel string        // Overrides log.level when set
	statsURL string        // Metrics endpoint polled by stats
	interval time.Duration // stats refresh interval
	offline  bool          // Run without the controller session
)

var rootCmd = &cobra.Command{
	Use:   "aegis-feed",
	Short: "Supervisory valve control for a liquid-propellant feed-system rig",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the supervisor using the provided config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := aegisfeed.LoadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q", cfg.Log.Level)
		}
		logrus.SetLevel(level)

		var opts []aegisfeed.Option
		if offline {
			opts = append(opts, aegisfeed.WithoutTransport())
		}
		sup, err := aegisfeed.New(cfg, opts...)
		if err != nil {
			return err
		}
		sup.Subscribe(func(st aegisfeed.State) {
			logrus.WithFields(logrus.Fields{
				"mode":     st.Mode,
				"valves":   st.Valves.String(),
				"scenario": st.Scenario,
				"step":     st.Step,
			}).Debug("state")
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logrus.WithFields(logrus.Fields{
			"controller": cfg.Controller.WSURL,
			"http":       cfg.Metrics.Addr,
			"recorder":   cfg.Recorder.Enabled,
		}).Info("supervisor starting")
		return sup.Run(ctx)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a config file without starting the supervisor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := aegisfeed.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good (%d automation rules)\n", cfgPath, len(cfg.Automation.Rules))
		return nil
	},
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the named valve scenarios and their steps",
	Run: func(cmd *cobra.Command, args []string) {
		printScenarios(cmd.OutOrStdout())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Poll the Prometheus metrics endpoint and print live counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return streamStats(ctx, cmd.OutOrStdout(), statsURL, interval)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./data/config.yaml", "Path to supervisor configuration file")

	runCmd.Flags().StringVar(&logLevel, "log", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&offline, "offline", false, "Run without connecting to the controller")

	statsCmd.Flags().StringVar(&statsURL, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	statsCmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")

	rootCmd.AddCommand(runCmd, validateCmd, scenariosCmd, statsCmd)
}
