package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/metrics"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remapid",
	Short: "Migrate file ownership across a UID/GID renumbering",
	Long: `remapid records which names own which numeric IDs before an identity
database is renumbered, then rewrites file ownership under a tree so every
object keeps its owner by name afterwards.

  remapid scan --range 1000-60000        before the renumbering
  remapid after --path /srv              after it (or: map, then file)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configFile string

func init() {
	rootCmd.Version = version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML config file (flags and REMAPID_* env override it)")
	pf.BoolP("verbose", "v", false, "Show progress and debug logging")
	pf.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	pf.String("log-format", "text", "Log format: text, json")
	pf.Duration("progress-interval", 30*time.Second, "Emit progress lines to stderr at this interval when not a TTY (0 to disable)")
	pf.String("passwd-file", "", "Resolve users from this passwd(5) file instead of the host")
	pf.String("group-file", "", "Resolve groups from this group(5) file instead of the host")
	pf.String("metrics-file", "", "Write run metrics to this node_exporter textfile")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(afterCmd)
	rootCmd.AddCommand(censusCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(tuiCmd)
}

// setup loads the configuration for mode, starts logging and rejects
// configuration errors before any work is done.
func setup(cmd *cobra.Command, mode config.Mode) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if cfg.Verbose && !cmd.Flags().Changed("log-level") {
		level = "DEBUG"
	}
	if err := logger.Init(logger.Config{Level: level, Format: cfg.LogFormat}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext is cancelled by the first SIGINT/SIGTERM; a second one
// exits immediately.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; !ok {
			return
		}
		fmt.Fprintln(os.Stderr, "\nCanceling... (press Ctrl+C again to force)")
		cancel()
		if _, ok := <-sigCh; ok {
			os.Exit(130)
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		close(sigCh)
		cancel()
	}
}

func newProgress(cfg *config.Config, stage string) *report.Progress {
	return report.NewProgress(os.Stderr, stage, report.ProgressOptions{
		Enabled:  cfg.Verbose,
		TTY:      report.IsTerminal(os.Stderr),
		Interval: cfg.ProgressInterval,
	})
}

// artifactWarnings logs malformed artifact lines and counts them.
func artifactWarnings(path string, count *int64) artifact.WarnFunc {
	return func(lineNo int, line string, err error) {
		*count++
		logger.Warn("skipping malformed line", logger.KeyFile, path, logger.KeyLine, lineNo, logger.KeyError, err)
	}
}

// finishMetrics stamps the outcome and writes the textfile when one is
// configured. A write failure is only a warning.
func finishMetrics(cfg *config.Config, m *metrics.Run, runErr error) {
	if cfg.MetricsFile == "" {
		return
	}
	m.Finish(runErr)
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", logger.KeyFile, cfg.MetricsFile, logger.KeyError, err)
	}
}

func printSummary(s *report.Summary) {
	fmt.Println()
	_, _ = s.WriteTo(os.Stdout)
}
