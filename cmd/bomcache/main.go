package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/config"
	"github.com/bomcache/bomcache/internal/faults"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bomcache",
	Short: "Local cache for Bureau of Meteorology weather and radar",
	Long: `bomcache keeps a local, freshness-tracked cache of Bureau of Meteorology
weather observations, forecasts, warnings and radar imagery, and renders
them for the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
		setupLogging(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps fault kinds to distinct exit codes so wrappers like status
// bars can tell a flaky network from a corrupt cache.
func exitCode(err error) int {
	switch faults.KindOf(err) {
	case faults.KindNetwork:
		return 2
	case faults.KindDecode:
		return 3
	case faults.KindIntegrity:
		return 4
	case faults.KindContention:
		return 5
	}
	return 1
}

func setupLogging(lc config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
