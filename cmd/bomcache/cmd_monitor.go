package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/bom"
	"github.com/bomcache/bomcache/internal/monitor"
	"github.com/bomcache/bomcache/internal/radar"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Keep the cache fresh in the background",
	Long: `Poll every weather resource and radar stream on its own interval until
interrupted. Commands like current then render straight from the cache.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.location()
	if err != nil {
		return err
	}
	products, err := a.products()
	if err != nil {
		return err
	}

	archive := bom.NewFTPArchive(a.cfg.Archive)
	defer archive.Close()
	fetcher := radar.NewFetcher(archive, a.store, nil)

	sched := monitor.New(a.store, a.client, fetcher, monitor.Config{
		Location:    loc,
		Intervals:   a.intervals(),
		Products:    products,
		Retention:   a.cfg.Radar.Retention,
		PollCeiling: a.cfg.Monitor.PollCeiling,
	}, monitor.WithKeepalive(archive))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
