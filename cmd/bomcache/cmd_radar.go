package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/bom"
	"github.com/bomcache/bomcache/internal/loop"
	"github.com/bomcache/bomcache/internal/radar"
)

var (
	radarMonitor  bool
	radarInterval time.Duration
	radarStills   bool
)

var radarCmd = &cobra.Command{
	Use:   "radar",
	Short: "Fetch radar tiles and write animated loops",
	Long: `Download new radar tiles for the configured site, composite them over the
geographic overlays, and write an animated PNG loop per range type.`,
	RunE: runRadar,
}

func init() {
	radarCmd.Flags().BoolVar(&radarMonitor, "monitor", false, "keep fetching and re-rendering on an interval")
	radarCmd.Flags().DurationVar(&radarInterval, "interval", 6*time.Minute, "fetch interval with --monitor")
	radarCmd.Flags().BoolVar(&radarStills, "stills", false, "also write individual frames")
	rootCmd.AddCommand(radarCmd)
}

func runRadar(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.products()
	if err != nil {
		return err
	}
	features, err := a.features()
	if err != nil {
		return err
	}

	archive := bom.NewFTPArchive(a.cfg.Archive)
	defer archive.Close()
	fetcher := radar.NewFetcher(archive, a.store, nil)
	compositor := loop.NewCompositor(a.store)

	pass := func(ctx context.Context) error {
		for _, p := range products {
			if err := radarPass(ctx, a, fetcher, compositor, p, features); err != nil {
				return err
			}
		}
		return nil
	}

	if !radarMonitor {
		return pass(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(radarInterval).StartImmediately().Do(func() {
		if err := pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("radar pass failed", "error", err)
		}
	}); err != nil {
		return err
	}
	s.StartAsync()
	defer s.Stop()

	<-ctx.Done()
	return nil
}

func radarPass(ctx context.Context, a *app, fetcher *radar.Fetcher, compositor *loop.Compositor, p radar.Product, features []radar.Feature) error {
	res, err := fetcher.FetchNewDataLayers(ctx, p, a.cfg.Radar.LoopLength)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		slog.Warn("tile fetch failed", "product", p.String(), "filename", f.Filename, "error", f.Err)
	}
	if a.cfg.Radar.Retention > 0 {
		if _, err := a.store.PruneDataLayers(p.RadarID, p.Type.ID(), a.cfg.Radar.Retention); err != nil {
			return err
		}
	}
	if _, err := fetcher.SyncFeatureLayers(ctx, p, features); err != nil {
		return err
	}

	frames, err := compositor.Render(p, a.cfg.Radar.LoopLength, loop.Options{
		Features:     features,
		RemoveHeader: a.cfg.Radar.RemoveHeader,
	})
	if err != nil {
		return err
	}
	path, err := loop.WriteLoop(a.cfg.Radar.OutputDir, p, frames, a.cfg.Radar.FrameDelay, radarStills)
	if err != nil {
		return err
	}
	slog.Info("wrote radar loop", "product", p.String(), "frames", len(frames), "new", res.New, "path", path)
	return nil
}
