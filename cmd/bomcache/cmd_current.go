package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/report"
)

var (
	currentCheck    bool
	currentFstring  string
	currentListKeys bool
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print current conditions as a one-line status",
	Long: `Render current conditions from the cache using a format string like
"{icon} {temp} ({temp_feels_like})". Intended for status bars; pair with
the monitor command or pass --check to refresh stale data inline.`,
	RunE: runCurrent,
}

func init() {
	currentCmd.Flags().BoolVar(&currentCheck, "check", false, "refresh stale resources before rendering")
	currentCmd.Flags().StringVar(&currentFstring, "fstring", "", "format string (overrides current_format)")
	currentCmd.Flags().BoolVar(&currentListKeys, "list-keys", false, "list format string keys and exit")
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, _ []string) error {
	if currentListKeys {
		for _, k := range report.FstringKeys() {
			fmt.Println(k)
		}
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.location()
	if err != nil {
		return err
	}

	if currentCheck {
		for _, kind := range []models.ResourceKind{models.KindObservations, models.KindDaily, models.KindHourly} {
			if err := a.refresh(cmd.Context(), loc, kind, false); err != nil {
				return err
			}
		}
	}

	obs, _, err := snapshot[*models.Observation](a, loc.ID, models.KindObservations)
	if err != nil {
		return err
	}
	daily, _, err := snapshot[*models.DailyForecast](a, loc.ID, models.KindDaily)
	if err != nil {
		return err
	}
	hourly, _, err := snapshot[*models.HourlyForecast](a, loc.ID, models.KindHourly)
	if err != nil {
		return err
	}

	now := time.Now()
	if tz, err := time.LoadLocation(loc.Timezone); err == nil {
		now = now.In(tz)
	}
	w, err := report.BuildCurrent(obs, daily, hourly, now)
	if err != nil {
		return err
	}

	fstring := currentFstring
	if fstring == "" {
		fstring = a.cfg.CurrentFormat
	}
	out, err := w.Fstring(fstring)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
