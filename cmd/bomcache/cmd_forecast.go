package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/report"
)

var (
	forecastCheck      bool
	forecastForceCheck bool
	dailyExtended      bool
	hourlyHours        int
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show the multi-day forecast",
	RunE:  runDaily,
}

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Show the hour-by-hour forecast",
	RunE:  runHourly,
}

func init() {
	for _, c := range []*cobra.Command{dailyCmd, hourlyCmd} {
		c.Flags().BoolVar(&forecastCheck, "check", false, "refresh stale resources before rendering")
		c.Flags().BoolVar(&forecastForceCheck, "force-check", false, "refresh even inside the polling interval")
	}
	dailyCmd.Flags().BoolVar(&dailyExtended, "extended", false, "show the long-form forecast text")
	hourlyCmd.Flags().IntVar(&hourlyHours, "hours", 12, "hours to show")
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(hourlyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	a, loc, now, err := forecastSetup(cmd, models.KindDaily, models.KindWarnings)
	if err != nil {
		return err
	}
	defer a.Close()

	daily, ok, err := snapshot[*models.DailyForecast](a, loc.ID, models.KindDaily)
	if err != nil {
		return err
	}
	if !ok || daily == nil {
		return fmt.Errorf("no daily forecast cached; re-run with --check")
	}

	if warnings, ok, err := snapshot[[]models.Warning](a, loc.ID, models.KindWarnings); err == nil && ok && len(warnings) > 0 {
		fmt.Println(report.WarningList(warnings))
		fmt.Println()
	}
	fmt.Println(report.DailyTable(loc, daily, dailyExtended, now))
	return nil
}

func runHourly(cmd *cobra.Command, _ []string) error {
	a, loc, now, err := forecastSetup(cmd, models.KindHourly)
	if err != nil {
		return err
	}
	defer a.Close()

	hourly, ok, err := snapshot[*models.HourlyForecast](a, loc.ID, models.KindHourly)
	if err != nil {
		return err
	}
	if !ok || hourly == nil {
		return fmt.Errorf("no hourly forecast cached; re-run with --check")
	}
	fmt.Println(report.HourlyTable(loc, hourly, hourlyHours, now))
	return nil
}

// forecastSetup opens the app, refreshes the requested kinds when asked, and
// returns now in the location's timezone. The caller owns the app.
func forecastSetup(cmd *cobra.Command, kinds ...models.ResourceKind) (*app, *models.Location, time.Time, error) {
	a, err := openApp()
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	loc, err := a.location()
	if err != nil {
		a.Close()
		return nil, nil, time.Time{}, err
	}

	if forecastCheck || forecastForceCheck {
		for _, kind := range kinds {
			if err := a.refresh(cmd.Context(), loc, kind, forecastForceCheck); err != nil {
				a.Close()
				return nil, nil, time.Time{}, err
			}
		}
	}

	now := time.Now()
	if tz, err := time.LoadLocation(loc.Timezone); err == nil {
		now = now.In(tz)
	}
	return a, loc, now, nil
}
