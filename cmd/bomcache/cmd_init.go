package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bomcache/bomcache/internal/bom"
	"github.com/bomcache/bomcache/internal/config"
	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init <search-term>",
	Short: "Set up the cache for a location",
	Long: `Search for a location, download the station list and radar catalog, pick
the nearest radar site, and write the config file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "re-initialise over an existing location")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	term := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := chooseLocation(ctx, a, term)
	if err != nil {
		return err
	}
	fmt.Printf("Using location %s\n", loc)

	if err := loadStations(ctx, a, loc); err != nil {
		return err
	}

	site, err := loadRadarCatalog(ctx, a, loc)
	if err != nil {
		return err
	}
	fmt.Printf("Nearest radar: %s (IDR%02d, %.0f km away)\n",
		site.FullName, site.ID, haversine(loc.Latitude, loc.Longitude, site.Latitude, site.Longitude))

	if err := a.store.InsertLocation(loc); err != nil {
		if !initForce || !faults.IsKind(err, faults.KindIntegrity) {
			return err
		}
		// Already cached; --force just repoints the config at it.
	}

	a.cfg.Location = loc.ID
	a.cfg.Radar.ID = site.ID
	path := cfgPath
	if path == "" {
		path = filepath.Join(config.DefaultConfigDir(), "config.yaml")
	}
	if err := config.Save(a.cfg, path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// chooseLocation searches the API and resolves a single location, prompting
// when the term is ambiguous.
func chooseLocation(ctx context.Context, a *app, term string) (*models.Location, error) {
	results, err := a.client.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no locations match %q", term)
	}

	chosen := results[0]
	if len(results) > 1 {
		fmt.Printf("%d locations match %q:\n", len(results), term)
		for i, r := range results {
			fmt.Printf("  %d. %s\n", i+1, r)
		}
		fmt.Printf("Selection [1]: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(results) {
				return nil, fmt.Errorf("invalid selection %q", line)
			}
			chosen = results[n-1]
		}
	}
	return a.client.GetLocation(ctx, chosen.Geohash)
}

// loadStations downloads the national station list and links the location to
// its nearest active station.
func loadStations(ctx context.Context, a *app, loc *models.Location) error {
	raw, err := a.client.GetStationList(ctx)
	if err != nil {
		return err
	}
	stations, err := bom.ParseStationList(raw)
	if err != nil {
		return err
	}
	active := bom.ActiveStations(stations)
	if err := a.store.UpsertStations(active); err != nil {
		return err
	}
	fmt.Printf("Cached %d active weather stations\n", len(active))

	best := -1
	bestDist := 0.0
	for i, st := range active {
		d := haversine(loc.Latitude, loc.Longitude, st.Latitude, st.Longitude)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		loc.StationID = &active[best].ID
	}
	return nil
}

// loadRadarCatalog downloads the radar site catalog and legend images, then
// picks the nearest group site.
func loadRadarCatalog(ctx context.Context, a *app, loc *models.Location) (*models.Radar, error) {
	archive := bom.NewFTPArchive(a.cfg.Archive)
	defer archive.Close()

	radars, err := bom.FetchRadarCatalog(ctx, archive)
	if err != nil {
		return nil, err
	}
	legends, err := archive.FetchLegends(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.store.UpsertRadars(radars, legends); err != nil {
		return nil, err
	}
	fmt.Printf("Cached %d radar sites and %d legends\n", len(radars), len(legends))

	return nearestRadar(radars, loc.Latitude, loc.Longitude)
}
