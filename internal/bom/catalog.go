package bom

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
)

// FetchRadarCatalog downloads the Bureau's radar site shapefile and returns
// the publicly available radars. The shapefile components are fetched into a
// scratch directory because the shapefile reader wants files on disk.
func FetchRadarCatalog(ctx context.Context, a Archive) ([]models.Radar, error) {
	dir, err := os.MkdirTemp("", "bomcache-catalog-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		body, err := a.Fetch(ctx, radarCatalogPath+ext)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, "IDR00007"+ext)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, err
		}
	}

	return readRadarCatalog(filepath.Join(dir, "IDR00007.shp"))
}

func readRadarCatalog(path string) ([]models.Radar, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, faults.Decode(filepath.Base(path), err)
	}
	defer shape.Close()

	fields := make(map[string]int)
	for i, f := range shape.Fields() {
		// DBF field names vary in case and may carry a trailing underscore
		// where they collide with reserved words.
		fields[strings.TrimSuffix(strings.ToLower(f.String()), "_")] = i
	}
	for _, name := range []string{"name", "full_name", "idrnn", "longitude", "latitude", "state", "type", "group", "status"} {
		if _, ok := fields[name]; !ok {
			return nil, faults.Decode(filepath.Base(path), fmt.Errorf("catalog is missing field %q", name))
		}
	}

	var radars []models.Radar
	for shape.Next() {
		n, _ := shape.Shape()
		if shape.ReadAttribute(n, fields["status"]) != "Public" {
			continue
		}

		id, err := strconv.ParseFloat(shape.ReadAttribute(n, fields["idrnn"]), 64)
		if err != nil {
			return nil, faults.Decode(filepath.Base(path), fmt.Errorf("radar id: %w", err))
		}
		lon, err := strconv.ParseFloat(shape.ReadAttribute(n, fields["longitude"]), 64)
		if err != nil {
			return nil, faults.Decode(filepath.Base(path), fmt.Errorf("radar longitude: %w", err))
		}
		lat, err := strconv.ParseFloat(shape.ReadAttribute(n, fields["latitude"]), 64)
		if err != nil {
			return nil, faults.Decode(filepath.Base(path), fmt.Errorf("radar latitude: %w", err))
		}

		radars = append(radars, models.Radar{
			ID:        int64(id),
			Name:      shape.ReadAttribute(n, fields["name"]),
			FullName:  shape.ReadAttribute(n, fields["full_name"]),
			Latitude:  lat,
			Longitude: lon,
			State:     shape.ReadAttribute(n, fields["state"]),
			Type:      shape.ReadAttribute(n, fields["type"]),
			Group:     strings.EqualFold(shape.ReadAttribute(n, fields["group"]), "Yes"),
		})
	}
	if err := shape.Err(); err != nil {
		return nil, faults.Decode(filepath.Base(path), err)
	}
	return radars, nil
}
