package bom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/bomcache/bomcache/internal/config"
	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/radar"
)

// Directory layout of the anonymous archive.
const (
	radarDataDir     = "/anon/gen/radar"
	transparencyDir  = "/anon/gen/radar_transparencies"
	radarCatalogPath = "/anon/home/adfd/spatial/IDR00007"
)

// Archive reads files from the provider's anonymous file server. Radar data
// tiles, transparency overlays, legends and the site catalog all come from
// here rather than the JSON API.
type Archive interface {
	// List returns the file names in a directory.
	List(ctx context.Context, dir string) ([]string, error)
	// Fetch returns the contents of a file.
	Fetch(ctx context.Context, path string) ([]byte, error)
	// Keepalive nudges the connection so an idle monitor doesn't lose it.
	Keepalive() error
	Close() error
}

// FTPArchive is the production Archive. The connection is dialed lazily so
// commands that never touch radar imagery pay no login cost.
type FTPArchive struct {
	addr    string
	timeout time.Duration
	conn    *ftp.ServerConn
}

func NewFTPArchive(cfg config.ArchiveConfig) *FTPArchive {
	return &FTPArchive{addr: cfg.Addr, timeout: cfg.Timeout}
}

func (a *FTPArchive) connect(ctx context.Context) (*ftp.ServerConn, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := ftp.Dial(a.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(a.timeout))
	if err != nil {
		return nil, faults.Network(a.addr, err)
	}
	if err := conn.Login("anonymous", "guest"); err != nil {
		conn.Quit()
		return nil, faults.Network(a.addr, err)
	}
	a.conn = conn
	return conn, nil
}

// reset drops the cached connection after a command failure so the next call
// dials fresh. Idle FTP sessions time out server-side.
func (a *FTPArchive) reset() {
	if a.conn != nil {
		a.conn.Quit()
		a.conn = nil
	}
}

func (a *FTPArchive) List(ctx context.Context, dir string) ([]string, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("listing archive directory", "dir", dir)
	entries, err := conn.List(dir)
	if err != nil {
		a.reset()
		return nil, faults.Network(a.addr+dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

func (a *FTPArchive) Fetch(ctx context.Context, path string) ([]byte, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("downloading", "path", path)
	resp, err := conn.Retr(path)
	if err != nil {
		a.reset()
		return nil, faults.Network(a.addr+path, err)
	}
	defer resp.Close()
	body, err := io.ReadAll(resp)
	if err != nil {
		a.reset()
		return nil, faults.Network(a.addr+path, err)
	}
	return body, nil
}

func (a *FTPArchive) Keepalive() error {
	if a.conn == nil {
		return nil
	}
	if err := a.conn.NoOp(); err != nil {
		a.reset()
		return faults.Network(a.addr, err)
	}
	return nil
}

func (a *FTPArchive) Close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Quit()
	a.conn = nil
	return err
}

// ListDataTiles returns the radar tile file names currently on the archive.
// The directory mixes .png tiles with .gif animations; only the tiles matter.
func (a *FTPArchive) ListDataTiles(ctx context.Context) ([]string, error) {
	names, err := a.List(ctx, radarDataDir)
	if err != nil {
		return nil, err
	}
	tiles := names[:0]
	for _, name := range names {
		if strings.HasSuffix(name, ".png") {
			tiles = append(tiles, name)
		}
	}
	return tiles, nil
}

// FetchDataTile downloads one radar data tile by file name.
func (a *FTPArchive) FetchDataTile(ctx context.Context, filename string) ([]byte, error) {
	return a.Fetch(ctx, radarDataDir+"/"+filename)
}

// FetchFeatureLayer downloads one static transparency overlay for a radar
// product.
func (a *FTPArchive) FetchFeatureLayer(ctx context.Context, product radar.Product, feature radar.Feature) (models.RadarFeatureLayer, error) {
	filename := product.FeatureFilename(feature)
	body, err := a.Fetch(ctx, transparencyDir+"/"+filename)
	if err != nil {
		return models.RadarFeatureLayer{}, err
	}
	// Overlays exist only for the base range types; doppler and the
	// accumulation products share the 128km set.
	return models.RadarFeatureLayer{
		RadarID:  product.RadarID,
		TypeID:   product.Type.Size().ID(),
		Feature:  string(feature),
		Filename: filename,
		Image:    body,
	}, nil
}

// FetchLegends downloads the colour scale legend for each legend class.
func (a *FTPArchive) FetchLegends(ctx context.Context) ([]models.RadarLegend, error) {
	legends := make([]models.RadarLegend, 0, len(radar.LegendIDs))
	for _, id := range radar.LegendIDs {
		path := fmt.Sprintf("%s/IDR.legend.%d.png", transparencyDir, id)
		body, err := a.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		legends = append(legends, models.RadarLegend{ID: id, Image: body})
	}
	return legends, nil
}
