package features

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// FilesystemSource reads one GeoJSON file per tile laid out as
// <dir>/<z>/<x>/<y>.geojson.
type FilesystemSource struct {
	dir string
}

func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{dir: dir}
}

var _ Store = (*FilesystemSource)(nil)

func (s *FilesystemSource) path(t maptile.Tile) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d/%d/%d.geojson", t.Z, t.X, t.Y))
}

func (s *FilesystemSource) Fetch(_ context.Context, t maptile.Tile) (fc *geojson.FeatureCollection, err error) {
	defer func(start time.Time) { observe("filesystem", "fetch", start, err) }(time.Now())

	content, err := os.ReadFile(s.path(t))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDataUnavailable
		}
		return nil, err
	}

	fc, err = geojson.UnmarshalFeatureCollection(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path(t), err)
	}
	return fc, nil
}

func (s *FilesystemSource) Put(_ context.Context, t maptile.Tile, fc *geojson.FeatureCollection) (err error) {
	defer func(start time.Time) { observe("filesystem", "put", start, err) }(time.Now())

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}

	p := s.path(t)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (s *FilesystemSource) Close() error {
	return nil
}
