package features

import (
	"context"
	"errors"
	"time"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/metrics"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// ErrDataUnavailable is returned when a tile has no backing feature data.
var ErrDataUnavailable = errors.New("feature data unavailable")

// Source supplies the geographic features of one data tile.
type Source interface {
	Fetch(ctx context.Context, t maptile.Tile) (*geojson.FeatureCollection, error)
}

// Store is a Source that can also be written to.
type Store interface {
	Source
	Put(ctx context.Context, t maptile.Tile, fc *geojson.FeatureCollection) error
	Close() error
}

// DataTile resolves t to the tile holding its data by walking up to
// maxZoom. Tiles at or below maxZoom resolve to themselves.
func DataTile(t maptile.Tile, maxZoom maptile.Zoom) maptile.Tile {
	for t.Z > maxZoom {
		t = t.Parent()
	}
	return t
}

func observe(backend, operation string, start time.Time, err error) {
	metrics.SourceOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrDataUnavailable) {
		metrics.SourceErrors.WithLabelValues(backend, operation).Inc()
	}
}
