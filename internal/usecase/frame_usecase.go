package usecase

import (
	"cmp"
	"context"
	"image"
	"io"
	"math"
	"slices"

	"github.com/gogpu/gg"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/metrics"
)

const frameBackground = "#f2efe9"

// FrameUseCase is the display side: it composites the current zoom level
// into one viewport-sized image.
type FrameUseCase struct {
	store  *cache.Store
	logger logger.Logger
}

func NewFrameUseCase(store *cache.Store, l logger.Logger) *FrameUseCase {
	return &FrameUseCase{
		store:  store,
		logger: l,
	}
}

// Frame draws every shape layer of the snapshot, then every label layer on
// top, preferring final labels over rough ones.
func (uc *FrameUseCase) Frame(ctx context.Context) (image.Image, error) {
	dc, err := uc.compose(ctx)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	return dc.Image(), nil
}

func (uc *FrameUseCase) WritePNG(ctx context.Context, w io.Writer) error {
	dc, err := uc.compose(ctx)
	if err != nil {
		return err
	}
	defer dc.Close()

	return dc.EncodePNG(w)
}

type placedTile struct {
	key    cache.Key
	x, y   float64
	shapes image.Image
	labels image.Image
}

func (uc *FrameUseCase) compose(ctx context.Context) (*gg.Context, error) {
	snap := uc.store.Snapshot()
	ts := float64(snap.View.TileSize)

	tiles := make([]placedTile, 0, len(snap.Tiles))
	for k, r := range snap.Tiles {
		ox, oy := snap.View.TileOrigin(k.X, k.Y, snap.Width, snap.Height)
		if ox >= float64(snap.Width) || oy >= float64(snap.Height) || ox+ts <= 0 || oy+ts <= 0 {
			continue
		}
		tiles = append(tiles, placedTile{
			key:    k,
			x:      math.Round(ox),
			y:      math.Round(oy),
			shapes: r.ShapeLayer,
			labels: r.LabelLayer(),
		})
	}
	slices.SortFunc(tiles, func(a, b placedTile) int {
		if c := cmp.Compare(a.key.X, b.key.X); c != 0 {
			return c
		}
		return cmp.Compare(a.key.Y, b.key.Y)
	})

	dc := gg.NewContext(snap.Width, snap.Height)
	dc.ClearWithColor(gg.Hex(frameBackground))

	for _, t := range tiles {
		if t.shapes != nil {
			dc.DrawImage(gg.ImageBufFromImage(t.shapes), t.x, t.y)
		}
	}
	if err := ctx.Err(); err != nil {
		dc.Close()
		return nil, err
	}
	for _, t := range tiles {
		if t.labels != nil {
			dc.DrawImage(gg.ImageBufFromImage(t.labels), t.x, t.y)
		}
	}

	metrics.FrameRenders.Inc()
	uc.logger.Debug("frame composed", "tiles", len(tiles), "zoom", snap.View.Zoom)
	return dc, nil
}
