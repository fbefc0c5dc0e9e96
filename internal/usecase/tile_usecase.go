package usecase

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

// TileUseCase exposes stored layers and cache statistics.
type TileUseCase struct {
	store  *cache.Store
	logger logger.Logger
}

func NewTileUseCase(store *cache.Store, l logger.Logger) *TileUseCase {
	return &TileUseCase{
		store:  store,
		logger: l,
	}
}

// GetLayer returns the stored image for one layer of k, if rendered.
func (uc *TileUseCase) GetLayer(k cache.Key, layer cache.Layer) (image.Image, bool) {
	r, ok := uc.store.Peek(k)
	if !ok {
		uc.logger.Debug("layer lookup miss", "tile", k.String(), "layer", layer)
		return nil, false
	}
	img := r.Image(layer)
	return img, img != nil
}

// WriteLayerPNG encodes a stored layer. It reports false when the layer has
// not been rendered.
func (uc *TileUseCase) WriteLayerPNG(k cache.Key, layer cache.Layer, w io.Writer) (bool, error) {
	img, ok := uc.GetLayer(k, layer)
	if !ok {
		return false, nil
	}
	if err := png.Encode(w, img); err != nil {
		uc.logger.Error("failed to encode layer", "tile", k.String(), "layer", layer, "error", err)
		return true, fmt.Errorf("encode %s layer of %s: %w", layer, k, err)
	}
	return true, nil
}

func (uc *TileUseCase) Stats() []cache.LevelStats {
	return uc.store.Stats()
}
