package usecase

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

func solid(c color.Color, r image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 640, 640))
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func assertPixel(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	r, g, b, _ := img.At(x, y).RGBA()
	near := func(got uint32, want uint8) bool {
		d := int(got>>8) - int(want)
		return d > -8 && d < 8
	}
	if !near(r, want.R) || !near(g, want.G) || !near(b, want.B) {
		t.Errorf("pixel (%d,%d) = (%d,%d,%d), want (%d,%d,%d)", x, y, r>>8, g>>8, b>>8, want.R, want.G, want.B)
	}
}

var (
	red        = color.RGBA{R: 255, A: 255}
	blue       = color.RGBA{B: 255, A: 255}
	green      = color.RGBA{G: 255, A: 255}
	background = color.RGBA{R: 0xf2, G: 0xef, B: 0xe9, A: 255}
	fullTile   = image.Rect(0, 0, 640, 640)
)

func TestFrameComposesShapesThenLabels(t *testing.T) {
	// viewport centered on the corner shared by four tiles
	store := newStore(2036, 1375, 12)
	store.CompleteShape(center, solid(red, fullTile), nil, nil)
	store.CompleteLabel(center, solid(blue, image.Rect(600, 600, 640, 640)))

	img, err := NewFrameUseCase(store, logger.NewNop()).Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 640 {
		t.Fatalf("frame size = %v", b)
	}

	// the center tile occupies the top-left quadrant
	assertPixel(t, img, 100, 100, red)
	assertPixel(t, img, 310, 310, blue)
	assertPixel(t, img, 500, 500, background)
}

func TestFrameFallsBackToRoughLabels(t *testing.T) {
	store := newStore(2035.5, 1374.5, 12)
	store.CompleteShape(center, solid(red, fullTile), solid(green, image.Rect(300, 300, 340, 340)), nil)

	img, err := NewFrameUseCase(store, logger.NewNop()).Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	assertPixel(t, img, 320, 320, green)
	assertPixel(t, img, 10, 10, red)
}

func TestFrameIgnoresOtherZoomLevels(t *testing.T) {
	store := newStore(2035.5, 1374.5, 12)
	store.CompleteShape(cache.Key{Z: 13, X: 4071, Y: 2749}, solid(red, fullTile), nil, nil)

	img, err := NewFrameUseCase(store, logger.NewNop()).Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	assertPixel(t, img, 320, 320, background)
}

func TestFrameWritePNG(t *testing.T) {
	store := newStore(2035.5, 1374.5, 12)
	store.CompleteShape(center, solid(red, fullTile), nil, nil)

	var buf bytes.Buffer
	if err := NewFrameUseCase(store, logger.NewNop()).WritePNG(context.Background(), &buf); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("frame is not a PNG: %v", err)
	}
	assertPixel(t, img, 320, 320, red)
}

func TestFrameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFrameUseCase(newStore(2035.5, 1374.5, 12), logger.NewNop()).Frame(ctx); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
