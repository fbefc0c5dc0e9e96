package features

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func TestDataTile(t *testing.T) {
	tests := []struct {
		name string
		in   maptile.Tile
		max  maptile.Zoom
		want maptile.Tile
	}{
		{"native zoom", maptile.New(2035, 1374, 12), 12, maptile.New(2035, 1374, 12)},
		{"below native zoom", maptile.New(508, 343, 10), 12, maptile.New(508, 343, 10)},
		{"one level above", maptile.New(4070, 2748, 13), 12, maptile.New(2035, 1374, 12)},
		{"odd indices", maptile.New(4071, 2749, 13), 12, maptile.New(2035, 1374, 12)},
		{"three levels above", maptile.New(16283, 10995, 15), 12, maptile.New(2035, 1374, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DataTile(tt.in, tt.max); got != tt.want {
				t.Errorf("DataTile(%v, %d) = %v, want %v", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func testCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{-1.14, 52.51})
	f.Properties["name"] = "Market Square"
	fc.Append(f)
	return fc
}

// exerciseStore checks the behavior every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	tile := maptile.New(2035, 1374, 12)

	if _, err := s.Fetch(ctx, tile); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("Fetch on empty store: got %v, want ErrDataUnavailable", err)
	}

	if err := s.Put(ctx, tile, testCollection()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	fc, err := s.Fetch(ctx, tile)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties.MustString("name", "") != "Market Square" {
		t.Errorf("unexpected features %+v", fc.Features)
	}

	if _, err := s.Fetch(ctx, maptile.New(2036, 1374, 12)); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("Fetch of other tile: got %v, want ErrDataUnavailable", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestMapSource(t *testing.T) {
	exerciseStore(t, NewMapSource())
}

func TestSQLiteSource(t *testing.T) {
	s, err := NewSQLiteSource(filepath.Join(t.TempDir(), "features.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteSource failed: %v", err)
	}
	exerciseStore(t, s)
}

func TestSQLiteSourceUpsert(t *testing.T) {
	s, err := NewSQLiteSource(filepath.Join(t.TempDir(), "features.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("NewSQLiteSource failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	tile := maptile.New(1, 1, 2)
	if err := s.Put(ctx, tile, testCollection()); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, tile, geojson.NewFeatureCollection()); err != nil {
		t.Fatal(err)
	}

	fc, err := s.Fetch(ctx, tile)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 0 {
		t.Errorf("expected overwritten empty collection, got %d features", len(fc.Features))
	}
}

func TestFilesystemSource(t *testing.T) {
	dir := t.TempDir()
	exerciseStore(t, NewFilesystemSource(dir))

	if _, err := os.Stat(filepath.Join(dir, "12", "2035", "1374.geojson")); err != nil {
		t.Errorf("expected tile file on disk: %v", err)
	}
}

func TestFilesystemSourceCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "1", "0"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1", "0", "0.geojson"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFilesystemSource(dir).Fetch(context.Background(), maptile.New(0, 0, 1))
	if err == nil || errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestRedisKeyFor(t *testing.T) {
	if got := keyFor(maptile.New(2035, 1374, 12)); got != "features:12:2035:1374" {
		t.Errorf("keyFor = %q", got)
	}
}

func TestNewRedisSourceUnreachable(t *testing.T) {
	_, err := NewRedisSource(RedisConfig{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected connection error")
	}
}
