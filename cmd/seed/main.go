// Command seed splits a GeoJSON FeatureCollection into data-zoom tiles and
// writes them into the configured feature store.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/features"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.NewSeed()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	in := flag.String("in", "", "GeoJSON FeatureCollection to import")
	zoom := flag.Int("zoom", cfg.Render.DataMaxZoom, "data zoom to split features at")
	flag.Parse()

	l := logger.NewZapLogger(cfg.Logger)
	defer func() { _ = l.Sync() }()

	if *in == "" {
		l.Fatal("missing -in flag")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		l.Fatal("failed to read input", "path", *in, "error", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		l.Fatal("failed to parse input", "path", *in, "error", err)
	}

	store, err := features.Open(cfg.Source, cfg.Redis, l)
	if err != nil {
		l.Fatal("failed to open feature store", "kind", cfg.Source.Kind, "error", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Error("failed to close feature store", "error", err)
		}
	}()

	tiles := split(fc, maptile.Zoom(*zoom))
	l.Info("split features", "features", len(fc.Features), "tiles", len(tiles), "zoom", *zoom)

	ctx := context.Background()
	for t, tfc := range tiles {
		if err := store.Put(ctx, t, tfc); err != nil {
			l.Fatal("failed to store tile", "z", t.Z, "x", t.X, "y", t.Y, "error", err)
		}
	}

	l.Info("seed completed", "kind", cfg.Source.Kind, "tiles", len(tiles))
}

// split clips every feature to each zoom-z tile its bound covers.
func split(fc *geojson.FeatureCollection, z maptile.Zoom) map[maptile.Tile]*geojson.FeatureCollection {
	tiles := make(map[maptile.Tile]*geojson.FeatureCollection)

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		nw := maptile.At(orb.Point{b.Min[0], b.Max[1]}, z)
		se := maptile.At(orb.Point{b.Max[0], b.Min[1]}, z)

		for x := nw.X; x <= se.X; x++ {
			for y := nw.Y; y <= se.Y; y++ {
				t := maptile.New(x, y, z)
				g := clip.Geometry(t.Bound(), orb.Clone(f.Geometry))
				if g == nil {
					continue
				}

				part := geojson.NewFeature(g)
				part.ID = f.ID
				part.Properties = f.Properties.Clone()

				tfc, ok := tiles[t]
				if !ok {
					tfc = geojson.NewFeatureCollection()
					tiles[t] = tfc
				}
				tfc.Append(part)
			}
		}
	}

	return tiles
}
