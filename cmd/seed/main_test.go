package main

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func TestSplit(t *testing.T) {
	left := maptile.New(2035, 1374, 12)
	right := maptile.New(2036, 1374, 12)

	// a road crossing from the middle of one tile into the middle of the next
	road := geojson.NewFeature(orb.LineString{left.Bound().Center(), right.Bound().Center()})
	road.Properties["name"] = "High Street"

	pub := geojson.NewFeature(left.Bound().Center())
	pub.Properties["amenity"] = "pub"

	fc := geojson.NewFeatureCollection()
	fc.Append(road)
	fc.Append(pub)
	fc.Append(&geojson.Feature{})

	tiles := split(fc, 12)

	if len(tiles) != 2 {
		t.Fatalf("expected 2 tiles, got %d", len(tiles))
	}
	if n := len(tiles[left].Features); n != 2 {
		t.Errorf("left tile has %d features, want 2", n)
	}
	if n := len(tiles[right].Features); n != 1 {
		t.Fatalf("right tile has %d features, want 1", n)
	}

	part := tiles[right].Features[0]
	if part.Properties.MustString("name", "") != "High Street" {
		t.Errorf("properties not carried over: %v", part.Properties)
	}
	var ls orb.LineString
	switch g := part.Geometry.(type) {
	case orb.LineString:
		ls = g
	case orb.MultiLineString:
		if len(g) == 1 {
			ls = g[0]
		}
	}
	if len(ls) < 2 {
		t.Fatalf("unexpected clipped geometry %#v", part.Geometry)
	}
	if !right.Bound().Pad(1e-9).Contains(ls[0]) || !right.Bound().Pad(1e-9).Contains(ls[len(ls)-1]) {
		t.Errorf("clipped line leaves its tile: %v", ls)
	}

	part.Properties["name"] = "changed"
	if road.Properties.MustString("name", "") != "High Street" {
		t.Error("split must not share properties with the input")
	}
}
