package features

import (
	"context"
	"sync"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

type MapSource struct {
	m *TypedSyncMap
}

type TypedSyncMap struct {
	m sync.Map
}

func (c *TypedSyncMap) Load(k maptile.Tile) (*geojson.FeatureCollection, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, false
	}
	return v.(*geojson.FeatureCollection), exists
}

func (c *TypedSyncMap) Store(k maptile.Tile, v *geojson.FeatureCollection) {
	c.m.Store(k, v)
}

func NewMapSource() *MapSource {
	return &MapSource{
		m: &TypedSyncMap{},
	}
}

var _ Store = (*MapSource)(nil)

func (s *MapSource) Fetch(_ context.Context, t maptile.Tile) (*geojson.FeatureCollection, error) {
	fc, exists := s.m.Load(t)
	if !exists {
		return nil, ErrDataUnavailable
	}
	return fc, nil
}

func (s *MapSource) Put(_ context.Context, t maptile.Tile, fc *geojson.FeatureCollection) error {
	s.m.Store(t, fc)
	return nil
}

func (s *MapSource) Close() error {
	return nil
}
