package render

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"golang.org/x/image/font/gofont/goregular"
)

// Renderer rasterizes feature collections into tile layers with gg. It keeps
// no per-call state and is safe for concurrent use.
type Renderer struct {
	tileSize int
	fontSize float64
	font     *text.FontSource
}

func New(tileSize int, fontSize float64) (*Renderer, error) {
	font, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load label font: %w", err)
	}
	return &Renderer{
		tileSize: tileSize,
		fontSize: fontSize,
		font:     font,
	}, nil
}

func (r *Renderer) Close() error {
	return r.font.Close()
}

// pixelProjection maps lon/lat to pixels relative to the top-left corner of
// tile t.
func (r *Renderer) pixelProjection(t maptile.Tile) orb.Projection {
	ts := float64(r.tileSize)
	ox, oy := float64(t.X), float64(t.Y)
	return func(p orb.Point) orb.Point {
		f := maptile.Fraction(p, t.Z)
		return orb.Point{(f[0] - ox) * ts, (f[1] - oy) * ts}
	}
}

type projected struct {
	geom  orb.Geometry
	props geojson.Properties
	style style
}

// RenderShapes draws the features of data tile into the layer for tile and
// proposes label candidates anchored inside it. When tile is deeper than
// data, the coarser data is simply drawn at the finer scale.
func (r *Renderer) RenderShapes(ctx context.Context, tile, data maptile.Tile, fc *geojson.FeatureCollection) (image.Image, []cache.LabelCandidate, error) {
	proj := r.pixelProjection(tile)

	items := make([]projected, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		items = append(items, projected{
			geom:  project.Geometry(orb.Clone(f.Geometry), proj),
			props: f.Properties,
			style: classify(f.Properties),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].style.order < items[j].style.order })

	dc := gg.NewContext(r.tileSize, r.tileSize)
	defer dc.Close()
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	candidates := make([]cache.LabelCandidate, 0)
	for i, it := range items {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		if err := drawGeometry(dc, it.geom, it.style); err != nil {
			return nil, nil, fmt.Errorf("draw feature %d of %d/%d/%d: %w", i, data.Z, data.X, data.Y, err)
		}
		if c, ok := r.candidate(it); ok {
			candidates = append(candidates, c)
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, nil, err
	}
	return dc.Image(), candidates, nil
}

// candidate proposes a label for a named feature whose anchor falls inside
// the tile.
func (r *Renderer) candidate(it projected) (cache.LabelCandidate, bool) {
	name := it.props.MustString("name", "")
	if name == "" {
		return cache.LabelCandidate{}, false
	}

	var (
		anchor orb.Point
		size   float64
	)
	ts := float64(r.tileSize)
	switch g := it.geom.(type) {
	case orb.Point:
		anchor = g
	case orb.LineString:
		if len(g) == 0 {
			return cache.LabelCandidate{}, false
		}
		anchor = g[len(g)/2]
		size = planar.Length(g) / ts
	case orb.MultiLineString:
		if len(g) == 0 || len(g[0]) == 0 {
			return cache.LabelCandidate{}, false
		}
		anchor = g[0][len(g[0])/2]
		size = planar.Length(g) / ts
	default:
		var area float64
		anchor, area = planar.CentroidArea(g)
		size = math.Abs(area) / (ts * ts) * 10
	}

	if anchor[0] < 0 || anchor[1] < 0 || anchor[0] >= ts || anchor[1] >= ts {
		return cache.LabelCandidate{}, false
	}

	importance := it.props.MustFloat64("importance", it.style.weight+size)
	return cache.LabelCandidate{
		Text:       name,
		X:          anchor[0],
		Y:          anchor[1],
		Importance: importance,
	}, true
}

func drawGeometry(dc *gg.Context, g orb.Geometry, st style) error {
	switch g := g.(type) {
	case orb.Point:
		if st.fill == "" {
			return nil
		}
		dc.DrawCircle(g[0], g[1], st.width)
		dc.SetColor(gg.Hex(st.fill).Color())
		return dc.Fill()
	case orb.MultiPoint:
		for _, p := range g {
			if err := drawGeometry(dc, p, st); err != nil {
				return err
			}
		}
	case orb.LineString:
		if len(g) < 2 || st.stroke == "" {
			return nil
		}
		linePath(dc, g)
		dc.SetColor(gg.Hex(st.stroke).Color())
		dc.SetLineWidth(st.width)
		return dc.Stroke()
	case orb.MultiLineString:
		for _, ls := range g {
			if err := drawGeometry(dc, ls, st); err != nil {
				return err
			}
		}
	case orb.Ring:
		return drawGeometry(dc, orb.Polygon{g}, st)
	case orb.Polygon:
		return drawPolygon(dc, g, st)
	case orb.MultiPolygon:
		for _, p := range g {
			if err := drawPolygon(dc, p, st); err != nil {
				return err
			}
		}
	case orb.Bound:
		return drawPolygon(dc, g.ToPolygon(), st)
	case orb.Collection:
		for _, c := range g {
			if err := drawGeometry(dc, c, st); err != nil {
				return err
			}
		}
	}
	return nil
}

func drawPolygon(dc *gg.Context, p orb.Polygon, st style) error {
	if len(p) == 0 {
		return nil
	}
	for _, ring := range p {
		if len(ring) < 3 {
			continue
		}
		linePath(dc, orb.LineString(ring))
		dc.ClosePath()
	}

	fill := st.fill
	if fill == "" {
		fill = styleDefault.fill
	}
	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetColor(gg.Hex(fill).Color())
	if st.stroke == "" {
		return dc.Fill()
	}
	if err := dc.FillPreserve(); err != nil {
		return err
	}
	dc.SetColor(gg.Hex(st.stroke).Color())
	dc.SetLineWidth(st.width)
	return dc.Stroke()
}

func linePath(dc *gg.Context, ls orb.LineString) {
	dc.MoveTo(ls[0][0], ls[0][1])
	for _, p := range ls[1:] {
		dc.LineTo(p[0], p[1])
	}
}
