package cache

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// BBox is a viewport extent in tile-fraction coordinates at one zoom.
type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Expand grows the box by n tiles on every side.
func (b BBox) Expand(n float64) BBox {
	return BBox{
		MinX: b.MinX - n,
		MinY: b.MinY - n,
		MaxX: b.MaxX + n,
		MaxY: b.MaxY + n,
	}
}

// TileRange returns the half-open index range [x0,x1)x[y0,y1) of the tiles
// overlapping the box.
func (b BBox) TileRange() (x0, y0, x1, y1 int) {
	return int(math.Floor(b.MinX)), int(math.Floor(b.MinY)),
		int(math.Ceil(b.MaxX)), int(math.Ceil(b.MaxY))
}

// MaxZoom is the deepest level a view can reach.
const MaxZoom = 22

// View is the viewport position: its center in tile-fraction coordinates at
// Zoom. It is a value type; the Store owns the live copy.
type View struct {
	CenterX  float64
	CenterY  float64
	Zoom     int
	MinZoom  int
	TileSize int
}

// CenterAt returns the tile-fraction coordinate of a lon/lat at zoom z.
func CenterAt(lon, lat float64, z int) (x, y float64) {
	p := maptile.Fraction(orb.Point{lon, lat}, maptile.Zoom(z))
	return p[0], p[1]
}

// LonLat returns the geographic coordinate of the view center.
func (v View) LonLat() (lon, lat float64) {
	n := math.Ldexp(1, v.Zoom)
	lon = v.CenterX/n*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*v.CenterY/n))) * 180 / math.Pi
	return lon, lat
}

// WithCenter moves the view without changing zoom.
func (v View) WithCenter(x, y float64) View {
	v.CenterX = x
	v.CenterY = y
	return v
}

// WithZoom changes zoom, clamped to [MinZoom, MaxZoom], and rescales the
// center so the same geographic point stays in the middle of the viewport.
func (v View) WithZoom(z int) View {
	z = min(max(z, v.MinZoom), MaxZoom)
	if z == v.Zoom {
		return v
	}
	scale := math.Ldexp(1, z-v.Zoom)
	v.CenterX *= scale
	v.CenterY *= scale
	v.Zoom = z
	return v
}

// Panned shifts the center by a pixel delta.
func (v View) Panned(dxPx, dyPx float64) View {
	v.CenterX += dxPx / float64(v.TileSize)
	v.CenterY += dyPx / float64(v.TileSize)
	return v
}

// BoundingBox computes the visible extent of a widthPx x heightPx viewport.
func (v View) BoundingBox(widthPx, heightPx int) BBox {
	halfW := float64(widthPx) / 2 / float64(v.TileSize)
	halfH := float64(heightPx) / 2 / float64(v.TileSize)
	return BBox{
		MinX: v.CenterX - halfW,
		MinY: v.CenterY - halfH,
		MaxX: v.CenterX + halfW,
		MaxY: v.CenterY + halfH,
	}
}

// TileOrigin returns where the top-left corner of tile (x, y) lands in a
// widthPx x heightPx viewport.
func (v View) TileOrigin(x, y, widthPx, heightPx int) (float64, float64) {
	ts := float64(v.TileSize)
	ox := (float64(x)-v.CenterX)*ts + float64(widthPx)/2
	oy := (float64(y)-v.CenterY)*ts + float64(heightPx)/2
	return ox, oy
}

// inWorld reports whether (x, y) is a valid tile index at zoom z.
func inWorld(z, x, y int) bool {
	if z < 0 || z > 30 || x < 0 || y < 0 {
		return false
	}
	n := 1 << z
	return x < n && y < n
}
