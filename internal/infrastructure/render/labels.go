package render

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
)

const labelPadding = 2

type placement struct {
	text string
	// center of the label in target tile pixels
	x, y float64
	w, h float64
}

func (p placement) overlaps(o placement) bool {
	return math.Abs(p.x-o.x)*2 < p.w+o.w+2*labelPadding &&
		math.Abs(p.y-o.y)*2 < p.h+o.h+2*labelPadding
}

func (p placement) intersectsTile(size float64) bool {
	return p.x+p.w/2 > 0 && p.x-p.w/2 < size &&
		p.y+p.h/2 > 0 && p.y-p.h/2 < size
}

// placeLabels greedily accepts candidates by descending importance, dropping
// any that would collide with an accepted label or repeat the same text
// nearby. The result is independent of the order of sets.
func placeLabels(sets []cache.CandidateSet, measure func(string) (float64, float64), repeatDistance float64) []placement {
	type ranked struct {
		placement
		importance float64
	}

	var all []ranked
	for _, set := range sets {
		for _, c := range set.Candidates {
			if c.Text == "" {
				continue
			}
			w, h := measure(c.Text)
			all = append(all, ranked{
				placement: placement{
					text: c.Text,
					x:    c.X + set.OffsetX,
					y:    c.Y + set.OffsetY,
					w:    w,
					h:    h,
				},
				importance: c.Importance,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.importance != b.importance {
			return a.importance > b.importance
		}
		if a.text != b.text {
			return a.text < b.text
		}
		if a.x != b.x {
			return a.x < b.x
		}
		return a.y < b.y
	})

	placed := make([]placement, 0, len(all))
next:
	for _, cand := range all {
		for _, p := range placed {
			if cand.overlaps(p) {
				continue next
			}
			if cand.text == p.text && math.Hypot(cand.x-p.x, cand.y-p.y) < repeatDistance {
				continue next
			}
		}
		placed = append(placed, cand.placement)
	}
	return placed
}

// RenderLabels draws the labels that survive placement over all sets and
// touch the target tile. A single set with zero offset yields the rough,
// tile-local layer.
func (r *Renderer) RenderLabels(ctx context.Context, sets []cache.CandidateSet) (image.Image, error) {
	face := r.font.Face(r.fontSize)
	size := float64(r.tileSize)

	placed := placeLabels(sets, func(s string) (float64, float64) {
		return text.Measure(s, face)
	}, size/2)

	dc := gg.NewContext(r.tileSize, r.tileSize)
	defer dc.Close()
	dc.SetFont(face)

	for i, p := range placed {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !p.intersectsTile(size) {
			continue
		}
		drawLabel(dc, p)
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

func drawLabel(dc *gg.Context, p placement) {
	dc.SetRGBA(1, 1, 1, 0.8)
	for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		dc.DrawStringAnchored(p.text, p.x+d[0], p.y+d[1], 0.5, 0.5)
	}
	dc.SetRGB(0.15, 0.15, 0.15)
	dc.DrawStringAnchored(p.text, p.x, p.y, 0.5, 0.5)
}
