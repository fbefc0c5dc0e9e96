package cache

import (
	"cmp"
	"image"
	"slices"
	"sync"
)

// Store is the tile resource cache. One mutex guards both the resources and
// the view, so the planner always sees a bounding box consistent with the
// tiles it inspects. No method holds the lock while rendering.
type Store struct {
	mu sync.Mutex

	// zoom -> x -> y
	levels map[int]map[int]map[int]*Resource

	view   View
	width  int
	height int
	bbox   BBox

	released bool
}

func NewStore(view View, widthPx, heightPx int) *Store {
	s := &Store{
		levels: make(map[int]map[int]map[int]*Resource),
		view:   view.WithZoom(view.Zoom),
		width:  widthPx,
		height: heightPx,
	}
	s.bbox = s.view.BoundingBox(widthPx, heightPx)
	return s
}

// resource returns the slot for k, creating an empty one on first access.
// Callers hold s.mu.
func (s *Store) resource(k Key) *Resource {
	level, ok := s.levels[k.Z]
	if !ok {
		level = make(map[int]map[int]*Resource)
		s.levels[k.Z] = level
	}
	col, ok := level[k.X]
	if !ok {
		col = make(map[int]*Resource)
		level[k.X] = col
	}
	r, ok := col[k.Y]
	if !ok {
		r = &Resource{}
		col[k.Y] = r
	}
	return r
}

// lookup returns the slot for k without creating it. Callers hold s.mu.
func (s *Store) lookup(k Key) *Resource {
	return s.levels[k.Z][k.X][k.Y]
}

// Get returns a copy of the resource at k, creating a default entry if absent.
func (s *Store) Get(k Key) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.resource(k)
}

// Peek returns a copy of the resource at k without creating an entry.
func (s *Store) Peek(k Key) (Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.lookup(k)
	if r == nil {
		return Resource{}, false
	}
	return *r, true
}

func (s *Store) MarkShapePending(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resource(k).ShapePending = true
}

func (s *Store) MarkLabelPending(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resource(k).LabelPending = true
}

// CompleteShape stores the output of a Shapes task and clears its pending flag.
func (s *Store) CompleteShape(k Key, shape, roughLabels image.Image, candidates []LabelCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	r := s.resource(k)
	r.ShapeLayer = shape
	r.RoughLabelLayer = roughLabels
	r.LabelCandidates = candidates
	r.ShapePending = false
}

// CompleteLabel stores the final label layer, drops the rough placeholder
// and clears the pending flag.
func (s *Store) CompleteLabel(k Key, labels image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	r := s.resource(k)
	r.FinalLabelLayer = labels
	r.RoughLabelLayer = nil
	r.LabelPending = false
}

// MarkInputError flags k as permanently unavailable. The tile is never
// planned again.
func (s *Store) MarkInputError(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.resource(k)
	r.InputError = true
	r.ShapePending = false
	r.LabelPending = false
}

// ClearPending drops the pending flag for kind without recording a result,
// leaving the tile eligible for planning again.
func (s *Store) ClearPending(k Key, kind TaskKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.lookup(k)
	if r == nil {
		return
	}
	switch kind {
	case TaskShapes:
		r.ShapePending = false
	case TaskLabels:
		r.LabelPending = false
	}
}

// Neighborhood collects the label candidates of the 3x3 block centered on k,
// each offset by its index delta times the tile size. Missing neighbors
// contribute an empty set.
func (s *Store) Neighborhood(k Key) []CandidateSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := float64(s.view.TileSize)
	sets := make([]CandidateSet, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			set := CandidateSet{
				OffsetX: float64(dx) * ts,
				OffsetY: float64(dy) * ts,
			}
			if r := s.lookup(Key{Z: k.Z, X: k.X + dx, Y: k.Y + dy}); r != nil {
				set.Candidates = r.LabelCandidates
			}
			sets = append(sets, set)
		}
	}
	return sets
}

// View returns the current view.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

// Viewport returns the viewport size in pixels.
func (s *Store) Viewport() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.width, s.height
}

func (s *Store) BoundingBox() BBox {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bbox
}

func (s *Store) SetCenter(x, y float64) View {
	return s.updateView(func(v View) View { return v.WithCenter(x, y) })
}

func (s *Store) SetZoom(z int) View {
	return s.updateView(func(v View) View { return v.WithZoom(z) })
}

// ZoomBy moves the zoom level by delta relative to the level current under
// the lock, so concurrent calls all take effect.
func (s *Store) ZoomBy(delta int) View {
	return s.updateView(func(v View) View { return v.WithZoom(v.Zoom + delta) })
}

func (s *Store) Pan(dxPx, dyPx float64) View {
	return s.updateView(func(v View) View { return v.Panned(dxPx, dyPx) })
}

func (s *Store) SetViewportSize(widthPx, heightPx int) View {
	return s.Update(func(st ViewportState) ViewportState {
		st.Width = widthPx
		st.Height = heightPx
		return st
	}).View
}

// ViewportState is the view together with the viewport size and the
// bounding box derived from them.
type ViewportState struct {
	View   View
	Width  int
	Height int
	BBox   BBox
}

func (s *Store) ViewportState() ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewportState()
}

// Update applies fn to the view and viewport size as a single change. The
// BBox fn returns is ignored and recomputed.
func (s *Store) Update(fn func(ViewportState) ViewportState) ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := fn(s.viewportState())
	s.view = st.View
	s.width = st.Width
	s.height = st.Height
	s.bbox = s.view.BoundingBox(s.width, s.height)
	return s.viewportState()
}

// Callers hold s.mu.
func (s *Store) viewportState() ViewportState {
	return ViewportState{View: s.view, Width: s.width, Height: s.height, BBox: s.bbox}
}

// updateView applies fn and republishes the bounding box before unlocking,
// so the next planner call already sees the new viewport.
func (s *Store) updateView(fn func(View) View) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = fn(s.view)
	s.bbox = s.view.BoundingBox(s.width, s.height)
	return s.view
}

// Snapshot is a consistent copy of the current zoom level and the view it
// was taken with.
type Snapshot struct {
	View   View
	Width  int
	Height int
	Tiles  map[Key]Resource
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		View:   s.view,
		Width:  s.width,
		Height: s.height,
		Tiles:  make(map[Key]Resource),
	}
	z := s.view.Zoom
	for x, col := range s.levels[z] {
		for y, r := range col {
			snap.Tiles[Key{Z: z, X: x, Y: y}] = *r
		}
	}
	return snap
}

// LevelStats summarizes one zoom level.
type LevelStats struct {
	Zoom        int `json:"zoom"`
	Tiles       int `json:"tiles"`
	Shapes      int `json:"shapes"`
	Labels      int `json:"labels"`
	RoughLabels int `json:"rough_labels"`
	Pending     int `json:"pending"`
	Failed      int `json:"failed"`
}

func (s *Store) Stats() []LevelStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]LevelStats, 0, len(s.levels))
	for z, level := range s.levels {
		ls := LevelStats{Zoom: z}
		for _, col := range level {
			for _, r := range col {
				ls.Tiles++
				if r.ShapeLayer != nil {
					ls.Shapes++
				}
				if r.FinalLabelLayer != nil {
					ls.Labels++
				}
				if r.RoughLabelLayer != nil {
					ls.RoughLabels++
				}
				if r.ShapePending || r.LabelPending {
					ls.Pending++
				}
				if r.InputError {
					ls.Failed++
				}
			}
		}
		stats = append(stats, ls)
	}
	slices.SortFunc(stats, func(a, b LevelStats) int { return cmp.Compare(a.Zoom, b.Zoom) })
	return stats
}

// Release drops every stored image. The render workers must already have
// been joined; later completions are ignored.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, level := range s.levels {
		for _, col := range level {
			for _, r := range col {
				r.release()
			}
		}
	}
	s.levels = make(map[int]map[int]map[int]*Resource)
	s.released = true
}
