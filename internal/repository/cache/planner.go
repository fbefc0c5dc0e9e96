package cache

type TaskKind int

// Lower kinds are more urgent.
const (
	TaskShapes TaskKind = iota
	TaskLabels
)

func (k TaskKind) String() string {
	switch k {
	case TaskShapes:
		return "shapes"
	case TaskLabels:
		return "labels"
	}
	return "unknown"
}

// Task is one unit of render work. Tasks are not queued anywhere; the
// planner derives them from the store on every call.
type Task struct {
	Kind     TaskKind
	Key      Key
	Priority int
}

func newTask(kind TaskKind, k Key) Task {
	return Task{Kind: kind, Key: k, Priority: int(kind)}
}

func needsShapes(r *Resource) bool {
	return r.ShapeLayer == nil && !r.ShapePending && !r.InputError
}

func needsLabels(r *Resource) bool {
	return r.ShapeLayer != nil && r.FinalLabelLayer == nil && !r.LabelPending && !r.InputError
}

// FindNextTask picks the most urgent task for the current view and claims it
// by setting its pending flag before the lock is released. In order:
// visible tiles missing shapes, tiles one ring outside the viewport missing
// shapes, visible tiles missing final labels.
func (s *Store) FindNextTask() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return Task{}, false
	}

	z := s.view.Zoom

	if k, ok := s.scan(z, s.bbox, needsShapes); ok {
		s.resource(k).ShapePending = true
		return newTask(TaskShapes, k), true
	}

	if k, ok := s.scan(z, s.bbox.Expand(1), needsShapes); ok {
		s.resource(k).ShapePending = true
		return newTask(TaskShapes, k), true
	}

	if k, ok := s.scan(z, s.bbox, needsLabels); ok {
		s.resource(k).LabelPending = true
		return newTask(TaskLabels, k), true
	}

	return Task{}, false
}

// scan walks the tiles overlapping box column by column and returns the
// first one matching eligible. Callers hold s.mu.
func (s *Store) scan(z int, box BBox, eligible func(*Resource) bool) (Key, bool) {
	x0, y0, x1, y1 := box.TileRange()
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			if !inWorld(z, x, y) {
				continue
			}
			k := Key{Z: z, X: x, Y: y}
			if eligible(s.resource(k)) {
				return k, true
			}
		}
	}
	return Key{}, false
}
