package cache

import (
	"errors"
	"fmt"
	"image"
)

var ErrUnknownLayer = errors.New("unknown layer")

// Key addresses one tile slot. X and Y are tile indices at zoom Z.
type Key struct {
	Z int
	X int
	Y int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// LabelCandidate is a label placement proposed by shape rendering. X and Y
// are pixel coordinates of the label anchor relative to the owning tile.
type LabelCandidate struct {
	Text       string
	X          float64
	Y          float64
	Importance float64
}

// CandidateSet is a tile's label candidates positioned relative to the tile
// being labelled.
type CandidateSet struct {
	OffsetX    float64
	OffsetY    float64
	Candidates []LabelCandidate
}

// Resource is the render state of one tile. Values returned by the Store are
// copies; the images they reference are never modified after being stored.
type Resource struct {
	ShapeLayer      image.Image
	RoughLabelLayer image.Image
	FinalLabelLayer image.Image
	LabelCandidates []LabelCandidate

	ShapePending bool
	LabelPending bool
	InputError   bool
}

func (r Resource) HasShapes() bool {
	return r.ShapeLayer != nil
}

func (r Resource) HasFinalLabels() bool {
	return r.FinalLabelLayer != nil
}

// LabelLayer returns the best label layer available: the final one when
// ready, otherwise the rough placeholder.
func (r Resource) LabelLayer() image.Image {
	if r.FinalLabelLayer != nil {
		return r.FinalLabelLayer
	}
	return r.RoughLabelLayer
}

type Layer string

const (
	LayerShapes      Layer = "shapes"
	LayerLabels      Layer = "labels"
	LayerRoughLabels Layer = "rough"
)

func ParseLayer(s string) (Layer, error) {
	switch l := Layer(s); l {
	case LayerShapes, LayerLabels, LayerRoughLabels:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayer, s)
}

// Image returns the image stored for the given layer, or nil.
func (r Resource) Image(l Layer) image.Image {
	switch l {
	case LayerShapes:
		return r.ShapeLayer
	case LayerLabels:
		return r.FinalLabelLayer
	case LayerRoughLabels:
		return r.RoughLabelLayer
	}
	return nil
}

func (r *Resource) release() {
	r.ShapeLayer = nil
	r.RoughLabelLayer = nil
	r.FinalLabelLayer = nil
	r.LabelCandidates = nil
}
