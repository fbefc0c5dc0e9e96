package usecase

import (
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

// Waker is told whenever new render work may exist.
type Waker interface {
	Wake()
}

type ViewState struct {
	CenterX float64
	CenterY float64
	Lon     float64
	Lat     float64
	Zoom    int
	Width   int
	Height  int
	BBox    cache.BBox
}

// ViewUpdate carries the fields to change; nil fields are left as they are.
// A geographic center takes precedence over a tile-fraction one.
type ViewUpdate struct {
	CenterX *float64
	CenterY *float64
	Lon     *float64
	Lat     *float64
	Zoom    *int
	Width   *int
	Height  *int
}

// ViewUseCase is the input side of the map: it moves the view and wakes the
// render worker so the planner picks up the new bounding box.
type ViewUseCase struct {
	store  *cache.Store
	waker  Waker
	logger logger.Logger
}

func NewViewUseCase(store *cache.Store, waker Waker, l logger.Logger) *ViewUseCase {
	return &ViewUseCase{
		store:  store,
		waker:  waker,
		logger: l,
	}
}

func (uc *ViewUseCase) Get() ViewState {
	return uc.state()
}

// Set applies every field of u as one store update, so the planner never
// sees a half-applied view.
func (uc *ViewUseCase) Set(u ViewUpdate) ViewState {
	uc.store.Update(func(st cache.ViewportState) cache.ViewportState {
		v := st.View
		if u.Zoom != nil {
			v = v.WithZoom(*u.Zoom)
		}

		switch {
		case u.Lon != nil && u.Lat != nil:
			v = v.WithCenter(cache.CenterAt(*u.Lon, *u.Lat, v.Zoom))
		case u.CenterX != nil || u.CenterY != nil:
			x, y := v.CenterX, v.CenterY
			if u.CenterX != nil {
				x = *u.CenterX
			}
			if u.CenterY != nil {
				y = *u.CenterY
			}
			v = v.WithCenter(x, y)
		}
		st.View = v

		if u.Width != nil {
			st.Width = *u.Width
		}
		if u.Height != nil {
			st.Height = *u.Height
		}
		return st
	})

	return uc.changed("view set")
}

// Pan moves the view by a pixel delta.
func (uc *ViewUseCase) Pan(dxPx, dyPx float64) ViewState {
	uc.store.Pan(dxPx, dyPx)
	return uc.changed("view panned")
}

// Zoom changes the zoom level by delta, keeping the center in place.
func (uc *ViewUseCase) Zoom(delta int) ViewState {
	uc.store.ZoomBy(delta)
	return uc.changed("view zoomed")
}

func (uc *ViewUseCase) changed(msg string) ViewState {
	st := uc.state()
	uc.logger.Debug(msg, "zoom", st.Zoom, "x", st.CenterX, "y", st.CenterY)
	uc.waker.Wake()
	return st
}

func (uc *ViewUseCase) state() ViewState {
	st := uc.store.ViewportState()
	lon, lat := st.View.LonLat()
	return ViewState{
		CenterX: st.View.CenterX,
		CenterY: st.View.CenterY,
		Lon:     lon,
		Lat:     lat,
		Zoom:    st.View.Zoom,
		Width:   st.Width,
		Height:  st.Height,
		BBox:    st.BBox,
	}
}
