package dto

// ViewRequest updates the view. Omitted fields keep their current value.
// Lon and Lat must be given together and win over CenterX/CenterY.
type ViewRequest struct {
	CenterX *float64 `json:"center_x" validate:"omitempty,gte=0"`
	CenterY *float64 `json:"center_y" validate:"omitempty,gte=0"`
	Lon     *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	Lat     *float64 `json:"lat" validate:"omitempty,gte=-85.0511,lte=85.0511"`
	Zoom    *int     `json:"zoom" validate:"omitempty,gte=0,lte=22"`
	Width   *int     `json:"width" validate:"omitempty,gte=1,lte=8192"`
	Height  *int     `json:"height" validate:"omitempty,gte=1,lte=8192"`
}

type PanRequest struct {
	DX float64 `json:"dx" validate:"gte=-100000,lte=100000"`
	DY float64 `json:"dy" validate:"gte=-100000,lte=100000"`
}

type ZoomRequest struct {
	Delta int `json:"delta" validate:"required,gte=-22,lte=22"`
}

type BBoxResponse struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

type ViewResponse struct {
	CenterX float64      `json:"center_x"`
	CenterY float64      `json:"center_y"`
	Lon     float64      `json:"lon"`
	Lat     float64      `json:"lat"`
	Zoom    int          `json:"zoom"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	BBox    BBoxResponse `json:"bbox"`
}
