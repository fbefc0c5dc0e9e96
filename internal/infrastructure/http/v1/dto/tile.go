package dto

import "github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"

type StatsResponse struct {
	Levels      []cache.LevelStats `json:"levels"`
	Subscribers int                `json:"subscribers"`
}

// RepaintEvent is the payload of a "repaint" server-sent event.
type RepaintEvent struct {
	Tile string `json:"tile"`
	Z    int    `json:"z"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
}
