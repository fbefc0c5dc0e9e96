package render

import "github.com/paulmach/orb/geojson"

type style struct {
	fill   string
	stroke string
	width  float64
	order  int
	// importance given to labels of this kind before size is considered
	weight float64
}

var (
	styleDefault  = style{fill: "#e8e4dc", stroke: "#c8c2b4", width: 1, order: 0, weight: 1}
	styleWater    = style{fill: "#aad3df", stroke: "#8cb8c6", width: 1, order: 1, weight: 4}
	styleGreen    = style{fill: "#c8e6b0", stroke: "#a6cf8a", width: 1, order: 1, weight: 3}
	styleBuilding = style{fill: "#d9d0c9", stroke: "#bfb3a9", width: 1, order: 2, weight: 1}
	styleRail     = style{stroke: "#707070", width: 2, order: 3, weight: 2}
	styleMinor    = style{stroke: "#ffffff", width: 3, order: 4, weight: 2}
	styleMajor    = style{stroke: "#f7c873", width: 6, order: 5, weight: 5}
	styleMotorway = style{stroke: "#e8927c", width: 8, order: 6, weight: 6}
	stylePlace    = style{fill: "#333333", width: 3, order: 7, weight: 8}
	stylePOI      = style{fill: "#8c5a3c", width: 2, order: 7, weight: 2}
)

// classify picks the drawing style from OSM-like feature tags.
func classify(p geojson.Properties) style {
	if p == nil {
		return styleDefault
	}
	switch p.MustString("highway", "") {
	case "":
	case "motorway", "trunk", "motorway_link", "trunk_link":
		return styleMotorway
	case "primary", "secondary", "tertiary", "primary_link", "secondary_link":
		return styleMajor
	default:
		return styleMinor
	}
	if p.MustString("railway", "") != "" {
		return styleRail
	}
	if p.MustString("waterway", "") != "" || p.MustString("natural", "") == "water" {
		return styleWater
	}
	switch p.MustString("landuse", "") {
	case "forest", "grass", "meadow", "recreation_ground", "cemetery":
		return styleGreen
	}
	switch p.MustString("leisure", "") {
	case "park", "garden", "pitch", "golf_course":
		return styleGreen
	}
	if p.MustString("natural", "") == "wood" {
		return styleGreen
	}
	if p.MustString("building", "") != "" {
		return styleBuilding
	}
	switch p.MustString("place", "") {
	case "":
	case "city", "town", "village", "suburb":
		return stylePlace
	}
	if p.MustString("amenity", "") != "" || p.MustString("shop", "") != "" {
		return stylePOI
	}
	return styleDefault
}
