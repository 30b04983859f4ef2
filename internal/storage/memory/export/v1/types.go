// Package v1 contains the v1 GeoJSON export format for saved routes.
// The output is a standard FeatureCollection readable by mapping
// frontends and GIS tooling.
package v1

// Export is the root FeatureCollection structure
type Export struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature pairs a geometry with its display properties
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds GeoJSON geometry. Coordinates follow the GeoJSON
// (lng, lat) axis order.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}
