package geocoding

import "context"

// Coordinates is a WGS84 position
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LonLat returns the position in GeoJSON order
func (c Coordinates) LonLat() [2]float64 {
	return [2]float64{c.Lon, c.Lat}
}

// FromLonLat builds Coordinates from a GeoJSON-ordered pair
func FromLonLat(p [2]float64) Coordinates {
	return Coordinates{Lon: p[0], Lat: p[1]}
}

// Valid reports whether the position is inside WGS84 bounds
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Properties carries provider metadata for a place
type Properties struct {
	PlaceID string `json:"place_id"`
	Kind    string `json:"kind,omitempty"`
}

// Place is a single geocoding candidate
type Place struct {
	Name       string      `json:"name"`
	Center     Coordinates `json:"center"`
	Properties Properties  `json:"properties"`
}

// Geocoder resolves free text into candidate places
type Geocoder interface {
	Geocode(ctx context.Context, text string) ([]Place, error)
}

// GeocoderFunc adapts a function to the Geocoder interface
type GeocoderFunc func(ctx context.Context, text string) ([]Place, error)

// Geocode calls f(ctx, text)
func (f GeocoderFunc) Geocode(ctx context.Context, text string) ([]Place, error) {
	return f(ctx, text)
}
