package types

// GeocodeRequest represents a one-shot place lookup
type GeocodeRequest struct {
	Query string `json:"query" binding:"required" example:"Medellín"`
	Limit int    `json:"limit,omitempty" binding:"omitempty,min=1,max=50" example:"5"`
}

// RouteRequest represents a route search. Positions are [lon, lat].
type RouteRequest struct {
	LocationFrom []float64 `json:"locationFrom" binding:"required,lonlat" example:"-74.0721,4.7110"`
	LocationTo   []float64 `json:"locationTo" binding:"required,lonlat" example:"-75.5812,6.2442"`
	Category     *int      `json:"category" binding:"required,vehiclecategory" example:"1"`
	FromTitle    string    `json:"fromTitle,omitempty" binding:"max=255" example:"Bogotá"`
	ToTitle      string    `json:"toTitle,omitempty" binding:"max=255" example:"Medellín"`
}
