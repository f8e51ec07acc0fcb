package types

import (
	"time"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/planner"
	"github.com/killallgit/route-planner-api/internal/services/search"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`  // One of the Status constants above
	Message string `json:"message"` // Human-readable message
}

// GeocodeResponse for place lookups
type GeocodeResponse struct {
	BaseResponse
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Count   int             `json:"count"`
}

// CategoriesResponse for the vehicle category options
type CategoriesResponse struct {
	BaseResponse
	Placeholder string             `json:"placeholder"`
	Categories  []planner.Category `json:"categories"`
	Count       int                `json:"count"`
}

// RouteAcceptedResponse is returned when a route search has been queued
type RouteAcceptedResponse struct {
	BaseResponse
	ID          string `json:"id"`
	RouteStatus string `json:"routeStatus"`
}

// RouteSearch is the API view of a stored route search
type RouteSearch struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	LocationFrom    [2]float64 `json:"locationFrom"`
	LocationTo      [2]float64 `json:"locationTo"`
	FromTitle       string     `json:"fromTitle,omitempty"`
	ToTitle         string     `json:"toTitle,omitempty"`
	Category        int        `json:"category"`
	CategoryLabel   string     `json:"categoryLabel"`
	DistanceKm      *float64   `json:"distanceKm,omitempty"`
	DurationMinutes *float64   `json:"durationMinutes,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// FromRouteSearch converts a stored route search to its API view
func FromRouteSearch(s *models.RouteSearch) RouteSearch {
	label, _ := planner.CategoryLabel(s.Category)
	return RouteSearch{
		ID:              s.ID,
		Status:          string(s.Status),
		LocationFrom:    [2]float64{s.OriginLon, s.OriginLat},
		LocationTo:      [2]float64{s.DestinationLon, s.DestinationLat},
		FromTitle:       s.OriginTitle,
		ToTitle:         s.DestinationTitle,
		Category:        s.Category,
		CategoryLabel:   label,
		DistanceKm:      s.DistanceKm,
		DurationMinutes: s.DurationMinutes,
		Error:           s.Error,
		CreatedAt:       s.CreatedAt,
		CompletedAt:     s.CompletedAt,
	}
}

// RouteSearchResponse for a single route search
type RouteSearchResponse struct {
	BaseResponse
	RouteSearch RouteSearch `json:"routeSearch"`
}

// RouteSearchListResponse for route search lists
type RouteSearchListResponse struct {
	BaseResponse
	RouteSearches []RouteSearch `json:"routeSearches"`
	Count         int           `json:"count"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`   // Error code
	Details any    `json:"details,omitempty"` // Additional error details
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  map[string]any `json:"services"`
}
