package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RouteSearchStatus tracks a route search through the job queue
type RouteSearchStatus string

const (
	RouteSearchPending    RouteSearchStatus = "pending"
	RouteSearchProcessing RouteSearchStatus = "processing"
	RouteSearchCompleted  RouteSearchStatus = "completed"
	RouteSearchFailed     RouteSearchStatus = "failed"
)

// RouteSearch is a dispatched request to compute a route between two places
// for a vehicle category. Coordinates are stored as plain lon/lat columns.
type RouteSearch struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`

	OriginLon   float64 `json:"origin_lon" gorm:"not null"`
	OriginLat   float64 `json:"origin_lat" gorm:"not null"`
	OriginTitle string  `json:"origin_title"`

	DestinationLon   float64 `json:"destination_lon" gorm:"not null"`
	DestinationLat   float64 `json:"destination_lat" gorm:"not null"`
	DestinationTitle string  `json:"destination_title"`

	Category int               `json:"category" gorm:"not null"`
	Status   RouteSearchStatus `json:"status" gorm:"default:'pending';index"`

	DistanceKm      *float64 `json:"distance_km,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	Error           string   `json:"error,omitempty"`
	JobID           *uint    `json:"job_id,omitempty" gorm:"index"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate assigns a UUID when none was set
func (r *RouteSearch) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal returns true once the search has a result or an error
func (r *RouteSearch) IsTerminal() bool {
	return r.Status == RouteSearchCompleted || r.Status == RouteSearchFailed
}

// TableName specifies the table name for GORM
func (RouteSearch) TableName() string {
	return "route_searches"
}
