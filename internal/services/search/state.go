package search

import (
	"slices"

	"github.com/killallgit/route-planner-api/internal/services/geocoding"
)

// User-facing messages
const (
	NoResultsMessage = "No se encontraron resultados"
	TooShortMessage  = "Intenta con una palabra más larga"
)

// Result is one selectable suggestion
type Result struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Coordinates geocoding.Coordinates `json:"coordinates"`
}

// ResultFromPlace maps a geocoder candidate to a suggestion
func ResultFromPlace(p geocoding.Place) Result {
	return Result{
		ID:          p.Properties.PlaceID,
		Title:       p.Name,
		Coordinates: p.Center,
	}
}

// State is an immutable snapshot of an Input. Every transition produces a
// new State; the Results slice is never modified after publication.
type State struct {
	IsLoading        bool     `json:"isLoading"`
	Value            string   `json:"value"`
	Results          []Result `json:"results"`
	NoResultsMessage string   `json:"noResultsMessage"`
	Focused          bool     `json:"focused"`
}

// InitialState is the state of a freshly mounted Input
func InitialState() State {
	return State{
		Results:          []Result{},
		NoResultsMessage: NoResultsMessage,
	}
}

func (s State) clone() State {
	s.Results = slices.Clone(s.Results)
	if s.Results == nil {
		s.Results = []Result{}
	}
	return s
}
