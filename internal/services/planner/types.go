package planner

import (
	"context"
	"errors"

	"github.com/killallgit/route-planner-api/internal/services/search"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

// Field names one of the two place inputs
type Field string

const (
	FieldFrom Field = "locationFrom"
	FieldTo   Field = "locationTo"
)

// Valid reports whether f names a known input
func (f Field) Valid() bool {
	return f == FieldFrom || f == FieldTo
}

// User-facing copy
const (
	OriginPlaceholder          = "Origen"
	DestinationPlaceholder     = "¿A dónde vas?"
	CategoryPlaceholder        = "Elige la categoría de tu vehículo"
	IncompleteSelectionMessage = "Recuerda llenar todos los campos antes de hacer la búsqueda"
)

var (
	// ErrIncompleteSelection is returned by SearchRoute when a place or the
	// category is missing
	ErrIncompleteSelection = apperrors.New(apperrors.ErrCodeIncompleteSelection, IncompleteSelectionMessage)

	ErrUnknownCategory = errors.New("unknown vehicle category")
	ErrUnknownField    = errors.New("unknown field")
	ErrNotVisible      = errors.New("search modal is not open")
	ErrShutdown        = errors.New("planner has been shut down")
)

// Selection is what the user has chosen so far
type Selection struct {
	LocationFrom *search.Result `json:"locationFrom"`
	LocationTo   *search.Result `json:"locationTo"`
	Category     *int           `json:"category"`
}

// Complete reports whether a route search can be dispatched
func (s Selection) Complete() bool {
	return s.LocationFrom != nil && s.LocationTo != nil && s.Category != nil
}

func (s Selection) clone() Selection {
	out := Selection{}
	if s.LocationFrom != nil {
		from := *s.LocationFrom
		out.LocationFrom = &from
	}
	if s.LocationTo != nil {
		to := *s.LocationTo
		out.LocationTo = &to
	}
	if s.Category != nil {
		c := *s.Category
		out.Category = &c
	}
	return out
}

// View is the visibility of the modal and of the results panel behind it
type View struct {
	Visible     bool `json:"visible"`
	ShowResults bool `json:"showResults"`
}

// RouteRequest is handed to the dispatcher. Positions are [lon, lat].
type RouteRequest struct {
	LocationFrom [2]float64 `json:"locationFrom"`
	LocationTo   [2]float64 `json:"locationTo"`
	Category     int        `json:"category"`
	FromTitle    string     `json:"fromTitle,omitempty"`
	ToTitle      string     `json:"toTitle,omitempty"`
}

// Dispatcher starts a route search and returns its id without waiting for
// the route to be computed
type Dispatcher interface {
	SearchRoute(ctx context.Context, req RouteRequest) (string, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(ctx context.Context, req RouteRequest) (string, error)

// SearchRoute calls f(ctx, req)
func (f DispatcherFunc) SearchRoute(ctx context.Context, req RouteRequest) (string, error) {
	return f(ctx, req)
}
