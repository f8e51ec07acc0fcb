package planner

import (
	"encoding/json"

	"github.com/killallgit/route-planner-api/internal/services/search"
	routeplanner "github.com/killallgit/route-planner-api/internal/services/planner"
)

// Client message types
const (
	MsgOpen          = "open"
	MsgClose         = "close"
	MsgQuery         = "query"
	MsgSelect        = "select"
	MsgCommit        = "commit"
	MsgCategory      = "category"
	MsgSearch        = "search"
	MsgToggleResults = "toggle_results"
)

// Server message types
const (
	MsgState       = "state"
	MsgSelection   = "selection"
	MsgModal       = "modal"
	MsgWarning     = "warning"
	MsgError       = "error"
	MsgRouteSearch = "route_search"
)

// Envelope wraps every message in both directions
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// QueryData is a keystroke in one of the place inputs
type QueryData struct {
	Field routeplanner.Field `json:"field"`
	Text  string             `json:"text"`
}

// SelectData picks a result by id
type SelectData struct {
	Field routeplanner.Field `json:"field"`
	ID    string             `json:"id"`
}

// CommitData blurs an input
type CommitData struct {
	Field routeplanner.Field `json:"field"`
}

// CategoryData chooses the vehicle category
type CategoryData struct {
	Value *int `json:"value"`
}

// StateData carries an input snapshot
type StateData struct {
	Field routeplanner.Field `json:"field"`
	State search.State       `json:"state"`
}

// SelectionData carries the current selection
type SelectionData struct {
	Selection routeplanner.Selection `json:"selection"`
}

// WarningData is user-facing copy shown by the modal
type WarningData struct {
	Message string `json:"message"`
}

// ErrorData reports a rejected message or a failed lookup
type ErrorData struct {
	Field   routeplanner.Field `json:"field,omitempty"`
	Message string             `json:"message"`
}

// RouteSearchData is the id of a dispatched route search
type RouteSearchData struct {
	ID string `json:"id"`
}
