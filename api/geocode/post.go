package geocode

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/services/search"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

const (
	defaultLimit   = 5
	defaultTimeout = 15 * time.Second
)

// Post handles one-shot place lookups
// @Summary      Geocode a place
// @Description  Resolves free text into candidate places. Queries shorter than the minimum length are rejected
// @Description  with the same message the search input shows; an empty result list carries the no-results message.
// @Tags         geocode
// @Accept       json
// @Produce      json
// @Param        request body types.GeocodeRequest true "Lookup parameters"
// @Success      200 {object} types.GeocodeResponse "Candidate places"
// @Failure      400 {object} types.ErrorResponse "Query missing or too short"
// @Failure      429 {object} types.ErrorResponse "Provider rate limit"
// @Failure      502 {object} types.ErrorResponse "Geocoding provider failure"
// @Failure      504 {object} types.ErrorResponse "Geocoding provider timed out"
// @Router       /api/v1/geocode [post]
func Post(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.GeocodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			types.SendBadRequest(c, "Invalid request format", err.Error())
			return
		}

		query := strings.TrimSpace(req.Query)
		if utf8.RuneCountInString(query) < deps.MinQueryLength() {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Status:  types.StatusError,
				Message: search.TooShortMessage,
				Error:   string(apperrors.ErrCodeQueryTooShort),
			})
			return
		}

		if deps.Geocoder == nil {
			c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Geocoding service not available",
				Error:   string(apperrors.ErrCodeServiceDown),
			})
			return
		}

		limit := req.Limit
		if limit == 0 {
			limit = defaultLimit
		}

		timeout := defaultTimeout
		if deps.Config != nil && deps.Config.Geocoding.Timeout > 0 {
			// leave room for the provider's rate limiter queue
			timeout = deps.Config.Geocoding.Timeout + 5*time.Second
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		places, err := deps.Geocoder.Geocode(ctx, query)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.Is(err, apperrors.ErrCodeAPITimeout) {
				err = apperrors.TimeoutError("geocode", err)
			}
			deps.Log().Warn("geocode failed", "query", query, "error", err)
			types.SendError(c, err, "Failed to geocode query")
			return
		}

		if len(places) > limit {
			places = places[:limit]
		}
		results := make([]search.Result, 0, len(places))
		for _, p := range places {
			results = append(results, search.ResultFromPlace(p))
		}

		message := "Places retrieved successfully"
		if len(results) == 0 {
			message = search.NoResultsMessage
		}

		c.JSON(http.StatusOK, types.GeocodeResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: message,
			},
			Query:   query,
			Results: results,
			Count:   len(results),
		})
	}
}
