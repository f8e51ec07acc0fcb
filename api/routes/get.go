package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Get returns a route search and its result once computed
// @Summary      Get a route search
// @Description  Returns the status of a route search and, once completed, the estimated distance and duration
// @Tags         routes
// @Produce      json
// @Param        id path string true "Route search ID"
// @Success      200 {object} types.RouteSearchResponse
// @Failure      404 {object} types.ErrorResponse "Route search not found"
// @Router       /api/v1/routes/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		search, err := deps.RouteService.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err, "Failed to get route search")
			return
		}

		c.JSON(http.StatusOK, types.RouteSearchResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: "Route search retrieved successfully",
			},
			RouteSearch: types.FromRouteSearch(search),
		})
	}
}

// List returns recent route searches
// @Summary      List route searches
// @Description  Lists recent route searches, newest first
// @Tags         routes
// @Produce      json
// @Param        status query string false "Filter by status" Enums(pending, processing, completed, failed)
// @Param        limit  query int    false "Maximum results (1-100)" default(20)
// @Success      200 {object} types.RouteSearchListResponse
// @Failure      400 {object} types.ErrorResponse "Invalid parameters"
// @Router       /api/v1/routes [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 || v > maxListLimit {
				types.SendBadRequest(c, "Limit must be between 1 and 100", nil)
				return
			}
			limit = v
		}

		status := models.RouteSearchStatus(c.Query("status"))
		switch status {
		case "", models.RouteSearchPending, models.RouteSearchProcessing, models.RouteSearchCompleted, models.RouteSearchFailed:
		default:
			types.SendBadRequest(c, "Unknown status filter", gin.H{"status": status})
			return
		}

		searches, err := deps.RouteService.List(c.Request.Context(), status, limit)
		if err != nil {
			types.SendError(c, err, "Failed to list route searches")
			return
		}

		out := make([]types.RouteSearch, 0, len(searches))
		for _, s := range searches {
			out = append(out, types.FromRouteSearch(s))
		}

		c.JSON(http.StatusOK, types.RouteSearchListResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: "Route searches retrieved successfully",
			},
			RouteSearches: out,
			Count:         len(out),
		})
	}
}
