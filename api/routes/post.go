package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/planner"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

// Post queues a route search
// @Summary      Start a route search
// @Description  Validates the selection and queues the route estimation. A missing place or category is answered
// @Description  with the same reminder the search modal shows. The route is computed in the background; poll
// @Description  GET /api/v1/routes/{id} for the result.
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        request body types.RouteRequest true "Origin, destination and vehicle category"
// @Success      202 {object} types.RouteAcceptedResponse "Route search queued"
// @Failure      400 {object} types.ErrorResponse "Incomplete or invalid selection"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/routes [post]
func Post(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.RouteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			missing, fields := types.MissingFields(err)
			switch {
			case missing:
				c.JSON(http.StatusBadRequest, types.ErrorResponse{
					Status:  types.StatusError,
					Message: planner.IncompleteSelectionMessage,
					Error:   string(apperrors.ErrCodeIncompleteSelection),
					Details: fields,
				})
			case fields != nil:
				types.SendBadRequest(c, "Invalid route request", fields)
			default:
				types.SendBadRequest(c, "Invalid request format", err.Error())
			}
			return
		}

		id, err := deps.RouteService.SearchRoute(c.Request.Context(), planner.RouteRequest{
			LocationFrom: [2]float64{req.LocationFrom[0], req.LocationFrom[1]},
			LocationTo:   [2]float64{req.LocationTo[0], req.LocationTo[1]},
			Category:     *req.Category,
			FromTitle:    req.FromTitle,
			ToTitle:      req.ToTitle,
		})
		if err != nil {
			deps.Log().Error("route search failed", "error", err)
			types.SendError(c, err, "Failed to start route search")
			return
		}

		c.Header("Location", "/api/v1/routes/"+id)
		c.JSON(http.StatusAccepted, types.RouteAcceptedResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: "Route search queued",
			},
			ID:          id,
			RouteStatus: string(models.RouteSearchPending),
		})
	}
}
