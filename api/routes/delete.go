package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
)

// Delete resets a route search, discarding its result
// @Summary      Reset a route search
// @Description  Deletes the route search and cancels its job if it has not run yet
// @Tags         routes
// @Param        id path string true "Route search ID"
// @Success      204 "Route search reset"
// @Failure      404 {object} types.ErrorResponse "Route search not found"
// @Router       /api/v1/routes/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.RouteService.Reset(c.Request.Context(), c.Param("id")); err != nil {
			types.SendError(c, err, "Failed to reset route search")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
