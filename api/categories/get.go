package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/services/planner"
)

// Get returns the vehicle category options
// @Summary      Get vehicle categories
// @Description  Lists the selectable vehicle categories I to V in display order
// @Tags         categories
// @Produce      json
// @Success      200 {object} types.CategoriesResponse
// @Router       /api/v1/categories [get]
func Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := planner.Categories()

		// the options are static
		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("ETag", "\"categories-v1\"")

		c.JSON(http.StatusOK, types.CategoriesResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: "Categories retrieved successfully",
			},
			Placeholder: planner.CategoryPlaceholder,
			Categories:  categories,
			Count:       len(categories),
		})
	}
}
