package types

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// SendError writes err as an ErrorResponse. AppErrors carry their own
// status, message and code; anything else becomes a 500 with fallback as
// the message.
func SendError(c *gin.Context, err error, fallback string) {
	if appErr, ok := apperrors.As(err); ok {
		c.JSON(appErr.GetHTTPCode(), ErrorResponse{
			Status:  StatusError,
			Message: appErr.Message,
			Error:   string(appErr.Code),
			Details: appErr.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Status:  StatusError,
		Message: fallback,
		Error:   string(apperrors.ErrCodeInternal),
	})
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string, details any) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeValidation),
		Details: details,
	})
}
