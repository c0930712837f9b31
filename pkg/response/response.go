package response

import (
	"net/http"

	"anoa.com/polychat/internal/logging"
	"anoa.com/polychat/pkg/apperror"
	"anoa.com/polychat/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (string, error) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		return "", apperror.ErrUnauthorized
	}

	if _, err := uuid.Parse(userIDStr); err != nil {
		return "", apperror.ErrUnauthorized
	}

	return userIDStr, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		log := logging.Component("http")
		log.Error().Err(err).Str("path", c.FullPath()).Int("status", code).Msg("request failed")
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// BindError reports a request body or query that failed binding.
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
}
