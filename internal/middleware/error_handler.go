package middleware

import (
	apiError "docflow/internal/errors"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apiError.AppError
		if !errors.As(err, &appErr) {
			// If it's a raw error we didn't wrap, treat as Internal
			appErr = apiError.Internal(err)
		}

		if appErr.Code >= 500 {
			log.Error().Err(appErr.Err).Str("path", c.FullPath()).Msg(appErr.Message)
		} else {
			log.Info().Err(appErr.Err).Str("path", c.FullPath()).Int("status", appErr.Code).Msg(appErr.Message)
		}

		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
	}
}
