package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"video-conversion/internal/api/errors"
)

// ErrorHandler recovers panics and answers with a JSON APIError.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		var apiErr *errors.APIError
		switch err := recovered.(type) {
		case *errors.APIError:
			apiErr = err
		case error:
			logger.Error("Internal server error",
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			apiErr = errors.NewInternalError()
		default:
			logger.Error("Unknown panic occurred",
				zap.String("recovered", fmt.Sprint(recovered)),
				zap.String("request_id", requestID))
			apiErr = errors.NewInternalError()
		}
		apiErr.RequestID = requestID
		c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
	})
}

// HandleError writes err as a JSON APIError. Engine errors are translated first; anything
// left unrecognized becomes a 500 and is recorded on the context for the access log.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr, ok := errors.FromDomain(err).(*errors.APIError)
	if !ok {
		_ = c.Error(err)
		apiErr = errors.NewInternalError()
	}
	apiErr.RequestID = GetRequestID(c)
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
}
