package api

import (
	"errors"
	"net/http"

	"rental-service/internal/apperr"
	"rental-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// paramError is a request parameter that could not be parsed. It is answered
// with 500 like any unclassified error but keeps its message.
type paramError struct {
	Name  string
	Value string
}

func (e *paramError) Error() string {
	return "invalid " + e.Name + " parameter: " + e.Value
}

// ErrorHandler renders the last error recorded by a handler
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			util.GetLogger().Error("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
		}

		c.JSON(status, errorResponse{
			Success: false,
			Status:  status,
			Message: message,
		})
	}
}

func classify(err error) (int, string) {
	var (
		notFound   *apperr.NotFoundError
		validation *apperr.ValidationError
		param      *paramError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &param):
		return http.StatusInternalServerError, param.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
