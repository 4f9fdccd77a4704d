// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// respondError maps a domain error to a status code and the
// {"error", "details"} body. Unknown errors are logged and hidden.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var stockErr *apperror.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusConflict, gin.H{
			"error":   stockErr.Error(),
			"details": stockErr.Details(),
		}
	}

	var notFound *apperror.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, gin.H{
			"error":   notFound.Error(),
			"details": gin.H{"entity": notFound.Entity, "id": notFound.ID},
		}
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, gin.H{"error": err.Error()}
	case errors.Is(err, apperror.ErrInvalidTransition),
		errors.Is(err, apperror.ErrEmptyCart):
		return http.StatusUnprocessableEntity, gin.H{"error": err.Error()}
	case errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrDuplicate),
		errors.Is(err, apperror.ErrTransactionAborted):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, apperror.ErrInvalidInput),
		errors.Is(err, apperror.ErrInvalidQuantity),
		errors.Is(err, apperror.ErrVariantRequired):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
	}
}

// badRequest answers a binding or parameter failure
func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
