package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/common"
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrAccessDenied), errors.Is(err, common.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflictingName),
		errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrCircularReference):
		return http.StatusConflict
	case errors.Is(err, common.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrUpstreamStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage decides what error text leaves the server. Client errors
// carry our own wording, but object-store and internal failures wrap
// driver detail (endpoints, credentials, SQL) that must stay in the logs.
func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, common.ErrUpstreamStorage):
		return common.ErrUpstreamStorage.Error()
	case status >= http.StatusInternalServerError:
		return common.ErrInternal.Error()
	default:
		return err.Error()
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err, status)})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
