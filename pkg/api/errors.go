package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotionsim/emotionsim/pkg/store"
)

// respondError maps store and manager errors to HTTP responses.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case store.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.Is(err, store.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "resource already exists"})
	default:
		s.logger.Error("unexpected API error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
