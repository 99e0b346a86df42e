package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/apperr"
)

// respondError writes the status for err's kind. Validation failures expose
// their detail; anything unclassified reports fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	message := fallback
	switch kind := apperr.Kind(err); {
	case errors.Is(kind, apperr.ErrInvalidInput):
		message = err.Error()
	case kind != nil:
		message = kind.Error()
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}

func paramID(c *gin.Context, name, label string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label})
		return 0, false
	}
	return id, true
}

func paramMessageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}
