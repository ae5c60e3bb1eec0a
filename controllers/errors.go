package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"maternar/services"
)

var kindStatus = map[services.Kind]int{
	services.KindInternal:        http.StatusInternalServerError,
	services.KindValidation:      http.StatusBadRequest,
	services.KindUnauthenticated: http.StatusUnauthorized,
	services.KindForbidden:       http.StatusForbidden,
	services.KindNotFound:        http.StatusNotFound,
	services.KindRateLimited:     http.StatusTooManyRequests,
}

// respondError writes {"error": msg} with the status matching err's kind.
// Validation errors also carry their field list.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	kind, msg := services.Classify(err)
	if kind == services.KindInternal {
		logger.Error("request failed", "op", op, "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": msg}
	var verr *services.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	c.JSON(kindStatus[kind], body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
