// Package handlers contains the gin handlers behind the
// reconciliation API.
package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo   storage.Repository
	scope  string
	logger *slog.Logger
}

// NewBase creates a new base handler for one merchant scope.
func NewBase(repo storage.Repository, scope string, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{repo: repo, scope: scope, logger: logger}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
