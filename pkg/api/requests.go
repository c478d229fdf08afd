package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emotionsim/emotionsim/pkg/store"
)

// CreateRunRequest is the body for POST /api/runs.
type CreateRunRequest struct {
	ScenarioID string `json:"scenario_id" binding:"required"`
	Seed       *int64 `json:"seed"`
	MaxSteps   *int   `json:"max_steps"`
}

// ControlRunRequest is the body for POST /api/runs/:id/control.
type ControlRunRequest struct {
	Action string `json:"action" binding:"required"`
}

// parsePage reads limit/offset query parameters. Invalid values fall back
// to the defaults the store applies.
func parsePage(c *gin.Context) store.Page {
	var page store.Page
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page.Offset = n
		}
	}
	return page
}
