package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotionsim/emotionsim/pkg/sim"
	"github.com/emotionsim/emotionsim/pkg/store"
)

// createRunHandler handles POST /api/runs.
func (s *Server) createRunHandler(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := s.manager.CreateRun(c.Request.Context(), req.ScenarioID, req.Seed, req.MaxSteps)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

// controlRunHandler handles POST /api/runs/:id/control.
func (s *Server) controlRunHandler(c *gin.Context) {
	var req ControlRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := c.Param("id")
	if err := s.manager.Control(c.Request.Context(), runID, sim.ControlAction(req.Action)); err != nil {
		s.respondError(c, err)
		return
	}

	status, err := s.manager.RunStatus(runID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// getRunHandler handles GET /api/runs/:id. Live runs are served from the
// engine snapshot, finished ones from the store.
func (s *Server) getRunHandler(c *gin.Context) {
	run, err := s.manager.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// listRunsHandler handles GET /api/runs.
func (s *Server) listRunsHandler(c *gin.Context) {
	page := parsePage(c)
	runs, err := s.store.ListRuns(c.Request.Context(), store.RunFilter{
		ScenarioID: c.Query("scenario_id"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// listRunAgentsHandler handles GET /api/runs/:id/agents.
func (s *Server) listRunAgentsHandler(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.manager.GetRun(c.Request.Context(), runID); err != nil {
		s.respondError(c, err)
		return
	}
	agents, err := s.manager.AgentStates(c.Request.Context(), runID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// listRunStepsHandler handles GET /api/runs/:id/steps.
func (s *Server) listRunStepsHandler(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.manager.GetRun(c.Request.Context(), runID); err != nil {
		s.respondError(c, err)
		return
	}
	steps, err := s.store.ListSteps(c.Request.Context(), runID, parsePage(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

// listRunMessagesHandler handles GET /api/runs/:id/messages.
func (s *Server) listRunMessagesHandler(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.manager.GetRun(c.Request.Context(), runID); err != nil {
		s.respondError(c, err)
		return
	}
	page := parsePage(c)
	msgs, err := s.store.ListMessages(c.Request.Context(), runID, store.MessageFilter{
		AgentID: c.Query("agent_id"),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
