package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emotionsim/emotionsim/pkg/models"
	"github.com/emotionsim/emotionsim/pkg/sim"
)

// createScenarioHandler handles POST /api/scenarios.
func (s *Server) createScenarioHandler(c *gin.Context) {
	var scenario models.Scenario
	if err := c.ShouldBindJSON(&scenario); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if scenario.ID == "" {
		scenario.ID = uuid.New().String()
	}
	scenario.CreatedAt = time.Now().UTC()

	if err := sim.ValidateScenario(&scenario); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.CreateScenario(c.Request.Context(), &scenario); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &scenario)
}

// listScenariosHandler handles GET /api/scenarios.
func (s *Server) listScenariosHandler(c *gin.Context) {
	scenarios, err := s.store.ListScenarios(c.Request.Context(), parsePage(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
}

// getScenarioHandler handles GET /api/scenarios/:id.
func (s *Server) getScenarioHandler(c *gin.Context) {
	scenario, err := s.store.GetScenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scenario)
}
