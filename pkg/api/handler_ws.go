package api

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// runEventsHandler handles GET /api/runs/:id/ws. Upgrades the connection and
// delegates to the ConnectionManager; blocks until the client disconnects.
func (s *Server) runEventsHandler(c *gin.Context) {
	runID := c.Param("id")
	if _, err := s.manager.GetRun(c.Request.Context(), runID); err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// Origin validation is left to the deployment's reverse proxy.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "run_id", runID, "error", err)
		return
	}

	s.connManager.HandleConnection(c.Request.Context(), conn, runID)
}
