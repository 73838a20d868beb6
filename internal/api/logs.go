package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultLogLines = 100

// LogSource is the on-disk log the /logs endpoints read
type LogSource interface {
	Path() string
	Recent(lines int) (string, error)
	Clear() error
}

// SetLogSource enables the /logs endpoints. Call before Start.
func (s *Server) SetLogSource(logs LogSource) {
	s.logs = logs
}

func (s *Server) logsEnabled(c *gin.Context) bool {
	if s.logs == nil || s.logs.Path() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "file logging is disabled"})
		return false
	}
	return true
}

func (s *Server) handleRecentLogs(c *gin.Context) {
	if !s.logsEnabled(c) {
		return
	}

	lines := defaultLogLines
	if val := c.Query("lines"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed <= 0 {
			badRequest(c, "lines must be a positive integer")
			return
		}
		lines = parsed
	}

	content, err := s.logs.Recent(lines)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": s.logs.Path(), "content": content})
}

func (s *Server) handleLogPath(c *gin.Context) {
	if !s.logsEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": s.logs.Path()})
}

func (s *Server) handleClearLogs(c *gin.Context) {
	if !s.logsEnabled(c) {
		return
	}
	if err := s.logs.Clear(); err != nil {
		s.writeError(c, err)
		return
	}
	s.log.Info("log file cleared")
	c.JSON(http.StatusOK, gin.H{"message": "logs cleared"})
}
