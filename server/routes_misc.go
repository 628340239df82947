// routes_misc.go - Oberflaeche, Health und Verlauf
// Enthaelt: IndexHandler, HealthHandler, GenerationsHandler

package server

import (
	_ "embed"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sketch2face/sketch2face/store"
)

//go:embed index.html
var indexHTML []byte

// defaultHistoryLimit fuer /api/generations ohne limit
const defaultHistoryLimit = 20

// IndexHandler liefert die Upload-Seite aus.
func (s *Server) IndexHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// HealthHandler meldet den Zustand des Servers.
func (s *Server) HealthHandler(c *gin.Context) {
	resp := gin.H{
		"status":       "healthy",
		"model_loaded": s.gen != nil,
		"device":       "cpu",
		"parameters":   s.gen.NumParams(),
	}

	if cp := s.opts.Checkpoint; cp != nil {
		sd, conv := cp.StateDict()
		resp["checkpoint"] = gin.H{
			"path":       cp.Path(),
			"format":     cp.Format(),
			"convention": conv,
			"tensors":    sd.Len(),
			"metadata":   cp.Metadata(),
		}
	}

	if h := s.opts.History; h != nil {
		if n, err := h.Count(c.Request.Context()); err == nil {
			resp["generations"] = n
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GenerationsHandler gibt die letzten Generierungen zurueck (?limit=N).
func (s *Server) GenerationsHandler(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	generations := []store.Generation{}
	if h := s.opts.History; h != nil {
		list, err := h.List(c.Request.Context(), limit)
		if err != nil {
			abortWithError(c, err)
			return
		}
		generations = list
	}

	c.JSON(http.StatusOK, gin.H{"generations": generations})
}
