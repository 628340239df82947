// routes.go - Router-Konfiguration
// Enthaelt: GenerateRoutes() mit CORS und Host-Pruefung

package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sketch2face/sketch2face/envconfig"
	"github.com/sketch2face/sketch2face/version"
)

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.HandleMethodNotAllowed = true
	r.MaxMultipartMemory = s.opts.MaxUploadSize
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.opts.Addr),
	)

	// Oberflaeche
	r.HEAD("/", s.IndexHandler)
	r.GET("/", s.IndexHandler)

	// Uebersetzung
	r.POST("/upload", s.UploadHandler)
	r.GET("/download/:filename", s.DownloadHandler)

	// Status
	r.GET("/health", s.HealthHandler)
	r.GET("/api/generations", s.GenerationsHandler)
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	return r
}
