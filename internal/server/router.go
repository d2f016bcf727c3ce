package server

import (
	"vuln-tracker/internal/config"
	"vuln-tracker/internal/handlers"
	"vuln-tracker/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	cc.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	return cc
}

func NewRouter(cfg *config.Config, h *handlers.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	api := r.Group("/api")

	// УЯЗВИМОСТИ
	api.GET("/vulnerabilities", h.ListVulnerabilities)
	api.POST("/vulnerabilities", h.CreateVulnerability)
	api.GET("/vulnerabilities/:id", h.GetVulnerability)
	api.PUT("/vulnerabilities/:id", h.UpdateVulnerability)
	api.DELETE("/vulnerabilities/:id", h.DeleteVulnerability)
	api.GET("/vulnerabilities/:id/incidents", h.ListVulnerabilityIncidents)

	// ИНЦИДЕНТЫ
	api.GET("/incidents", h.ListIncidents)
	api.POST("/incidents", h.CreateIncident)
	api.GET("/incidents/:id", h.GetIncident)
	api.PUT("/incidents/:id", h.UpdateIncident)
	api.DELETE("/incidents/:id", h.DeleteIncident)

	// СТАТИСТИКА
	api.GET("/stats/vulnerabilities", h.VulnerabilityStats)

	// HEALTHCHECK
	r.GET("/health", h.Health)

	return r
}
