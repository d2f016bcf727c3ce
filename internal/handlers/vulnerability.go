package handlers

import (
	"fmt"
	"net/http"

	"vuln-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

// СПИСОК УЯЗВИМОСТЕЙ + фильтры ?severity=&status=&system=

func (h *Handler) ListVulnerabilities(c *gin.Context) {
	vulns, err := h.svc.ListVulnerabilities(c.Request.Context(), models.VulnerabilityFilter{
		Severity: c.Query("severity"),
		Status:   c.Query("status"),
		System:   c.Query("system"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vulns)
}

func (h *Handler) GetVulnerability(c *gin.Context) {
	v, err := h.svc.GetVulnerability(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) CreateVulnerability(c *gin.Context) {
	var p models.VulnerabilityCreate
	if !h.bind(c, &p) {
		return
	}
	v, err := h.svc.CreateVulnerability(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) UpdateVulnerability(c *gin.Context) {
	var p models.VulnerabilityPatch
	if !h.bind(c, &p) {
		return
	}
	v, err := h.svc.UpdateVulnerability(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVulnerability(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteVulnerability(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("vulnerability %s deleted", id)})
}

// инциденты конкретной уязвимости
func (h *Handler) ListVulnerabilityIncidents(c *gin.Context) {
	incidents, err := h.svc.ListVulnerabilityIncidents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}
