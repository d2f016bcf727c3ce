package handlers

import (
	"fmt"
	"net/http"

	"vuln-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListIncidents(c *gin.Context) {
	incidents, err := h.svc.ListIncidents(c.Request.Context(), models.IncidentFilter{
		VulnerabilityID: c.Query("vulnerabilityId"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

func (h *Handler) GetIncident(c *gin.Context) {
	inc, err := h.svc.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

// id и createdAt из тела игнорируются, их выдаёт сервер
func (h *Handler) CreateIncident(c *gin.Context) {
	var p models.IncidentCreate
	if !h.bind(c, &p) {
		return
	}
	inc, err := h.svc.CreateIncident(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inc)
}

func (h *Handler) UpdateIncident(c *gin.Context) {
	var p models.IncidentPatch
	if !h.bind(c, &p) {
		return
	}
	inc, err := h.svc.UpdateIncident(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (h *Handler) DeleteIncident(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteIncident(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("incident %s deleted", id)})
}
