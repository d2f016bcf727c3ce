package handlers

import (
	"net/http"

	"vuln-tracker/internal/apperr"
	"vuln-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler: REST-обработчики поверх service.Service.
type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func New(svc *service.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "internal storage error",
			"detail": err.Error(),
		})
	}
}

// bind разбирает JSON-тело; ошибки разбора считаются ошибками валидации.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, apperr.Malformed(err))
		return false
	}
	return true
}
