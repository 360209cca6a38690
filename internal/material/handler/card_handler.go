package handler

import (
	"github.com/ggjyx4/master-material-Glendon/internal/material/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CardHandler 物料卡片列表
type CardHandler struct {
	svc    *service.CardService
	logger *zap.Logger
}

func NewCardHandler(svc *service.CardService, logger *zap.Logger) *CardHandler {
	return &CardHandler{svc: svc, logger: logger}
}

// List GET /material-cards?status=Draft&status=Submitted - Verified
func (h *CardHandler) List(c *gin.Context) {
	cards, err := h.svc.List(c.Request.Context(), c.QueryArray("status"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, gin.H{"items": cards, "total": len(cards)})
}

// Export GET /material-cards/export
func (h *CardHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context(), c.QueryArray("status"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Write card export failed", zap.Error(err))
	}
}
