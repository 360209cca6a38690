package handler

import (
	"github.com/ggjyx4/master-material-Glendon/internal/material/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SKUHandler struct {
	svc    *service.SKUService
	logger *zap.Logger
}

func NewSKUHandler(svc *service.SKUService, logger *zap.Logger) *SKUHandler {
	return &SKUHandler{svc: svc, logger: logger}
}

// List GET /materials/:id/skus
func (h *SKUHandler) List(c *gin.Context) {
	skus, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, gin.H{"items": skus})
}

// Get GET /skus/:sku_id
func (h *SKUHandler) Get(c *gin.Context) {
	sku, err := h.svc.Get(c.Request.Context(), c.Param("sku_id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, sku)
}

// Create POST /materials/:id/skus
func (h *SKUHandler) Create(c *gin.Context) {
	var input service.CreateSKUInput
	if err := bindOptionalJSON(c, &input); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sku, err := h.svc.Create(c.Request.Context(), currentActor(c), c.Param("id"), input)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Created(c, sku)
}
