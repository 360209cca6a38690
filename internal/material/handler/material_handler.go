package handler

import (
	"strconv"

	"github.com/ggjyx4/master-material-Glendon/internal/material/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaterialHandler 物料文档处理器
type MaterialHandler struct {
	lifecycle *service.LifecycleService
	review    *service.ReviewService
	detail    *service.DetailService
	logger    *zap.Logger
}

func NewMaterialHandler(lifecycle *service.LifecycleService, review *service.ReviewService, detail *service.DetailService, logger *zap.Logger) *MaterialHandler {
	return &MaterialHandler{
		lifecycle: lifecycle,
		review:    review,
		detail:    detail,
		logger:    logger,
	}
}

// CreateMaterialRequest 创建物料请求
type CreateMaterialRequest struct {
	service.MaterialInput
	ImmediateSubmit bool `json:"immediate_submit"`
}

// SubmitVersionRequest 提交草稿请求
type SubmitVersionRequest struct {
	FinalUpdates service.MaterialInput `json:"final_updates"`
}

// ReviseRequest 修订请求
type ReviseRequest struct {
	Updates           service.MaterialInput `json:"updates"`
	ChangeDescription string                `json:"change_description"`
}

// Create 创建物料
// POST /materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var req CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.create(c, req.MaterialInput, req.ImmediateSubmit)
}

// CreateAndSubmit 创建并直接提交
// POST /materials/submit
func (h *MaterialHandler) CreateAndSubmit(c *gin.Context) {
	var req service.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.create(c, req, true)
}

func (h *MaterialHandler) create(c *gin.Context, in service.MaterialInput, immediateSubmit bool) {
	result, err := h.lifecycle.Create(c.Request.Context(), currentActor(c), in, immediateSubmit)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Created(c, result)
}

// UpdateDraft 修改草稿
// PUT /materials/:id/draft
func (h *MaterialHandler) UpdateDraft(c *gin.Context) {
	var req service.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.lifecycle.UpdateDraft(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, result)
}

// Submit 提交草稿
// POST /materials/:id/submit
func (h *MaterialHandler) Submit(c *gin.Context) {
	var req SubmitVersionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.lifecycle.SubmitVersion(c.Request.Context(), currentActor(c), c.Param("id"), req.FinalUpdates)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, result)
}

// Revise 基于已审核版本修订
// POST /materials/:id/revise
func (h *MaterialHandler) Revise(c *gin.Context) {
	var req ReviseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.lifecycle.ReviseVerified(c.Request.Context(), currentActor(c), c.Param("id"), req.Updates, req.ChangeDescription)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Created(c, result)
}

// Verify 审核通过
// POST /materials/:id/verify
func (h *MaterialHandler) Verify(c *gin.Context) {
	result, err := h.review.Verify(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, result)
}

// Dashboard GET /materials/:id
func (h *MaterialHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.detail.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, dashboard)
}

// Technical GET /materials/:id/technical
func (h *MaterialHandler) Technical(c *gin.Context) {
	detail, err := h.detail.Technical(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, detail)
}

// Cost GET /materials/:id/cost
func (h *MaterialHandler) Cost(c *gin.Context) {
	detail, err := h.detail.Cost(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, detail)
}

// Full GET /materials/:id/full
func (h *MaterialHandler) Full(c *gin.Context) {
	full, err := h.detail.Full(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, full)
}

// History GET /materials/:id/history
func (h *MaterialHandler) History(c *gin.Context) {
	items, err := h.detail.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Activity GET /materials/:id/activity
func (h *MaterialHandler) Activity(c *gin.Context) {
	items, err := h.detail.Activity(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Version GET /materials/:id/versions/:version
func (h *MaterialHandler) Version(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		BadRequest(c, "version must be an integer")
		return
	}
	v, err := h.detail.Version(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Success(c, v)
}
