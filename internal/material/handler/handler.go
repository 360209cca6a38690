package handler

import (
	"errors"
	"io"

	"github.com/ggjyx4/master-material-Glendon/internal/material/events"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/ggjyx4/master-material-Glendon/internal/material/service"
	"github.com/ggjyx4/master-material-Glendon/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Material *MaterialHandler
	Card     *CardHandler
	SKU      *SKUHandler
	Media    *MediaHandler
	Events   *EventsHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *events.Hub, logger *zap.Logger) *Handlers {
	return &Handlers{
		Material: NewMaterialHandler(svc.Lifecycle, svc.Review, svc.Detail, logger),
		Card:     NewCardHandler(svc.Card, logger),
		SKU:      NewSKUHandler(svc.SKU, logger),
		Media:    NewMediaHandler(svc.Media, logger),
		Events:   NewEventsHandler(hub, logger),
	}
}

// RegisterRoutes 注册物料路由，api 需已挂载 JWT 认证
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, reviewerRoles []string) {
	materials := api.Group("/materials")
	{
		materials.POST("", h.Material.Create)
		materials.POST("/submit", h.Material.CreateAndSubmit)
		materials.GET("/:id", h.Material.Dashboard)
		materials.GET("/:id/technical", h.Material.Technical)
		materials.GET("/:id/cost", h.Material.Cost)
		materials.GET("/:id/full", h.Material.Full)
		materials.GET("/:id/history", h.Material.History)
		materials.GET("/:id/activity", h.Material.Activity)
		materials.GET("/:id/versions/:version", h.Material.Version)
		materials.PUT("/:id/draft", h.Material.UpdateDraft)
		materials.POST("/:id/submit", h.Material.Submit)
		materials.POST("/:id/revise", h.Material.Revise)
		materials.POST("/:id/verify", middleware.RequireAnyRole(reviewerRoles...), h.Material.Verify)

		materials.GET("/:id/skus", h.SKU.List)
		materials.POST("/:id/skus", h.SKU.Create)

		materials.POST("/:id/media", h.Media.Upload)
	}

	api.GET("/material-cards", h.Card.List)
	api.GET("/material-cards/export", h.Card.Export)
	api.GET("/skus/:sku_id", h.SKU.Get)
	api.GET("/media/*key", h.Media.Download)
	api.GET("/events", h.Events.Stream)
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带详情的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 并发冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceUnavailable 存储不可用响应
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// handleServiceError 将服务层错误映射为响应码
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorWithData(c, 40001, verr.Error(), verr)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, repository.ErrInvalidTransition):
		Error(c, 40002, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrStaleVersion),
		errors.Is(err, repository.ErrConstraintViolation):
		Conflict(c, err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable), errors.Is(err, service.ErrStorageNotConfigured):
		logger.Error("Storage unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		ServiceUnavailable(c, err.Error())
	default:
		logger.Error("Unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// currentActor 由 JWT 中间件写入的身份构造 Actor
func currentActor(c *gin.Context) service.Actor {
	actor := service.Actor{
		ID:   GetUserID(c),
		Name: c.GetString("user_name"),
	}
	if roles, ok := c.Get("roles"); ok {
		actor.Roles, _ = roles.([]string)
	}
	return actor
}

// bindOptionalJSON 空请求体视为空对象
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
