package handler

import (
	"io"
	"path"
	"strconv"

	"github.com/ggjyx4/master-material-Glendon/internal/material/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MediaHandler 物料图片与吊牌文件
type MediaHandler struct {
	svc    *service.MediaService
	logger *zap.Logger
}

func NewMediaHandler(svc *service.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, logger: logger}
}

// Upload POST /materials/:id/media (multipart: file, kind)
func (h *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	kind := c.DefaultPostForm("kind", service.MediaKindPicture)

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "read upload: "+err.Error())
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := h.svc.Upload(c.Request.Context(), c.Param("id"), kind, file, fileHeader.Filename, fileHeader.Size, contentType)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	Created(c, obj)
}

// Download GET /media/*key
func (h *MediaHandler) Download(c *gin.Context) {
	reader, info, err := h.svc.Download(c.Request.Context(), c.Param("key"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "inline; filename="+path.Base(info.Key))
	c.Header("Content-Type", info.ContentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))

	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Warn("Media stream interrupted", zap.String("key", info.Key), zap.Error(err))
	}
}
