package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// 媒体类型
const (
	MediaKindPicture   = "picture"
	MediaKindHangerPDF = "hanger_pdf"
	MediaKindQR        = "qr"
)

const mediaKeyPrefix = "materials/"

// MediaObject 已上传的媒体文件，MediaID 写入 picture_id / hanger_pdf_id / qr_id
type MediaObject struct {
	MediaID     string `json:"media_id"`
	Kind        string `json:"kind"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// MediaService 物料图片、吊牌PDF等文件存储
type MediaService struct {
	repos       *repository.Repositories
	minioClient *minio.Client
	bucketName  string
	logger      *zap.Logger
}

func NewMediaService(repos *repository.Repositories, minioClient *minio.Client, bucketName string, logger *zap.Logger) *MediaService {
	return &MediaService{
		repos:       repos,
		minioClient: minioClient,
		bucketName:  bucketName,
		logger:      logger,
	}
}

func validMediaKind(kind string) bool {
	switch kind {
	case MediaKindPicture, MediaKindHangerPDF, MediaKindQR:
		return true
	}
	return false
}

// Upload 上传文件
func (s *MediaService) Upload(ctx context.Context, documentID, kind string, reader io.Reader, fileName string, fileSize int64, contentType string) (*MediaObject, error) {
	if !validMediaKind(kind) {
		return nil, &ValidationError{Invalid: map[string]string{"kind": "must be one of picture, hanger_pdf, qr"}}
	}
	exists, err := s.repos.Master.Exists(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("material %s: %w", documentID, repository.ErrNotFound)
	}
	if s.minioClient == nil {
		return nil, fmt.Errorf("upload media: %w", ErrStorageNotConfigured)
	}

	objectName := fmt.Sprintf("%s%s/%s/%s%s", mediaKeyPrefix, documentID, kind, uuid.New().String()[:8], strings.ToLower(filepath.Ext(fileName)))
	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	s.logger.Info("Material media uploaded",
		zap.String("document_id", documentID),
		zap.String("kind", kind),
		zap.String("object", objectName),
	)
	return &MediaObject{
		MediaID:     objectName,
		Kind:        kind,
		FileName:    fileName,
		Size:        fileSize,
		ContentType: contentType,
	}, nil
}

// Download 读取文件，调用方负责关闭
func (s *MediaService) Download(ctx context.Context, key string) (io.ReadCloser, *minio.ObjectInfo, error) {
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, mediaKeyPrefix) || strings.Contains(key, "..") {
		return nil, nil, fmt.Errorf("media %s: %w", key, repository.ErrNotFound)
	}
	if s.minioClient == nil {
		return nil, nil, fmt.Errorf("download media: %w", ErrStorageNotConfigured)
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}
	info, err := object.Stat()
	if err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, fmt.Errorf("media %s: %w", key, repository.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("stat object: %w", err)
	}
	return object, &info, nil
}
