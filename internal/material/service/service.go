package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/events"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/ggjyx4/master-material-Glendon/internal/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 业务错误
var (
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// ValidationError 字段缺失或取值非法，未发生任何写入
type ValidationError struct {
	Missing []string          `json:"missing_fields,omitempty"`
	Invalid map[string]string `json:"invalid_fields,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		keys := make([]string, 0, len(e.Invalid))
		for k := range e.Invalid {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		invalid := make([]string, 0, len(keys))
		for _, k := range keys {
			invalid = append(invalid, k+" "+e.Invalid[k])
		}
		parts = append(parts, "invalid fields: "+strings.Join(invalid, "; "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Actor 调用方身份，所有写操作显式传入
type Actor struct {
	ID    string
	Name  string
	Roles []string
}

func (a Actor) validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return &ValidationError{Missing: []string{"actor"}}
	}
	return nil
}

// Services 服务集合
type Services struct {
	Lifecycle *LifecycleService
	Review    *ReviewService
	Detail    *DetailService
	Card      *CardService
	SKU       *SKUService
	Media     *MediaService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, hub *events.Hub, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO client init failed, media storage disabled", zap.Error(err))
			minioClient = nil
		}
	}

	cache := NewCardCache(rdb, cfg.Material.CardCacheTTL, logger)

	lifecycle := NewLifecycleService(repos, cfg.Material, cache, logger)
	lifecycle.SetEventHub(hub)
	review := NewReviewService(repos, cfg.Material, cache, logger)
	review.SetEventHub(hub)

	return &Services{
		Lifecycle: lifecycle,
		Review:    review,
		Detail:    NewDetailService(repos),
		Card:      NewCardService(repos, cache),
		SKU:       NewSKUService(repos, cfg.Material, logger),
		Media:     NewMediaService(repos, minioClient, cfg.MinIO.Bucket, logger),
	}
}

func changeOf(v *entity.MaterialVersion, action, by string, at time.Time) events.MaterialChange {
	return events.MaterialChange{
		DocumentID:      v.DocumentID,
		HumanReadableID: v.HumanReadableID,
		VersionNumber:   v.VersionNumber,
		Status:          v.Status,
		Action:          action,
		By:              by,
		At:              at,
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, repository.ErrConstraintViolation) || errors.Is(err, repository.ErrStaleVersion)
}

// retryOnConflict 冲突时重新生成编号并重试，次数用尽返回 ErrConflict
func retryOnConflict(ctx context.Context, cfg config.MaterialConfig, logger *zap.Logger, op string, fn func() error) error {
	maxAttempts := cfg.MaxIDAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	attempts := 0
	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempts < maxAttempts {
			metrics.IDConflictRetriesTotal.WithLabelValues(op).Inc()
			logger.Warn("Write conflict, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryInterval), uint64(maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(operation, policy)
	if err != nil && isRetryable(err) {
		return fmt.Errorf("%w: %s gave up after %d attempts: %v", ErrConflict, op, attempts, err)
	}
	return err
}

// stateError 将仓库层状态迁移失败转换为业务错误
func stateError(err error) error {
	if errors.Is(err, repository.ErrInvalidTransition) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return err
}
