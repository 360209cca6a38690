package repository

import (
	"context"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"gorm.io/gorm"
)

// VersionRepository 版本台账，只追加；仅 Draft 状态允许原地修改
type VersionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Append 插入新版本，(document_id, version_number) 或 version_uid 冲突时返回 ErrConstraintViolation
func (r *VersionRepository) Append(ctx context.Context, v *entity.MaterialVersion) error {
	return translateError(r.db.WithContext(ctx).Create(v).Error)
}

func (r *VersionRepository) Get(ctx context.Context, documentID string, number int) (*entity.MaterialVersion, error) {
	var v entity.MaterialVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND version_number = ?", documentID, number).
		First(&v).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

func (r *VersionRepository) GetByUID(ctx context.Context, versionUID string) (*entity.MaterialVersion, error) {
	var v entity.MaterialVersion
	if err := r.db.WithContext(ctx).First(&v, "version_uid = ?", versionUID).Error; err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

// GetLatest 返回版本号最大的版本
func (r *VersionRepository) GetLatest(ctx context.Context, documentID string) (*entity.MaterialVersion, error) {
	var v entity.MaterialVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number DESC").
		First(&v).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

// List 按版本号升序
func (r *VersionRepository) List(ctx context.Context, documentID string) ([]entity.MaterialVersion, error) {
	var versions []entity.MaterialVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number ASC").
		Find(&versions).Error
	if err != nil {
		return nil, translateError(err)
	}
	return versions, nil
}

// SaveDraft 覆盖草稿的业务字段与变更说明
func (r *VersionRepository) SaveDraft(ctx context.Context, v *entity.MaterialVersion) error {
	v.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.MaterialVersion{}).
		Where("version_uid = ? AND status = ?", v.VersionUID, entity.StatusDraft).
		Select("*").
		Omit("version_uid", "document_id", "version_number", "status", "human_readable_id",
			"created_by", "created_at", "submitted_by", "submitted_at", "verified_by", "verified_at").
		Updates(v)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkSubmitted Draft → Submitted - Unverified
func (r *VersionRepository) MarkSubmitted(ctx context.Context, v *entity.MaterialVersion, at time.Time, by string) error {
	if err := r.transition(ctx, v, entity.StatusDraft, map[string]interface{}{
		"status":       entity.StatusSubmittedUnverified,
		"submitted_at": at,
		"submitted_by": by,
	}); err != nil {
		return err
	}
	v.Status = entity.StatusSubmittedUnverified
	v.SubmittedAt = &at
	v.SubmittedBy = by
	return nil
}

// MarkVerified Submitted - Unverified → Submitted - Verified
func (r *VersionRepository) MarkVerified(ctx context.Context, v *entity.MaterialVersion, at time.Time, by string) error {
	if err := r.transition(ctx, v, entity.StatusSubmittedUnverified, map[string]interface{}{
		"status":      entity.StatusSubmittedVerified,
		"verified_at": at,
		"verified_by": by,
	}); err != nil {
		return err
	}
	v.Status = entity.StatusSubmittedVerified
	v.VerifiedAt = &at
	v.VerifiedBy = by
	return nil
}

func (r *VersionRepository) transition(ctx context.Context, v *entity.MaterialVersion, from string, values map[string]interface{}) error {
	values["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.MaterialVersion{}).
		Where("version_uid = ? AND status = ?", v.VersionUID, from).
		Updates(values)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrInvalidTransition
	}
	return nil
}

// LastHumanReadableID 人类可读编号序列
func (r *VersionRepository) LastHumanReadableID(ctx context.Context, prefix string) (string, error) {
	return lastID(ctx, r.db, &entity.MaterialVersion{}, "human_readable_id", prefix)
}

// HumanReadableIDTaken 编号是否已被其他文档使用
func (r *VersionRepository) HumanReadableIDTaken(ctx context.Context, humanReadableID, documentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.MaterialVersion{}).
		Where("human_readable_id = ? AND document_id <> ?", humanReadableID, documentID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}
