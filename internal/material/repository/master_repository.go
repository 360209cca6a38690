package repository

import (
	"context"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

func (r *MasterRepository) Create(ctx context.Context, m *entity.MasterMaterial) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error)
}

func (r *MasterRepository) FindByID(ctx context.Context, documentID string) (*entity.MasterMaterial, error) {
	var m entity.MasterMaterial
	if err := r.db.WithContext(ctx).First(&m, "document_id = ?", documentID).Error; err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// FindForUpdate 行锁读取主档，SQLite 下锁子句被忽略
func (r *MasterRepository) FindForUpdate(ctx context.Context, documentID string) (*entity.MasterMaterial, error) {
	var m entity.MasterMaterial
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "document_id = ?", documentID).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

func (r *MasterRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MasterMaterial{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Save 写回指针、历史与审计字段。
// 仅当库中 current_version_number 仍等于 expected 时生效，否则返回 ErrStaleVersion。
func (r *MasterRepository) Save(ctx context.Context, m *entity.MasterMaterial, expected int) error {
	m.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.MasterMaterial{}).
		Where("document_id = ? AND current_version_number = ?", m.DocumentID, expected).
		Updates(map[string]interface{}{
			"current_version_number": m.CurrentVersionNumber,
			"current_version_uid":    m.CurrentVersionUID,
			"version_history":        m.VersionHistory,
			"submitted_by":           m.SubmittedBy,
			"submitted_at":           m.SubmittedAt,
			"last_verified_by":       m.LastVerifiedBy,
			"last_verified_at":       m.LastVerifiedAt,
			"updated_at":             m.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrStaleVersion
	}
	return nil
}

// LastID 文档编号序列
func (r *MasterRepository) LastID(ctx context.Context, prefix string) (string, error) {
	return lastID(ctx, r.db, &entity.MasterMaterial{}, "document_id", prefix)
}

// ListCurrent 主档关联当前版本，按创建时间倒序
func (r *MasterRepository) ListCurrent(ctx context.Context, statuses []string) ([]entity.MaterialVersion, error) {
	var versions []entity.MaterialVersion
	err := r.db.WithContext(ctx).
		Model(&entity.MaterialVersion{}).
		Select("material_versions.*").
		Joins("JOIN master_materials ON master_materials.current_version_uid = material_versions.version_uid").
		Where("material_versions.status IN ?", statuses).
		Order("master_materials.created_at DESC, master_materials.document_id DESC").
		Find(&versions).Error
	if err != nil {
		return nil, translateError(err)
	}
	return versions, nil
}
