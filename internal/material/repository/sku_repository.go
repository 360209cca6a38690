package repository

import (
	"context"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"gorm.io/gorm"
)

type SKURepository struct {
	db *gorm.DB
}

func NewSKURepository(db *gorm.DB) *SKURepository {
	return &SKURepository{db: db}
}

func (r *SKURepository) Create(ctx context.Context, sku *entity.MaterialSKU) error {
	return translateError(r.db.WithContext(ctx).Create(sku).Error)
}

func (r *SKURepository) FindByID(ctx context.Context, skuID string) (*entity.MaterialSKU, error) {
	var sku entity.MaterialSKU
	if err := r.db.WithContext(ctx).First(&sku, "sku_id = ?", skuID).Error; err != nil {
		return nil, translateError(err)
	}
	return &sku, nil
}

func (r *SKURepository) ListByDocument(ctx context.Context, documentID string) ([]entity.MaterialSKU, error) {
	var skus []entity.MaterialSKU
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, sku_id ASC").
		Find(&skus).Error
	if err != nil {
		return nil, translateError(err)
	}
	return skus, nil
}

// LastID SKU编号序列
func (r *SKURepository) LastID(ctx context.Context, prefix string) (string, error) {
	return lastID(ctx, r.db, &entity.MaterialSKU{}, "sku_id", prefix)
}
