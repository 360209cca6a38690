package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialSKU 物料SKU（颜色/尺寸变体），挂在主档上，不做版本管理
type MaterialSKU struct {
	SKUID        string          `json:"sku_id" gorm:"column:sku_id;primaryKey;size:32"`
	DocumentID   string          `json:"document_id" gorm:"size:32;not null;index"`
	RefID        *string         `json:"ref_id,omitempty" gorm:"size:64"`
	QRData       *string         `json:"qr_data,omitempty" gorm:"column:qr_data;size:512"`
	Color        *string         `json:"color,omitempty" gorm:"size:64"`
	Size         *string         `json:"size,omitempty" gorm:"size:32"`
	CostOverride decimal.Decimal `json:"cost_override" gorm:"type:numeric(18,4);not null;default:0"`
	CreatedBy    string          `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (MaterialSKU) TableName() string {
	return "material_skus"
}
