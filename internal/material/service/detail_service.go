package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/shopspring/decimal"
)

// MaterialDashboard 当前版本概览
type MaterialDashboard struct {
	DocumentID          string           `json:"document_id"`
	VersionNumber       int              `json:"version_number"`
	HumanReadableID     string           `json:"human_readable_id"`
	MaterialName        string           `json:"material_name"`
	RefID               string           `json:"ref_id"`
	MaterialType        string           `json:"material_type"`
	SupplierName        string           `json:"supplier_name"`
	CountryOfOrigin     string           `json:"country_of_origin"`
	PictureID           string           `json:"picture_id"`
	FabricComposition   string           `json:"fabric_composition"`
	WeightPerUnit       *float64         `json:"weight_per_unit"`
	FabricRollWidth     *float64         `json:"fabric_roll_width"`
	FabricCutWidth      *float64         `json:"fabric_cut_width"`
	OriginalCostPerUnit *decimal.Decimal `json:"original_cost_per_unit"`
	CostDisplay         string           `json:"cost_display"`
	UnitOfMeasurement   string           `json:"unit_of_measurement"`
	VerificationStatus  string           `json:"verification_status"`
	CreatedBy           string           `json:"created_by"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	SubmittedAt         *time.Time       `json:"submitted_at"`
	LastVerifiedAt      *time.Time       `json:"last_verified_at"`
}

// TechnicalDetail 技术规格
type TechnicalDetail struct {
	FabricComposition          string   `json:"fabric_composition"`
	GenericMaterialComposition *string  `json:"generic_material_composition"`
	UnitOfMeasurement          *string  `json:"unit_of_measurement"`
	FabricRollWidth            *float64 `json:"fabric_roll_width"`
	FabricCutWidth             *float64 `json:"fabric_cut_width"`
	FabricCutWidthNoShrinkage  *float64 `json:"fabric_cut_width_no_shrinkage"`
	WeightPerUnit              *float64 `json:"weight_per_unit"`
	WeightUOM                  *string  `json:"weight_uom"`
	GenericMaterialSize        *string  `json:"generic_material_size"`
	WeftShrinkage              *float64 `json:"weft_shrinkage"`
	WarpShrinkage              *float64 `json:"warp_shrinkage"`
	EstimatedLogisticsLeadTime *int     `json:"estimated_logistics_lead_time"`
}

// CostDetail 成本明细
type CostDetail struct {
	OriginalCostPerUnit  *decimal.Decimal `json:"original_cost_per_unit"`
	Currency             *string          `json:"currency"`
	CostDisplay          string           `json:"cost_display"`
	SupplierTolerance    *float64         `json:"supplier_tolerance"`
	RefundableTolerance  *bool            `json:"refundable_tolerance"`
	EffectiveCost        *decimal.Decimal `json:"effective_cost"`
	VAT                  *string          `json:"vat"`
	RefundableVAT        *bool            `json:"refundable_vat"`
	ImportDuty           *float64         `json:"import_duty"`
	RefundableImportDuty *bool            `json:"refundable_import_duty"`
	ShippingTerm         *string          `json:"shipping_term"`
	LogisticsRate        *float64         `json:"logistics_rate"`
	LogisticsFee         *decimal.Decimal `json:"logistics_fee"`
	LandedCost           *decimal.Decimal `json:"landed_cost"`
}

// MaterialFull 当前版本完整记录
type MaterialFull struct {
	entity.MaterialVersion
	VerificationStatus string `json:"verification_status"`
}

// VersionHistoryItem 版本历史
type VersionHistoryItem struct {
	VersionNumber     int        `json:"version_number"`
	Status            string     `json:"status"`
	SubmittedBy       string     `json:"submitted_by"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	ChangeDescription string     `json:"change_description"`
}

// DetailService 物料详情查询
type DetailService struct {
	repos *repository.Repositories
}

func NewDetailService(repos *repository.Repositories) *DetailService {
	return &DetailService{repos: repos}
}

// Current 通过主档指针读取当前版本
func (s *DetailService) Current(ctx context.Context, documentID string) (*entity.MasterMaterial, *entity.MaterialVersion, error) {
	m, err := s.repos.Master.FindByID(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("material %s: %w", documentID, err)
	}
	v, err := s.repos.Version.Get(ctx, documentID, m.CurrentVersionNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("material %s version %d: %w", documentID, m.CurrentVersionNumber, err)
	}
	return m, v, nil
}

// Dashboard 概览
func (s *DetailService) Dashboard(ctx context.Context, documentID string) (*MaterialDashboard, error) {
	m, v, err := s.Current(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &MaterialDashboard{
		DocumentID:          v.DocumentID,
		VersionNumber:       v.VersionNumber,
		HumanReadableID:     v.HumanReadableID,
		MaterialName:        deref(v.MaterialName),
		RefID:               deref(v.RefID),
		MaterialType:        deref(v.MaterialType),
		SupplierName:        deref(v.SupplierName),
		CountryOfOrigin:     deref(v.CountryOfOrigin),
		PictureID:           deref(v.PictureID),
		FabricComposition:   v.CompositionDisplay(),
		WeightPerUnit:       v.WeightPerUnit,
		FabricRollWidth:     v.FabricRollWidth,
		FabricCutWidth:      v.FabricCutWidth,
		OriginalCostPerUnit: v.OriginalCostPerUnit,
		CostDisplay:         v.CostDisplay(),
		UnitOfMeasurement:   deref(v.UnitOfMeasurement),
		VerificationStatus:  v.Status,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
		SubmittedAt:         v.SubmittedAt,
		LastVerifiedAt:      m.LastVerifiedAt,
	}, nil
}

// Technical 技术规格
func (s *DetailService) Technical(ctx context.Context, documentID string) (*TechnicalDetail, error) {
	_, v, err := s.Current(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &TechnicalDetail{
		FabricComposition:          v.CompositionDisplay(),
		GenericMaterialComposition: v.GenericMaterialComposition,
		UnitOfMeasurement:          v.UnitOfMeasurement,
		FabricRollWidth:            v.FabricRollWidth,
		FabricCutWidth:             v.FabricCutWidth,
		FabricCutWidthNoShrinkage:  v.FabricCutWidthNoShrinkage,
		WeightPerUnit:              v.WeightPerUnit,
		WeightUOM:                  v.WeightUOM,
		GenericMaterialSize:        v.GenericMaterialSize,
		WeftShrinkage:              v.WeftShrinkage,
		WarpShrinkage:              v.WarpShrinkage,
		EstimatedLogisticsLeadTime: v.EstimatedLogisticsLeadTime,
	}, nil
}

// Cost 成本明细
func (s *DetailService) Cost(ctx context.Context, documentID string) (*CostDetail, error) {
	_, v, err := s.Current(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &CostDetail{
		OriginalCostPerUnit:  v.OriginalCostPerUnit,
		Currency:             v.NativeCostCurrency,
		CostDisplay:          v.CostDisplay(),
		SupplierTolerance:    v.SupplierSellingTolerance,
		RefundableTolerance:  v.RefundableTolerance,
		EffectiveCost:        v.EffectiveCostPerUnit,
		VAT:                  v.VietnamVATRate,
		RefundableVAT:        v.RefundableVAT,
		ImportDuty:           v.ImportDuty,
		RefundableImportDuty: v.RefundableImportDuty,
		ShippingTerm:         v.ShippingTerm,
		LogisticsRate:        v.LogisticsRate,
		LogisticsFee:         v.LogisticsFeePerUnit,
		LandedCost:           v.LandedCostPerUnit,
	}, nil
}

// Full 当前版本全部字段
func (s *DetailService) Full(ctx context.Context, documentID string) (*MaterialFull, error) {
	_, v, err := s.Current(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &MaterialFull{MaterialVersion: *v, VerificationStatus: v.Status}, nil
}

// History 版本历史，按版本号升序
func (s *DetailService) History(ctx context.Context, documentID string) ([]VersionHistoryItem, error) {
	if _, err := s.repos.Master.FindByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("material %s: %w", documentID, err)
	}
	versions, err := s.repos.Version.List(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]VersionHistoryItem, 0, len(versions))
	for _, v := range versions {
		items = append(items, VersionHistoryItem{
			VersionNumber:     v.VersionNumber,
			Status:            v.Status,
			SubmittedBy:       v.SubmittedBy,
			SubmittedAt:       v.SubmittedAt,
			ChangeDescription: v.ChangeDescription,
		})
	}
	return items, nil
}

// Version 指定版本号的完整记录
func (s *DetailService) Version(ctx context.Context, documentID string, number int) (*entity.MaterialVersion, error) {
	if number < 1 {
		return nil, &ValidationError{Invalid: map[string]string{"version": "must be a positive integer"}}
	}
	v, err := s.repos.Version.Get(ctx, documentID, number)
	if err != nil {
		return nil, fmt.Errorf("material %s version %d: %w", documentID, number, err)
	}
	return v, nil
}

// Activity 主档上的操作记录
func (s *DetailService) Activity(ctx context.Context, documentID string) ([]entity.VersionSummary, error) {
	m, err := s.repos.Master.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", documentID, err)
	}
	return m.VersionHistory, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
