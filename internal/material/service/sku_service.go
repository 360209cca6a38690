package service

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/idgen"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const opCreateSKU = "create_sku"

// CreateSKUInput 创建SKU请求
type CreateSKUInput struct {
	RefID        *string          `json:"ref_id"`
	QRData       *string          `json:"qr_data"`
	Color        *string          `json:"color"`
	Size         *string          `json:"size"`
	CostOverride *decimal.Decimal `json:"cost_override"`
}

func (in *CreateSKUInput) normalize() {
	in.RefID = trimmedOrNil(in.RefID)
	in.QRData = trimmedOrNil(in.QRData)
	in.Color = trimmedOrNil(in.Color)
	in.Size = trimmedOrNil(in.Size)
}

func (in *CreateSKUInput) validate() error {
	return asValidationError(validation.ValidateStruct(in,
		validation.Field(&in.RefID, validation.Length(0, 64)),
		validation.Field(&in.Color, validation.Length(0, 64)),
		validation.Field(&in.Size, validation.Length(0, 32)),
		validation.Field(&in.CostOverride, validation.By(nonNegativeDecimal)),
	))
}

// SKUService SKU服务
type SKUService struct {
	repos  *repository.Repositories
	cfg    config.MaterialConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewSKUService(repos *repository.Repositories, cfg config.MaterialConfig, logger *zap.Logger) *SKUService {
	return &SKUService{
		repos:  repos,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Create 为物料创建SKU，编号冲突时重新生成
func (s *SKUService) Create(ctx context.Context, actor Actor, documentID string, in CreateSKUInput) (*entity.MaterialSKU, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var sku *entity.MaterialSKU
	err := retryOnConflict(ctx, s.cfg, s.logger, opCreateSKU, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			exists, err := tx.Master.Exists(ctx, documentID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("material %s: %w", documentID, repository.ErrNotFound)
			}

			seq := idgen.Sequence{
				Prefix: s.cfg.SKUPrefix,
				Width:  s.cfg.SKUIDWidth,
				Lookup: tx.SKU,
				Now:    s.now,
			}
			skuID, err := seq.Next(ctx)
			if err != nil {
				return err
			}

			now := s.now()
			candidate := &entity.MaterialSKU{
				SKUID:      skuID,
				DocumentID: documentID,
				RefID:      in.RefID,
				QRData:     in.QRData,
				Color:      in.Color,
				Size:       in.Size,
				CreatedBy:  actor.ID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if in.CostOverride != nil {
				candidate.CostOverride = *in.CostOverride
			}
			if err := tx.SKU.Create(ctx, candidate); err != nil {
				return err
			}
			sku = candidate
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Material SKU created",
		zap.String("document_id", documentID),
		zap.String("sku_id", sku.SKUID),
		zap.String("actor", actor.ID),
	)
	return sku, nil
}

// Get 按SKU编号查询
func (s *SKUService) Get(ctx context.Context, skuID string) (*entity.MaterialSKU, error) {
	sku, err := s.repos.SKU.FindByID(ctx, skuID)
	if err != nil {
		return nil, fmt.Errorf("sku %s: %w", skuID, err)
	}
	return sku, nil
}

// List 物料下的SKU，未知物料返回空列表
func (s *SKUService) List(ctx context.Context, documentID string) ([]entity.MaterialSKU, error) {
	skus, err := s.repos.SKU.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if skus == nil {
		skus = []entity.MaterialSKU{}
	}
	return skus, nil
}
