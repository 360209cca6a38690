package service

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/shopspring/decimal"
)

// 字段枚举取值
var (
	currencies         = []interface{}{"USD", "VND", "RMB"}
	shippingTerms      = []interface{}{"EXW", "FOB", "DDP"}
	vatRates           = []interface{}{"8%", "10%"}
	unitsOfMeasurement = []interface{}{"meter", "piece"}
	countriesOfOrigin  = []interface{}{"Vietnam", "China"}
)

// MaterialInput 写操作请求体：业务字段加上版本级属性
type MaterialInput struct {
	entity.MaterialFields
	HumanReadableID   *string `json:"human_readable_id,omitempty"`
	ChangeDescription *string `json:"change_description,omitempty"`
}

// normalize 空白值视为未提供
func (in *MaterialInput) normalize() {
	in.MaterialFields.Normalize()
	in.HumanReadableID = trimmedOrNil(in.HumanReadableID)
	in.ChangeDescription = trimmedOrNil(in.ChangeDescription)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateFields(f *entity.MaterialFields) error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.MaterialName, validation.Length(0, 256)),
		validation.Field(&f.NativeCostCurrency, validation.In(currencies...)),
		validation.Field(&f.ShippingTerm, validation.In(shippingTerms...)),
		validation.Field(&f.VietnamVATRate, validation.In(vatRates...)),
		validation.Field(&f.UnitOfMeasurement, validation.In(unitsOfMeasurement...)),
		validation.Field(&f.CountryOfOrigin, validation.In(countriesOfOrigin...)),
		validation.Field(&f.FabricRollWidth, validation.Min(0.0), validation.Max(3.0)),
		validation.Field(&f.FabricCutWidth, validation.Min(0.0), validation.Max(3.0)),
		validation.Field(&f.FabricCutWidthNoShrinkage, validation.Min(0.0), validation.Max(3.0)),
		validation.Field(&f.WeightPerUnit, validation.Min(0.0)),
		validation.Field(&f.WeftShrinkage, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&f.WarpShrinkage, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&f.SupplierSellingTolerance, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&f.ImportDuty, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&f.LogisticsRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&f.EstimatedLogisticsLeadTime, validation.Min(0)),
		validation.Field(&f.OriginalCostPerUnit, validation.By(nonNegativeDecimal)),
		validation.Field(&f.EffectiveCostPerUnit, validation.By(nonNegativeDecimal)),
		validation.Field(&f.LogisticsFeePerUnit, validation.By(nonNegativeDecimal)),
		validation.Field(&f.LandedCostPerUnit, validation.By(nonNegativeDecimal)),
	)
	return asValidationError(err)
}

func nonNegativeDecimal(value interface{}) error {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	if d.IsNegative() {
		return errors.New("must be no less than 0")
	}
	return nil
}

// asValidationError 将 ozzo 的字段错误转换为 ValidationError
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		invalid := make(map[string]string, len(errs))
		for field, fieldErr := range errs {
			if fieldErr != nil {
				invalid[field] = fieldErr.Error()
			}
		}
		return &ValidationError{Invalid: invalid}
	}
	return err
}

// requireFields 提交前必填检查
func requireFields(f *entity.MaterialFields, required []string) error {
	if missing := f.Missing(required); len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
