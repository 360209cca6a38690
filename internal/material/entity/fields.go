package entity

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MaterialFields 物料业务字段，nil 表示未填写
type MaterialFields struct {
	// 基本信息
	MaterialName    *string `json:"material_name,omitempty" gorm:"size:256"`
	MaterialType    *string `json:"material_type,omitempty" gorm:"size:64"`
	RefID           *string `json:"ref_id,omitempty" gorm:"size:64"`
	SupplierName    *string `json:"supplier_name,omitempty" gorm:"size:256"`
	CountryOfOrigin *string `json:"country_of_origin,omitempty" gorm:"size:32"`
	QRID            *string `json:"qr_id,omitempty" gorm:"column:qr_id;size:128"`
	HangerPDFID     *string `json:"hanger_pdf_id,omitempty" gorm:"column:hanger_pdf_id;size:256"`
	PictureID       *string `json:"picture_id,omitempty" gorm:"size:256"`

	// 技术规格
	UnitOfMeasurement          *string        `json:"unit_of_measurement,omitempty" gorm:"size:16"`
	FabricComposition          datatypes.JSON `json:"fabric_composition,omitempty"`
	GenericMaterialComposition *string        `json:"generic_material_composition,omitempty" gorm:"size:128"`
	FabricRollWidth            *float64       `json:"fabric_roll_width,omitempty"`
	FabricCutWidth             *float64       `json:"fabric_cut_width,omitempty"`
	FabricCutWidthNoShrinkage  *float64       `json:"fabric_cut_width_no_shrinkage,omitempty"`
	WeightPerUnit              *float64       `json:"weight_per_unit,omitempty"`
	WeightUOM                  *string        `json:"weight_uom,omitempty" gorm:"column:weight_uom;size:16"`
	GenericMaterialSize        *string        `json:"generic_material_size,omitempty" gorm:"size:64"`
	WeftShrinkage              *float64       `json:"weft_shrinkage,omitempty"`
	WarpShrinkage              *float64       `json:"warp_shrinkage,omitempty"`
	EstimatedLogisticsLeadTime *int           `json:"estimated_logistics_lead_time,omitempty"`

	// 成本
	OriginalCostPerUnit      *decimal.Decimal `json:"original_cost_per_unit,omitempty" gorm:"type:numeric(18,4)"`
	NativeCostCurrency       *string          `json:"native_cost_currency,omitempty" gorm:"size:8"`
	SupplierSellingTolerance *float64         `json:"supplier_selling_tolerance,omitempty"`
	RefundableTolerance      *bool            `json:"refundable_tolerance,omitempty"`
	EffectiveCostPerUnit     *decimal.Decimal `json:"effective_cost_per_unit,omitempty" gorm:"type:numeric(18,4)"`
	VietnamVATRate           *string          `json:"vietnam_vat_rate,omitempty" gorm:"column:vietnam_vat_rate;size:8"`
	RefundableVAT            *bool            `json:"refundable_vat,omitempty" gorm:"column:refundable_vat"`
	ImportDuty               *float64         `json:"import_duty,omitempty"`
	RefundableImportDuty     *bool            `json:"refundable_import_duty,omitempty"`
	ShippingTerm             *string          `json:"shipping_term,omitempty" gorm:"size:8"`
	LogisticsRate            *float64         `json:"logistics_rate,omitempty"`
	LogisticsFeePerUnit      *decimal.Decimal `json:"logistics_fee_per_unit,omitempty" gorm:"type:numeric(18,4)"`
	LandedCostPerUnit        *decimal.Decimal `json:"landed_cost_per_unit,omitempty" gorm:"type:numeric(18,4)"`
}

var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	t := reflect.TypeOf(MaterialFields{})
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		idx[name] = i
	}
	return idx
}

// FieldNames 返回所有字段的 JSON 名称
func FieldNames() []string {
	t := reflect.TypeOf(MaterialFields{})
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, strings.Split(t.Field(i).Tag.Get("json"), ",")[0])
	}
	return names
}

// CheckFieldNames 校验配置中的字段名
func CheckFieldNames(names []string) error {
	for _, n := range names {
		if _, ok := fieldIndex[n]; !ok {
			return fmt.Errorf("unknown material field %q", n)
		}
	}
	return nil
}

// Normalize 空白字符串与 JSON null 视为未填写
func (f *MaterialFields) Normalize() {
	v := reflect.ValueOf(f).Elem()
	for i := 0; i < v.NumField(); i++ {
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Ptr:
			if !fv.IsNil() && fv.Elem().Kind() == reflect.String && strings.TrimSpace(fv.Elem().String()) == "" {
				fv.Set(reflect.Zero(fv.Type()))
			}
		case reflect.Slice:
			if emptyJSON(fv.Bytes()) {
				fv.Set(reflect.Zero(fv.Type()))
			}
		}
	}
}

// Apply 用 patch 中已填写的字段覆盖当前值
func (f *MaterialFields) Apply(patch MaterialFields) {
	dst := reflect.ValueOf(f).Elem()
	src := reflect.ValueOf(patch)
	for i := 0; i < src.NumField(); i++ {
		if sv := src.Field(i); !sv.IsZero() {
			dst.Field(i).Set(sv)
		}
	}
}

// IsEmpty patch 是否不含任何字段
func (f MaterialFields) IsEmpty() bool {
	return reflect.ValueOf(f).IsZero()
}

// Missing 返回 required 中未填写的字段，保持传入顺序
func (f *MaterialFields) Missing(required []string) []string {
	v := reflect.ValueOf(f).Elem()
	var missing []string
	for _, name := range required {
		i, ok := fieldIndex[name]
		if !ok || !present(v.Field(i)) {
			missing = append(missing, name)
		}
	}
	return missing
}

func present(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return false
		}
		if v.Elem().Kind() == reflect.String {
			return strings.TrimSpace(v.Elem().String()) != ""
		}
		return true
	case reflect.Slice:
		return !emptyJSON(v.Bytes())
	}
	return !v.IsZero()
}

func emptyJSON(b []byte) bool {
	switch strings.TrimSpace(string(b)) {
	case "", "null", "[]", "{}", `""`:
		return true
	}
	return false
}
