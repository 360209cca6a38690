package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CostDisplay 形如 "12.5 USD"，成本或币种缺失时为空
func (f *MaterialFields) CostDisplay() string {
	if f.OriginalCostPerUnit == nil || f.OriginalCostPerUnit.IsZero() || f.NativeCostCurrency == nil || *f.NativeCostCurrency == "" {
		return ""
	}
	return f.OriginalCostPerUnit.String() + " " + *f.NativeCostCurrency
}

// WeightDisplay 形如 "180 gsm"
func (f *MaterialFields) WeightDisplay() string {
	if f.WeightPerUnit == nil || *f.WeightPerUnit == 0 {
		return ""
	}
	w := strconv.FormatFloat(*f.WeightPerUnit, 'f', -1, 64)
	if f.WeightUOM == nil || *f.WeightUOM == "" {
		return w
	}
	return w + " " + *f.WeightUOM
}

// CompositionDisplay 将成分 JSON 转为 "Cotton 50% | Poly 50%"
//
// 支持 [[50, "Cotton"], ...] 与 [{"name": "Cotton", "percentage": 50}, ...] 两种格式，
// 字符串原样返回，无法识别时返回 "Complex Composition"。
func (f *MaterialFields) CompositionDisplay() string {
	if emptyJSON(f.FabricComposition) {
		return " "
	}

	dec := json.NewDecoder(bytes.NewReader(f.FabricComposition))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return "Complex Composition"
	}

	switch v := raw.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case []interface{}:
				if len(it) < 2 {
					return "Complex Composition"
				}
				parts = append(parts, fmt.Sprintf("%v %v%%", it[1], it[0]))
			case map[string]interface{}:
				parts = append(parts, fmt.Sprintf("%v %v%%", it["name"], it["percentage"]))
			default:
				return "Complex Composition"
			}
		}
		return strings.Join(parts, " | ")
	}
	return " "
}
