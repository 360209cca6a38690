package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/xuri/excelize/v2"
)

const unknownMaterialName = "Unknown Material"

// MaterialCard 卡片列表项
type MaterialCard struct {
	DocumentID         string `json:"document_id"`
	HumanReadableID    string `json:"human_readable_id"`
	RefID              string `json:"ref_id"`
	MaterialName       string `json:"material_name"`
	MaterialType       string `json:"material_type"`
	FabricComposition  string `json:"fabric_composition"`
	Weight             string `json:"weight"`
	SupplierName       string `json:"supplier_name"`
	CostPerUnit        string `json:"cost_per_unit"`
	VerificationStatus string `json:"verification_status"`
	VersionNumber      int    `json:"version_number"`
	PictureID          string `json:"picture_id"`
}

// CardService 卡片列表与导出
type CardService struct {
	repos *repository.Repositories
	cache *CardCache
}

func NewCardService(repos *repository.Repositories, cache *CardCache) *CardService {
	return &CardService{repos: repos, cache: cache}
}

// NormalizeStatuses 去除空白，空列表返回全部状态；未知状态返回 ValidationError
func NormalizeStatuses(statuses []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range statuses {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			if !isKnownStatus(s) {
				return nil, &ValidationError{Invalid: map[string]string{"status": fmt.Sprintf("unknown status %q", s)}}
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), entity.AllStatuses...), nil
	}
	return out, nil
}

func isKnownStatus(s string) bool {
	for _, known := range entity.AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// List 当前版本状态在 statuses 中的文档卡片，最新创建的在前
func (s *CardService) List(ctx context.Context, statuses []string) ([]MaterialCard, error) {
	statuses, err := NormalizeStatuses(statuses)
	if err != nil {
		return nil, err
	}
	cards, cacheKey, ok := s.cache.Get(ctx, statuses)
	if ok {
		return cards, nil
	}

	versions, err := s.repos.Master.ListCurrent(ctx, statuses)
	if err != nil {
		return nil, fmt.Errorf("list material cards: %w", err)
	}
	cards = make([]MaterialCard, 0, len(versions))
	for i := range versions {
		cards = append(cards, toCard(&versions[i]))
	}

	s.cache.Set(ctx, cacheKey, cards)
	return cards, nil
}

func toCard(v *entity.MaterialVersion) MaterialCard {
	name := deref(v.MaterialName)
	if name == "" {
		name = unknownMaterialName
	}
	return MaterialCard{
		DocumentID:         v.DocumentID,
		HumanReadableID:    v.HumanReadableID,
		RefID:              deref(v.RefID),
		MaterialName:       name,
		MaterialType:       deref(v.MaterialType),
		FabricComposition:  v.CompositionDisplay(),
		Weight:             v.WeightDisplay(),
		SupplierName:       deref(v.SupplierName),
		CostPerUnit:        v.CostDisplay(),
		VerificationStatus: v.Status,
		VersionNumber:      v.VersionNumber,
		PictureID:          deref(v.PictureID),
	}
}

var cardExportHeaders = []string{
	"Document ID", "Material ID", "Ref ID", "Material Name", "Material Type",
	"Fabric Composition", "Weight", "Supplier", "Cost Per Unit", "Status", "Version",
}

// Export 导出卡片列表为xlsx
func (s *CardService) Export(ctx context.Context, statuses []string) (*excelize.File, string, error) {
	cards, err := s.List(ctx, statuses)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Materials"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range cardExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, card := range cards {
		row := strconv.Itoa(rowIdx + 2)
		f.SetCellValue(sheet, "A"+row, card.DocumentID)
		f.SetCellValue(sheet, "B"+row, card.HumanReadableID)
		f.SetCellValue(sheet, "C"+row, card.RefID)
		f.SetCellValue(sheet, "D"+row, card.MaterialName)
		f.SetCellValue(sheet, "E"+row, card.MaterialType)
		f.SetCellValue(sheet, "F"+row, card.FabricComposition)
		f.SetCellValue(sheet, "G"+row, card.Weight)
		f.SetCellValue(sheet, "H"+row, card.SupplierName)
		f.SetCellValue(sheet, "I"+row, card.CostPerUnit)
		f.SetCellValue(sheet, "J"+row, card.VerificationStatus)
		f.SetCellValue(sheet, "K"+row, card.VersionNumber)
	}

	colWidths := []float64{16, 16, 14, 28, 14, 30, 12, 24, 16, 24, 8}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	return f, "material_cards.xlsx", nil
}
