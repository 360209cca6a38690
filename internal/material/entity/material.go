package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 版本状态
const (
	StatusDraft               = "Draft"
	StatusSubmittedUnverified = "Submitted - Unverified"
	StatusSubmittedVerified   = "Submitted - Verified"
)

// AllStatuses 默认卡片列表过滤条件
var AllStatuses = []string{StatusDraft, StatusSubmittedUnverified, StatusSubmittedVerified}

// 版本历史动作
const (
	ActionCreate      = "create"
	ActionUpdateDraft = "update_draft"
	ActionSubmit      = "submit"
	ActionRevise      = "revise"
	ActionVerify      = "verify"
)

// MasterMaterial 物料主档
type MasterMaterial struct {
	DocumentID           string                              `json:"document_id" gorm:"primaryKey;size:32"`
	CurrentVersionNumber int                                 `json:"current_version_number" gorm:"not null"`
	CurrentVersionUID    string                              `json:"current_version_uid" gorm:"size:36;not null"`
	VersionHistory       datatypes.JSONSlice[VersionSummary] `json:"version_history"`
	CreatedBy            string                              `json:"created_by" gorm:"size:64;not null"`
	CreatedAt            time.Time                           `json:"created_at"`
	SubmittedBy          string                              `json:"submitted_by,omitempty" gorm:"size:64"`
	SubmittedAt          *time.Time                          `json:"submitted_at,omitempty"`
	LastVerifiedBy       string                              `json:"last_verified_by,omitempty" gorm:"size:64"`
	LastVerifiedAt       *time.Time                          `json:"last_verified_at,omitempty"`
	UpdatedAt            time.Time                           `json:"updated_at"`

	// Relations
	Versions []MaterialVersion `json:"versions,omitempty" gorm:"foreignKey:DocumentID;references:DocumentID"`
	SKUs     []MaterialSKU     `json:"skus,omitempty" gorm:"foreignKey:DocumentID;references:DocumentID"`
}

func (MasterMaterial) TableName() string {
	return "master_materials"
}

// VersionSummary 主档上的版本历史条目
type VersionSummary struct {
	VersionNumber     int       `json:"version_number"`
	VersionUID        string    `json:"version_uid"`
	Status            string    `json:"status"`
	Action            string    `json:"action"`
	HumanReadableID   string    `json:"human_readable_id"`
	MaterialName      string    `json:"material_name,omitempty"`
	Cost              string    `json:"cost,omitempty"`
	ChangeDescription string    `json:"change_description,omitempty"`
	At                time.Time `json:"at"`
	By                string    `json:"by"`
}

// MaterialVersion 物料版本
type MaterialVersion struct {
	VersionUID        string `json:"version_uid" gorm:"primaryKey;size:36"`
	DocumentID        string `json:"document_id" gorm:"size:32;not null;uniqueIndex:uk_material_versions_doc_ver,priority:1"`
	VersionNumber     int    `json:"version_number" gorm:"not null;uniqueIndex:uk_material_versions_doc_ver,priority:2"`
	Status            string `json:"status" gorm:"size:32;not null;index"`
	HumanReadableID   string `json:"human_readable_id" gorm:"size:32;not null;index"`
	ChangeDescription string `json:"change_description,omitempty" gorm:"type:text"`

	MaterialFields `gorm:"embedded"`

	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedBy string     `json:"submitted_by,omitempty" gorm:"size:64"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	VerifiedBy  string     `json:"verified_by,omitempty" gorm:"size:64"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (MaterialVersion) TableName() string {
	return "material_versions"
}

// Summary 生成版本历史条目
func (v *MaterialVersion) Summary(action, by string, at time.Time) VersionSummary {
	s := VersionSummary{
		VersionNumber:     v.VersionNumber,
		VersionUID:        v.VersionUID,
		Status:            v.Status,
		Action:            action,
		HumanReadableID:   v.HumanReadableID,
		ChangeDescription: v.ChangeDescription,
		At:                at,
		By:                by,
	}
	if v.MaterialName != nil {
		s.MaterialName = *v.MaterialName
	}
	s.Cost = v.CostDisplay()
	return s
}

// IsDraft 是否可原地修改
func (v *MaterialVersion) IsDraft() bool {
	return v.Status == StatusDraft
}

// Models 需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&MasterMaterial{},
		&MaterialVersion{},
		&MaterialSKU{},
	}
}
