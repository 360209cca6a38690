package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/events"
	"github.com/ggjyx4/master-material-Glendon/internal/material/idgen"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/ggjyx4/master-material-Glendon/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleResult 写操作结果
type LifecycleResult struct {
	DocumentID      string `json:"document_id"`
	HumanReadableID string `json:"human_readable_id"`
	VersionNumber   int    `json:"version_number"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

func newResult(v *entity.MaterialVersion, message string) *LifecycleResult {
	return &LifecycleResult{
		DocumentID:      v.DocumentID,
		HumanReadableID: v.HumanReadableID,
		VersionNumber:   v.VersionNumber,
		Status:          v.Status,
		Message:         message,
	}
}

// LifecycleService 物料文档生命周期：创建、草稿修改、提交、修订
type LifecycleService struct {
	repos  *repository.Repositories
	cfg    config.MaterialConfig
	cache  *CardCache
	events *events.Hub
	logger *zap.Logger
	now    func() time.Time
}

// SetEventHub 注入变更推送，未注入时不推送
func (s *LifecycleService) SetEventHub(hub *events.Hub) {
	s.events = hub
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(repos *repository.Repositories, cfg config.MaterialConfig, cache *CardCache, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		repos:  repos,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Create 创建新文档，版本 1 为 Draft；immediateSubmit 时直接进入 Submitted - Unverified
func (s *LifecycleService) Create(ctx context.Context, actor Actor, in MaterialInput, immediateSubmit bool) (*LifecycleResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateFields(&in.MaterialFields); err != nil {
		return nil, err
	}
	if immediateSubmit {
		if err := requireFields(&in.MaterialFields, s.cfg.RequiredOnSubmit); err != nil {
			return nil, err
		}
	}

	var version *entity.MaterialVersion
	err := retryOnConflict(ctx, s.cfg, s.logger, entity.ActionCreate, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			documentID, err := s.documentSequence(tx).Next(ctx)
			if err != nil {
				return err
			}

			humanReadableID := ""
			if in.HumanReadableID != nil {
				humanReadableID = *in.HumanReadableID
			} else {
				humanReadableID, err = s.humanReadableSequence(tx).Next(ctx)
				if err != nil {
					return err
				}
			}
			if err := checkHumanReadableID(ctx, tx, humanReadableID, documentID, in.HumanReadableID != nil); err != nil {
				return err
			}

			now := s.now()
			v := &entity.MaterialVersion{
				VersionUID:      uuid.New().String(),
				DocumentID:      documentID,
				VersionNumber:   1,
				Status:          entity.StatusDraft,
				HumanReadableID: humanReadableID,
				MaterialFields:  in.MaterialFields,
				CreatedBy:       actor.ID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if in.ChangeDescription != nil {
				v.ChangeDescription = *in.ChangeDescription
			}

			m := &entity.MasterMaterial{
				DocumentID:           documentID,
				CurrentVersionNumber: 1,
				CurrentVersionUID:    v.VersionUID,
				CreatedBy:            actor.ID,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if immediateSubmit {
				v.Status = entity.StatusSubmittedUnverified
				v.SubmittedBy = actor.ID
				v.SubmittedAt = &now
				m.SubmittedBy = actor.ID
				m.SubmittedAt = &now
			}
			m.VersionHistory = append(m.VersionHistory, v.Summary(entity.ActionCreate, actor.ID, now))

			if err := tx.Master.Create(ctx, m); err != nil {
				return err
			}
			if err := tx.Version.Append(ctx, v); err != nil {
				return err
			}
			version = v
			return nil
		})
	})
	metrics.RecordLifecycle(entity.ActionCreate, err)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.events.PublishMaterialChange(changeOf(version, entity.ActionCreate, actor.ID, s.now()))
	s.logger.Info("Material document created",
		zap.String("document_id", version.DocumentID),
		zap.String("human_readable_id", version.HumanReadableID),
		zap.String("status", version.Status),
		zap.String("actor", actor.ID),
	)

	message := "Material draft created"
	if immediateSubmit {
		message = "Material created and submitted for verification"
	}
	return newResult(version, message), nil
}

// UpdateDraft 原地修改当前草稿，版本号不变
func (s *LifecycleService) UpdateDraft(ctx context.Context, actor Actor, documentID string, in MaterialInput) (*LifecycleResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateFields(&in.MaterialFields); err != nil {
		return nil, err
	}

	var version *entity.MaterialVersion
	err := retryOnConflict(ctx, s.cfg, s.logger, entity.ActionUpdateDraft, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			m, v, err := s.loadLatest(ctx, tx, documentID)
			if err != nil {
				return err
			}
			if !v.IsDraft() {
				return fmt.Errorf("%w: document %s version %d is %q, only drafts can be updated",
					ErrInvalidState, documentID, v.VersionNumber, v.Status)
			}

			v.MaterialFields.Apply(in.MaterialFields)
			if in.ChangeDescription != nil {
				v.ChangeDescription = *in.ChangeDescription
			}
			if err := tx.Version.SaveDraft(ctx, v); err != nil {
				return stateError(err)
			}

			now := s.now()
			m.VersionHistory = append(m.VersionHistory, v.Summary(entity.ActionUpdateDraft, actor.ID, now))
			if err := tx.Master.Save(ctx, m, m.CurrentVersionNumber); err != nil {
				return err
			}
			version = v
			return nil
		})
	})
	metrics.RecordLifecycle(entity.ActionUpdateDraft, err)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.events.PublishMaterialChange(changeOf(version, entity.ActionUpdateDraft, actor.ID, s.now()))
	s.logger.Info("Material draft updated",
		zap.String("document_id", documentID),
		zap.Int("version_number", version.VersionNumber),
		zap.String("actor", actor.ID),
	)
	return newResult(version, "Draft updated"), nil
}

// SubmitVersion 合并最终修改并提交草稿
func (s *LifecycleService) SubmitVersion(ctx context.Context, actor Actor, documentID string, finalUpdates MaterialInput) (*LifecycleResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}
	finalUpdates.normalize()
	if err := validateFields(&finalUpdates.MaterialFields); err != nil {
		return nil, err
	}

	var version *entity.MaterialVersion
	err := retryOnConflict(ctx, s.cfg, s.logger, entity.ActionSubmit, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			m, v, err := s.loadLatest(ctx, tx, documentID)
			if err != nil {
				return err
			}
			if !v.IsDraft() {
				return fmt.Errorf("%w: document %s version %d is %q, only drafts can be submitted",
					ErrInvalidState, documentID, v.VersionNumber, v.Status)
			}

			v.MaterialFields.Apply(finalUpdates.MaterialFields)
			if finalUpdates.ChangeDescription != nil {
				v.ChangeDescription = *finalUpdates.ChangeDescription
			}
			if err := requireFields(&v.MaterialFields, s.cfg.RequiredOnSubmit); err != nil {
				return err
			}

			if !finalUpdates.MaterialFields.IsEmpty() || finalUpdates.ChangeDescription != nil {
				if err := tx.Version.SaveDraft(ctx, v); err != nil {
					return stateError(err)
				}
			}

			now := s.now()
			if err := tx.Version.MarkSubmitted(ctx, v, now, actor.ID); err != nil {
				return stateError(err)
			}

			m.SubmittedBy = actor.ID
			m.SubmittedAt = &now
			m.VersionHistory = append(m.VersionHistory, v.Summary(entity.ActionSubmit, actor.ID, now))
			if err := tx.Master.Save(ctx, m, m.CurrentVersionNumber); err != nil {
				return err
			}
			version = v
			return nil
		})
	})
	metrics.RecordLifecycle(entity.ActionSubmit, err)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.events.PublishMaterialChange(changeOf(version, entity.ActionSubmit, actor.ID, s.now()))
	s.logger.Info("Material version submitted",
		zap.String("document_id", documentID),
		zap.Int("version_number", version.VersionNumber),
		zap.String("actor", actor.ID),
	)
	return newResult(version, "Material submitted for verification"), nil
}

// ReviseVerified 基于已审核版本创建新版本，新版本直接进入 Submitted - Unverified
func (s *LifecycleService) ReviseVerified(ctx context.Context, actor Actor, documentID string, updates MaterialInput, changeDescription string) (*LifecycleResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}
	updates.normalize()
	if err := validateFields(&updates.MaterialFields); err != nil {
		return nil, err
	}
	description := trimmedOrNil(&changeDescription)
	if description == nil {
		description = updates.ChangeDescription
	}

	var version *entity.MaterialVersion
	err := retryOnConflict(ctx, s.cfg, s.logger, entity.ActionRevise, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			m, latest, err := s.loadLatest(ctx, tx, documentID)
			if err != nil {
				return err
			}
			if latest.Status != entity.StatusSubmittedVerified {
				return fmt.Errorf("%w: document %s version %d is %q, only verified versions can be revised",
					ErrInvalidState, documentID, latest.VersionNumber, latest.Status)
			}

			now := s.now()
			next := &entity.MaterialVersion{
				VersionUID:      uuid.New().String(),
				DocumentID:      documentID,
				VersionNumber:   latest.VersionNumber + 1,
				Status:          entity.StatusSubmittedUnverified,
				HumanReadableID: latest.HumanReadableID,
				MaterialFields:  latest.MaterialFields,
				CreatedBy:       actor.ID,
				CreatedAt:       now,
				SubmittedBy:     actor.ID,
				SubmittedAt:     &now,
				UpdatedAt:       now,
			}
			if updates.HumanReadableID != nil {
				next.HumanReadableID = *updates.HumanReadableID
				if err := checkHumanReadableID(ctx, tx, next.HumanReadableID, documentID, true); err != nil {
					return err
				}
			}
			if description != nil {
				next.ChangeDescription = *description
			}
			next.MaterialFields.Apply(updates.MaterialFields)
			if err := requireFields(&next.MaterialFields, s.cfg.RequiredOnSubmit); err != nil {
				return err
			}

			if err := tx.Version.Append(ctx, next); err != nil {
				return err
			}

			expected := m.CurrentVersionNumber
			m.CurrentVersionNumber = next.VersionNumber
			m.CurrentVersionUID = next.VersionUID
			m.SubmittedBy = actor.ID
			m.SubmittedAt = &now
			m.VersionHistory = append(m.VersionHistory, next.Summary(entity.ActionRevise, actor.ID, now))
			if err := tx.Master.Save(ctx, m, expected); err != nil {
				return err
			}
			version = next
			return nil
		})
	})
	metrics.RecordLifecycle(entity.ActionRevise, err)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.events.PublishMaterialChange(changeOf(version, entity.ActionRevise, actor.ID, s.now()))
	s.logger.Info("Material revision created",
		zap.String("document_id", documentID),
		zap.Int("version_number", version.VersionNumber),
		zap.String("actor", actor.ID),
	)
	return newResult(version, fmt.Sprintf("Revision %d submitted for verification", version.VersionNumber)), nil
}

// loadLatest 锁定主档并读取最新版本
func (s *LifecycleService) loadLatest(ctx context.Context, tx *repository.Repositories, documentID string) (*entity.MasterMaterial, *entity.MaterialVersion, error) {
	m, err := tx.Master.FindForUpdate(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("material %s: %w", documentID, err)
	}
	v, err := tx.Version.GetLatest(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("material %s latest version: %w", documentID, err)
	}
	return m, v, nil
}

// checkHumanReadableID 人类可读编号在文档间唯一。调用方指定的编号冲突返回 ValidationError，
// 生成的编号冲突按约束冲突处理以便重新生成
func checkHumanReadableID(ctx context.Context, tx *repository.Repositories, humanReadableID, documentID string, supplied bool) error {
	taken, err := tx.Version.HumanReadableIDTaken(ctx, humanReadableID, documentID)
	if err != nil {
		return err
	}
	if !taken {
		return nil
	}
	if supplied {
		return &ValidationError{Invalid: map[string]string{
			"human_readable_id": fmt.Sprintf("%s is already used by another material", humanReadableID),
		}}
	}
	return fmt.Errorf("%w: human readable id %s already in use", repository.ErrConstraintViolation, humanReadableID)
}

func (s *LifecycleService) documentSequence(tx *repository.Repositories) idgen.Sequence {
	return idgen.Sequence{
		Prefix: s.cfg.DocumentPrefix,
		Width:  s.cfg.IDWidth,
		Lookup: tx.Master,
		Now:    s.now,
	}
}

func (s *LifecycleService) humanReadableSequence(tx *repository.Repositories) idgen.Sequence {
	return idgen.Sequence{
		Prefix: s.cfg.HumanReadablePrefix,
		Width:  s.cfg.IDWidth,
		Lookup: idgen.LookupFunc(tx.Version.LastHumanReadableID),
		Now:    s.now,
	}
}
