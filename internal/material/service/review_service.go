package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/events"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/ggjyx4/master-material-Glendon/internal/metrics"
	"go.uber.org/zap"
)

// ReviewService 审核服务
type ReviewService struct {
	repos  *repository.Repositories
	cfg    config.MaterialConfig
	cache  *CardCache
	events *events.Hub
	logger *zap.Logger
	now    func() time.Time
}

func (s *ReviewService) SetEventHub(hub *events.Hub) {
	s.events = hub
}

func NewReviewService(repos *repository.Repositories, cfg config.MaterialConfig, cache *CardCache, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		repos:  repos,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Verify 审核通过当前版本，Submitted - Unverified → Submitted - Verified
func (s *ReviewService) Verify(ctx context.Context, reviewer Actor, documentID string) (*LifecycleResult, error) {
	if err := reviewer.validate(); err != nil {
		return nil, err
	}

	var version *entity.MaterialVersion
	err := retryOnConflict(ctx, s.cfg, s.logger, entity.ActionVerify, func() error {
		return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			m, err := tx.Master.FindForUpdate(ctx, documentID)
			if err != nil {
				return fmt.Errorf("material %s: %w", documentID, err)
			}
			v, err := tx.Version.GetLatest(ctx, documentID)
			if err != nil {
				return fmt.Errorf("material %s latest version: %w", documentID, err)
			}
			if v.Status != entity.StatusSubmittedUnverified {
				return fmt.Errorf("%w: document %s version %d is %q, only submitted versions can be verified",
					ErrInvalidState, documentID, v.VersionNumber, v.Status)
			}

			now := s.now()
			if err := tx.Version.MarkVerified(ctx, v, now, reviewer.ID); err != nil {
				return stateError(err)
			}

			m.LastVerifiedBy = reviewer.ID
			m.LastVerifiedAt = &now
			m.VersionHistory = append(m.VersionHistory, v.Summary(entity.ActionVerify, reviewer.ID, now))
			if err := tx.Master.Save(ctx, m, m.CurrentVersionNumber); err != nil {
				return err
			}
			version = v
			return nil
		})
	})
	metrics.RecordLifecycle(entity.ActionVerify, err)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.events.PublishMaterialChange(changeOf(version, entity.ActionVerify, reviewer.ID, s.now()))
	s.logger.Info("Material version verified",
		zap.String("document_id", documentID),
		zap.Int("version_number", version.VersionNumber),
		zap.String("reviewer", reviewer.ID),
	)
	return newResult(version, "Material verified"), nil
}
