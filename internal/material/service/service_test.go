package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/repository"
	"github.com/ggjyx4/master-material-Glendon/internal/material/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	editor   = Actor{ID: "user-editor", Name: "Editor"}
	reviewer = Actor{ID: "user-reviewer", Name: "Reviewer", Roles: []string{"sourcing"}}
)

type testServices struct {
	repos     *repository.Repositories
	lifecycle *LifecycleService
	review    *ReviewService
	detail    *DetailService
	card      *CardService
	sku       *SKUService
	media     *MediaService
}

func setupServices(t *testing.T) *testServices {
	t.Helper()
	repos := repository.NewRepositories(testutil.SetupTestDB(t))
	cfg := testutil.MaterialConfig()
	logger := zap.NewNop()
	cache := NewCardCache(nil, cfg.CardCacheTTL, logger)
	return &testServices{
		repos:     repos,
		lifecycle: NewLifecycleService(repos, cfg, cache, logger),
		review:    NewReviewService(repos, cfg, cache, logger),
		detail:    NewDetailService(repos),
		card:      NewCardService(repos, cache),
		sku:       NewSKUService(repos, cfg, logger),
		media:     NewMediaService(repos, nil, "materials", logger),
	}
}

func strPtr(s string) *string { return &s }

func fields(name, materialType, supplier string) MaterialInput {
	var in MaterialInput
	if name != "" {
		in.MaterialName = strPtr(name)
	}
	if materialType != "" {
		in.MaterialType = strPtr(materialType)
	}
	if supplier != "" {
		in.SupplierName = strPtr(supplier)
	}
	return in
}

func (s *testServices) versionCount(t *testing.T, documentID string) int {
	t.Helper()
	versions, err := s.repos.Version.List(context.Background(), documentID)
	require.NoError(t, err)
	return len(versions)
}

// verified 创建并提交后审核通过
func (s *testServices) verified(t *testing.T, name string) *LifecycleResult {
	t.Helper()
	ctx := context.Background()
	res, err := s.lifecycle.Create(ctx, editor, fields(name, "Fabric", "ABC Textiles"), true)
	require.NoError(t, err)
	_, err = s.review.Verify(ctx, reviewer, res.DocumentID)
	require.NoError(t, err)
	return res
}

func TestCreateDraft(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	res, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", ""), false)
	require.NoError(t, err)
	assert.Equal(t, "vin_doc_0001", res.DocumentID)
	assert.Equal(t, "vin_mmat_0001", res.HumanReadableID)
	assert.Equal(t, 1, res.VersionNumber)
	assert.Equal(t, entity.StatusDraft, res.Status)

	m, err := s.repos.Master.FindByID(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.CurrentVersionNumber)
	assert.Equal(t, editor.ID, m.CreatedBy)
	assert.Nil(t, m.SubmittedAt)
	require.Len(t, m.VersionHistory, 1)
	assert.Equal(t, entity.ActionCreate, m.VersionHistory[0].Action)

	v, err := s.repos.Version.GetByUID(ctx, m.CurrentVersionUID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, "Silk", *v.MaterialName)
}

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	first, err := s.lifecycle.Create(ctx, editor, fields("Silk", "", ""), false)
	require.NoError(t, err)
	second, err := s.lifecycle.Create(ctx, editor, fields("Linen", "", ""), false)
	require.NoError(t, err)

	assert.Equal(t, "vin_doc_0001", first.DocumentID)
	assert.Equal(t, "vin_doc_0002", second.DocumentID)
	assert.Equal(t, "vin_mmat_0002", second.HumanReadableID)
}

func TestCreateHonoursSuppliedHumanReadableID(t *testing.T) {
	s := setupServices(t)
	in := fields("Silk", "", "")
	in.HumanReadableID = strPtr("  vin_mmat_0420 ")

	res, err := s.lifecycle.Create(context.Background(), editor, in, false)
	require.NoError(t, err)
	assert.Equal(t, "vin_mmat_0420", res.HumanReadableID)
}

func TestSuppliedHumanReadableIDMustBeUnique(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	in := fields("Silk", "Fabric", "ABC Textiles")
	in.HumanReadableID = strPtr("SILK-01")
	first, err := s.lifecycle.Create(ctx, editor, in, true)
	require.NoError(t, err)

	dup := fields("Linen", "Fabric", "ABC Textiles")
	dup.HumanReadableID = strPtr("SILK-01")
	_, err = s.lifecycle.Create(ctx, editor, dup, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Invalid, "human_readable_id")

	cards, err := s.card.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cards, 1, "rejected create must not leave a document behind")

	// 修订时改用其他文档的编号同样拒绝，沿用自身编号允许
	other := s.verified(t, "Cotton")
	_, err = s.lifecycle.ReviseVerified(ctx, editor, other.DocumentID, dup, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, s.versionCount(t, other.DocumentID))

	_, err = s.review.Verify(ctx, reviewer, first.DocumentID)
	require.NoError(t, err)
	same := MaterialInput{HumanReadableID: strPtr("SILK-01")}
	res, err := s.lifecycle.ReviseVerified(ctx, editor, first.DocumentID, same, "same id")
	require.NoError(t, err)
	assert.Equal(t, "SILK-01", res.HumanReadableID)
	assert.Equal(t, 2, res.VersionNumber)
}

func TestCreateImmediateSubmit(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	res, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", "ABC"), true)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmittedUnverified, res.Status)
	assert.Equal(t, 1, res.VersionNumber)

	m, err := s.repos.Master.FindByID(ctx, res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, m.SubmittedAt)
	assert.Equal(t, editor.ID, m.SubmittedBy)

	v, err := s.repos.Version.Get(ctx, res.DocumentID, 1)
	require.NoError(t, err)
	require.NotNil(t, v.SubmittedAt)
	assert.Equal(t, editor.ID, v.SubmittedBy)
}

func TestCreateImmediateSubmitMissingRequired(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	_, err := s.lifecycle.Create(ctx, editor, fields("Silk", "  ", ""), true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"material_type", "supplier_name"}, verr.Missing)

	exists, err := s.repos.Master.Exists(ctx, "vin_doc_0001")
	require.NoError(t, err)
	assert.False(t, exists, "no document may be written on validation failure")
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	s := setupServices(t)
	in := fields("Silk", "", "")
	in.NativeCostCurrency = strPtr("EUR")
	width := 4.5
	in.FabricRollWidth = &width
	negative := decimal.RequireFromString("-1")
	in.OriginalCostPerUnit = &negative

	_, err := s.lifecycle.Create(context.Background(), editor, in, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Invalid, "native_cost_currency")
	assert.Contains(t, verr.Invalid, "fabric_roll_width")
	assert.Contains(t, verr.Invalid, "original_cost_per_unit")
}

func TestCreateRequiresActor(t *testing.T) {
	s := setupServices(t)
	_, err := s.lifecycle.Create(context.Background(), Actor{}, fields("Silk", "", ""), false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"actor"}, verr.Missing)
}

func TestUpdateDraftInPlace(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", ""), false)
	require.NoError(t, err)

	patch := fields("Raw Silk", "", "")
	patch.HumanReadableID = strPtr("vin_mmat_9999")
	res, err := s.lifecycle.UpdateDraft(ctx, editor, created.DocumentID, patch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.VersionNumber)
	assert.Equal(t, entity.StatusDraft, res.Status)
	assert.Equal(t, created.HumanReadableID, res.HumanReadableID, "human readable id is never regenerated by a draft update")

	v, err := s.repos.Version.Get(ctx, created.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Raw Silk", *v.MaterialName)
	assert.Equal(t, "Fabric", *v.MaterialType, "unsupplied fields are kept")
	assert.Equal(t, 1, s.versionCount(t, created.DocumentID))
}

func TestUpdateDraftRejectsSubmittedVersion(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", "ABC"), true)
	require.NoError(t, err)

	_, err = s.lifecycle.UpdateDraft(ctx, editor, created.DocumentID, fields("Changed", "", ""))
	require.ErrorIs(t, err, ErrInvalidState)

	v, err := s.repos.Version.Get(ctx, created.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Silk", *v.MaterialName)

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Len(t, m.VersionHistory, 1)
}

func TestUpdateDraftRejectsVerifiedVersion(t *testing.T) {
	s := setupServices(t)
	res := s.verified(t, "Silk")

	_, err := s.lifecycle.UpdateDraft(context.Background(), editor, res.DocumentID, fields("Changed", "", ""))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateDraftUnknownDocument(t *testing.T) {
	s := setupServices(t)
	_, err := s.lifecycle.UpdateDraft(context.Background(), editor, "vin_doc_0404", fields("Silk", "", ""))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmitVersionScenario(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", ""), false)
	require.NoError(t, err)

	res, err := s.lifecycle.SubmitVersion(ctx, editor, created.DocumentID, fields("", "", "ABC"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.VersionNumber)
	assert.Equal(t, entity.StatusSubmittedUnverified, res.Status)

	v, err := s.repos.Version.Get(ctx, created.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, "ABC", *v.SupplierName)
	assert.Equal(t, entity.StatusSubmittedUnverified, v.Status)
	require.NotNil(t, v.SubmittedAt)

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, m.SubmittedAt)
	require.Len(t, m.VersionHistory, 2)
	assert.Equal(t, entity.ActionSubmit, m.VersionHistory[1].Action)
}

func TestSubmitVersionMissingRequiredLeavesDraft(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "", ""), false)
	require.NoError(t, err)

	_, err = s.lifecycle.SubmitVersion(ctx, editor, created.DocumentID, fields("", "Fabric", ""))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"supplier_name"}, verr.Missing)

	v, err := s.repos.Version.Get(ctx, created.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, v.Status)
	assert.Nil(t, v.MaterialType, "final updates are not persisted when validation fails")

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Len(t, m.VersionHistory, 1)
	assert.Nil(t, m.SubmittedAt)
}

func TestSubmitVersionRejectsNonDraft(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", "ABC"), true)
	require.NoError(t, err)

	_, err = s.lifecycle.SubmitVersion(ctx, editor, created.DocumentID, MaterialInput{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerify(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", "ABC"), true)
	require.NoError(t, err)

	res, err := s.review.Verify(ctx, reviewer, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmittedVerified, res.Status)

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, reviewer.ID, m.LastVerifiedBy)
	require.NotNil(t, m.LastVerifiedAt)

	_, err = s.review.Verify(ctx, reviewer, created.DocumentID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifyRejectsDraft(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "", ""), false)
	require.NoError(t, err)

	_, err = s.review.Verify(ctx, reviewer, created.DocumentID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReviseVerified(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created := s.verified(t, "Silk")

	updates := MaterialInput{}
	cost := decimal.RequireFromString("12.5")
	updates.OriginalCostPerUnit = &cost
	updates.NativeCostCurrency = strPtr("USD")

	res, err := s.lifecycle.ReviseVerified(ctx, editor, created.DocumentID, updates, "Price update")
	require.NoError(t, err)
	assert.Equal(t, 2, res.VersionNumber)
	assert.Equal(t, entity.StatusSubmittedUnverified, res.Status)
	assert.Equal(t, created.HumanReadableID, res.HumanReadableID)

	v2, err := s.repos.Version.Get(ctx, created.DocumentID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Silk", *v2.MaterialName, "domain fields are cloned")
	assert.Equal(t, "ABC Textiles", *v2.SupplierName)
	assert.Equal(t, "12.5 USD", v2.CostDisplay())
	assert.Equal(t, "Price update", v2.ChangeDescription)
	assert.Nil(t, v2.VerifiedAt)
	assert.Empty(t, v2.VerifiedBy)

	v1, err := s.repos.Version.Get(ctx, created.DocumentID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmittedVerified, v1.Status, "prior versions are never modified")
	assert.Nil(t, v1.OriginalCostPerUnit)
	assert.NotEqual(t, v1.VersionUID, v2.VersionUID)

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 2, m.CurrentVersionNumber)
	assert.Equal(t, v2.VersionUID, m.CurrentVersionUID)
	require.Len(t, m.VersionHistory, 3)
	assert.Equal(t, entity.ActionRevise, m.VersionHistory[2].Action)
}

func TestReviseRejectsUnverified(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	draft, err := s.lifecycle.Create(ctx, editor, fields("Silk", "Fabric", "ABC"), false)
	require.NoError(t, err)
	_, err = s.lifecycle.ReviseVerified(ctx, editor, draft.DocumentID, MaterialInput{}, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	submitted, err := s.lifecycle.Create(ctx, editor, fields("Linen", "Fabric", "ABC"), true)
	require.NoError(t, err)
	_, err = s.lifecycle.ReviseVerified(ctx, editor, submitted.DocumentID, MaterialInput{}, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, 1, s.versionCount(t, draft.DocumentID))
	assert.Equal(t, 1, s.versionCount(t, submitted.DocumentID))
}

func TestRevisionChain(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created := s.verified(t, "Silk")

	for want := 2; want <= 4; want++ {
		res, err := s.lifecycle.ReviseVerified(ctx, editor, created.DocumentID, MaterialInput{}, "")
		require.NoError(t, err)
		assert.Equal(t, want, res.VersionNumber)
		_, err = s.review.Verify(ctx, reviewer, created.DocumentID)
		require.NoError(t, err)
	}

	m, err := s.repos.Master.FindByID(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 4, m.CurrentVersionNumber)
	assert.Equal(t, 4, s.versionCount(t, created.DocumentID))
	// create + verify, then three revise + verify pairs
	assert.Len(t, m.VersionHistory, 8)
}

func TestHistoryGrowsByOnePerCall(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Silk", "", ""), false)
	require.NoError(t, err)
	_, err = s.lifecycle.UpdateDraft(ctx, editor, created.DocumentID, fields("", "Fabric", ""))
	require.NoError(t, err)
	_, err = s.lifecycle.UpdateDraft(ctx, editor, created.DocumentID, fields("", "", "ABC"))
	require.NoError(t, err)
	_, err = s.lifecycle.SubmitVersion(ctx, editor, created.DocumentID, MaterialInput{})
	require.NoError(t, err)

	activity, err := s.detail.Activity(ctx, created.DocumentID)
	require.NoError(t, err)
	require.Len(t, activity, 4)
	actions := []string{activity[0].Action, activity[1].Action, activity[2].Action, activity[3].Action}
	assert.Equal(t, []string{entity.ActionCreate, entity.ActionUpdateDraft, entity.ActionUpdateDraft, entity.ActionSubmit}, actions)
}

func TestRoundTripFullRecord(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	created, err := s.lifecycle.Create(ctx, editor, fields("Heavy Cotton Twill", "", ""), false)
	require.NoError(t, err)

	full, err := s.detail.Full(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Heavy Cotton Twill", *full.MaterialName)
	assert.Equal(t, entity.StatusDraft, full.VerificationStatus)
}

func TestRetryOnConflict(t *testing.T) {
	cfg := testutil.MaterialConfig()
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("succeeds after collisions", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, cfg, logger, "test", func() error {
			calls++
			if calls < cfg.MaxIDAttempts {
				return repository.ErrConstraintViolation
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, cfg.MaxIDAttempts, calls)
	})

	t.Run("exhausted attempts", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, cfg, logger, "test", func() error {
			calls++
			return repository.ErrStaleVersion
		})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, cfg.MaxIDAttempts, calls)
	})

	t.Run("non retryable error", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := retryOnConflict(ctx, cfg, logger, "test", func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("validation errors are not retried", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, config.MaterialConfig{MaxIDAttempts: 5}, logger, "test", func() error {
			calls++
			return &ValidationError{Missing: []string{"material_name"}}
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, 1, calls)
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Missing: []string{"material_type"},
		Invalid: map[string]string{"shipping_term": "must be a valid value"},
	}
	assert.Equal(t, "validation failed: missing required fields: material_type; invalid fields: shipping_term must be a valid value", err.Error())
}
