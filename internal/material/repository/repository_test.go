package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/ggjyx4/master-material-Glendon/internal/material/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func seedDocument(t *testing.T, repos *Repositories, docID, hrID, status string) (*entity.MasterMaterial, *entity.MaterialVersion) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	v := &entity.MaterialVersion{
		VersionUID:      uuid.NewString(),
		DocumentID:      docID,
		VersionNumber:   1,
		Status:          status,
		HumanReadableID: hrID,
		MaterialFields:  entity.MaterialFields{MaterialName: strPtr("Silk")},
		CreatedBy:       "u1",
		CreatedAt:       now,
	}
	m := &entity.MasterMaterial{
		DocumentID:           docID,
		CurrentVersionNumber: 1,
		CurrentVersionUID:    v.VersionUID,
		VersionHistory:       datatypes.JSONSlice[entity.VersionSummary]{v.Summary(entity.ActionCreate, "u1", now)},
		CreatedBy:            "u1",
		CreatedAt:            now,
	}
	require.NoError(t, repos.Master.Create(ctx, m))
	require.NoError(t, repos.Version.Append(ctx, v))
	return m, v
}

func TestVersionAppendDuplicateNumber(t *testing.T) {
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	dup := *v
	dup.VersionUID = uuid.NewString()
	err := repos.Version.Append(context.Background(), &dup)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestVersionGetAndLatest(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v1 := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusSubmittedVerified)

	v2 := *v1
	v2.VersionUID = uuid.NewString()
	v2.VersionNumber = 2
	v2.Status = entity.StatusSubmittedUnverified
	require.NoError(t, repos.Version.Append(ctx, &v2))

	latest, err := repos.Version.GetLatest(ctx, "vin_doc_0001")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.VersionNumber)

	got, err := repos.Version.Get(ctx, "vin_doc_0001", 1)
	require.NoError(t, err)
	assert.Equal(t, v1.VersionUID, got.VersionUID)

	list, err := repos.Version.List(ctx, "vin_doc_0001")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].VersionNumber)
	assert.Equal(t, 2, list[1].VersionNumber)

	_, err = repos.Version.Get(ctx, "vin_doc_0001", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repos.Version.GetLatest(ctx, "vin_doc_9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersionMarkSubmittedOnlyFromDraft(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	at := time.Now()
	require.NoError(t, repos.Version.MarkSubmitted(ctx, v, at, "u2"))
	assert.Equal(t, entity.StatusSubmittedUnverified, v.Status)

	stored, err := repos.Version.GetByUID(ctx, v.VersionUID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmittedUnverified, stored.Status)
	assert.Equal(t, "u2", stored.SubmittedBy)
	assert.NotNil(t, stored.SubmittedAt)

	err = repos.Version.MarkSubmitted(ctx, stored, at, "u2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionMarkVerified(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	err := repos.Version.MarkVerified(ctx, v, time.Now(), "rev")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, repos.Version.MarkSubmitted(ctx, v, time.Now(), "u1"))
	require.NoError(t, repos.Version.MarkVerified(ctx, v, time.Now(), "rev"))
	assert.Equal(t, entity.StatusSubmittedVerified, v.Status)
	assert.Equal(t, "rev", v.VerifiedBy)
}

func TestVersionSaveDraft(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	v.SupplierName = strPtr("ABC")
	v.ChangeDescription = "supplier added"
	require.NoError(t, repos.Version.SaveDraft(ctx, v))

	stored, err := repos.Version.GetByUID(ctx, v.VersionUID)
	require.NoError(t, err)
	require.NotNil(t, stored.SupplierName)
	assert.Equal(t, "ABC", *stored.SupplierName)
	assert.Equal(t, "Silk", *stored.MaterialName)
	assert.Equal(t, "supplier added", stored.ChangeDescription)
	assert.Equal(t, 1, stored.VersionNumber)
	assert.Equal(t, "vin_mmat_0001", stored.HumanReadableID)
}

func TestVersionSaveDraftRejectsSubmitted(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	_, v := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusSubmittedUnverified)

	v.SupplierName = strPtr("ABC")
	err := repos.Version.SaveDraft(ctx, v)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := repos.Version.GetByUID(ctx, v.VersionUID)
	require.NoError(t, err)
	assert.Nil(t, stored.SupplierName)
}

func TestMasterSaveGuardsCurrentVersion(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	m, _ := seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	m.CurrentVersionNumber = 2
	m.CurrentVersionUID = uuid.NewString()
	require.NoError(t, repos.Master.Save(ctx, m, 1))

	m.CurrentVersionNumber = 3
	err := repos.Master.Save(ctx, m, 1)
	assert.ErrorIs(t, err, ErrStaleVersion)

	stored, err := repos.Master.FindByID(ctx, "vin_doc_0001")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentVersionNumber)
	assert.Len(t, stored.VersionHistory, 1)
}

func TestMasterFindForUpdate(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	err := repos.Transaction(ctx, func(tx *Repositories) error {
		m, err := tx.Master.FindForUpdate(ctx, "vin_doc_0001")
		if err != nil {
			return err
		}
		assert.Equal(t, 1, m.CurrentVersionNumber)
		return nil
	})
	require.NoError(t, err)

	_, err = repos.Master.FindForUpdate(ctx, "vin_doc_0404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	boom := errors.New("boom")

	err := repos.Transaction(ctx, func(tx *Repositories) error {
		seedDocument(t, tx, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := repos.Master.Exists(ctx, "vin_doc_0001")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = repos.Version.GetLatest(ctx, "vin_doc_0001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastIDOrdersByLength(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	seedDocument(t, repos, "vin_doc_9999", "vin_mmat_0002", entity.StatusDraft)
	seedDocument(t, repos, "vin_doc_10000", "vin_mmat_0010", entity.StatusDraft)
	seedDocument(t, repos, "vin_docX0500", "vin_mmat_0003", entity.StatusDraft)

	last, err := repos.Master.LastID(ctx, "vin_doc_")
	require.NoError(t, err)
	assert.Equal(t, "vin_doc_10000", last)

	last, err = repos.Version.LastHumanReadableID(ctx, "vin_mmat_")
	require.NoError(t, err)
	assert.Equal(t, "vin_mmat_0010", last)

	last, err = repos.SKU.LastID(ctx, "SKU")
	require.NoError(t, err)
	assert.Equal(t, "", last)
}

func TestListCurrentJoinsCurrentVersion(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)
	m2, v2 := seedDocument(t, repos, "vin_doc_0002", "vin_mmat_0002", entity.StatusSubmittedVerified)

	next := *v2
	next.VersionUID = uuid.NewString()
	next.VersionNumber = 2
	next.Status = entity.StatusSubmittedUnverified
	require.NoError(t, repos.Version.Append(ctx, &next))
	m2.CurrentVersionNumber = 2
	m2.CurrentVersionUID = next.VersionUID
	require.NoError(t, repos.Master.Save(ctx, m2, 1))

	all, err := repos.Master.ListCurrent(ctx, entity.AllStatuses)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "vin_doc_0002", all[0].DocumentID)
	assert.Equal(t, 2, all[0].VersionNumber)
	assert.Equal(t, "vin_doc_0001", all[1].DocumentID)

	verified, err := repos.Master.ListCurrent(ctx, []string{entity.StatusSubmittedVerified})
	require.NoError(t, err)
	assert.Empty(t, verified)
}

func TestSKURepository(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(testutil.SetupTestDB(t))
	seedDocument(t, repos, "vin_doc_0001", "vin_mmat_0001", entity.StatusDraft)

	sku := &entity.MaterialSKU{SKUID: "SKU001", DocumentID: "vin_doc_0001", Color: strPtr("Navy"), CreatedBy: "u1"}
	require.NoError(t, repos.SKU.Create(ctx, sku))

	dup := &entity.MaterialSKU{SKUID: "SKU001", DocumentID: "vin_doc_0001", CreatedBy: "u1"}
	assert.ErrorIs(t, repos.SKU.Create(ctx, dup), ErrConstraintViolation)

	skus, err := repos.SKU.ListByDocument(ctx, "vin_doc_0001")
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, "Navy", *skus[0].Color)

	last, err := repos.SKU.LastID(ctx, "SKU")
	require.NoError(t, err)
	assert.Equal(t, "SKU001", last)
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))
	assert.ErrorIs(t, translateError(errors.New("UNIQUE constraint failed: x.y")), ErrConstraintViolation)
	assert.ErrorIs(t, translateError(errors.New(`ERROR: duplicate key value violates unique constraint "pk" (SQLSTATE 23505)`)), ErrConstraintViolation)
	other := errors.New("syntax error")
	assert.Equal(t, other, translateError(other))
}
