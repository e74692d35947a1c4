package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/doc-approval/internal/domain/apperr"
	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

func newDocumentFixture(t *testing.T) (*memStore, DocumentService) {
	t.Helper()
	store := newMemStore()
	svc := NewDocumentService(
		store, store.Versions(), store.Tasks(), store.Records(), store.Users(), store.Audit(), store, nopLogger{})
	return store, svc
}

func TestCreateDraft(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)

	doc, err := svc.CreateDraft(context.Background(), "owner-1", "Q3 plan", "req-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, doc.Status)
	assert.Equal(t, "owner-1", doc.OwnerID)
	require.NotEmpty(t, doc.CurrentVersionID)

	version := store.versions[doc.CurrentVersionID]
	require.NotNil(t, version)
	assert.Equal(t, 1, version.VersionNo)
	assert.Empty(t, version.Content)

	require.Len(t, store.auditLog, 1)
	assert.Equal(t, entity.AuditDocumentCreated, store.auditLog[0].Action)
	assert.False(t, store.auditLog[0].CreatedAt.IsZero())
}

func TestCreateDraft_EmptyTitle(t *testing.T) {
	_, svc := newDocumentFixture(t)

	_, err := svc.CreateDraft(context.Background(), "owner-1", "", "req-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestUpdateDraft(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusDraft, "ver-1", "")
	seedVersion(store, "ver-1", "doc-1", 1, "old")

	title := "new title"
	content := "new content"
	err := svc.UpdateDraft(context.Background(), "owner-1", "doc-1", &title, &content, "req-1")
	require.NoError(t, err)

	assert.Equal(t, "new title", store.documents["doc-1"].Title)
	assert.Equal(t, "new content", store.versions["ver-1"].Content)
}

func TestUpdateDraft_OnlyDrafts(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusInReview, "ver-1", "flow-1")
	seedVersion(store, "ver-1", "doc-1", 1, "old")

	content := "sneaky edit"
	err := svc.UpdateDraft(context.Background(), "owner-1", "doc-1", nil, &content, "req-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "old", store.versions["ver-1"].Content)
}

func TestUpdateDraft_NonOwnerGetsNotFound(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedUser(store, "other-1", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusDraft, "ver-1", "")
	seedVersion(store, "ver-1", "doc-1", 1, "old")

	title := "hijack"
	err := svc.UpdateDraft(context.Background(), "other-1", "doc-1", &title, nil, "req-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetDocument_VisibleToAssignee(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedUser(store, "rev-a", entity.RoleReviewer)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusInReview, "ver-1", "flow-1")
	seedVersion(store, "ver-1", "doc-1", 1, "text")
	seedTask(store, "task-a", "doc-1", "ver-1", "rev-a", "first", flow.ModeSerial, entity.TaskPending)

	detail, err := svc.GetDocument(context.Background(), "rev-a", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", detail.Document.ID)
	require.NotNil(t, detail.CurrentVersion)
	assert.Equal(t, "text", detail.CurrentVersion.Content)
	assert.Len(t, detail.Tasks, 1)
}

func TestGetDocument_HiddenFromStrangers(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedUser(store, "stranger", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusDraft, "ver-1", "")
	seedVersion(store, "ver-1", "doc-1", 1, "text")

	_, err := svc.GetDocument(context.Background(), "stranger", "doc-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListDocuments_ByRole(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedUser(store, "owner-2", entity.RoleUser)
	seedUser(store, "rev-a", entity.RoleReviewer)
	seedUser(store, "admin-1", entity.RoleAdmin)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusDraft, "", "")
	seedDocument(store, "doc-2", "owner-2", lifecycle.StatusInReview, "ver-2", "flow-1")
	seedVersion(store, "ver-2", "doc-2", 1, "text")
	seedTask(store, "task-a", "doc-2", "ver-2", "rev-a", "first", flow.ModeSerial, entity.TaskPending)

	owned, err := svc.ListDocuments(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "doc-1", owned[0].ID)

	assigned, err := svc.ListDocuments(context.Background(), "rev-a")
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "doc-2", assigned[0].ID)

	all, err := svc.ListDocuments(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReopenAsDraft(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusRejected, "ver-2", "flow-1")
	seedVersion(store, "ver-1", "doc-1", 1, "v1 text")
	seedVersion(store, "ver-2", "doc-1", 2, "rejected text")

	result, err := svc.ReopenAsDraft(context.Background(), "owner-1", "doc-1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, result.Status)

	doc := store.documents["doc-1"]
	assert.Equal(t, lifecycle.StatusDraft, doc.Status)

	// a fresh version 3 carrying the rejected content is now current
	fresh := store.versions[doc.CurrentVersionID]
	require.NotNil(t, fresh)
	assert.Equal(t, 3, fresh.VersionNo)
	assert.Equal(t, "rejected text", fresh.Content)
	assert.NotEqual(t, "ver-2", fresh.ID)
}

func TestReopenAsDraft_OnlyRejected(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)

	for _, status := range []lifecycle.Status{lifecycle.StatusDraft, lifecycle.StatusInReview, lifecycle.StatusApproved} {
		t.Run(string(status), func(t *testing.T) {
			seedDocument(store, "doc-1", "owner-1", status, "ver-1", "")
			seedVersion(store, "ver-1", "doc-1", 1, "text")

			_, err := svc.ReopenAsDraft(context.Background(), "owner-1", "doc-1", "req-1")
			require.Error(t, err)
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		})
	}
}

func TestReopenAsDraft_AuditFailureRollsBack(t *testing.T) {
	store, svc := newDocumentFixture(t)
	seedUser(store, "owner-1", entity.RoleUser)
	seedDocument(store, "doc-1", "owner-1", lifecycle.StatusRejected, "ver-2", "flow-1")
	seedVersion(store, "ver-2", "doc-1", 2, "rejected text")
	store.recordAuditFunc = func(ctx context.Context, entry *entity.AuditEntry) error {
		return assert.AnError
	}

	_, err := svc.ReopenAsDraft(context.Background(), "owner-1", "doc-1", "req-1")
	require.Error(t, err)

	assert.Equal(t, lifecycle.StatusRejected, store.documents["doc-1"].Status)
	assert.Equal(t, "ver-2", store.documents["doc-1"].CurrentVersionID)
	assert.Len(t, store.versions, 1)
}
