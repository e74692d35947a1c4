package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// Full lifecycle: draft, submit, serial step hand-off, rejection in the
// parallel step, reopen, resubmit, and approval on the second pass.
func TestWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	docSvc := NewDocumentService(
		store, store.Versions(), store.Tasks(), store.Records(), store.Users(), store.Audit(), store, nopLogger{})
	submitSvc := NewSubmitService(
		store, store.Versions(), store.Templates(), store.Tasks(), store.Users(), store.Audit(), store, nopLogger{})
	reviewSvc := NewReviewService(
		store, store.Templates(), store.Tasks(), store.Records(), store.Audit(), store, nopLogger{})

	seedUser(store, "owner-1", entity.RoleUser)
	for _, id := range []string{"rev-a", "rev-b", "rev-c", "rev-d"} {
		seedUser(store, id, entity.RoleReviewer)
	}
	store.templates["flow-1"] = serialParallelTemplate()

	doc, err := docSvc.CreateDraft(ctx, "owner-1", "launch checklist", "r1")
	require.NoError(t, err)

	content := "first pass"
	require.NoError(t, docSvc.UpdateDraft(ctx, "owner-1", doc.ID, nil, &content, "r2"))

	// Submit: serial first step starts with rev-a only.
	result, err := submitSvc.SubmitForApproval(ctx, "owner-1", doc.ID, "flow-1", "r3")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInReview, result.Status)

	actPending := func(reviewer string, action entity.ReviewAction, reason string) *WorkflowResult {
		t.Helper()
		tasks, err := reviewSvc.ListMyPendingTasks(ctx, reviewer)
		require.NoError(t, err)
		require.Len(t, tasks, 1, "expected one pending task for %s", reviewer)
		res, err := reviewSvc.ActOnReviewTask(ctx, reviewer, tasks[0].ID, action, reason, "r-act")
		require.NoError(t, err)
		return res
	}

	// Serial hand-off, then into the parallel step.
	assert.Equal(t, lifecycle.StatusInReview, actPending("rev-a", entity.ActionApprove, "").Status)
	assert.Equal(t, lifecycle.StatusInReview, actPending("rev-b", entity.ActionApprove, "").Status)

	// One parallel reviewer rejects: document Rejected, sibling task cancelled.
	res := actPending("rev-c", entity.ActionReject, "numbers missing")
	assert.Equal(t, lifecycle.StatusRejected, res.Status)
	remaining, err := reviewSvc.ListMyPendingTasks(ctx, "rev-d")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Reopen copies the rejected content into a fresh draft version.
	res, err = docSvc.ReopenAsDraft(ctx, "owner-1", doc.ID, "r4")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, res.Status)

	fixed := "second pass"
	require.NoError(t, docSvc.UpdateDraft(ctx, "owner-1", doc.ID, nil, &fixed, "r5"))

	// Second submission runs the whole flow clean through to Approved.
	_, err = submitSvc.SubmitForApproval(ctx, "owner-1", doc.ID, "flow-1", "r6")
	require.NoError(t, err)
	actPending("rev-a", entity.ActionApprove, "")
	actPending("rev-b", entity.ActionApprove, "")
	actPending("rev-c", entity.ActionApprove, "")
	res = actPending("rev-d", entity.ActionApprove, "")
	assert.Equal(t, lifecycle.StatusApproved, res.Status)

	detail, err := docSvc.GetDocument(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, detail.Document.Status)
	assert.Equal(t, "second pass", detail.CurrentVersion.Content)

	// History: one record per decision across both passes.
	records, err := store.Records().ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, records, 7)
}
