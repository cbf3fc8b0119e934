package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cleanops-client/internal/dto"
	"github.com/noah-isme/cleanops-client/internal/models"
	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

func cleanedAssignment(id string) models.Assignment {
	completed := fixedNow.Add(-2 * time.Hour)
	return models.Assignment{ID: id, Status: models.StatusCleaned, StaffCompletedAt: &completed}
}

func newReviewStoreForTest(t *testing.T, items ...models.Assignment) (*ReviewStore, *fakeWorkflowAPI) {
	t.Helper()
	api := &fakeWorkflowAPI{page: pageOf(items...)}
	store := NewReviewStore(api, nil, nil, WithClock(fixedClock), WithStoreMetrics(NewMetricsService()))
	require.NoError(t, store.FetchMine(context.Background(), dto.ReviewFilter{}))
	api.calls = nil
	return store, api
}

func TestReviewStoreApproveWithRating(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A1"))

	require.NoError(t, store.Approve(context.Background(), "A1", intPtr(4), strPtr("ok")))

	got, _ := store.ByID("A1")
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, 4, *got.Rating)
	assert.Equal(t, "ok", *got.SupervisorNotes)
	assert.Equal(t, fixedNow, *got.SupervisorReviewedAt)
	assert.Equal(t, 4, *api.lastApprove.Rating)
	assert.NoError(t, got.Validate())
}

func TestReviewStoreApproveWithoutRatingKeepsFields(t *testing.T) {
	a := cleanedAssignment("A1")
	a.SupervisorNotes = strPtr("earlier")
	store, api := newReviewStoreForTest(t, a)

	require.NoError(t, store.Approve(context.Background(), "A1", nil, nil))

	got, _ := store.ByID("A1")
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Nil(t, got.Rating)
	assert.Equal(t, "earlier", *got.SupervisorNotes)
	assert.Nil(t, api.lastApprove.Rating)
	assert.Nil(t, api.lastApprove.SupervisorNotes)
}

func TestReviewStoreApproveBlankNotesNotSent(t *testing.T) {
	a := cleanedAssignment("A1")
	a.SupervisorNotes = strPtr("earlier")
	store, api := newReviewStoreForTest(t, a)

	require.NoError(t, store.Approve(context.Background(), "A1", intPtr(5), strPtr(" \t")))

	got, _ := store.ByID("A1")
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "earlier", *got.SupervisorNotes)
	assert.Nil(t, api.lastApprove.SupervisorNotes)
}

func TestReviewStoreApproveRejectsOutOfRangeRating(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A1"))

	err := store.Approve(context.Background(), "A1", intPtr(6), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, api.calls)
	assert.NotEmpty(t, store.LastError())
}

func TestReviewStoreRejectRequiresReason(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A2"))
	before, _ := store.ByID("A2")

	for _, reason := range []string{"", "   "} {
		err := store.Reject(context.Background(), "A2", reason)
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
	}
	assert.Equal(t, 0, api.callCount())
	after, _ := store.ByID("A2")
	assert.Equal(t, before, after)
	assert.Equal(t, "rejection reason is required", store.LastError())
}

func TestReviewStoreRejectPatchesAfterAck(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A2"))

	require.NoError(t, store.Reject(context.Background(), "A2", "missed corners"))

	got, _ := store.ByID("A2")
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "missed corners", *got.RejectionReason)
	assert.Equal(t, fixedNow, *got.SupervisorReviewedAt)
	assert.Equal(t, "missed corners", api.lastReject.RejectionReason)
	assert.NoError(t, got.Validate())
}

func TestReviewStoreServerConflict(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A1"))
	before, _ := store.ByID("A1")
	api.reviewErr = appErrors.FromResponse(http.StatusConflict, []byte(`{"detail":"Assignment must be in cleaned status to approve"}`))

	err := store.Approve(context.Background(), "A1", intPtr(5), nil)
	require.Error(t, err)

	after, _ := store.ByID("A1")
	assert.Equal(t, before, after)
	assert.Equal(t, "Assignment must be in cleaned status to approve", store.LastError())
}

func TestReviewStoreFailureWithoutDetailUsesFallback(t *testing.T) {
	store, api := newReviewStoreForTest(t, cleanedAssignment("A1"))
	api.reviewErr = appErrors.FromResponse(http.StatusInternalServerError, []byte("oops"))

	require.Error(t, store.Reject(context.Background(), "A1", "dusty"))
	assert.Equal(t, msgRejectFailed, store.LastError())
	assert.False(t, store.Loading())
}

func TestReviewStoreDefaultAndOverrideFilter(t *testing.T) {
	store, api := newReviewStoreForTest(t)

	require.NoError(t, store.FetchMine(context.Background(), dto.ReviewFilter{}))
	assert.Equal(t, "cleaned", api.lastReview.Values().Get("status"))

	require.NoError(t, store.FetchMine(context.Background(), dto.ReviewFilter{Status: models.StatusApproved}))
	assert.Equal(t, "approved", api.lastReview.Values().Get("status"))
}

func TestReviewStoreTerminalRecordsStayTerminal(t *testing.T) {
	store, _ := newReviewStoreForTest(t, cleanedAssignment("A1"))
	require.NoError(t, store.Approve(context.Background(), "A1", nil, nil))

	// Server accepted a second review; the local approved record must not move.
	require.NoError(t, store.Reject(context.Background(), "A1", "late"))
	got, _ := store.ByID("A1")
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Nil(t, got.RejectionReason)
}
