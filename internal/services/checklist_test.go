package services

import (
	"context"
	"testing"

	"deo-backend/internal/models"
	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistFirstLoadSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewChecklist()
	svc := NewChecklistService(store, NewFeed(), newTestClock())

	view, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 4)

	labels := make([]string, len(view.Items))
	for i, it := range view.Items {
		labels[i] = it.Label
		assert.False(t, it.Done)
		assert.Equal(t, "u1", it.UserID)
	}
	assert.Equal(t, []string{"Morning Prayer", "Rosary", "Examination of Conscience", "Night Prayer"}, labels)
	assert.Equal(t, models.ChecklistSummary{Completed: 0, Total: 4}, view.Summary)

	again, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again.Items, 4)
	assert.Equal(t, 1, store.Seeds())
}

func TestChecklistSeedGuardPersists(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewChecklist()
	svc := NewChecklistService(store, NewFeed(), newTestClock())

	seeded, err := svc.coll.SeedIfEmpty(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, seeded)

	// a second guard check must not write again, even for a new service instance
	other := NewChecklistService(store, NewFeed(), newTestClock())
	seeded, err = other.coll.SeedIfEmpty(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, 1, store.Seeds())
}

func TestChecklistToggleUpdatesSummary(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed()
	svc := NewChecklistService(testutil.NewChecklist(), feed, newTestClock())

	view, err := svc.List(ctx, "u1")
	require.NoError(t, err)

	sub, err := svc.Subscribe(ctx, "u1", "s1")
	require.NoError(t, err)
	defer sub.Close()
	recv(t, sub)

	rosary := view.Items[1]
	updated, err := svc.Toggle(ctx, "u1", rosary.ID, rosary.Done)
	require.NoError(t, err)
	assert.True(t, updated.Done)

	snap := recv(t, sub)
	assert.Equal(t, models.ChecklistSummary{Completed: 1, Total: 4}, snap.Summary)

	updated, err = svc.Toggle(ctx, "u1", rosary.ID, true)
	require.NoError(t, err)
	assert.False(t, updated.Done)

	snap = recv(t, sub)
	assert.Equal(t, models.ChecklistSummary{Completed: 0, Total: 4}, snap.Summary)
}

func TestChecklistSubscribeSeedsEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewChecklistService(testutil.NewChecklist(), NewFeed(), newTestClock())

	sub, err := svc.Subscribe(ctx, "u1", "s1")
	require.NoError(t, err)
	defer sub.Close()

	// the empty first read and the seeded read collapse into one unread snapshot
	snap := recv(t, sub)
	assert.True(t, snap.Initial)
	assert.Len(t, snap.Records.([]models.ChecklistItem), 4)
	assert.Equal(t, models.ChecklistSummary{Completed: 0, Total: 4}, snap.Summary)
}

func TestChecklistToggleErrors(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewChecklist()
	svc := NewChecklistService(store, NewFeed(), newTestClock())
	store.Add(models.ChecklistItem{ID: "mine", UserID: "u1", Label: "Rosary"})

	tests := []struct {
		name    string
		userID  string
		itemID  string
		fail    bool
		wantErr error
	}{
		{name: "no session", userID: "", itemID: "mine", wantErr: ErrNoSession},
		{name: "missing item id", userID: "u1", itemID: "", wantErr: ErrValidation},
		{name: "other user's item", userID: "u2", itemID: "mine", wantErr: ErrNotFound},
		{name: "store rejects write", userID: "u1", itemID: "mine", fail: true, wantErr: ErrWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fail {
				store.FailWrites(testutil.ErrInjected)
				defer store.FailWrites(nil)
			}
			_, err := svc.Toggle(ctx, tt.userID, tt.itemID, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	items, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, items[0].Done)
}

func TestSummarize(t *testing.T) {
	items := []models.ChecklistItem{{Done: true}, {Done: false}, {Done: true}}
	assert.Equal(t, models.ChecklistSummary{Completed: 2, Total: 3}, Summarize(items))
	assert.Equal(t, models.ChecklistSummary{}, Summarize(nil))
}
