package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inspirationFixture struct {
	svc       *InspirationService
	store     *testutil.Inspirations
	publisher *testutil.Publisher
	clock     *testutil.Clock
}

func newInspirationFixture(t *testing.T) inspirationFixture {
	t.Helper()
	store := testutil.NewInspirations()
	publisher := testutil.NewPublisher()
	clock := newTestClock()
	share := NewShareService(publisher, time.Hour)
	return inspirationFixture{
		svc:       NewInspirationService(store, NewFeed(), share, clock),
		store:     store,
		publisher: publisher,
		clock:     clock,
	}
}

func TestInspirationsSeedBuiltins(t *testing.T) {
	ctx := context.Background()
	f := newInspirationFixture(t)

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, len(BuiltinInspirations))
	for i, p := range list {
		assert.Equal(t, BuiltinInspirations[i].Title, p.Title)
		assert.False(t, p.IsUserCreated)
		assert.Nil(t, p.OwnerID)
	}

	_, err = f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Seeds())
}

func TestInspirationAddAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newInspirationFixture(t)
	_, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	created, err := f.svc.Add(ctx, "u1", "Exam Day", "Lord, steady my hands.")
	require.NoError(t, err)
	assert.True(t, created.IsUserCreated)
	require.NotNil(t, created.OwnerID)
	assert.Equal(t, "u1", *created.OwnerID)

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, list[0].ID)

	title := " Exam Morning "
	updated, err := f.svc.Update(ctx, "u1", created.ID, &title, nil)
	require.NoError(t, err)
	assert.Equal(t, "Exam Morning", updated.Title)
	assert.Equal(t, "Lord, steady my hands.", updated.Body)
}

func TestInspirationUpdateRefused(t *testing.T) {
	ctx := context.Background()
	f := newInspirationFixture(t)
	builtins, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)

	other := "u2"
	f.store.Put(models.InspirationPrayer{
		ID: "foreign", UserID: "u1", Title: "Shared", Body: "b",
		IsUserCreated: true, OwnerID: &other, CreatedAt: testNow,
	})

	title := "changed"
	empty := "  "
	tests := []struct {
		name    string
		userID  string
		id      string
		title   *string
		wantErr error
	}{
		{name: "built-in", userID: "u1", id: builtins[0].ID, title: &title, wantErr: ErrNotOwner},
		{name: "owned by someone else", userID: "u1", id: "foreign", title: &title, wantErr: ErrNotOwner},
		{name: "missing", userID: "u1", id: "nope", title: &title, wantErr: ErrNotFound},
		{name: "blank title", userID: "u1", id: "foreign", title: &empty, wantErr: ErrValidation},
		{name: "no session", userID: "", id: "foreign", title: &title, wantErr: ErrNoSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.userID, tt.id, tt.title, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	p, err := f.store.GetByID(ctx, "u1", builtins[0].ID)
	require.NoError(t, err)
	assert.Equal(t, BuiltinInspirations[0].Title, p.Title)
}

func TestInspirationUpdateNoFields(t *testing.T) {
	ctx := context.Background()
	f := newInspirationFixture(t)
	created, err := f.svc.Add(ctx, "u1", "t", "b")
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, "u1", created.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestInspirationShare(t *testing.T) {
	ctx := context.Background()
	f := newInspirationFixture(t)
	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)

	res, err := f.svc.Share(ctx, "u1", list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ShareShared, res.Status)
	assert.NotEmpty(t, res.URL)

	objects := f.publisher.Objects()
	require.Len(t, objects, 1)
	for key, body := range objects {
		assert.True(t, strings.HasPrefix(key, "shares/u1/"))
		assert.True(t, strings.HasPrefix(body, list[0].Title+"\n\n"))
	}

	_, err = f.svc.Share(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInspirationShareUnavailable(t *testing.T) {
	svc := NewInspirationService(testutil.NewInspirations(), NewFeed(), nil, newTestClock())
	_, err := svc.Share(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, ErrShareUnavailable)
}
