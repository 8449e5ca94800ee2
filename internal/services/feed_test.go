package services

import (
	"context"
	"testing"

	"deo-backend/internal/models"
	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPublishOnlyReachesScope(t *testing.T) {
	feed := NewFeed()
	a := feed.Subscribe("users/a/prayers", "s1")
	b := feed.Subscribe("users/b/prayers", "s2")
	defer a.Close()
	defer b.Close()

	feed.Publish(Snapshot{Scope: "users/a/prayers", Collection: "prayers", Records: []int{1}})

	snap := recv(t, a)
	assert.Equal(t, []int{1}, snap.Records)
	requireNoSnapshot(t, b)
}

func TestSubscriptionKeepsLatestSnapshot(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe("users/a/prayers", "s1")
	defer sub.Close()

	sub.offer(Snapshot{Scope: "users/a/prayers", Initial: true, Records: 0})
	for i := 1; i <= 3; i++ {
		feed.Publish(Snapshot{Scope: "users/a/prayers", Records: i})
	}

	snap := recv(t, sub)
	assert.Equal(t, 3, snap.Records)
	assert.True(t, snap.Initial, "replacing an unread first snapshot keeps it marked initial")
	requireNoSnapshot(t, sub)
}

func TestSubscriptionClose(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe("users/a/checklist", "s1")
	assert.Equal(t, 1, feed.Subscribers("users/a/checklist"))
	assert.False(t, sub.Closed())

	sub.Close()
	sub.Close()
	assert.True(t, sub.Closed())

	requireClosed(t, sub)
	assert.Equal(t, 0, feed.Subscribers("users/a/checklist"))
	assert.NotPanics(t, func() {
		feed.Publish(Snapshot{Scope: "users/a/checklist"})
	})
}

func TestFeedCloseSession(t *testing.T) {
	feed := NewFeed()
	mine1 := feed.Subscribe("users/a/prayers", "s1")
	mine2 := feed.Subscribe("users/a/checklist", "s1")
	other := feed.Subscribe("users/a/prayers", "s2")
	defer other.Close()

	assert.Equal(t, 2, feed.CloseSession("s1"))
	requireClosed(t, mine1)
	requireClosed(t, mine2)
	assert.Equal(t, 1, feed.Subscribers("users/a/prayers"))
	assert.Equal(t, 0, feed.CloseSession("s1"))
}

func TestFeedFollowsSignOut(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	gate := NewSessionGate(testutil.NewSessions(), "secret", 30, clock)
	feed := NewFeed()
	feed.FollowSessions(gate)

	_, session, err := gate.Open(ctx, &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	sub := feed.Subscribe(ScopePath("u1", "prayers"), session.ID)
	require.NoError(t, gate.Close(ctx, *session))

	requireClosed(t, sub)
	assert.Equal(t, 0, feed.Subscribers(ScopePath("u1", "prayers")))
}
