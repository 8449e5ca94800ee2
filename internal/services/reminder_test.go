package services

import (
	"context"
	"testing"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderRunOnce(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUsers()
	streaks := testutil.NewStreaks(users)
	notifier := testutil.NewNotifier()
	clock := newTestClock()
	svc := NewReminderService(streaks, notifier, clock, time.UTC, time.Hour)

	token := "device-1"
	require.NoError(t, users.Create(ctx, &models.User{ID: "at-risk", Email: "a@example.com", PushToken: &token}))
	require.NoError(t, users.Create(ctx, &models.User{ID: "no-token", Email: "b@example.com"}))
	require.NoError(t, users.Create(ctx, &models.User{ID: "done-today", Email: "c@example.com", PushToken: &token}))

	streaks.Put(models.StreakState{UserID: "at-risk", StreakCount: 4, LastLoggedDate: ptr(day(2024, 3, 10))})
	streaks.Put(models.StreakState{UserID: "no-token", StreakCount: 2, LastLoggedDate: ptr(day(2024, 3, 10))})
	streaks.Put(models.StreakState{UserID: "done-today", StreakCount: 9, LastLoggedDate: ptr(day(2024, 3, 11))})

	sent, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	pushes := notifier.Pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, "device-1", pushes[0].DeviceToken)
	assert.Contains(t, pushes[0].Body, "4-day")

	sent, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "one reminder per user per day")

	clock.AddDays(1)
	streaks.Put(models.StreakState{UserID: "at-risk", StreakCount: 5, LastLoggedDate: ptr(day(2024, 3, 11))})
	sent, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestReminderPushFailure(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUsers()
	streaks := testutil.NewStreaks(users)
	notifier := testutil.NewNotifier()
	svc := NewReminderService(streaks, notifier, newTestClock(), time.UTC, time.Hour)

	token := "device-1"
	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Email: "a@example.com", PushToken: &token}))
	streaks.Put(models.StreakState{UserID: "u1", StreakCount: 3, LastLoggedDate: ptr(day(2024, 3, 10))})

	notifier.FailWrites(testutil.ErrInjected)
	sent, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	notifier.FailWrites(nil)
	sent, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "a failed push is retried on the next run")
}

func TestReminderListFailure(t *testing.T) {
	streaks := testutil.NewStreaks(testutil.NewUsers())
	streaks.FailReads(testutil.ErrInjected)
	svc := NewReminderService(streaks, testutil.NewNotifier(), newTestClock(), time.UTC, time.Hour)

	_, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestReminderRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewReminderService(testutil.NewStreaks(nil), testutil.NewNotifier(), newTestClock(), time.UTC, time.Hour)

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Run did not stop")
	}
}
