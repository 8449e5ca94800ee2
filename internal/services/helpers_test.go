package services

import (
	"testing"
	"time"

	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

const waitTimeout = time.Second

// monday 2024-03-11 09:00 UTC
var testNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func newTestClock() *testutil.Clock {
	return testutil.NewClock(testNow)
}

func recv(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func requireNoSnapshot(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if ok {
			t.Fatalf("unexpected snapshot for %s", snap.Scope)
		}
	case <-time.After(20 * time.Millisecond):
	}
}

func requireClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.Snapshots():
		require.False(t, ok, "subscription still open")
	case <-time.After(waitTimeout):
		t.Fatal("subscription was not closed")
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
