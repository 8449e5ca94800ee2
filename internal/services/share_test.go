package services

import (
	"context"
	"testing"
	"time"

	"deo-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShare(t *testing.T) {
	publisher := testutil.NewPublisher()
	svc := NewShareService(publisher, 24*time.Hour)

	res, err := svc.Share(context.Background(), "u1", ShareRequest{Title: "Peace", Message: "Be still."})
	require.NoError(t, err)
	assert.Equal(t, ShareShared, res.Status)
	assert.Equal(t, 86400, res.ExpiresIn)
	assert.Contains(t, res.URL, "shares/u1/")

	for _, body := range publisher.Objects() {
		assert.Equal(t, "Peace\n\nBe still.", body)
	}
}

func TestShareOutcomes(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		userID     string
		message    string
		fail       bool
		wantStatus ShareStatus
		wantErr    error
	}{
		{name: "dismissed", ctx: cancelled, userID: "u1", message: "m", wantStatus: ShareCancelled},
		{name: "storage error", ctx: context.Background(), userID: "u1", message: "m", fail: true, wantStatus: ShareError, wantErr: ErrWriteFailed},
		{name: "empty message", ctx: context.Background(), userID: "u1", message: " ", wantErr: ErrValidation},
		{name: "no session", ctx: context.Background(), userID: "", message: "m", wantErr: ErrNoSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := testutil.NewPublisher()
			if tt.fail {
				publisher.FailWrites(testutil.ErrInjected)
			}
			svc := NewShareService(publisher, time.Hour)

			res, err := svc.Share(tt.ctx, tt.userID, ShareRequest{Message: tt.message})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantStatus != "" {
				require.NotNil(t, res)
				assert.Equal(t, tt.wantStatus, res.Status)
			}
			assert.Empty(t, publisher.Objects())
		})
	}
}
