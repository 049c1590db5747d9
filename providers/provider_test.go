package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func withFastRetry(t *testing.T) {
	t.Helper()
	old := searchRetryDelay
	searchRetryDelay = time.Millisecond
	t.Cleanup(func() { searchRetryDelay = old })
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	withFastRetry(t)

	calls := 0
	err := WithRetry(context.Background(), zap.NewNop(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryGivesUpAfterThreeAttempts(t *testing.T) {
	withFastRetry(t)

	calls := 0
	err := WithRetry(context.Background(), zap.NewNop(), "test", func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	withFastRetry(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, zap.NewNop(), "test", func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls)
}
