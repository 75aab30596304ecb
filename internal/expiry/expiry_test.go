package expiry

import (
	"testing"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestIsExpired_Boundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, IsExpired(now.Add(time.Nanosecond), now))
	require.True(t, IsExpired(now, now))
	require.True(t, IsExpired(now.Add(-time.Hour), now))
}

func TestNext(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	require.Equal(t, model.StatusPending, Next(model.StatusPending, future, now))
	require.Equal(t, model.StatusExpired, Next(model.StatusPending, past, now))
	require.Equal(t, model.StatusExpired, Next(model.StatusDelivered, past, now))
	require.Equal(t, model.StatusDelivered, Next(model.StatusDelivered, future, now))

	// terminal states never decay
	require.Equal(t, model.StatusRevoked, Next(model.StatusRevoked, past, now))
	require.Equal(t, model.StatusExpired, Next(model.StatusExpired, past, now))
}
