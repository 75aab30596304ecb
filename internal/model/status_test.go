package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShareStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to ShareStatus
		ok       bool
	}{
		{StatusPending, StatusDelivered, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusRevoked, true},
		{StatusDelivered, StatusDelivered, true},
		{StatusDelivered, StatusExpired, true},
		{StatusDelivered, StatusRevoked, false},
		{StatusDelivered, StatusPending, false},
		{StatusExpired, StatusPending, false},
		{StatusExpired, StatusDelivered, false},
		{StatusRevoked, StatusPending, false},
		{StatusRevoked, StatusDelivered, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestShareStatus_Terminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusDelivered.Terminal())
	require.True(t, StatusExpired.Terminal())
	require.True(t, StatusRevoked.Terminal())
}

func TestTransitionSources(t *testing.T) {
	require.ElementsMatch(t,
		[]ShareStatus{StatusPending, StatusDelivered},
		TransitionSources(StatusDelivered))
	require.ElementsMatch(t,
		[]ShareStatus{StatusPending, StatusDelivered},
		TransitionSources(StatusExpired))
	require.ElementsMatch(t,
		[]ShareStatus{StatusPending},
		TransitionSources(StatusRevoked))
	require.Empty(t, TransitionSources(StatusPending))
}

func TestParseShareStatus(t *testing.T) {
	for _, s := range []string{"pending", "delivered", "expired", "revoked"} {
		st, err := ParseShareStatus(s)
		require.NoError(t, err)
		require.Equal(t, ShareStatus(s), st)
	}
	_, err := ParseShareStatus("open")
	require.Error(t, err)
}
