// Package expiry holds the pure time predicates of the share lifecycle.
// Expiry is evaluated lazily on every access; the reaper uses the same
// predicate for hygiene.
package expiry

import (
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
)

// Clock supplies current time; injected so expiry boundaries are testable
// without real-time waits.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IsExpired reports whether deadline has passed at now. The deadline itself
// counts as expired.
func IsExpired(deadline, now time.Time) bool {
	return !deadline.After(now)
}

// Next returns the status a share should be in at now. Only non-terminal
// statuses decay to Expired; Revoked stays Revoked.
func Next(status model.ShareStatus, deadline, now time.Time) model.ShareStatus {
	if status.CanTransition(model.StatusExpired) && IsExpired(deadline, now) {
		return model.StatusExpired
	}
	return status
}
