package model

import "fmt"

// ShareStatus is the lifecycle state of a share link.
type ShareStatus string

const (
	StatusPending   ShareStatus = "pending"
	StatusDelivered ShareStatus = "delivered"
	StatusExpired   ShareStatus = "expired"
	StatusRevoked   ShareStatus = "revoked"
)

// transitions is the single source of truth for legal status moves.
// Delivered -> Delivered keeps repeat successful retrievals idempotent;
// Delivered -> Expired lets a delivered share still run out. Nothing ever
// returns to Pending, and Expired/Revoked are terminal.
var transitions = map[ShareStatus]map[ShareStatus]bool{
	StatusPending: {
		StatusDelivered: true,
		StatusExpired:   true,
		StatusRevoked:   true,
	},
	StatusDelivered: {
		StatusDelivered: true,
		StatusExpired:   true,
	},
	StatusExpired: {},
	StatusRevoked: {},
}

// CanTransition reports whether moving from s to next is legal.
func (s ShareStatus) CanTransition(next ShareStatus) bool {
	return transitions[s][next]
}

// Terminal reports whether no further transition is possible.
func (s ShareStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionSources returns every status that may legally move to next.
// Used by the ledger to express the guard as a single SQL predicate.
func TransitionSources(next ShareStatus) []ShareStatus {
	var from []ShareStatus
	for _, s := range []ShareStatus{StatusPending, StatusDelivered, StatusExpired, StatusRevoked} {
		if transitions[s][next] {
			from = append(from, s)
		}
	}
	return from
}

// ParseShareStatus validates a stored status value.
func ParseShareStatus(s string) (ShareStatus, error) {
	switch st := ShareStatus(s); st {
	case StatusPending, StatusDelivered, StatusExpired, StatusRevoked:
		return st, nil
	default:
		return "", fmt.Errorf("unknown share status %q", s)
	}
}
