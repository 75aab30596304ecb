package repository

import (
	"context"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ExpiredShare identifies a share the reaper has just marked expired.
type ExpiredShare struct {
	SharedID      uuid.UUID
	CiphertextRef string
}

// LedgerRepository is the persisted lifecycle of file records and share
// links. Every mutating operation is per-record atomic so concurrent
// requests against the same shared_id cannot race past invariants.
type LedgerRepository interface {
	// CreateShare persists the record and its link in one transaction with
	// status Pending.
	CreateShare(ctx context.Context, file *model.FileRecord, link *model.ShareLink) error

	// GetBySharedID loads the full aggregate.
	GetBySharedID(ctx context.Context, sharedID uuid.UUID) (*model.Share, error)

	// ListSentBy pages through shares owned by userID, newest first.
	// Returns the page and the total row count.
	ListSentBy(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.SentFileDetails, int64, error)

	// ListReceivedBy pages through shares addressed to email, newest first.
	ListReceivedBy(ctx context.Context, email string, page, limit int) ([]model.ReceivedFileDetails, int64, error)

	// IncrementFailedAttempt adds one failed attempt atomically and returns
	// the new counter value. Concurrent increments never lose an update.
	IncrementFailedAttempt(ctx context.Context, sharedID uuid.UUID) (int, error)

	// ResetFailedAttempts zeroes the counter.
	ResetFailedAttempts(ctx context.Context, sharedID uuid.UUID) error

	// SetStatus moves the link to the target status, guarded by the
	// transition table. Returns errs.ErrTransition on an illegal move and
	// errs.ErrNotFound for an unknown id.
	SetStatus(ctx context.Context, sharedID uuid.UUID, to model.ShareStatus) error

	// MarkExpired transitions every share whose deadline passed before now
	// to Expired (up to limit rows) and reports them for blob cleanup.
	MarkExpired(ctx context.Context, now time.Time, limit int) ([]ExpiredShare, error)
}
