// Package reaper sweeps shares whose deadline passed without a retrieval.
// Expiry is already enforced lazily on access; the sweep keeps the ledger
// honest for listings and releases ciphertext blobs early.
package reaper

import (
	"context"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/blob"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/expiry"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/repository"
	"go.uber.org/zap"
)

// batchSize bounds one sweep so a large backlog cannot hold row locks long.
const batchSize = 100

type Reaper struct {
	ledger   repository.LedgerRepository
	blobs    blob.Store
	clock    expiry.Clock
	interval time.Duration
	log      *zap.Logger
}

func New(ledger repository.LedgerRepository, blobs blob.Store, clock expiry.Clock, interval time.Duration, log *zap.Logger) *Reaper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reaper{ledger: ledger, blobs: blobs, clock: clock, interval: interval, log: log}
}

// Run sweeps on a ticker until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.log.Warn("expiry sweep failed", zap.Error(err))
			} else if n > 0 {
				r.log.Info("expired shares reaped", zap.Int("count", n))
			}
		}
	}
}

// Sweep marks one batch of overdue shares expired and drops their blobs.
// Returns the number of shares transitioned.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	expired, err := r.ledger.MarkExpired(ctx, r.clock.Now(), batchSize)
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		if err := r.blobs.Delete(ctx, e.CiphertextRef); err != nil {
			r.log.Warn("expired blob delete failed",
				zap.String("shared_id", e.SharedID.String()),
				zap.String("ref", e.CiphertextRef),
				zap.Error(err))
		}
	}
	return len(expired), nil
}
