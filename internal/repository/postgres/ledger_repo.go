package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements LedgerRepository using PostgreSQL. All mutations are
// single statements or one transaction, so per-shared_id ordering comes from
// row-level locking rather than any process-wide lock.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// CreateShare persists the file record and its share link in one transaction.
func (r *LedgerRepo) CreateShare(ctx context.Context, file *model.FileRecord, link *model.ShareLink) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const insFile = `
INSERT INTO files (id, owner_id, file_name, file_size, ciphertext_ref,
                   wrapped_dek_sender, wrapped_dek_recipient_gated,
                   password_salt, password_verifier, expiration_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err = tx.Exec(ctx, insFile,
		file.ID, file.OwnerID, file.FileName, file.Size, file.CiphertextRef,
		file.WrappedDEKSender, file.WrappedDEKRecipientGated,
		file.PasswordSalt, file.PasswordVerifier, file.ExpirationDate,
	); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}

	const insLink = `
INSERT INTO share_links (shared_id, file_id, recipient_email, status, failed_attempts)
VALUES ($1,$2,$3,$4,0)`
	if _, err = tx.Exec(ctx, insLink,
		link.SharedID, link.FileID, link.RecipientEmail, string(model.StatusPending),
	); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetBySharedID loads the file record joined with its share link.
func (r *LedgerRepo) GetBySharedID(ctx context.Context, sharedID uuid.UUID) (*model.Share, error) {
	const q = `
SELECT f.id, f.owner_id, f.file_name, f.file_size, f.ciphertext_ref,
       f.wrapped_dek_sender, f.wrapped_dek_recipient_gated,
       f.password_salt, f.password_verifier, f.expiration_date, f.created_at,
       l.shared_id, l.file_id, l.recipient_email, l.status, l.failed_attempts, l.created_at
FROM share_links l
JOIN files f ON f.id = l.file_id
WHERE l.shared_id = $1`
	row := r.db.Pool.QueryRow(ctx, q, sharedID)

	var s model.Share
	var status string
	err := row.Scan(
		&s.File.ID, &s.File.OwnerID, &s.File.FileName, &s.File.Size, &s.File.CiphertextRef,
		&s.File.WrappedDEKSender, &s.File.WrappedDEKRecipientGated,
		&s.File.PasswordSalt, &s.File.PasswordVerifier, &s.File.ExpirationDate, &s.File.CreatedAt,
		&s.Link.SharedID, &s.Link.FileID, &s.Link.RecipientEmail, &status, &s.Link.FailedAttempts, &s.Link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if s.Link.Status, err = model.ParseShareStatus(status); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSentBy pages through shares owned by userID, newest first.
func (r *LedgerRepo) ListSentBy(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.SentFileDetails, int64, error) {
	const qCount = `
SELECT COUNT(*)
FROM share_links l JOIN files f ON f.id = l.file_id
WHERE f.owner_id = $1`
	var total int64
	if err := r.db.Pool.QueryRow(ctx, qCount, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT l.shared_id, f.file_name, l.recipient_email, f.expiration_date, f.created_at
FROM share_links l JOIN files f ON f.id = l.file_id
WHERE f.owner_id = $1
ORDER BY f.created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.SentFileDetails
	for rows.Next() {
		var d model.SentFileDetails
		if err := rows.Scan(&d.FileID, &d.FileName, &d.RecipientEmail, &d.ExpirationDate, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// ListReceivedBy pages through shares addressed to email, newest first.
func (r *LedgerRepo) ListReceivedBy(ctx context.Context, email string, page, limit int) ([]model.ReceivedFileDetails, int64, error) {
	const qCount = `
SELECT COUNT(*)
FROM share_links l
WHERE l.recipient_email = $1`
	var total int64
	if err := r.db.Pool.QueryRow(ctx, qCount, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT l.shared_id, f.file_name, u.email, f.expiration_date, f.created_at
FROM share_links l
JOIN files f ON f.id = l.file_id
JOIN users u ON u.id = f.owner_id
WHERE l.recipient_email = $1
ORDER BY f.created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, email, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ReceivedFileDetails
	for rows.Next() {
		var d model.ReceivedFileDetails
		if err := rows.Scan(&d.FileID, &d.FileName, &d.SenderEmail, &d.ExpirationDate, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// IncrementFailedAttempt adds one failure atomically and returns the new count.
func (r *LedgerRepo) IncrementFailedAttempt(ctx context.Context, sharedID uuid.UUID) (int, error) {
	const q = `
UPDATE share_links
SET failed_attempts = failed_attempts + 1
WHERE shared_id = $1
RETURNING failed_attempts`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, sharedID).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

// ResetFailedAttempts zeroes the counter.
func (r *LedgerRepo) ResetFailedAttempts(ctx context.Context, sharedID uuid.UUID) error {
	const q = `UPDATE share_links SET failed_attempts = 0 WHERE shared_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, sharedID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetStatus applies a guarded transition. The WHERE clause carries the
// transition table, so an illegal move affects zero rows and commits nothing.
func (r *LedgerRepo) SetStatus(ctx context.Context, sharedID uuid.UUID, to model.ShareStatus) error {
	sources := model.TransitionSources(to)
	if len(sources) == 0 {
		return errs.ErrTransition
	}
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	const q = `UPDATE share_links SET status = $2 WHERE shared_id = $1 AND status = ANY($3)`
	tag, err := r.db.Pool.Exec(ctx, q, sharedID, string(to), from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	const check = `SELECT status FROM share_links WHERE shared_id = $1`
	var cur string
	if err := r.db.Pool.QueryRow(ctx, check, sharedID).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	return errs.ErrTransition
}

// MarkExpired flips overdue Pending/Delivered shares to Expired and returns
// their blob references for cleanup.
func (r *LedgerRepo) MarkExpired(ctx context.Context, now time.Time, limit int) ([]repository.ExpiredShare, error) {
	const q = `
UPDATE share_links l
SET status = 'expired'
FROM files f
WHERE f.id = l.file_id
  AND l.status IN ('pending','delivered')
  AND f.expiration_date <= $1
  AND l.shared_id IN (
      SELECT l2.shared_id
      FROM share_links l2 JOIN files f2 ON f2.id = l2.file_id
      WHERE l2.status IN ('pending','delivered') AND f2.expiration_date <= $1
      LIMIT $2)
RETURNING l.shared_id, f.ciphertext_ref`
	rows, err := r.db.Pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ExpiredShare
	for rows.Next() {
		var e repository.ExpiredShare
		if err := rows.Scan(&e.SharedID, &e.CiphertextRef); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
