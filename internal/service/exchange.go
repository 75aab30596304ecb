package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/blob"
	pkgcrypto "github.com/AmmarAlGhifary/uai-secureshare-backend/internal/crypto"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/envelope"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/expiry"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Pagination bounds for the listing operations.
const (
	defaultLimit = 10
	maxLimit     = 50
)

// SendInput is a validated upload request.
type SendInput struct {
	FileName       string
	Data           []byte
	RecipientEmail string
	Password       string
	ExpirationDate time.Time
}

// RetrieveResult is the content handle returned on a successful retrieval:
// the ciphertext plus the DEK still wrapped under the recipient public key.
// Final decryption happens client-side with the recipient private key.
type RetrieveResult struct {
	FileName    string
	SenderEmail string
	Ciphertext  []byte
	WrappedDEK  []byte
}

// ExchangeService is the send path and the retrieval gatekeeper.
type ExchangeService interface {
	// Send encrypts and persists a new share with status Pending.
	Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*model.Share, error)
	// Retrieve services a recipient request, enforcing lockout, expiry and
	// the password gate. All denials are indistinguishable to the caller.
	Retrieve(ctx context.Context, sharedID uuid.UUID, password string) (*RetrieveResult, error)
	// Revoke withdraws a pending share and resets its attempt counter.
	Revoke(ctx context.Context, ownerID, sharedID uuid.UUID) error
	// ListSent pages through shares the user uploaded.
	ListSent(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.SentFileDetails, int64, error)
	// ListReceived pages through shares addressed to the email.
	ListReceived(ctx context.Context, email string, page, limit int) ([]model.ReceivedFileDetails, int64, error)
}

type ExchangeServiceImpl struct {
	users       repository.UserRepository
	ledger      repository.LedgerRepository
	blobs       blob.Store
	clock       expiry.Clock
	maxAttempts int
	log         *zap.Logger
}

// NewExchangeService constructs the gatekeeper with its collaborators.
func NewExchangeService(
	users repository.UserRepository,
	ledger repository.LedgerRepository,
	blobs blob.Store,
	clock expiry.Clock,
	maxAttempts int,
	log *zap.Logger,
) *ExchangeServiceImpl {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExchangeServiceImpl{
		users:       users,
		ledger:      ledger,
		blobs:       blobs,
		clock:       clock,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Send builds the envelope, stores the ciphertext and persists the record.
func (s *ExchangeServiceImpl) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*model.Share, error) {
	if senderID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty sender id", errs.ErrValidation)
	}
	if len(in.Data) == 0 || in.FileName == "" {
		return nil, fmt.Errorf("%w: empty file", errs.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", errs.ErrValidation)
	}
	now := s.clock.Now()
	if !in.ExpirationDate.After(now) {
		return nil, fmt.Errorf("%w: expiration date must be in the future", errs.ErrValidation)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	senderPub, err := pkgcrypto.PublicKeyFromBytes(sender.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: sender has no public key", errs.ErrValidation)
	}

	recipient, err := s.users.GetByEmail(ctx, in.RecipientEmail)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: recipient not found", errs.ErrValidation)
		}
		return nil, err
	}
	recipientPub, err := pkgcrypto.PublicKeyFromBytes(recipient.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient has no public key", errs.ErrValidation)
	}

	env, err := envelope.Create(in.Data, senderPub, recipientPub, in.Password)
	if err != nil {
		return nil, err
	}

	ref := blob.NewRef()
	if err := s.blobs.Put(ctx, ref, env.Ciphertext); err != nil {
		return nil, err
	}

	fileID := uuid.Must(uuid.NewV4())
	sharedID := uuid.Must(uuid.NewV4())
	file := &model.FileRecord{
		ID:                       fileID,
		OwnerID:                  senderID,
		FileName:                 in.FileName,
		Size:                     int64(len(in.Data)),
		CiphertextRef:            ref,
		WrappedDEKSender:         env.WrappedForSender,
		WrappedDEKRecipientGated: env.GatedWrappedForRecipient,
		PasswordSalt:             env.PasswordSalt,
		PasswordVerifier:         env.PasswordVerifier,
		ExpirationDate:           in.ExpirationDate,
		CreatedAt:                now,
	}
	link := &model.ShareLink{
		SharedID:       sharedID,
		FileID:         fileID,
		RecipientEmail: recipient.Email,
		Status:         model.StatusPending,
		CreatedAt:      now,
	}
	if err := s.ledger.CreateShare(ctx, file, link); err != nil {
		// best-effort: do not leave an orphaned blob behind
		if derr := s.blobs.Delete(ctx, ref); derr != nil {
			s.log.Warn("orphaned ciphertext blob", zap.String("ref", ref), zap.Error(derr))
		}
		return nil, err
	}

	return &model.Share{File: *file, Link: *link}, nil
}

// Retrieve runs the gate: lookup, lockout, expiry, password, ungate,
// deliver. Steps before the final status write mutate nothing except the
// failed-attempt counter, and that only on the failure path.
func (s *ExchangeServiceImpl) Retrieve(ctx context.Context, sharedID uuid.UUID, password string) (*RetrieveResult, error) {
	share, err := s.ledger.GetBySharedID(ctx, sharedID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// same shape as a wrong-password denial: no existence oracle
			return nil, errs.ErrDenied
		}
		return nil, err
	}

	if share.Link.Status == model.StatusRevoked {
		return nil, errs.ErrDenied
	}

	if share.Link.FailedAttempts >= s.maxAttempts {
		s.log.Warn("share locked out",
			zap.String("shared_id", sharedID.String()),
			zap.Int("failed_attempts", share.Link.FailedAttempts),
		)
		return nil, errs.ErrDenied
	}

	now := s.clock.Now()
	if expiry.IsExpired(share.File.ExpirationDate, now) {
		if serr := s.ledger.SetStatus(ctx, sharedID, model.StatusExpired); serr != nil && !errors.Is(serr, errs.ErrTransition) {
			s.log.Warn("expiry mark failed", zap.String("shared_id", sharedID.String()), zap.Error(serr))
		}
		return nil, errs.ErrDenied
	}

	env := envelopeOf(&share.File)
	if !envelope.VerifyPassword(env, password) {
		if _, ierr := s.ledger.IncrementFailedAttempt(ctx, sharedID); ierr != nil {
			return nil, ierr
		}
		return nil, errs.ErrDenied
	}

	// Verifier matched, so a seal failure here is tamper evidence, not a
	// password problem. Fatal, logged, never counted.
	wrappedDEK, err := envelope.UngateForRecipient(env, password)
	if err != nil {
		s.log.Error("envelope integrity failure",
			zap.String("shared_id", sharedID.String()),
			zap.String("file_id", share.File.ID.String()),
		)
		return nil, errs.ErrCrypto
	}

	ciphertext, err := s.blobs.Get(ctx, share.File.CiphertextRef)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, share.File.OwnerID)
	if err != nil {
		return nil, err
	}

	// Final commit. Legal from Pending and (idempotently) from Delivered;
	// a concurrent revoke or expiry wins and turns this into a denial.
	if err := s.ledger.SetStatus(ctx, sharedID, model.StatusDelivered); err != nil {
		if errors.Is(err, errs.ErrTransition) {
			return nil, errs.ErrDenied
		}
		return nil, err
	}
	// Success closes the consecutive-failure streak (best-effort).
	if err := s.ledger.ResetFailedAttempts(ctx, sharedID); err != nil {
		s.log.Warn("attempt reset failed", zap.String("shared_id", sharedID.String()), zap.Error(err))
	}

	return &RetrieveResult{
		FileName:    share.File.FileName,
		SenderEmail: sender.Email,
		Ciphertext:  ciphertext,
		WrappedDEK:  wrappedDEK,
	}, nil
}

// Revoke withdraws a pending share. Only the owner may revoke; anyone else
// sees the same not-found shape as an unknown id.
func (s *ExchangeServiceImpl) Revoke(ctx context.Context, ownerID, sharedID uuid.UUID) error {
	share, err := s.ledger.GetBySharedID(ctx, sharedID)
	if err != nil {
		return err
	}
	if share.File.OwnerID != ownerID {
		return errs.ErrNotFound
	}
	if err := s.ledger.SetStatus(ctx, sharedID, model.StatusRevoked); err != nil {
		return err
	}
	if err := s.ledger.ResetFailedAttempts(ctx, sharedID); err != nil {
		s.log.Warn("attempt reset failed", zap.String("shared_id", sharedID.String()), zap.Error(err))
	}
	if err := s.blobs.Delete(ctx, share.File.CiphertextRef); err != nil {
		s.log.Warn("revoked blob delete failed",
			zap.String("ref", share.File.CiphertextRef), zap.Error(err))
	}
	return nil
}

// ListSent pages through shares uploaded by the user.
func (s *ExchangeServiceImpl) ListSent(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.SentFileDetails, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	page, limit = clampPage(page, limit)
	return s.ledger.ListSentBy(ctx, userID, page, limit)
}

// ListReceived pages through shares addressed to the email.
func (s *ExchangeServiceImpl) ListReceived(ctx context.Context, email string, page, limit int) ([]model.ReceivedFileDetails, int64, error) {
	if email == "" {
		return nil, 0, fmt.Errorf("%w: empty email", errs.ErrValidation)
	}
	page, limit = clampPage(page, limit)
	return s.ledger.ListReceivedBy(ctx, email, page, limit)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// envelopeOf rebuilds the codec view of a persisted record. The ciphertext
// is fetched separately; gate checks never need it.
func envelopeOf(f *model.FileRecord) *envelope.Envelope {
	return &envelope.Envelope{
		WrappedForSender:         f.WrappedDEKSender,
		GatedWrappedForRecipient: f.WrappedDEKRecipientGated,
		PasswordSalt:             f.PasswordSalt,
		PasswordVerifier:         f.PasswordVerifier,
	}
}
