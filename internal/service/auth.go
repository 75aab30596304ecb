// Package service contains application services for accounts and the
// file-exchange gatekeeper.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgcrypto "github.com/AmmarAlGhifary/uai-secureshare-backend/internal/crypto"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/limiter"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService defines account and authentication operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error)
	// GetByID loads an account.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// SetPublicKey stores the user's wrap key if none is set.
	SetPublicKey(ctx context.Context, userID uuid.UUID, publicKey []byte) error
	// SearchByEmail finds accounts by email fragment.
	SearchByEmail(ctx context.Context, query string) ([]model.User, error)
	// UpdateName changes the display name.
	UpdateName(ctx context.Context, userID uuid.UUID, name string) error
	// UpdatePassword rotates the login password after checking the old one.
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim}
}

// Register creates a new user record with a per-user auth salt.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: empty name/email/password", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	saltAuth, err := pkgcrypto.RandBytes(pkgcrypto.SaltSize)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:       uid,
		Name:     name,
		Email:    email,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !allowed {
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		// hide whether the account exists
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// GetByID loads an account.
func (s *AuthServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.users.GetByID(ctx, id)
}

// SetPublicKey persists the wrap key if not yet initialized. A set key is
// immutable for its epoch; overwriting would invalidate existing wraps.
func (s *AuthServiceImpl) SetPublicKey(ctx context.Context, userID uuid.UUID, publicKey []byte) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if _, err := pkgcrypto.PublicKeyFromBytes(publicKey); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return s.users.SetPublicKeyIfEmpty(ctx, userID, publicKey)
}

// SearchByEmail finds accounts whose email contains query.
func (s *AuthServiceImpl) SearchByEmail(ctx context.Context, query string) ([]model.User, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", errs.ErrValidation)
	}
	return s.users.SearchByEmail(ctx, query, 10)
}

// UpdateName changes the display name.
func (s *AuthServiceImpl) UpdateName(ctx context.Context, userID uuid.UUID, name string) error {
	if userID == uuid.Nil || name == "" {
		return fmt.Errorf("%w: empty user id/name", errs.ErrValidation)
	}
	return s.users.UpdateName(ctx, userID, name)
}

// UpdatePassword rotates the login password, re-salting the hash.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrUnauthorized
		}
		return err
	}
	if !pkgcrypto.VerifyPassword([]byte(oldPassword), u.SaltAuth, u.PwdHash) {
		return errs.ErrUnauthorized
	}
	salt, err := pkgcrypto.RandBytes(pkgcrypto.SaltSize)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, pkgcrypto.HashPassword([]byte(newPassword), salt), salt)
}
