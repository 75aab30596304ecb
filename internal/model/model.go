// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. The public key is used
// only to wrap DEKs addressed to this user; the private half never reaches
// the server.
type User struct {
	ID        uuid.UUID // PK
	Name      string
	Email     string // unique
	PwdHash   []byte // Argon2id(password, SaltAuth)
	SaltAuth  []byte // per-user auth salt
	PublicKey []byte // raw X25519 public key, nil until uploaded
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileRecord is the persisted envelope for one uploaded file. The wrapped
// key fields are write-once: set at creation and never updated.
type FileRecord struct {
	ID                       uuid.UUID
	OwnerID                  uuid.UUID // sender
	FileName                 string
	Size                     int64
	CiphertextRef            string // blob store reference, never the bytes
	WrappedDEKSender         []byte // DEK wrapped under the sender public key
	WrappedDEKRecipientGated []byte // DEK wrapped under the recipient public key, sealed under the password key
	PasswordSalt             []byte
	PasswordVerifier         []byte
	ExpirationDate           time.Time // strictly future at creation
	CreatedAt                time.Time
}

// ShareLink is the externally exposed handle for a FileRecord.
type ShareLink struct {
	SharedID       uuid.UUID // exposed as file_id on the wire
	FileID         uuid.UUID
	RecipientEmail string
	Status         ShareStatus
	FailedAttempts int
	CreatedAt      time.Time
}

// Share is the aggregate the gatekeeper operates on.
type Share struct {
	File FileRecord
	Link ShareLink
}

// SentFileDetails is one row of the sender-side listing.
type SentFileDetails struct {
	FileID         uuid.UUID // shared id
	FileName       string
	RecipientEmail string
	ExpirationDate time.Time
	CreatedAt      time.Time
}

// ReceivedFileDetails is one row of the recipient-side listing.
type ReceivedFileDetails struct {
	FileID         uuid.UUID // shared id
	FileName       string
	SenderEmail    string
	ExpirationDate time.Time
	CreatedAt      time.Time
}
