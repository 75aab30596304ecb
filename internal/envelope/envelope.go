// Package envelope builds and opens the encryption envelope of a shared
// file: a fresh DEK seals the plaintext, the DEK is wrapped once for the
// sender and once for the recipient, and the recipient copy is additionally
// sealed under a password-derived key. A database record alone therefore
// yields neither the plaintext nor the password.
package envelope

import (
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/crypto"
	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/errs"
)

// Envelope carries everything that is persisted for one file.
type Envelope struct {
	Ciphertext               []byte // AEAD(DEK, plaintext), nonce prefixed
	WrappedForSender         []byte // Wrap(senderPub, DEK)
	GatedWrappedForRecipient []byte // Seal(passKey, Wrap(recipientPub, DEK))
	PasswordSalt             []byte
	PasswordVerifier         []byte // distinct from the password key
}

// Create encrypts plaintext and wraps the DEK for both parties. Recipient
// access requires both the recipient private key and the password; sender
// access requires only the sender private key.
func Create(plaintext []byte, senderPub, recipientPub *[crypto.KeySize]byte, password string) (*Envelope, error) {
	dek, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(dek)

	ciphertext, err := crypto.Seal(dek, plaintext)
	if err != nil {
		return nil, err
	}

	wrappedSender, err := crypto.Wrap(senderPub, dek)
	if err != nil {
		return nil, err
	}
	wrappedRecipient, err := crypto.Wrap(recipientPub, dek)
	if err != nil {
		return nil, err
	}

	salt, err := crypto.RandBytes(crypto.SaltSize)
	if err != nil {
		return nil, err
	}
	passKey := crypto.DeriveKey([]byte(password), salt)
	defer crypto.Zero(passKey)

	gated, err := crypto.Seal(passKey, wrappedRecipient)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Ciphertext:               ciphertext,
		WrappedForSender:         wrappedSender,
		GatedWrappedForRecipient: gated,
		PasswordSalt:             salt,
		PasswordVerifier:         crypto.Verifier(passKey),
	}, nil
}

// VerifyPassword checks password against the stored verifier in constant
// time, without attempting an unwrap.
func VerifyPassword(env *Envelope, password string) bool {
	passKey := crypto.DeriveKey([]byte(password), env.PasswordSalt)
	defer crypto.Zero(passKey)
	return crypto.VerifierMatch(crypto.Verifier(passKey), env.PasswordVerifier)
}

// UngateForRecipient removes the password seal and returns the DEK still
// wrapped under the recipient public key. The caller is expected to have
// verified the password first; a failure here after a verifier match is
// tamper evidence.
func UngateForRecipient(env *Envelope, password string) ([]byte, error) {
	passKey := crypto.DeriveKey([]byte(password), env.PasswordSalt)
	defer crypto.Zero(passKey)

	wrapped, err := crypto.Open(passKey, env.GatedWrappedForRecipient)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	return wrapped, nil
}

// OpenForRecipient recovers the plaintext with the password and the
// recipient keypair. Every failure surfaces as the one generic ErrCrypto so
// no step information leaks.
func OpenForRecipient(env *Envelope, password string, recipientPub, recipientPriv *[crypto.KeySize]byte) ([]byte, error) {
	wrapped, err := UngateForRecipient(env, password)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	dek, err := crypto.Unwrap(recipientPub, recipientPriv, wrapped)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	defer crypto.Zero(dek)

	plaintext, err := crypto.Open(dek, env.Ciphertext)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	return plaintext, nil
}

// OpenForSender recovers the plaintext with the sender keypair alone; the
// sender re-accesses their own upload without the password.
func OpenForSender(env *Envelope, senderPub, senderPriv *[crypto.KeySize]byte) ([]byte, error) {
	dek, err := crypto.Unwrap(senderPub, senderPriv, env.WrappedForSender)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	defer crypto.Zero(dek)

	plaintext, err := crypto.Open(dek, env.Ciphertext)
	if err != nil {
		return nil, errs.ErrCrypto
	}
	return plaintext, nil
}
