// Package crypto implements the cryptographic primitives of the exchange
// engine: AEAD seal/open, asymmetric key wrapping, password key derivation
// and server-side password hashing.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
)

// KeySize is the size of DEKs, derived password keys and X25519 keys.
const KeySize = 32

// Argon2id parameters (tuned for server-side derivation).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
)

// SaltSize is the size of random salts for password derivation and hashing.
const SaltSize = 16

var errMalformed = errors.New("malformed ciphertext")

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateKey returns a fresh random 256-bit symmetric key.
func GenerateKey() ([]byte, error) {
	return RandBytes(KeySize)
}

// Seal encrypts plaintext with XChaCha20-Poly1305 under key, using a fresh
// random nonce per call. Output layout: nonce || ciphertext+tag.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Open decrypts a blob produced by Seal. Any tamper fails authentication.
func Open(key, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, errMalformed
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	return aead.Open(nil, nonce, ct, nil)
}

// GenerateKeyPair returns a fresh X25519 keypair for wrapping.
func GenerateKeyPair() (pub, priv *[KeySize]byte, err error) {
	return box.GenerateKey(rand.Reader)
}

// Wrap seals key to the holder of the private half of pub using an
// anonymous X25519 sealed box (ephemeral sender key per call, so two wraps
// of the same key never produce the same bytes).
func Wrap(pub *[KeySize]byte, key []byte) ([]byte, error) {
	return box.SealAnonymous(nil, key, pub, rand.Reader)
}

// Unwrap opens a sealed box produced by Wrap with the matching keypair.
func Unwrap(pub, priv *[KeySize]byte, wrapped []byte) ([]byte, error) {
	key, ok := box.OpenAnonymous(nil, wrapped, pub, priv)
	if !ok {
		return nil, errors.New("unwrap failure")
	}
	return key, nil
}

// PublicKeyFromBytes converts a stored raw public key into the fixed-size
// form the wrap operations take.
func PublicKeyFromBytes(b []byte) (*[KeySize]byte, error) {
	if len(b) != KeySize {
		return nil, errors.New("bad public key length")
	}
	var pk [KeySize]byte
	copy(pk[:], b)
	return &pk, nil
}

// DeriveKey derives a 256-bit key from password and salt using Argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// Verifier returns the stored password verifier for a derived key. It is a
// plain SHA-256 of the derived key, so a database snapshot holds neither the
// password nor the key that seals the recipient wrap.
func Verifier(derived []byte) []byte {
	h := sha256.Sum256(derived)
	return h[:]
}

// VerifierMatch compares a candidate verifier in constant time.
func VerifierMatch(candidate, stored []byte) bool {
	return subtle.ConstantTimeCompare(candidate, stored) == 1
}

// HashPassword returns Argon2id hash of a login password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// VerifyPassword verifies a login password against expected hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// Zero wipes a key buffer.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
