package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	plaintext := []byte("attack at dawn")
	blob, err := Seal(key, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, blob)

	got, err := Open(key, blob)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestOpen_TamperFails(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	blob, err := Seal(key, []byte("payload"))
	require.NoError(t, err)

	for i := range blob {
		bad := append([]byte(nil), blob...)
		bad[i] ^= 0x01
		if _, err := Open(key, bad); err == nil {
			t.Fatalf("tampered byte %d accepted", i)
		}
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()
	blob, err := Seal(k1, []byte("payload"))
	require.NoError(t, err)

	_, err = Open(k2, blob)
	require.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	key, _ := GenerateKey()
	_, err := Open(key, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestSeal_FreshNonce(t *testing.T) {
	key, _ := GenerateKey()
	a, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"))
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b))
}

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	key, _ := GenerateKey()

	wrapped, err := Wrap(pub, key)
	require.NoError(t, err)

	got, err := Unwrap(pub, priv, wrapped)
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestUnwrap_WrongKeyFails(t *testing.T) {
	pubA, _, err := GenerateKeyPair()
	require.NoError(t, err)
	pubB, privB, err := GenerateKeyPair()
	require.NoError(t, err)

	key, _ := GenerateKey()
	wrapped, err := Wrap(pubA, key)
	require.NoError(t, err)

	_, err = Unwrap(pubB, privB, wrapped)
	require.Error(t, err)
}

func TestWrap_NonDeterministic(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	key, _ := GenerateKey()

	a, err := Wrap(pub, key)
	require.NoError(t, err)
	b, err := Wrap(pub, key)
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b))
}

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	salt, err := RandBytes(SaltSize)
	require.NoError(t, err)

	k1 := DeriveKey([]byte("abc123"), salt)
	k2 := DeriveKey([]byte("abc123"), salt)
	require.Equal(t, k1, k2)

	other, err := RandBytes(SaltSize)
	require.NoError(t, err)
	require.NotEqual(t, k1, DeriveKey([]byte("abc123"), other))
}

func TestVerifier_DistinctFromKey(t *testing.T) {
	salt, _ := RandBytes(SaltSize)
	key := DeriveKey([]byte("abc123"), salt)
	v := Verifier(key)
	require.NotEqual(t, key, v)
	require.True(t, VerifierMatch(Verifier(key), v))
	require.False(t, VerifierMatch(Verifier(DeriveKey([]byte("nope"), salt)), v))
}

func TestHashVerifyPassword(t *testing.T) {
	salt, _ := RandBytes(SaltSize)
	h := HashPassword([]byte("secret1"), salt)
	require.True(t, VerifyPassword([]byte("secret1"), salt, h))
	require.False(t, VerifyPassword([]byte("secret2"), salt, h))
}

func TestPublicKeyFromBytes(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	got, err := PublicKeyFromBytes(pub[:])
	require.NoError(t, err)
	require.Equal(t, pub, got)

	_, err = PublicKeyFromBytes([]byte("short"))
	require.Error(t, err)
}
