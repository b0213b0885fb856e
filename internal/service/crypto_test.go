package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewEncryptionService(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	plaintext := []byte("s3cret-db-password")
	ciphertext, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionService_ShortKeyRejected(t *testing.T) {
	_, err := NewEncryptionService([]byte("too short"))
	assert.Error(t, err)
}

func TestEncryptionService_FreshNoncePerCall(t *testing.T) {
	svc, err := NewEncryptionService(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	a, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := svc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "identical plaintexts must not produce identical ciphertexts")
}

func TestEncryptionService_TamperDetected(t *testing.T) {
	svc, err := NewEncryptionService(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt([]byte("payload"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xff

	_, err = svc.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEncryptionService_WrongKeyFails(t *testing.T) {
	a, err := NewEncryptionService(bytes.Repeat([]byte("a"), 32))
	require.NoError(t, err)
	b, err := NewEncryptionService(bytes.Repeat([]byte("b"), 32))
	require.NoError(t, err)

	ciphertext, err := a.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEncryptionService_TruncatedCiphertext(t *testing.T) {
	svc, err := NewEncryptionService(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	_, err = svc.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestNewEphemeralEncryptionService_IndependentKeys(t *testing.T) {
	a, err := NewEphemeralEncryptionService()
	require.NoError(t, err)
	b, err := NewEphemeralEncryptionService()
	require.NoError(t, err)

	ciphertext, err := a.Encrypt([]byte("payload"))
	require.NoError(t, err)
	_, err = b.Decrypt(ciphertext)
	assert.Error(t, err, "each process key must be unique")
}
