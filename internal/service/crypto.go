package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// EncryptionService handles AES-256-GCM encryption/decryption of credential
// material. Keys live only in process memory.
type EncryptionService struct {
	key []byte
}

// NewEncryptionService creates a service using the provided 32-byte key.
func NewEncryptionService(key []byte) (*EncryptionService, error) {
	if len(key) < 32 {
		return nil, errors.New("key must be at least 32 bytes")
	}
	// Use exactly first 32 bytes for AES-256
	return &EncryptionService{key: key[:32]}, nil
}

// NewEphemeralEncryptionService generates a random process-lifetime key.
// Nothing encrypted with it survives a restart, which is the point.
func NewEphemeralEncryptionService() (*EncryptionService, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return &EncryptionService{key: key}, nil
}

// Encrypt encrypts plaintext using AES-GCM. The nonce is prepended.
func (s *EncryptionService) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts a ciphertext produced by Encrypt
func (s *EncryptionService) Decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return aesGCM.Open(nil, nonce, ciphertext, nil)
}
