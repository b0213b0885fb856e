package service

import (
	"sync"
	"time"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

type credentialEntry struct {
	encrypted []byte
	addedAt   time.Time
}

// CredentialCache keeps each logged-in user's database password encrypted in
// memory for the duration of their session. Plaintext exists only inside the
// scope of a Fetch call; nothing is ever written to disk.
type CredentialCache struct {
	mu      sync.Mutex
	crypto  *EncryptionService
	entries map[int64]credentialEntry
	ttl     time.Duration

	// now is swapped out by tests to simulate elapsed time
	now func() time.Time
}

// NewCredentialCache creates a cache with the given session TTL. The cipher
// should be keyed with a process-lifetime ephemeral key.
func NewCredentialCache(crypto *EncryptionService, ttl time.Duration) *CredentialCache {
	return &CredentialCache{
		crypto:  crypto,
		entries: make(map[int64]credentialEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Store encrypts and caches the user's plaintext database password.
// Called at login; replaces any previous entry.
func (c *CredentialCache) Store(userID int64, password string) error {
	encrypted, err := c.crypto.Encrypt([]byte(password))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = credentialEntry{encrypted: encrypted, addedAt: c.now()}
	return nil
}

// Fetch returns the decrypted password. Fails closed: an expired entry is
// purged and reported as ErrSessionExpired, never returned stale.
func (c *CredentialCache) Fetch(userID int64) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[userID]
	if ok && c.expired(entry) {
		delete(c.entries, userID)
		c.mu.Unlock()
		return "", core.ErrSessionExpired
	}
	c.mu.Unlock()

	if !ok {
		return "", core.ErrCredentialNotFound
	}

	plaintext, err := c.crypto.Decrypt(entry.encrypted)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Remove drops the user's credential. Safe to call for unknown users.
func (c *CredentialCache) Remove(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// IsValid reports whether the user has a live credential. An expired entry
// is purged as a side effect.
func (c *CredentialCache) IsValid(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return false
	}
	if c.expired(entry) {
		delete(c.entries, userID)
		return false
	}
	return true
}

func (c *CredentialCache) expired(entry credentialEntry) bool {
	return c.now().Sub(entry.addedAt) > c.ttl
}
