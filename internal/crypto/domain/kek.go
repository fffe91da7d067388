package domain

import (
	"sync"
	"time"
)

// Kek represents a Key Encryption Key used to wrap per-file DEK envelopes.
// It is itself encrypted with the master key and stored in the database,
// keyed by an integer version. Exactly one KEK is active and not deprecated
// at any time; deprecated KEKs still decrypt historical envelopes but are
// never chosen for new wraps.
type Kek struct {
	Version      int       // Version number, the primary key
	Algorithm    Algorithm // AEAD algorithm used with this KEK
	EncryptedKey []byte    // The KEK encrypted with the master key
	Key          []byte    // Plaintext KEK (populated after decryption, never persisted)
	Nonce        []byte    // Nonce used when encrypting the KEK, exactly 12 bytes
	IsActive     bool      // Whether this KEK wraps new envelopes
	IsDeprecated bool      // Whether this KEK has been rotated out
	CreatedAt    time.Time
	DeprecatedAt *time.Time
}

// KekCache maps KEK versions to plaintext key material with thread-safe access.
// It is read-mostly: reads happen on every file finalize and download, writes
// only at boot and on rotation.
type KekCache struct {
	mu            sync.RWMutex
	activeVersion int
	keys          map[int][]byte
}

// NewKekCache creates an empty KekCache.
func NewKekCache() *KekCache {
	return &KekCache{keys: make(map[int][]byte)}
}

// ActiveVersion returns the version of the currently active KEK, or 0 if the
// cache has not been primed.
func (k *KekCache) ActiveVersion() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.activeVersion
}

// Get retrieves plaintext KEK material by version.
func (k *KekCache) Get(version int) ([]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[version]
	return key, ok
}

// Put stores plaintext KEK material for a version.
func (k *KekCache) Put(version int, key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[version] = key
}

// SetActive records the active version, storing its key material as well.
func (k *KekCache) SetActive(version int, key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[version] = key
	k.activeVersion = version
}

// Close securely clears all cached KEKs and resets the active version.
func (k *KekCache) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for version, key := range k.keys {
		Zero(key)
		delete(k.keys, version)
	}
	k.activeVersion = 0
}
