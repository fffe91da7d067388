// Package domain defines the core cryptographic domain models for the key hierarchy.
//
// The hierarchy has four tiers: Master Key → versioned KEKs → per-user DEKs →
// per-file nonce-addressed ciphertext. The master key encrypts KEKs, the active
// KEK wraps per-file DEK envelopes, and each user's DEK is wrapped under a key
// derived from their password (the PDK). File bodies are encrypted with the DEK.
package domain

import (
	"encoding/base64"
	"fmt"
)

// MasterKeySize is the required master key length in bytes.
const MasterKeySize = 32

// MasterKey is the root of the key hierarchy. It is injected at startup from
// configuration (or unwrapped through a KMS keeper) and is only ever used to
// encrypt and decrypt KEK records. It must never be written to the database,
// any cache, or logs.
type MasterKey struct {
	Key []byte
}

// Close zeroes the key material.
func (m *MasterKey) Close() {
	Zero(m.Key)
	m.Key = nil
}

// LoadMasterKey decodes a base64-encoded master key and validates its size.
func LoadMasterKey(encoded string) (*MasterKey, error) {
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}
	if len(key) != MasterKeySize {
		Zero(key)
		return nil, fmt.Errorf(
			"%w: master key must be %d bytes, got %d",
			ErrInvalidKeySize,
			MasterKeySize,
			len(key),
		)
	}

	return &MasterKey{Key: key}, nil
}
