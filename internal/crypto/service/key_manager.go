package service

import (
	"crypto/rand"
	"fmt"
	"time"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// KeyManagerService implements the KeyManager interface across the key hierarchy:
//   - KEKs are encrypted with the master key
//   - each user's DEK is wrapped under their password-derived key (PDK)
//   - per-file DEK envelopes are wrapped under the active KEK
//   - file bodies are encrypted with the DEK
//
// The service composes an AEADManager for cipher construction and a KeyDeriver
// for PDK derivation, keeping cryptographic policy in one place.
type KeyManagerService struct {
	aeadManager AEADManager
	keyDeriver  KeyDeriver
}

// NewKeyManager creates a new KeyManagerService instance.
func NewKeyManager(aeadManager AEADManager, keyDeriver KeyDeriver) *KeyManagerService {
	return &KeyManagerService{
		aeadManager: aeadManager,
		keyDeriver:  keyDeriver,
	}
}

// CreateKek creates a new Key Encryption Key encrypted with the master key.
//
// The KEK is generated as a random 32-byte key and encrypted under the master
// key with a fresh nonce. The returned record carries both the ciphertext for
// persistence and the plaintext for immediate caching; version assignment is
// the use case's responsibility.
func (km *KeyManagerService) CreateKek(
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
) (cryptoDomain.Kek, error) {
	// Generate a random 32-byte KEK
	kekKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(kekKey); err != nil {
		return cryptoDomain.Kek{}, fmt.Errorf("failed to generate KEK: %w", err)
	}

	aead, err := km.aeadManager.CreateCipher(masterKey.Key, alg)
	if err != nil {
		return cryptoDomain.Kek{}, err
	}

	encryptedKey, nonce, err := aead.Encrypt(kekKey, nil)
	if err != nil {
		return cryptoDomain.Kek{}, fmt.Errorf("failed to encrypt KEK: %w", err)
	}

	kek := cryptoDomain.Kek{
		Version:      1,
		Algorithm:    alg,
		EncryptedKey: encryptedKey,
		Key:          kekKey,
		Nonce:        nonce,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	return kek, nil
}

// DecryptKek decrypts a KEK record using the master key.
func (km *KeyManagerService) DecryptKek(
	kek *cryptoDomain.Kek,
	masterKey *cryptoDomain.MasterKey,
) ([]byte, error) {
	aead, err := km.aeadManager.CreateCipher(masterKey.Key, kek.Algorithm)
	if err != nil {
		return nil, err
	}

	kekKey, err := aead.Decrypt(kek.EncryptedKey, kek.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return kekKey, nil
}

// CreateUserDek generates a fresh DEK and wraps it under a PDK derived from
// the user's password with a fresh salt. Only the password unlocks the wrap;
// the server holds no independent path to the plaintext DEK through this record.
func (km *KeyManagerService) CreateUserDek(password string) (UserDek, error) {
	dek := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(dek); err != nil {
		return UserDek{}, fmt.Errorf("failed to generate DEK: %w", err)
	}
	defer cryptoDomain.Zero(dek)

	wrapped, err := km.wrapDekWithPassword(dek, password)
	if err != nil {
		return UserDek{}, err
	}

	return wrapped, nil
}

// UnwrapUserDek recovers the plaintext DEK from its PDK wrap.
// An authentication tag failure surfaces as ErrDecryptionFailed; the auth
// layer treats it the same as a wrong password.
func (km *KeyManagerService) UnwrapUserDek(wrapped UserDek, password string) ([]byte, error) {
	pdk := km.keyDeriver.DeriveKey(password, wrapped.Salt)
	defer cryptoDomain.Zero(pdk)

	aead, err := km.aeadManager.CreateCipher(pdk, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	dek, err := aead.Decrypt(wrapped.EncryptedKey, wrapped.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return dek, nil
}

// UnwrapUserDekWithPDK recovers the plaintext DEK using an already-derived PDK.
func (km *KeyManagerService) UnwrapUserDekWithPDK(wrapped UserDek, pdk []byte) ([]byte, error) {
	aead, err := km.aeadManager.CreateCipher(pdk, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	dek, err := aead.Decrypt(wrapped.EncryptedKey, wrapped.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return dek, nil
}

// RewrapUserDek re-encrypts an existing DEK under a PDK derived from a new
// password with a fresh salt and nonce. The DEK value is unchanged, so files
// encrypted before the password change remain decryptable.
func (km *KeyManagerService) RewrapUserDek(dek []byte, newPassword string) (UserDek, error) {
	if len(dek) != cryptoDomain.KeySize {
		return UserDek{}, cryptoDomain.ErrInvalidKeySize
	}
	return km.wrapDekWithPassword(dek, newPassword)
}

// WrapDekWithKek encrypts a DEK under a KEK for the per-file envelope.
func (km *KeyManagerService) WrapDekWithKek(
	dek []byte,
	kekKey []byte,
	alg cryptoDomain.Algorithm,
) (ciphertext, nonce []byte, err error) {
	aead, err := km.aeadManager.CreateCipher(kekKey, alg)
	if err != nil {
		return nil, nil, err
	}

	ciphertext, nonce, err = aead.Encrypt(dek, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap DEK: %w", err)
	}
	return ciphertext, nonce, nil
}

// UnwrapDekWithKek decrypts a per-file DEK envelope with the recorded KEK.
func (km *KeyManagerService) UnwrapDekWithKek(
	ciphertext, nonce, kekKey []byte,
	alg cryptoDomain.Algorithm,
) ([]byte, error) {
	aead, err := km.aeadManager.CreateCipher(kekKey, alg)
	if err != nil {
		return nil, err
	}

	dek, err := aead.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return dek, nil
}

// wrapDekWithPassword derives a PDK from the password with a fresh salt and
// encrypts the DEK under it. PDK wraps always use AES-GCM: the PDK never
// leaves process memory, so algorithm agility buys nothing here.
func (km *KeyManagerService) wrapDekWithPassword(dek []byte, password string) (UserDek, error) {
	salt, err := km.keyDeriver.GenerateSalt()
	if err != nil {
		return UserDek{}, err
	}

	pdk := km.keyDeriver.DeriveKey(password, salt)
	defer cryptoDomain.Zero(pdk)

	aead, err := km.aeadManager.CreateCipher(pdk, cryptoDomain.AESGCM)
	if err != nil {
		return UserDek{}, err
	}

	encryptedKey, nonce, err := aead.Encrypt(dek, nil)
	if err != nil {
		return UserDek{}, fmt.Errorf("failed to encrypt DEK: %w", err)
	}

	return UserDek{
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
		Salt:         salt,
	}, nil
}
