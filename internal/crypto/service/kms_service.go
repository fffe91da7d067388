package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService unwraps the deployment master key through a gocloud.dev secrets keeper.
// Deployments that keep MASTER_KEY directly in the environment do not use this
// service; setting KMS_KEY_URI switches the boot path to keeper-based unwrap so
// the raw master key never appears in the process environment.
type KMSService interface {
	// UnwrapMasterKey decrypts the keeper-wrapped master key material.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	UnwrapMasterKey(ctx context.Context, keyURI, wrappedB64 string) (*cryptoDomain.MasterKey, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// UnwrapMasterKey opens the keeper at keyURI, decrypts the base64-encoded
// ciphertext and validates the resulting key size.
func (k *kmsService) UnwrapMasterKey(
	ctx context.Context,
	keyURI, wrappedB64 string,
) (*cryptoDomain.MasterKey, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	wrapped, err := base64.StdEncoding.DecodeString(wrappedB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidMasterKeyBase64, err)
	}

	key, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt master key: %w", err)
	}
	if len(key) != cryptoDomain.MasterKeySize {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf(
			"%w: master key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.MasterKeySize,
			len(key),
		)
	}

	return &cryptoDomain.MasterKey{Key: key}, nil
}
