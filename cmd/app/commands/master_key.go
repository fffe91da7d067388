package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key.
//
// Without a KMS key URI the key is printed as a plain MASTER_KEY value for the
// environment. With kmsKeyURI set, the key is encrypted through the keeper and
// printed as KMS_KEY_URI + KMS_MASTER_KEY_B64, so the raw key never appears in
// the process environment. Key material is zeroed after encoding.
//
// For local development, use kmsKeyURI="base64key://<32-byte-base64-key>".
// Never use base64key in production; use a cloud KMS URI (gcpkms://, awskms://,
// azurekeyvault://, hashivault://).
func RunCreateMasterKey(ctx context.Context, kmsKeyURI string, w io.Writer) error {
	masterKey := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsKeyURI == "" {
		fmt.Fprintln(w, "# Master Key Configuration")
		fmt.Fprintln(w, "# Copy this environment variable to your .env file or secrets manager")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "MASTER_KEY=%q\n", base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	keeper, err := secrets.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	fmt.Fprintln(w, "# Master Key Configuration (KMS Mode)")
	fmt.Fprintln(w, "# Copy these environment variables to your .env file or secrets manager")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "KMS_KEY_URI=%q\n", kmsKeyURI)
	fmt.Fprintf(w, "KMS_MASTER_KEY_B64=%q\n", base64.StdEncoding.EncodeToString(ciphertext))
	return nil
}
