package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Keeper is the subset of *secrets.Keeper used to unwrap the signing key.
type Keeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeyLoader opens a keeper for keyURI (base64key://, hashivault://, awskms://, gcpkms://,
// azurekeyvault://) and unwraps the history signing key with it.
type KeyLoader struct {
	openKeeper func(ctx context.Context, keyURI string) (Keeper, error)
}

// NewKeyLoader creates a KeyLoader backed by gocloud.dev/secrets.
func NewKeyLoader() *KeyLoader {
	return &KeyLoader{
		openKeeper: func(ctx context.Context, keyURI string) (Keeper, error) {
			keeper, err := secrets.OpenKeeper(ctx, keyURI)
			if err != nil {
				return nil, err
			}
			return keeper, nil
		},
	}
}

// Load decodes wrappedKey (standard base64) and decrypts it with the keeper at keyURI.
func (l *KeyLoader) Load(ctx context.Context, keyURI, wrappedKey string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wrapped signing key: %w", err)
	}

	keeper, err := l.openKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap signing key: %w", err)
	}
	if len(key) < MinKeySize {
		zero(key)
		return nil, errKeyTooShort
	}
	return key, nil
}

// LoadSigner loads the master key and returns a HistorySigner derived from it. The
// master key is zeroed before returning.
func (l *KeyLoader) LoadSigner(ctx context.Context, keyURI, wrappedKey string) (*HistorySigner, error) {
	key, err := l.Load(ctx, keyURI, wrappedKey)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	return NewHistorySigner(key)
}
