package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "authfront-cli"

// Keyring stores values in the OS keychain/credential manager. Keys are
// namespaced so that tokens for different API roots do not collide.
type Keyring struct {
	namespace string
}

// NewKeyring creates a keyring-backed store for the given namespace
func NewKeyring(namespace string) *Keyring {
	return &Keyring{namespace: namespace}
}

// keyringKey returns a unique keyring entry name per namespace
func (k *Keyring) keyringKey(key string) string {
	if k.namespace == "" {
		return key
	}
	return fmt.Sprintf("%s-%s", key, k.namespace)
}

func (k *Keyring) Get(_ context.Context, key string) (string, bool, error) {
	value, err := keyring.Get(keyringService, k.keyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, true, nil
}

func (k *Keyring) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(keyringService, k.keyringKey(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *Keyring) Remove(_ context.Context, key string) error {
	if err := keyring.Delete(keyringService, k.keyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
