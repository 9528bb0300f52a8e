package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "codemobile"

// Keyring is a KeyValue backed by the operating system keyring, or by an
// encrypted file when no system keyring is reachable.
type Keyring struct {
	ring keyring.Keyring
}

// OpenKeyring opens the system keyring. fileDir and passphrase configure
// the encrypted-file fallback.
func OpenKeyring(fileDir, passphrase string) (*Keyring, error) {
	return openKeyring(keyring.Config{
		ServiceName:      serviceName,
		FileDir:          fileDir,
		FilePasswordFunc: keyring.FixedStringPrompt(passphrase),
	})
}

// OpenFileKeyring only uses the encrypted-file backend.
func OpenFileKeyring(fileDir, passphrase string) (*Keyring, error) {
	return openKeyring(keyring.Config{
		ServiceName:      serviceName,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          fileDir,
		FilePasswordFunc: keyring.FixedStringPrompt(passphrase),
	})
}

func openKeyring(cfg keyring.Config) (*Keyring, error) {
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

func (k *Keyring) Get(_ context.Context, key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(item.Data), nil
}

func (k *Keyring) Set(_ context.Context, key, value string) error {
	if err := k.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: serviceName + " " + key}); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (k *Keyring) Delete(_ context.Context, key string) error {
	err := k.ring.Remove(key)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	// The file backend reports a missing item as a plain fs error.
	if _, getErr := k.ring.Get(key); errors.Is(getErr, keyring.ErrKeyNotFound) {
		return nil
	}
	return fmt.Errorf("removing %s: %w", key, err)
}
