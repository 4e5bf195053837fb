// Package session implements the local half of session-sync: the
// OS-backed secret store, authenticated encryption of cookie payloads,
// and the session metadata wrapped around them.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService namespaces all session-sync entries in the OS
	// secret store (Keychain, Credential Manager, Secret Service).
	keyringService = "com.alexjbarnes.session-sync"

	// MasterKeyEntry holds the base64 master encryption secret.
	MasterKeyEntry = "session-encryption-master-key"

	// OAuthTokenEntry holds the raw GitHub OAuth access token. Only its
	// hash ever reaches disk; the token itself lives here.
	OAuthTokenEntry = "github-oauth-access-token"

	// masterKeyLen is the master secret size: 256 bits.
	masterKeyLen = 32
)

// ErrNotFound is returned by SecretStore.Get when no entry exists.
var ErrNotFound = errors.New("secret not found")

// SecretStore is the capability interface over the OS secret store.
// The encryption and sync layers depend only on this, so tests swap in
// an in-memory store and platform backends stay out of their way.
type SecretStore interface {
	// Get retrieves the named secret, or ErrNotFound.
	Get(key string) (string, error)
	// Set stores the named secret, replacing any previous value.
	Set(key, value string) error
	// Delete removes the named secret. Deleting an absent entry is not
	// an error.
	Delete(key string) error
}

// KeyringStore backs SecretStore with the platform keyring.
type KeyringStore struct{}

// NewKeyringStore returns the platform-backed secret store.
func NewKeyringStore() *KeyringStore { return &KeyringStore{} }

func (s *KeyringStore) Get(key string) (string, error) {
	v, err := keyring.Get(keyringService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("reading %q from keyring: %w", key, err)
	}

	return v, nil
}

func (s *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(keyringService, key, value); err != nil {
		return fmt.Errorf("storing %q in keyring: %w", key, err)
	}

	return nil
}

func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(keyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting %q from keyring: %w", key, err)
	}

	return nil
}

// MemStore is an in-memory SecretStore for tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemStore returns an empty in-memory secret store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}

	return v, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value

	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)

	return nil
}

// loadOrCreateMasterKey returns the 32-byte master secret from the
// store, generating and persisting a fresh one on first use. The master
// secret is never used as a cipher key directly; see NewEncryptor.
func loadOrCreateMasterKey(store SecretStore) ([]byte, error) {
	encoded, err := store.Get(MasterKeyEntry)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil {
			return nil, fmt.Errorf("master key entry is not valid base64: %w", decErr)
		}

		if len(key) != masterKeyLen {
			return nil, fmt.Errorf("master key has wrong length %d", len(key))
		}

		return key, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key := make([]byte, masterKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}

	if err := store.Set(MasterKeyEntry, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, err
	}

	return key, nil
}
