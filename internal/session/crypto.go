package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// hkdfSalt is the application-specific salt for cipher-key
	// derivation. Bumping the version suffix rotates the cipher key
	// without re-provisioning the master secret.
	hkdfSalt = "session-sync-encryption-v1.0"

	// hkdfInfo binds the derived key to its one purpose.
	hkdfInfo = "github-gist-session-storage"

	// cipherKeyLen is the derived AES-256 key length.
	cipherKeyLen = 32
)

// Encryptor seals and opens session payloads with AES-256-GCM. Blobs
// are laid out as [12-byte nonce][ciphertext+GCM tag]; a fresh random
// nonce is drawn on every Seal, so identical plaintexts never produce
// comparable ciphertexts.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor builds an Encryptor keyed from the master secret held in
// the given store (created on first use). The cipher key is derived via
// HKDF-SHA256 with a fixed salt and context string; the master secret
// itself never touches the cipher, and the derived key buffer is zeroed
// once the AEAD is constructed.
func NewEncryptor(store SecretStore) (*Encryptor, error) {
	master, err := loadOrCreateMasterKey(store)
	if err != nil {
		return nil, fmt.Errorf("loading master key: %w", err)
	}
	defer zeroKey(master)

	derived := make([]byte, cipherKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, []byte(hkdfSalt), []byte(hkdfInfo)), derived); err != nil {
		return nil, fmt.Errorf("deriving cipher key: %w", err)
	}
	defer zeroKey(derived)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// zeroKey overwrites key material once it is no longer needed, limiting
// the window during which raw key bytes sit in memory.
func zeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

// Seal encrypts plaintext under a fresh random nonce and returns
// [nonce][ciphertext+tag].
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, plaintext, nil)
	result := make([]byte, len(nonce)+len(ciphertext))
	copy(result, nonce)
	copy(result[len(nonce):], ciphertext)

	return result, nil
}

// ErrDecrypt is the single opaque failure for every Open problem: short
// blob, tampering, corruption, wrong key. Callers get no partial
// plaintext and no hint which byte went wrong.
var ErrDecrypt = fmt.Errorf("decryption failed or data tampered")

// Open authenticates and decrypts a sealed blob.
func (e *Encryptor) Open(blob []byte) ([]byte, error) {
	nonceSize := e.gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrDecrypt
	}

	plaintext, err := e.gcm.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	return plaintext, nil
}
