// Package crypto seals secret user settings with AES-256-GCM.
//
// Sealed values are text of the form "v1:<base64(nonce|ciphertext)>" so
// they can be stored in JSON columns and told apart from plain values.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/lingua/internal/config"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes)
	KeySize = 32

	sealedPrefix = "v1:"
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
	ErrNotEncrypted       = errors.New("value is not encrypted")
)

// Encryptor seals and opens values with a single AES-256 key.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates a new Encryptor with the given key.
// Key must be exactly 32 bytes for AES-256.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromBase64 creates a new Encryptor from a base64-encoded key.
func NewEncryptorFromBase64(encodedKey string) (*Encryptor, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	return NewEncryptor(key)
}

// FromConfig returns nil without error when no key is configured; secrets
// are then stored as plain values.
func FromConfig(cfg config.Crypto) (*Encryptor, error) {
	if cfg.SettingsKey == "" {
		return nil, nil
	}
	return NewEncryptorFromBase64(cfg.SettingsKey)
}

// Encrypt seals plaintext. The nonce is random, so equal inputs produce
// different outputs.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the sealed
// prefix return ErrNotEncrypted.
func (e *Encryptor) Decrypt(sealed string) (string, error) {
	if !IsEncrypted(sealed) {
		return "", ErrNotEncrypted
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) < e.aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// GenerateKey generates a new random 32-byte key for AES-256.
// Returns the key as a base64-encoded string.
func GenerateKey() (string, error) {
	key, err := GenerateKeyBytes()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// GenerateKeyBytes generates a new random 32-byte key for AES-256.
func GenerateKeyBytes() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
