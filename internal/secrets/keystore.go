// Package secrets encrypts keystore passphrases at rest using age.
// Configurations with signing enabled may carry a passphrase; it is
// encrypted before a run record is persisted and never leaves the server
// in plaintext.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
)

var (
	// ErrNoRecipient is returned when no public key is configured for encryption.
	ErrNoRecipient = errors.New("no age public key configured for encryption")
	// ErrNoIdentity is returned when no private key is configured for decryption.
	ErrNoIdentity = errors.New("no age private key configured for decryption")
	// ErrInvalidKey is returned when a configured key cannot be parsed.
	ErrInvalidKey = errors.New("invalid age key format")
	// ErrEncryptionFailed is returned when encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Config holds the age key material.
type Config struct {
	// AgePublicKey enables encryption. Format: age1... (Bech32).
	AgePublicKey string
	// AgePrivateKey enables decryption. Format: AGE-SECRET-KEY-1...
	AgePrivateKey string
}

// Service wraps age X25519 encryption for keystore passphrases.
type Service struct {
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	logger    *slog.Logger
}

// NewService parses the configured keys. At least one side (recipient or
// identity) must be provided.
func NewService(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{logger: logger}

	if cfg.AgePublicKey != "" {
		recipient, err := age.ParseX25519Recipient(cfg.AgePublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
		}
		svc.recipient = recipient
	}
	if cfg.AgePrivateKey != "" {
		identity, err := age.ParseX25519Identity(cfg.AgePrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: private key: %v", ErrInvalidKey, err)
		}
		svc.identity = identity
	}
	if svc.recipient == nil && svc.identity == nil {
		return nil, ErrNoRecipient
	}
	return svc, nil
}

// CanEncrypt reports whether a recipient is configured.
func (s *Service) CanEncrypt() bool { return s.recipient != nil }

// CanDecrypt reports whether an identity is configured.
func (s *Service) CanDecrypt() bool { return s.identity != nil }

// EncryptPassphrase encrypts a keystore passphrase for storage.
func (s *Service) EncryptPassphrase(plaintext string) ([]byte, error) {
	if s.recipient == nil {
		return nil, ErrNoRecipient
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return buf.Bytes(), nil
}

// DecryptPassphrase recovers a stored keystore passphrase.
func (s *Service) DecryptPassphrase(ciphertext []byte) (string, error) {
	if s.identity == nil {
		return "", ErrNoIdentity
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), s.identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
