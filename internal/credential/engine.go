// Package credential implements the Credential Engine: per-device MQTT
// password derivation and encrypted master-secret storage.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLen     = 32
	saltLen          = 16
)

// ErrDecryptFailed is returned when the master secret cannot be decrypted.
// Decryption failure is a fatal credential error and must never be
// swallowed into an empty string.
var ErrDecryptFailed = errors.New("credential: master secret decryption failed")

// ErrAuthenticationFailed is returned by Verify on any mismatch, including
// an unknown device, so callers cannot distinguish "wrong password" from
// "no such device" through the error value.
var ErrAuthenticationFailed = errors.New("credential: AuthenticationFailed")

// Engine derives and verifies per-device passwords from an encrypted,
// type-wide master secret. K is the process-wide secret from which the
// at-rest encryption key is derived; salt is ENCRYPTION_SALT, only its
// first 16 bytes are used.
type Engine struct {
	k    []byte
	salt []byte
}

// New builds an Engine from the raw process secret K and ENCRYPTION_SALT.
func New(k, saltSource string) *Engine {
	salt := []byte(saltSource)
	if len(salt) > saltLen {
		salt = salt[:saltLen]
	}
	return &Engine{k: []byte(k), salt: salt}
}

func (e *Engine) encryptionKey() []byte {
	return pbkdf2.Key(e.k, e.salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
}

// DerivePassword returns the 12-character device password:
// Base64(HMAC-SHA256(masterSecret, serialNumber))[0:12]. Deterministic:
// identical inputs always yield identical output.
func DerivePassword(masterSecret, serialNumber string) string {
	mac := hmac.New(sha256.New, []byte(masterSecret))
	mac.Write([]byte(serialNumber))
	sum := mac.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum)[:12]
}

// EncryptMasterSecret encrypts plainSecret with AES-256-GCM under the key
// derived from K/salt, returning a base64-wrapped ciphertext (nonce prefix
// + sealed box). AES-256-GCM is the standard-library AEAD used in place of
// the original's Fernet — see DESIGN.md for why no third-party AEAD from
// the example pack applies here.
func (e *Engine) EncryptMasterSecret(plainSecret string) (string, error) {
	block, err := aes.NewCipher(e.encryptionKey())
	if err != nil {
		return "", fmt.Errorf("credential: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("credential: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("credential: nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plainSecret), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptMasterSecret reverses EncryptMasterSecret. Any failure (bad
// base64, truncated ciphertext, auth tag mismatch) is reported as
// ErrDecryptFailed rather than returning an empty string.
func (e *Engine) DecryptMasterSecret(encryptedSecret string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encryptedSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	block, err := aes.NewCipher(e.encryptionKey())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plain), nil
}

// ParseClientID splits a "{typeCode}&{serial}" MQTT client id.
func ParseClientID(clientID string) (typeCode, serial string, err error) {
	parts := strings.SplitN(clientID, "&", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("credential: malformed clientId %q, want {typeCode}&{serial}", clientID)
	}
	return parts[0], parts[1], nil
}

// Verify re-derives the expected password for a device from its decrypted
// master secret and compares it against the presented password in
// constant time.
func (e *Engine) Verify(masterSecretCiphertext, serialNumber, presentedPassword string) error {
	masterSecret, err := e.DecryptMasterSecret(masterSecretCiphertext)
	if err != nil {
		return err
	}

	expected := DerivePassword(masterSecret, serialNumber)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presentedPassword)) != 1 {
		return ErrAuthenticationFailed
	}
	return nil
}
