package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// KDF parameters for the field-encryption key.
const (
	KDFIterations = 100_000
	KDFKeyLength  = 32
)

// ErrDataCorruption is the distinguished corruption signal: the stored
// ciphertext is malformed, was produced under a different key, or its
// plaintext fails structural validation. Callers separate it from ordinary
// errors with errors.Is.
var ErrDataCorruption = errors.New("data corruption detected")

// DeriveKey stretches the master secret and salt into a fixed-length
// AES-256 key using PBKDF2-HMAC-SHA256.
func DeriveKey(secret, salt string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(salt), KDFIterations, KDFKeyLength, sha256.New)
}

// FieldCipher encrypts and decrypts individual column values with
// AES-256-GCM. Tokens are base64url(nonce || ciphertext), so they can be
// stored in plain text columns.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives the encryption key from secret and salt and
// returns a ready cipher.
func NewFieldCipher(secret, salt string) (*FieldCipher, error) {
	if secret == "" || salt == "" {
		return nil, fmt.Errorf("field cipher requires a secret and a salt")
	}
	return NewFieldCipherFromKey(DeriveKey(secret, salt))
}

// NewFieldCipherFromKey builds a cipher from an already derived 32-byte key.
func NewFieldCipherFromKey(key []byte) (*FieldCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt encrypts a plaintext string. A fresh nonce is drawn per call, so
// encrypting the same value twice yields different tokens.
func (fc *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, fc.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := fc.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure to recover the original plaintext
// surfaces as ErrDataCorruption rather than silent wrong data.
func (fc *FieldCipher) Decrypt(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token encoding: %v", ErrDataCorruption, err)
	}
	ns := fc.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("%w: token too short", ErrDataCorruption)
	}
	nonce, ct := raw[:ns], raw[ns:]
	plaintext, err := fc.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		// Wrong key and flipped bits are indistinguishable here; both mean
		// the stored data cannot be trusted.
		return "", fmt.Errorf("%w: authentication failed", ErrDataCorruption)
	}
	return string(plaintext), nil
}

// EncryptJSON marshals v and encrypts the resulting document.
func (fc *FieldCipher) EncryptJSON(v interface{}) (string, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json field: %w", err)
	}
	return fc.Encrypt(string(doc))
}

// DecryptJSON decrypts a token and unmarshals it into out. The plaintext
// must be a JSON object; anything else is reported as corruption, never
// returned as data.
func (fc *FieldCipher) DecryptJSON(token string, out interface{}) error {
	doc, err := fc.Decrypt(token)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(doc)
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("%w: decrypted content is not a JSON object", ErrDataCorruption)
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf("%w: decrypted content failed to parse: %v", ErrDataCorruption, err)
	}
	return nil
}

// DecryptJSONLenient behaves like DecryptJSON but degrades to an empty
// document when the token is corrupted. Reserved for backward-compatible
// reads of rows written before encryption was introduced.
func (fc *FieldCipher) DecryptJSONLenient(token string, out interface{}) error {
	err := fc.DecryptJSON(token, out)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDataCorruption) {
		return json.Unmarshal([]byte("{}"), out)
	}
	return err
}

// ComputeHMAC returns a base64 HMAC-SHA256 of data.
func ComputeHMAC(data, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyHMAC checks an HMAC produced by ComputeHMAC in constant time.
func VerifyHMAC(data []byte, mac string, key []byte) bool {
	expected, err := base64.StdEncoding.DecodeString(mac)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return hmac.Equal(h.Sum(nil), expected)
}

// GenerateRandomKey generates a random key of the given length.
func GenerateRandomKey(length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// GenerateSecureToken generates a URL-safe random token.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
