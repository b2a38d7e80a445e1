package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"patrimoine/utils"
)

// fieldCipher encrypts and decrypts column values at the ORM boundary. It is
// injected once at startup, before any database access.
var fieldCipher *utils.FieldCipher

// UseCipher installs the field cipher used by the encrypted column types.
func UseCipher(c *utils.FieldCipher) {
	fieldCipher = c
}

func cipherOrErr() (*utils.FieldCipher, error) {
	if fieldCipher == nil {
		return nil, fmt.Errorf("field cipher not initialized")
	}
	return fieldCipher, nil
}

// EncryptedString is a string column stored as an opaque ciphertext token.
// Reads of ciphertext produced under a different key fail with
// utils.ErrDataCorruption instead of returning garbage.
type EncryptedString string

// Value implements driver.Valuer: encrypt on write.
func (s EncryptedString) Value() (driver.Value, error) {
	fc, err := cipherOrErr()
	if err != nil {
		return nil, err
	}
	token, err := fc.Encrypt(string(s))
	if err != nil {
		return nil, fmt.Errorf("encrypt string column: %w", err)
	}
	return token, nil
}

// Scan implements sql.Scanner: decrypt on read.
func (s *EncryptedString) Scan(value interface{}) error {
	token, ok := scanToken(value)
	if !ok {
		*s = ""
		return nil
	}
	fc, err := cipherOrErr()
	if err != nil {
		return err
	}
	plaintext, err := fc.Decrypt(token)
	if err != nil {
		utils.GetMetrics().RecordDecryptFailure(errors.Is(err, utils.ErrDataCorruption))
		return fmt.Errorf("string column: %w", err)
	}
	*s = EncryptedString(plaintext)
	return nil
}

// EncryptedMap is a percentage map stored as an encrypted JSON object.
type EncryptedMap map[string]float64

func (m EncryptedMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	fc, err := cipherOrErr()
	if err != nil {
		return nil, err
	}
	token, err := fc.EncryptJSON(m)
	if err != nil {
		return nil, fmt.Errorf("encrypt json column: %w", err)
	}
	return token, nil
}

func (m *EncryptedMap) Scan(value interface{}) error {
	token, ok := scanToken(value)
	if !ok {
		*m = nil
		return nil
	}
	out := make(map[string]float64)
	if err := decryptJSONColumn(token, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// EncryptedGeoMap is a category -> zone -> percentage map stored as an
// encrypted JSON object.
type EncryptedGeoMap map[string]map[string]float64

func (m EncryptedGeoMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	fc, err := cipherOrErr()
	if err != nil {
		return nil, err
	}
	token, err := fc.EncryptJSON(m)
	if err != nil {
		return nil, fmt.Errorf("encrypt json column: %w", err)
	}
	return token, nil
}

func (m *EncryptedGeoMap) Scan(value interface{}) error {
	token, ok := scanToken(value)
	if !ok {
		*m = nil
		return nil
	}
	out := make(map[string]map[string]float64)
	if err := decryptJSONColumn(token, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// decryptJSONColumn decrypts a JSON column. Rows written before encryption
// was introduced hold plain JSON objects; those are read as-is. A failed
// authenticated decrypt is always propagated as corruption.
func decryptJSONColumn(token string, out interface{}) error {
	if strings.HasPrefix(strings.TrimSpace(token), "{") {
		if err := json.Unmarshal([]byte(token), out); err != nil {
			return fmt.Errorf("%w: legacy json column failed to parse: %v", utils.ErrDataCorruption, err)
		}
		return nil
	}
	fc, err := cipherOrErr()
	if err != nil {
		return err
	}
	if err := fc.DecryptJSON(token, out); err != nil {
		utils.GetMetrics().RecordDecryptFailure(errors.Is(err, utils.ErrDataCorruption))
		return fmt.Errorf("json column: %w", err)
	}
	return nil
}

func scanToken(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case []byte:
		return string(v), len(v) > 0
	default:
		return fmt.Sprintf("%v", v), true
	}
}
