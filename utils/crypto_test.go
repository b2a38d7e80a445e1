package utils

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testCipher(t *testing.T) *FieldCipher {
	t.Helper()
	fc, err := NewFieldCipher("test-secret-key", "test-salt")
	if err != nil {
		t.Fatalf("cipher init: %v", err)
	}
	return fc
}

func TestDeriveKey(t *testing.T) {
	key := DeriveKey("secret", "salt")
	if len(key) != 32 {
		t.Errorf("key length: expected 32, got %d", len(key))
	}

	// Same inputs, same key.
	key2 := DeriveKey("secret", "salt")
	if string(key) != string(key2) {
		t.Error("derivation must be deterministic")
	}

	// Different salt, different key.
	key3 := DeriveKey("secret", "other-salt")
	if string(key) == string(key3) {
		t.Error("different salts must give different keys")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	fc := testCipher(t)

	testCases := []string{
		"Hello World",
		"détenu à 100% en août",
		"",
		"Special!@#$%^&*()",
		strings.Repeat("A", 10000),
	}

	for _, plaintext := range testCases {
		token, err := fc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}
		if token == plaintext && plaintext != "" {
			t.Errorf("token must not equal plaintext for %q", plaintext)
		}

		decrypted, err := fc.Decrypt(token)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plaintext, err)
		}
		if decrypted != plaintext {
			t.Errorf("roundtrip mismatch: expected %q, got %q", plaintext, decrypted)
		}
	}
}

func TestEncrypt_Nondeterministic(t *testing.T) {
	fc := testCipher(t)

	token1, _ := fc.Encrypt("same plaintext")
	token2, _ := fc.Encrypt("same plaintext")
	if token1 == token2 {
		t.Error("two encryptions of the same value must differ")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	fc := testCipher(t)
	other, _ := NewFieldCipher("another-secret", "test-salt")

	token, _ := fc.Encrypt("confidential")
	_, err := other.Decrypt(token)
	if err == nil {
		t.Fatal("wrong key must fail")
	}
	if !errors.Is(err, ErrDataCorruption) {
		t.Errorf("expected ErrDataCorruption, got %v", err)
	}
}

func TestDecrypt_InvalidData(t *testing.T) {
	fc := testCipher(t)

	for _, token := range []string{
		"not base64 at all!!",
		"YWJj", // too short for a nonce
		"",
	} {
		_, err := fc.Decrypt(token)
		if err == nil {
			t.Errorf("token %q must fail", token)
			continue
		}
		if !errors.Is(err, ErrDataCorruption) {
			t.Errorf("token %q: expected ErrDataCorruption, got %v", token, err)
		}
	}
}

func TestDecrypt_TamperedToken(t *testing.T) {
	fc := testCipher(t)

	token, _ := fc.Encrypt("amount=5000")
	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 1

	_, err := fc.Decrypt(string(tampered))
	if !errors.Is(err, ErrDataCorruption) {
		t.Errorf("tampered token: expected ErrDataCorruption, got %v", err)
	}
}

func TestEncryptDecryptJSON(t *testing.T) {
	fc := testCipher(t)

	in := map[string]float64{"actions": 60, "obligations": 40}
	token, err := fc.EncryptJSON(in)
	if err != nil {
		t.Fatalf("encrypt json: %v", err)
	}

	var out map[string]float64
	if err := fc.DecryptJSON(token, &out); err != nil {
		t.Fatalf("decrypt json: %v", err)
	}
	if out["actions"] != 60 || out["obligations"] != 40 {
		t.Errorf("roundtrip mismatch: %v", out)
	}
}

func TestDecryptJSON_NotAnObject(t *testing.T) {
	fc := testCipher(t)

	// Valid ciphertext whose plaintext is not a JSON object.
	token, _ := fc.Encrypt("[1,2,3]")

	var out map[string]float64
	err := fc.DecryptJSON(token, &out)
	if !errors.Is(err, ErrDataCorruption) {
		t.Errorf("expected ErrDataCorruption, got %v", err)
	}
}

func TestDecryptJSONLenient(t *testing.T) {
	fc := testCipher(t)

	// Corrupted token degrades to an empty object instead of failing.
	var out map[string]float64
	if err := fc.DecryptJSONLenient("garbage-token", &out); err != nil {
		t.Fatalf("lenient decrypt must not fail: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty map, got %v", out)
	}

	// Valid token still decrypts normally.
	token, _ := fc.EncryptJSON(map[string]float64{"cash": 100})
	if err := fc.DecryptJSONLenient(token, &out); err != nil {
		t.Fatalf("lenient decrypt of valid token: %v", err)
	}
	if out["cash"] != 100 {
		t.Errorf("expected cash=100, got %v", out)
	}
}

func TestComputeVerifyHMAC(t *testing.T) {
	key := []byte("hmac-key")
	data := []byte("backup payload")

	mac := ComputeHMAC(data, key)
	if !VerifyHMAC(data, mac, key) {
		t.Error("valid mac rejected")
	}
	if VerifyHMAC([]byte("other payload"), mac, key) {
		t.Error("mac accepted for different data")
	}
	if VerifyHMAC(data, mac, []byte("other-key")) {
		t.Error("mac accepted with different key")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	tok1, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("token generation: %v", err)
	}
	tok2, _ := GenerateSecureToken(32)
	if tok1 == tok2 {
		t.Error("tokens must be unique")
	}
}

func TestGenerateRandomKey(t *testing.T) {
	key, err := GenerateRandomKey(32)
	if err != nil {
		t.Fatalf("key generation: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
	other, _ := GenerateRandomKey(32)
	if bytes.Equal(key, other) {
		t.Error("keys must be unique")
	}
}

func BenchmarkEncrypt(b *testing.B) {
	fc, _ := NewFieldCipher("bench-secret", "bench-salt")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc.Encrypt("Livret A - Banque Postale")
	}
}

func BenchmarkDecrypt(b *testing.B) {
	fc, _ := NewFieldCipher("bench-secret", "bench-salt")
	token, _ := fc.Encrypt("Livret A - Banque Postale")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc.Decrypt(token)
	}
}

func BenchmarkDeriveKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		DeriveKey("bench-secret", "bench-salt")
	}
}
