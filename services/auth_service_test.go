package services

import (
	"errors"
	"testing"
	"time"

	"patrimoine/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)

	user, err := auth.Register("claire", "claire@example.org", "Passw0rd!")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Error("registered user must get an id")
	}
	if user.PasswordHash == "Passw0rd!" {
		t.Error("password must not be stored in clear")
	}

	got, err := auth.Authenticate("claire", "Passw0rd!")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated wrong user: %s vs %s", got.ID, user.ID)
	}
	if string(got.Email) != "claire@example.org" {
		t.Errorf("email did not roundtrip: %q", got.Email)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)

	if _, err := auth.Register("claire", "a@example.org", "Passw0rd!"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := auth.Register("claire", "b@example.org", "Passw0rd!")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)
	auth.Register("claire", "claire@example.org", "Passw0rd!")

	if _, err := auth.Authenticate("claire", "wrong"); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong password: expected ErrForbidden, got %v", err)
	}
	if _, err := auth.Authenticate("nobody", "Passw0rd!"); !errors.Is(err, ErrForbidden) {
		t.Errorf("unknown user: expected ErrForbidden, got %v", err)
	}
}

func TestAuthenticate_Deactivated(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)
	user, _ := auth.Register("claire", "claire@example.org", "Passw0rd!")

	if err := auth.SetActive(user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := auth.Authenticate("claire", "Passw0rd!"); !errors.Is(err, ErrForbidden) {
		t.Errorf("deactivated account: expected ErrForbidden, got %v", err)
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	db := setupTestDB(t)
	key := []byte("jwt-test-key")
	auth := NewAuthService(db, key, time.Hour)
	user, _ := auth.Register("claire", "claire@example.org", "Passw0rd!")

	token, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ParseToken(key, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "claire" {
		t.Errorf("claims mismatch: %+v", claims)
	}

	if _, err := ParseToken([]byte("other-key"), token); err == nil {
		t.Error("token signed with another key must be rejected")
	}
	if _, err := ParseToken(key, "not.a.token"); err == nil {
		t.Error("malformed token must be rejected")
	}
}

func TestSetActive_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)

	if err := auth.SetActive("missing-id", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEmailStoredEncrypted(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, []byte("jwt-test-key"), time.Hour)
	user, _ := auth.Register("claire", "claire@example.org", "Passw0rd!")

	// Read the raw column, bypassing the model's Scanner.
	var raw string
	if err := db.Raw("SELECT email FROM users WHERE id = ?", user.ID).Scan(&raw).Error; err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if raw == "claire@example.org" {
		t.Error("email stored in clear")
	}

	var loaded models.User
	if err := db.First(&loaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if string(loaded.Email) != "claire@example.org" {
		t.Errorf("email did not decrypt: %q", loaded.Email)
	}
}
