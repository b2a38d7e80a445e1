package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// KeyMetadata tracks the lifecycle of the encryption key material.
type KeyMetadata struct {
	Version      int    `json:"version"`
	CreationDate string `json:"creation_date"`
	LastVerified string `json:"last_verified"`
}

// KeyManager owns the salt file and the key metadata next to the data
// directory. Rotations bump the version and keep a timestamped copy of the
// previous salt so older backups stay recoverable.
type KeyManager struct {
	dataDir    string
	backupsDir string

	saltFile     string
	metadataFile string
}

// NewKeyManager prepares the data and key-backup directories.
func NewKeyManager(dataDir string) (*KeyManager, error) {
	backupsDir := filepath.Join(dataDir, "key_backups")
	if err := os.MkdirAll(backupsDir, 0o700); err != nil {
		return nil, fmt.Errorf("create key backups dir: %w", err)
	}
	return &KeyManager{
		dataDir:      dataDir,
		backupsDir:   backupsDir,
		saltFile:     filepath.Join(dataDir, ".salt"),
		metadataFile: filepath.Join(dataDir, ".key_metadata.json"),
	}, nil
}

// SaltExists reports whether a salt file is already present.
func (km *KeyManager) SaltExists() bool {
	_, err := os.Stat(km.saltFile)
	return err == nil
}

// LoadOrCreateSalt returns the stored salt, generating and persisting a new
// random one on first run.
func (km *KeyManager) LoadOrCreateSalt() (string, error) {
	if data, err := os.ReadFile(km.saltFile); err == nil && len(data) > 0 {
		return string(data), nil
	}
	raw, err := GenerateSecureToken(16)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(km.saltFile, []byte(raw), 0o600); err != nil {
		return "", fmt.Errorf("write salt file: %w", err)
	}
	if _, err := km.loadOrCreateMetadata(); err != nil {
		return "", err
	}
	return raw, nil
}

// Metadata returns current key metadata, creating it if missing.
func (km *KeyManager) Metadata() (*KeyMetadata, error) {
	return km.loadOrCreateMetadata()
}

// MarkVerified records a successful decrypt preflight.
func (km *KeyManager) MarkVerified() error {
	md, err := km.loadOrCreateMetadata()
	if err != nil {
		return err
	}
	md.LastVerified = time.Now().Format(time.RFC3339)
	return km.saveMetadata(md)
}

// RotateSalt backs up the current salt, writes the new one and bumps the
// key version. The caller is responsible for re-encrypting stored data.
func (km *KeyManager) RotateSalt(newSalt string) (int, error) {
	if data, err := os.ReadFile(km.saltFile); err == nil {
		stamp := time.Now().Format("20060102_150405")
		backup := filepath.Join(km.backupsDir, fmt.Sprintf("salt_%s", stamp))
		if err := os.WriteFile(backup, data, 0o600); err != nil {
			return 0, fmt.Errorf("backup salt: %w", err)
		}
	}
	if err := os.WriteFile(km.saltFile, []byte(newSalt), 0o600); err != nil {
		return 0, fmt.Errorf("write salt file: %w", err)
	}

	md, err := km.loadOrCreateMetadata()
	if err != nil {
		return 0, err
	}
	md.Version++
	md.CreationDate = time.Now().Format(time.RFC3339)
	if err := km.saveMetadata(md); err != nil {
		return 0, err
	}
	return md.Version, nil
}

func (km *KeyManager) loadOrCreateMetadata() (*KeyMetadata, error) {
	if data, err := os.ReadFile(km.metadataFile); err == nil {
		var md KeyMetadata
		if err := json.Unmarshal(data, &md); err == nil {
			if md.Version == 0 {
				md.Version = 1
			}
			return &md, nil
		}
		LogError("key metadata unreadable, recreating: %s", km.metadataFile)
	}

	now := time.Now().Format(time.RFC3339)
	md := &KeyMetadata{Version: 1, CreationDate: now, LastVerified: now}
	if err := km.saveMetadata(md); err != nil {
		return nil, err
	}
	return md, nil
}

func (km *KeyManager) saveMetadata(md *KeyMetadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key metadata: %w", err)
	}
	if err := os.WriteFile(km.metadataFile, data, 0o600); err != nil {
		return fmt.Errorf("write key metadata: %w", err)
	}
	return nil
}
