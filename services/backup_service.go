package services

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"patrimoine/models"
	"patrimoine/utils"

	"gorm.io/gorm"
)

// backupKeySalt is a fixed derivation salt: backups must stay readable even
// after the field-encryption salt rotates.
const backupKeySalt = "Patrimoine_App_Salt"

// backupUser re-exposes the password hash, which the API serialization of
// User deliberately hides. Without it restored accounts could not log in.
type backupUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

// backupArchive is the serialized shape of a backup: the full dataset in
// plaintext, re-encrypted as a whole with the backup key.
type backupArchive struct {
	CreatedAt time.Time             `json:"created_at"`
	Users     []backupUser          `json:"users"`
	Banks     []models.Bank         `json:"banks"`
	Accounts  []models.Account      `json:"accounts"`
	Assets    []models.Asset        `json:"assets"`
	History   []models.HistoryPoint `json:"history"`
}

// BackupService writes and restores encrypted backups of the whole dataset.
// Files are gzip-compressed JSON encrypted with a key derived from the
// master secret, with an HMAC side file for tamper detection.
type BackupService struct {
	db      *gorm.DB
	dir     string
	cipher  *utils.FieldCipher
	hmacKey []byte
	notify  *EmailService
}

func NewBackupService(db *gorm.DB, dir, masterSecret string, notify *EmailService) (*BackupService, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	key := utils.DeriveKey(masterSecret, backupKeySalt)
	cipher, err := utils.NewFieldCipherFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("backup cipher: %w", err)
	}
	return &BackupService{
		db:      db,
		dir:     dir,
		cipher:  cipher,
		hmacKey: key,
		notify:  notify,
	}, nil
}

// Create exports every table, compresses and encrypts the dump, and writes
// it next to an HMAC checksum file.
func (s *BackupService) Create() (string, error) {
	archive := backupArchive{CreatedAt: time.Now()}

	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		return "", fmt.Errorf("export users: %w", err)
	}
	for _, u := range users {
		archive.Users = append(archive.Users, backupUser{User: u, PasswordHash: u.PasswordHash})
	}
	if err := s.db.Find(&archive.Banks).Error; err != nil {
		return "", fmt.Errorf("export banks: %w", err)
	}
	if err := s.db.Find(&archive.Accounts).Error; err != nil {
		return "", fmt.Errorf("export accounts: %w", err)
	}
	if err := s.db.Find(&archive.Assets).Error; err != nil {
		return "", fmt.Errorf("export assets: %w", err)
	}
	if err := s.db.Find(&archive.History).Error; err != nil {
		return "", fmt.Errorf("export history: %w", err)
	}

	doc, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("marshal backup: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(doc); err != nil {
		return "", fmt.Errorf("compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("compress backup: %w", err)
	}

	token, err := s.cipher.Encrypt(compressed.String())
	if err != nil {
		return "", fmt.Errorf("encrypt backup: %w", err)
	}

	stamp := archive.CreatedAt.Format("20060102_150405")
	path := filepath.Join(s.dir, fmt.Sprintf("backup_%s.json.gz.enc", stamp))
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	mac := utils.ComputeHMAC([]byte(token), s.hmacKey)
	if err := os.WriteFile(path+".hmac", []byte(mac), 0o600); err != nil {
		return "", fmt.Errorf("write backup checksum: %w", err)
	}

	utils.GetMetrics().RecordDomainOperation("backup")
	utils.LogInfo("encrypted backup written: %s (%d bytes)", path, len(token))

	if s.notify.Enabled() {
		if err := s.notify.SendBackupNotification(path, int64(len(token))); err != nil {
			utils.LogError("backup notification failed: %v", err)
		}
	}
	return path, nil
}

// List returns available backup files, newest first.
func (s *BackupService) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "backup_*.json.gz.enc"))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// Prune deletes all but the keep most recent backups and their checksum
// side files.
func (s *BackupService) Prune(keep int) error {
	if keep < 1 {
		return nil
	}
	files, err := s.List()
	if err != nil {
		return err
	}
	for _, path := range files[min(keep, len(files)):] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("prune backup: %w", err)
		}
		// Orphaned checksums are harmless, the file itself is gone.
		os.Remove(path + ".hmac")
		utils.LogInfo("old backup removed: %s", path)
	}
	return nil
}

// Restore verifies, decrypts and reloads a backup, replacing all current
// data in one transaction.
func (s *BackupService) Restore(path string) error {
	token, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	mac, err := os.ReadFile(path + ".hmac")
	if err != nil {
		return fmt.Errorf("read backup checksum: %w", err)
	}
	if !utils.VerifyHMAC(token, string(mac), s.hmacKey) {
		return fmt.Errorf("%w: backup checksum mismatch", utils.ErrDataCorruption)
	}

	compressed, err := s.cipher.Decrypt(string(token))
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader([]byte(compressed)))
	if err != nil {
		return fmt.Errorf("%w: backup is not valid gzip", utils.ErrDataCorruption)
	}
	doc, err := io.ReadAll(gz)
	if err != nil {
		return fmt.Errorf("inflate backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("inflate backup: %w", err)
	}

	var archive backupArchive
	if err := json.Unmarshal(doc, &archive); err != nil {
		return fmt.Errorf("%w: backup failed to parse", utils.ErrDataCorruption)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"history", "assets", "accounts", "banks", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for i := range archive.Users {
			user := archive.Users[i].User
			user.PasswordHash = archive.Users[i].PasswordHash
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("restore user: %w", err)
			}
		}
		for i := range archive.Banks {
			if err := tx.Create(&archive.Banks[i]).Error; err != nil {
				return fmt.Errorf("restore bank: %w", err)
			}
		}
		for i := range archive.Accounts {
			if err := tx.Create(&archive.Accounts[i]).Error; err != nil {
				return fmt.Errorf("restore account: %w", err)
			}
		}
		for i := range archive.Assets {
			if err := tx.Create(&archive.Assets[i]).Error; err != nil {
				return fmt.Errorf("restore asset: %w", err)
			}
		}
		for i := range archive.History {
			if err := tx.Create(&archive.History[i]).Error; err != nil {
				return fmt.Errorf("restore history point: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.LogInfo("backup restored from %s", path)
	return nil
}
