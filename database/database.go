package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"patrimoine/config"
	"patrimoine/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm handle with a few repository helpers shared by the
// integrity scan and the command-line tools.
type Database struct {
	DB *gorm.DB
}

// Connect opens the connection, tunes the pool and brings the schema up to
// date (SQL migrations first, AutoMigrate as safety net).
func Connect(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
		cfg.DB.SSLMode,
	)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Database{DB: db}, nil
}

// GetDB returns the underlying gorm handle.
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Close closes the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
		cfg.DB.SSLMode,
	)

	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// AutoMigrate reconciles the schema with the model definitions. Exported so
// sqlite-backed tests can build the same schema without SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Bank{},
		&models.Account{},
		&models.Asset{},
		&models.HistoryPoint{},
	)
}

// User helpers.

func (d *Database) CreateUser(user *models.User) error {
	return d.DB.Create(user).Error
}

func (d *Database) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := d.DB.First(&user, "id = ?", id).Error
	return &user, err
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := d.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

// Bank / account helpers.

func (d *Database) GetBankByID(id string) (*models.Bank, error) {
	var bank models.Bank
	err := d.DB.First(&bank, "id = ?", id).Error
	return &bank, err
}

func (d *Database) GetAccountByID(id string) (*models.Account, error) {
	var account models.Account
	err := d.DB.First(&account, "id = ?", id).Error
	return &account, err
}

// Asset helpers.

func (d *Database) GetAssetByID(id string) (*models.Asset, error) {
	var asset models.Asset
	err := d.DB.First(&asset, "id = ?", id).Error
	return &asset, err
}

func (d *Database) ListAssetsByOwner(ownerID string) ([]models.Asset, error) {
	var assets []models.Asset
	err := d.DB.Where("owner_id = ?", ownerID).Find(&assets).Error
	return assets, err
}
