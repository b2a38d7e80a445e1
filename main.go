package main

import (
	"fmt"
	"log"
	"net/http"

	"patrimoine/admin"
	"patrimoine/config"
	"patrimoine/controllers"
	"patrimoine/database"
	"patrimoine/middleware"
	"patrimoine/models"
	"patrimoine/services"
	"patrimoine/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Erreur de chargement de la configuration: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Key material: the salt lives on disk, the secret comes from config.
	// Together they derive the field-encryption key.
	keyManager, err := utils.NewKeyManager(cfg.Security.DataDir)
	if err != nil {
		log.Fatalf("Erreur d'initialisation des clés: %v", err)
	}
	salt := cfg.Security.EncryptionSalt
	if salt == "" {
		salt, err = keyManager.LoadOrCreateSalt()
		if err != nil {
			log.Fatalf("Erreur de chargement du sel: %v", err)
		}
	}

	cipher, err := utils.NewFieldCipher(cfg.Security.SecretKey, salt)
	if err != nil {
		log.Fatalf("Erreur d'initialisation du chiffrement: %v", err)
	}
	models.UseCipher(cipher)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Erreur de connexion à la base de données: %v", err)
	}
	defer db.Close()

	emailService := services.NewEmailService(cfg)

	// Refuse to serve if sampled rows no longer decrypt: a wrong key or
	// corrupted storage must not look like an empty portfolio.
	integrityService := services.NewIntegrityService(db.DB, emailService)
	if err := integrityService.Verify(); err != nil {
		log.Fatalf("Échec de la vérification d'intégrité, démarrage refusé: %v", err)
	}
	if err := keyManager.MarkVerified(); err != nil {
		utils.LogError("key metadata update failed: %v", err)
	}

	jwtKey := []byte(cfg.JWT.SecretKey)
	authService := services.NewAuthService(db.DB, jwtKey, cfg.JWTExpiry())
	bankService := services.NewBankService(db.DB)
	accountService := services.NewAccountService(db.DB)
	assetService := services.NewAssetService(db.DB)
	historyService := services.NewHistoryService(db.DB, assetService)
	currencyService := services.NewCurrencyService(cfg)
	syncService := services.NewSyncService(assetService, currencyService)
	backupService, err := services.NewBackupService(db.DB, cfg.Backup.Dir, cfg.Security.SecretKey, emailService)
	if err != nil {
		log.Fatalf("Erreur d'initialisation des sauvegardes: %v", err)
	}

	backupScheduler := services.NewBackupScheduler(backupService, cfg.BackupInterval(), cfg.Backup.Keep)
	backupScheduler.Start()
	defer backupScheduler.Stop()

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimit())

	public := router.Group("/api")
	private := router.Group("/api")
	private.Use(middleware.Auth(db, jwtKey))

	controllers.NewAuthController(authService).RegisterRoutes(public, private)
	controllers.NewBankController(bankService).RegisterRoutes(private)
	controllers.NewAccountController(accountService).RegisterRoutes(private)
	controllers.NewAssetController(assetService, syncService).RegisterRoutes(private)
	controllers.NewHistoryController(historyService).RegisterRoutes(private)
	controllers.NewExportController(assetService).RegisterRoutes(private)
	controllers.NewBackupController(backupService).RegisterRoutes(private)

	// Ops endpoints on their own port, not exposed with the public API.
	adminServer := admin.NewServer(integrityService, backupService)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.AdminPort)
		utils.LogInfo("admin listener on %s", addr)
		if err := http.ListenAndServe(addr, adminServer.Router()); err != nil {
			log.Fatalf("Erreur du serveur d'administration: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Serveur démarré sur le port %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Erreur de démarrage du serveur: %v", err)
	}
}
