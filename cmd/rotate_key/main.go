// Command rotate_key rotates the field-encryption salt: it writes an
// encrypted backup, re-encrypts every stored row under the new key and then
// persists the new salt with a bumped key version. The old salt is kept
// under key_backups/.
package main

import (
	"flag"
	"fmt"
	"log"

	"patrimoine/config"
	"patrimoine/database"
	"patrimoine/models"
	"patrimoine/services"
	"patrimoine/utils"
)

func main() {
	newSalt := flag.String("new-salt", "", "nouveau sel (généré aléatoirement si absent)")
	configPath := flag.String("config", "", "chemin du fichier de configuration")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.NewConfigFromFile(*configPath)
	} else {
		cfg, err = config.NewConfig()
	}
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	keyManager, err := utils.NewKeyManager(cfg.Security.DataDir)
	if err != nil {
		log.Fatalf("clés: %v", err)
	}
	currentSalt := cfg.Security.EncryptionSalt
	if currentSalt == "" {
		if currentSalt, err = keyManager.LoadOrCreateSalt(); err != nil {
			log.Fatalf("sel: %v", err)
		}
	}
	currentCipher, err := utils.NewFieldCipher(cfg.Security.SecretKey, currentSalt)
	if err != nil {
		log.Fatalf("chiffrement: %v", err)
	}
	models.UseCipher(currentCipher)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("base de données: %v", err)
	}
	defer db.Close()

	// Rotating rows that no longer decrypt would destroy them for good.
	if err := services.NewIntegrityService(db.DB, nil).Verify(); err != nil {
		log.Fatalf("vérification d'intégrité avant rotation: %v", err)
	}

	// The backup key derives from the master secret alone, so this backup
	// stays restorable whichever salt ends up active.
	backups, err := services.NewBackupService(db.DB, cfg.Backup.Dir, cfg.Security.SecretKey, nil)
	if err != nil {
		log.Fatalf("sauvegardes: %v", err)
	}
	backupPath, err := backups.Create()
	if err != nil {
		log.Fatalf("sauvegarde avant rotation: %v", err)
	}
	fmt.Printf("sauvegarde écrite: %s\n", backupPath)

	salt := *newSalt
	if salt == "" {
		if salt, err = utils.GenerateSecureToken(16); err != nil {
			log.Fatalf("génération du sel: %v", err)
		}
	}
	nextCipher, err := utils.NewFieldCipher(cfg.Security.SecretKey, salt)
	if err != nil {
		log.Fatalf("nouveau chiffrement: %v", err)
	}

	count, err := services.NewRotationService(db.DB).Rotate(currentCipher, nextCipher)
	if err != nil {
		log.Fatalf("rechiffrement: %v", err)
	}

	version, err := keyManager.RotateSalt(salt)
	if err != nil {
		log.Fatalf("enregistrement du nouveau sel (les données sont déjà rechiffrées, "+
			"restaurez %s ou réessayez avec -new-salt): %v", backupPath, err)
	}

	fmt.Printf("rotation terminée: %d lignes rechiffrées, clé version %d\n", count, version)
	if cfg.Security.EncryptionSalt != "" {
		fmt.Println("attention: security.encryption_salt est fixé dans la configuration,")
		fmt.Printf("mettez-le à jour avec le nouveau sel: %s\n", salt)
	}
}
