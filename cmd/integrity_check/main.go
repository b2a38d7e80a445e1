// Command integrity_check runs a full decryption scan offline and prints
// the rows that fail, without starting the HTTP server. Exit code 1 means
// corruption was found.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"patrimoine/config"
	"patrimoine/database"
	"patrimoine/models"
	"patrimoine/services"
	"patrimoine/utils"
)

func main() {
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
	salt := cfg.Security.EncryptionSalt
	if salt == "" {
		if salt, err = keyManager.LoadOrCreateSalt(); err != nil {
			log.Fatalf("sel: %v", err)
		}
	}
	cipher, err := utils.NewFieldCipher(cfg.Security.SecretKey, salt)
	if err != nil {
		log.Fatalf("chiffrement: %v", err)
	}
	models.UseCipher(cipher)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("base de données: %v", err)
	}
	defer db.Close()

	// No alert mails from the CLI, the operator is already looking.
	integrity := services.NewIntegrityService(db.DB, nil)
	report, err := integrity.FullScan()
	if err != nil {
		log.Fatalf("analyse: %v", err)
	}

	fmt.Printf("lignes analysées: %d\n", report.TotalScanned)
	if report.Passed {
		fmt.Println("aucune corruption détectée")
		return
	}

	fmt.Printf("lignes corrompues: %d\n", report.Corrupted)
	for _, item := range report.Items {
		fmt.Printf("  %s %s: %s\n", item.Type, item.ID, item.Error)
	}
	os.Exit(1)
}
