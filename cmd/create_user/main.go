// Command create_user registers an account from the command line, for
// bootstrapping a fresh deployment before the HTTP API has any users.
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
	username := flag.String("username", "", "nom d'utilisateur")
	email := flag.String("email", "", "adresse email")
	password := flag.String("password", "", "mot de passe")
	configPath := flag.String("config", "", "chemin du fichier de configuration")
	flag.Parse()

	if *username == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	auth := services.NewAuthService(db.DB, []byte(cfg.JWT.SecretKey), cfg.JWTExpiry())
	user, err := auth.Register(*username, *email, *password)
	if err != nil {
		log.Fatalf("création de l'utilisateur: %v", err)
	}

	fmt.Printf("utilisateur créé: %s (%s)\n", user.Username, user.ID)
}
