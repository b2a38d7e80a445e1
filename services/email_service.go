package services

import (
	"fmt"
	"time"

	"patrimoine/config"

	"gopkg.in/gomail.v2"
)

// EmailService sends operational alerts over SMTP. The SMTP section is
// resolved from the config on every send, so credentials or recipients
// changed in the config file apply without a restart.
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled reports whether an alert recipient is configured.
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg.SMTPSettings().AlertTo != ""
}

// SendEmail sends a raw HTML mail.
func (s *EmailService) SendEmail(to, subject, body string) error {
	smtp := s.cfg.SMTPSettings()
	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)

	m := gomail.NewMessage()
	m.SetHeader("From", smtp.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SendIntegrityAlert notifies the operator that the corruption scan found
// undecryptable rows.
func (s *EmailService) SendIntegrityAlert(scanned, corrupted int, items []string) error {
	if !s.Enabled() {
		return nil
	}
	subject := "Alerte: corruption détectée dans la base patrimoine"
	body := fmt.Sprintf(`
		<h2>Scan d'intégrité</h2>
		<p>Éléments scannés: %d</p>
		<p>Éléments corrompus: %d</p>
		<p>Détails: %v</p>
		<p>Date: %s</p>
	`, scanned, corrupted, items, time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(s.cfg.SMTPSettings().AlertTo, subject, body)
}

// SendBackupNotification confirms that an encrypted backup was written.
func (s *EmailService) SendBackupNotification(path string, size int64) error {
	if !s.Enabled() {
		return nil
	}
	subject := "Sauvegarde chiffrée créée"
	body := fmt.Sprintf(`
		<h2>Sauvegarde terminée</h2>
		<p>Fichier: %s</p>
		<p>Taille: %d octets</p>
		<p>Date: %s</p>
	`, path, size, time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(s.cfg.SMTPSettings().AlertTo, subject, body)
}
