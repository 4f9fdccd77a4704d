// cmd/mailtest/main.go
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

// Sends one test email through the configured SMTP server
func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()
	if *to == "" {
		log.Fatal("Usage: mailtest -to someone@example.com")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Email.Enabled = true
	logr := logger.New(cfg)

	emailService := email.NewEmailService(cfg.Email, logr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = emailService.SendEmail(ctx, &email.Email{
		To:          []string{*to},
		Subject:     "Test email from " + cfg.App.Name,
		HTMLContent: "<h1>Success!</h1><p>SMTP delivery is working.</p>",
		Type:        "test",
	})
	if err != nil {
		logr.WithError(err).Fatal("Failed to send test email")
	}
	logr.WithField("to", *to).Info("Test email sent")
}
