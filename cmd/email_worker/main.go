package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/mailer"
)

// The email worker consumes account events from the configured bus and
// sends verification emails through Mailgun.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	d := mailer.NewDispatcher(cfg, mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cfg.EventBus {
	case config.EventBusRabbitMQ:
		err = consumeRabbit(ctx, cfg, d, logger)
	case config.EventBusKafka:
		err = consumeKafka(ctx, cfg, d, logger)
	default:
		log.Fatalf("EVENT_BUS=%q has nothing to consume", cfg.EventBus)
	}
	if err != nil {
		log.Fatalf("email worker: %v", err)
	}
	logger.Info("email worker stopped")
}
