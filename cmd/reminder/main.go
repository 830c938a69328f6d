// Comando reminder envia, uma única vez, os lembretes das consultas de amanhã.
// Útil como cron job externo quando o servidor roda sem REMINDER_CRON.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/config"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/database"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/logging"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/migrate"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/reminder"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/whatsapp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reminder:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	db, closeDB, err := database.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	wa := whatsapp.NewClient(whatsapp.Config{
		AccountSid: cfg.TwilioAccountSid,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
	})
	job := reminder.NewJob(reminder.NewStore(db), wa, cfg.ReminderTZ, log.Named("reminder"))
	sent, skipped, err := job.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("lembretes concluídos", zap.Int("sent", sent), zap.Int("skipped", skipped))
	return nil
}
