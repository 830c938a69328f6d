package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/api"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/auth"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/cache"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/crypto"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/database"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/email"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/middleware"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/migrate"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/reminder"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/whatsapp"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serve(parent context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg, log := a.cfg, a.log

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var closeDB func()
		var err error
		db, closeDB, err = database.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeDB()
		if !a.skipMigrate {
			if err := migrate.Run(ctx, db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}
	} else {
		log.Warn("DATABASE_URL vazio: API sobe sem banco, /ready responde 503")
	}

	store, err := newCache(ctx, cfg.RedisURL, cfg.CacheTTL, log)
	if err != nil {
		return err
	}
	defer store.Close()

	kr, err := crypto.NewKeyring(cfg.DataEncryptionKeys, cfg.CurrentDataKeyVer)
	if err != nil {
		return fmt.Errorf("chaves de criptografia: %w", err)
	}
	if !kr.Enabled() {
		log.Warn("DATA_ENCRYPTION_KEYS vazio: descrições gravadas em texto")
	}

	var jwks *auth.JWKS
	if cfg.JWKSURI != "" {
		jwks = auth.NewJWKS(cfg.JWKSURI, &http.Client{Timeout: 10 * time.Second})
		log.Info("tokens externos habilitados", zap.String("jwks_uri", cfg.JWKSURI))
	}

	mailer := email.NewMailer(email.Config{
		Host:     cfg.SMTPHost,
		Port:     smtpPort(cfg.SMTPPort, log),
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		FromName: cfg.SMTPFromName,
		FromAddr: cfg.SMTPFromEmail,
	}, log)
	mailer.LogConfigSummary()

	hub := ws.NewHub(log.Named("ws"))
	h := &api.Handler{
		DB:       db,
		Cfg:      cfg,
		Cache:    store,
		Hub:      hub,
		Mailer:   mailer,
		Keyring:  kr,
		Verifier: auth.NewVerifier(cfg.JWTSecret, jwks, cfg.AuthAudience, cfg.AuthIssuer),
		Log:      log.Named("api"),
	}
	if err := h.ConfigurePassword(); err != nil {
		return fmt.Errorf("senha da psicóloga: %w", err)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log.Named("ratelimit"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, hub, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeoutSec+15) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("backend listening", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-t.C:
				limiter.Cleanup(now)
			}
		}
	})

	if db != nil && cfg.ReminderCron != "" {
		wa := whatsapp.NewClient(whatsapp.Config{
			AccountSid: cfg.TwilioAccountSid,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioWhatsAppFrom,
		})
		if !wa.Configured() {
			log.Warn("REMINDER_CRON definido mas Twilio não configurado: lembretes serão ignorados")
		}
		job := reminder.NewJob(reminder.NewStore(db), wa, cfg.ReminderTZ, log.Named("reminder"))
		c, err := job.Schedule(cfg.ReminderCron)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("REMINDER_CRON: %w", err)
		}
		c.Start()
		log.Info("lembretes agendados", zap.String("cron", cfg.ReminderCron), zap.String("tz", cfg.ReminderTZ))
		g.Go(func() error {
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	err = g.Wait()
	log.Info("backend stopped")
	return err
}

func newCache(ctx context.Context, redisURL string, ttl time.Duration, log *zap.Logger) (cache.Store, error) {
	if redisURL == "" {
		return cache.New(ttl), nil
	}
	r, err := cache.NewRedis(ctx, redisURL, ttl, log.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return r, nil
}
