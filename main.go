package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/config"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/crypto"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/database"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/logging"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/migrate"
	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/seed"
)

// version é definido no build via -ldflags "-X main.version=x.y.z"; APP_VERSION tem precedência.
var version = "dev"

// app reúne o que todos os comandos precisam.
type app struct {
	cfg         *config.Config
	log         *zap.Logger
	skipMigrate bool
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "consulta",
		Short:         "Backend de agendamento de consultas de psicologia",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if os.Getenv("APP_VERSION") == "" {
				a.cfg.Version = version
			}
			l, err := logging.New(a.cfg.LogLevel, a.cfg.IsDevelopment())
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			a.log = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	var skipMigrate bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Sobe a API HTTP, o hub WebSocket e o agendador de lembretes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.skipMigrate = skipMigrate
			return a.serve(cmd.Context())
		},
	}
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "não aplica migrations na subida")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrations pendentes e sai",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				if err := migrate.Run(ctx, db); err != nil {
					return fmt.Errorf("migrations: %w", err)
				}
				a.log.Info("migrations aplicadas")
				return nil
			})
		},
	}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insere dados de demonstração quando o banco está vazio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				kr, err := crypto.NewKeyring(a.cfg.DataEncryptionKeys, a.cfg.CurrentDataKeyVer)
				if err != nil {
					return err
				}
				if err := migrate.Run(ctx, db); err != nil {
					return fmt.Errorf("migrations: %w", err)
				}
				return seed.Run(ctx, db, kr, a.log.Named("seed"))
			})
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Mostra a versão",
		// não precisa de config nem logger
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "consulta "+version)
		},
	}
	root.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)

	err := root.ExecuteContext(context.Background())
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

// withDB abre o banco, executa fn e fecha a conexão.
func (a *app) withDB(ctx context.Context, fn func(ctx context.Context, db *gorm.DB) error) error {
	db, closeDB, err := database.Open(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, db)
}

func smtpPort(s string, log *zap.Logger) int {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 {
		log.Warn("SMTP_PORT inválida, usando 587", zap.String("value", s))
		return 587
	}
	return p
}
