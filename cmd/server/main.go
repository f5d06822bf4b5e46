package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicing-backend/internal/config"
	"invoicing-backend/internal/database"
	"invoicing-backend/internal/events"
	"invoicing-backend/internal/invoice"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/numbering"
	"invoicing-backend/internal/payment"
	"invoicing-backend/internal/server"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "invoicing",
	Short:         "Master / alt fatura ve ödeme servisi",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API ve event relay'i başlatır",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Veritabanı tablolarını oluşturur / günceller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		// Init migration'ı da çalıştırır
		_, err = database.Init(cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// bootstrap loads .env and config, then installs the global logger.
func bootstrap() (*config.Config, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_ = logger.Setup(logger.DefaultConfig())
		return nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, fmt.Errorf("logger kurulamadı: %w", err)
	}

	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env dosyası yüklenmedi")
	}
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Init(cfg)
	if err != nil {
		return err
	}

	outbox := events.NewOutbox(db)
	app := server.New(cfg, server.Deps{
		DB:       db,
		Invoices: invoice.NewService(db, numbering.NewSequenceNumberer(db, cfg.InvoiceNumberPrefix), outbox),
		Payments: payment.NewService(db, outbox),
	})

	relay := events.NewRelay(db)
	for _, t := range []string{
		events.EventMasterInvoiceCreated,
		events.EventChildInvoiceCreated,
		events.EventChildInvoiceVoided,
		events.EventPaymentApplied,
	} {
		relay.Subscribe(t, events.LogHandler)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx, cfg.EventRelayInterval, cfg.EventRelayBatch)
	}()

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Sunucu başlatılıyor")
		listenErr <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-listenErr:
		stop()
		<-relayDone
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Kapatılıyor")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("HTTP sunucusu düzgün kapanmadı")
	}
	<-relayDone
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Komut başarısız")
		fmt.Fprintf(os.Stderr, "Hata: %v\n", err)
		os.Exit(1)
	}
}
