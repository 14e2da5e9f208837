package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

//////////////////////////////////////////////////////////////
// MAIN
//////////////////////////////////////////////////////////////

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log := newLogger(os.Stderr, "info")
		log.Fatal().Err(err).Msg("FATAL: invalid configuration")
	}
	log := newLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("FATAL")
	}
}

func run(ctx context.Context, cfg *Config, log zerolog.Logger) error {
	persona, err := loadPersona(cfg.PersonaFile)
	if err != nil {
		return err
	}
	log.Info().Str("file", cfg.PersonaFile).Msg("Successfully loaded persona")

	whitelist, err := cfg.buildWhitelist()
	if err != nil {
		return fmt.Errorf("whitelist: %w", err)
	}
	log.Info().Int("entries", whitelist.Len()).Msg("Whitelist ready")

	backend, err := newGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxOutputTokens)
	if err != nil {
		return err
	}
	defer backend.Close()

	container, err := sqlstore.New(ctx, "sqlite3", cfg.StoreDSN, whatsmeowLogger(log, "Database"))
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, whatsmeowLogger(log, "Client"))
	router := NewRouter(&whatsAppTransport{client: client}, backend, whitelist, RouterConfig{
		Persona:       persona,
		OpeningLine:   cfg.OpeningLine,
		Delay:         cfg.ReplyDelay,
		TypingRefresh: cfg.TypingRefresh,
	}, NewRouterMetrics(prometheus.DefaultRegisterer), log)
	client.AddEventHandler(eventHandler(ctx, client, router, log))

	if err := connect(ctx, client, log); err != nil {
		return err
	}
	if own := client.Store.ID; own != nil && own.User != cfg.WhatsAppPhone {
		client.Disconnect()
		return fmt.Errorf("store %s is linked to %s, not WHATSAPP_PHONE %s", cfg.StoreDSN, own.User, cfg.WhatsAppPhone)
	}
	log.Info().Str("account", cfg.WhatsAppPhone).Msg("Client started")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	// Handlers still running clear their typing indicators on the live client.
	router.Wait()
	client.Disconnect()
	logMetricsSummary(prometheus.DefaultGatherer, log)
	return nil
}

// connect logs in with the stored session, or pairs a new device by QR code on first run.
func connect(ctx context.Context, client *whatsmeow.Client, log zerolog.Logger) error {
	if client.Store.ID != nil {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		return nil
	}

	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			fmt.Println("Scan this code in WhatsApp > Linked devices:")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		case "success":
			log.Info().Msg("Device paired")
			return nil
		default:
			log.Warn().Str("event", evt.Event).Msg("Pairing ended")
		}
	}
	if client.Store.ID == nil {
		client.Disconnect()
		return fmt.Errorf("pairing did not complete")
	}
	return nil
}
