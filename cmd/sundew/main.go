package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/decoylab/sundew/internal/config"
	"github.com/decoylab/sundew/internal/detect"
	"github.com/decoylab/sundew/internal/engage"
	"github.com/decoylab/sundew/internal/honeypot"
	"github.com/decoylab/sundew/internal/intel"
	"github.com/decoylab/sundew/internal/notify"
	"github.com/decoylab/sundew/internal/report"
	"github.com/decoylab/sundew/internal/server"
	"github.com/decoylab/sundew/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("SUNDEW_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("SUNDEW_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Load optional operator detection rules.
	rules, err := detect.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	// Assemble the decision engine.
	extractor := intel.NewExtractor(rules.SafeDomains, rules.Keywords)
	classifier := detect.NewClassifier(extractor, rules)
	store := session.NewStore(session.Policy{
		MaxMessages:          cfg.Session.MaxMessages,
		MinMessagesForReport: cfg.Session.MinMessagesForReport,
		IdleTimeout:          cfg.Session.IdleTimeout,
	})

	var generator engage.Generator
	if cfg.Gemini.APIKey != "" {
		generator = engage.NewGeminiGenerator(cfg.Gemini.APIKey, cfg.Gemini.Model)
		log.Info().Str("model", cfg.Gemini.Model).Msg("remote reply generation enabled")
	}
	engager := engage.NewEngager(generator)

	reporter := report.New(cfg.Report.CallbackURL)

	var alerter notify.Alerter = notify.NopAlerter{}
	if cfg.Slack.BotToken != "" {
		alerter = notify.NewSlackAlerter(slacklib.New(cfg.Slack.BotToken), cfg.Slack.AlertChannel)
		log.Info().Str("channel", cfg.Slack.AlertChannel).Msg("Slack alerting enabled")
	}

	engine := honeypot.New(store, extractor, classifier, engager, reporter, alerter)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Expire idle sessions in the background.
	go func() {
		ticker := time.NewTicker(cfg.Session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := store.SweepExpired(time.Now().UTC()); removed > 0 {
					log.Info().Int("removed", removed).Int("live", store.Len()).Msg("swept expired sessions")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, engine)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
