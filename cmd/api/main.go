package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/agent"
	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/internal/handler"
	assessmentHandler "github.com/preassess/portal-api/internal/handler/assessment"
	conversationHandler "github.com/preassess/portal-api/internal/handler/conversation"
	verificationHandler "github.com/preassess/portal-api/internal/handler/verification"
	"github.com/preassess/portal-api/internal/middleware"
	"github.com/preassess/portal-api/internal/repository/postgres"
	"github.com/preassess/portal-api/internal/router"
	assessmentService "github.com/preassess/portal-api/internal/service/assessment"
	conversationService "github.com/preassess/portal-api/internal/service/conversation"
	relayService "github.com/preassess/portal-api/internal/service/relay"
	sessionService "github.com/preassess/portal-api/internal/service/session"
	verificationService "github.com/preassess/portal-api/internal/service/verification"
	"github.com/preassess/portal-api/internal/sms"
	"github.com/preassess/portal-api/internal/summary"
	"github.com/preassess/portal-api/pkg/metrics"
	"github.com/preassess/portal-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("portal", "api")

	base := postgres.NewBaseRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	codeRepo := postgres.NewSecurityCodeRepository(base)
	sessionRepo := postgres.NewSessionRepository(base)
	conversationRepo := postgres.NewConversationRepository(base)
	recommendationRepo := postgres.NewRecommendationRepository(base)
	summaryRepo := postgres.NewSummaryRepository(base)
	consentRepo := postgres.NewConsentRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	smsSvc := sms.NewTwilioService(cfg.Twilio)
	agentClient := agent.NewHTTPClient(cfg.Agent)
	summarizer := summary.NewOpenAIService(cfg.OpenAI)

	sessionSvc := sessionService.NewService(sessionRepo, patientRepo, cfg.Session, m)
	verificationSvc := verificationService.NewService(patientRepo, codeRepo, sessionSvc, smsSvc, cfg.SecurityCode, m)
	conversationSvc := conversationService.NewService(conversationRepo, patientRepo)
	relaySvc := relayService.NewService(conversationSvc, recommendationRepo, agentClient, m)
	assessmentSvc := assessmentService.NewService(
		recommendationRepo,
		summaryRepo,
		patientRepo,
		outboxRepo,
		&base,
		conversationSvc,
		relaySvc,
		summarizer,
		m,
	)

	sessionMW := middleware.NewSessionMiddleware(sessionSvc, consentRepo)

	r := router.NewRouter(
		sessionMW,
		verificationHandler.NewHandler(verificationSvc),
		conversationHandler.NewHandler(conversationSvc, relaySvc, consentRepo),
		assessmentHandler.NewHandler(assessmentSvc),
		handler.NewHealthHandler(db),
		router.Config{
			RateLimit:     20,
			RateBurst:     40,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "portal_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("pre-assessment portal API listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
