package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/email"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository/postgres"
	"github.com/preassess/portal-api/pkg/logger"
	"github.com/preassess/portal-api/pkg/messaging"
	"github.com/preassess/portal-api/pkg/messaging/redis"
	"github.com/preassess/portal-api/pkg/metrics"
	"github.com/preassess/portal-api/pkg/worker"
)

// WorkerConfig is environment-driven; the worker ships as a separate
// container and never reads the API's config file.
type WorkerConfig struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL      string        `envconfig:"REDIS_URL" required:"true"`
	BatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"2s"`
	CareTeamEmail string        `envconfig:"CARE_TEAM_EMAIL" required:"true"`
	HealthPort    string        `envconfig:"HEALTH_PORT" default:"8081"`

	SMTP email.SMTPConfig
}

func setupHealthCheck(lg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			lg.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to load worker config")
	}

	lg := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Output: os.Stdout})

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	m := metrics.NewMetrics("portal", "worker")

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.BatchSize,
			PollInterval:  cfg.PollInterval,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
		},
		lg,
		m,
	)

	setupHealthCheck(lg, cfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailSvc := email.NewSMTPService(cfg.SMTP)
	go consumeCompletions(ctx, broker, emailSvc, cfg.CareTeamEmail, lg)

	go processor.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	lg.Info("Shutting down...")
	cancel()
}

// consumeCompletions mails the care team for every completed assessment
// published on the broker.
func consumeCompletions(ctx context.Context, broker messaging.Broker, emailSvc email.Service, recipient string, lg *logger.Logger) {
	events, err := broker.Subscribe(ctx, model.EventAssessmentCompleted)
	if err != nil {
		lg.Error(err, "Failed to subscribe to completion events")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-events:
			if !ok {
				return
			}
			var payload model.AssessmentCompletedPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				lg.Error(err, "Failed to decode completion event")
				continue
			}
			if err := emailSvc.SendCompletionNotice(ctx, recipient, &payload); err != nil {
				lg.Error(err, "Failed to notify care team",
					"patient_id", payload.PatientID.String())
				continue
			}
			lg.Info("Care team notified",
				"patient_id", payload.PatientID.String())
		}
	}
}
