package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"milestone-portal/portal-backend/internal/config"
	"milestone-portal/portal-backend/internal/notifications"
)

// ReminderWorker nudges freelancers about payment claims that have sat
// unverified past a configured age. Claims never expire; the worker only
// emits reminder events, it never mutates claim state.
type ReminderWorker struct {
	db     *sqlx.DB
	sink   *notifications.Service
	logger *zap.Logger
	config ReminderWorkerConfig
}

// ReminderWorkerConfig configuration for the reminder worker
type ReminderWorkerConfig struct {
	CronSpec string
	ClaimAge time.Duration
}

type outstandingClaim struct {
	ClaimID      string    `db:"claim_id"`
	StageID      string    `db:"stage_id"`
	ProjectID    string    `db:"project_id"`
	Kind         string    `db:"kind"`
	Amount       int64     `db:"amount"`
	MarkedPaidAt time.Time `db:"marked_paid_at"`
}

func (w *ReminderWorker) run(ctx context.Context) {
	cutoff := time.Now().Add(-w.config.ClaimAge)
	var claims []outstandingClaim
	err := w.db.SelectContext(ctx, &claims, `
		SELECT c.id AS claim_id, c.stage_id, st.project_id, c.kind, c.amount, c.marked_paid_at
		FROM payment_claims c
		JOIN stages st ON st.id = c.stage_id
		WHERE c.status = 'marked_paid' AND c.marked_paid_at < $1
		ORDER BY c.marked_paid_at ASC`, cutoff)
	if err != nil {
		w.logger.Error("failed to list outstanding claims", zap.Error(err))
		return
	}

	for _, c := range claims {
		projectID, err := uuid.Parse(c.ProjectID)
		if err != nil {
			w.logger.Warn("skipping claim with bad project id",
				zap.String("claim_id", c.ClaimID), zap.Error(err))
			continue
		}
		w.sink.Notify(ctx, notifications.EventClaimReminder, projectID, map[string]interface{}{
			"claim_id":       c.ClaimID,
			"stage_id":       c.StageID,
			"kind":           c.Kind,
			"amount":         c.Amount,
			"marked_paid_at": c.MarkedPaidAt,
		})
	}
	w.logger.Info("reminder pass complete", zap.Int("claims", len(claims)))
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}
	sink, err := notifications.NewService(gormDB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notification sink", zap.Error(err))
	}

	worker := &ReminderWorker{
		db:     db,
		sink:   sink,
		logger: logger,
		config: ReminderWorkerConfig{
			CronSpec: cfg.Reminders.CronSpec,
			ClaimAge: cfg.Reminders.ClaimAge,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New()
	if _, err := c.AddFunc(worker.config.CronSpec, func() { worker.run(ctx) }); err != nil {
		logger.Fatal("invalid cron spec", zap.String("spec", worker.config.CronSpec), zap.Error(err))
	}
	c.Start()
	logger.Info("Reminder worker started", zap.String("cron", worker.config.CronSpec))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down reminder worker...")
	cancel()
	<-c.Stop().Done()
}
