package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorium/tutorium/internal/app"
	"github.com/tutorium/tutorium/internal/config"
	"github.com/tutorium/tutorium/internal/repository"
	"github.com/tutorium/tutorium/internal/repository/base"
	"github.com/tutorium/tutorium/internal/service"
	transport "github.com/tutorium/tutorium/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	lessonRepo := repository.NewLessonRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	patternRepo := repository.NewPatternRepository(pool)
	subRepo := repository.NewSubstitutionRepository(pool)

	txManager := base.NewTxManager(pool)
	notifier := app.NewLogNotifier(logger)
	billing := app.NewLogBilling(logger)

	conflicts := service.NewConflictDetector(lessonRepo, logger)
	lessonSvc := service.NewLessonService(txManager, lessonRepo, userRepo, courseRepo, policyRepo, conflicts, notifier, billing, logger)
	recurringSvc := service.NewRecurringService(txManager, lessonRepo, userRepo, courseRepo, patternRepo, conflicts, logger)
	subSvc := service.NewSubstitutionService(subRepo, lessonRepo, userRepo, notifier, logger)
	bulkSvc := service.NewBulkService(lessonSvc, lessonRepo, logger)
	policySvc := service.NewPolicyService(policyRepo, logger)

	reminders := app.NewRunner(
		service.NewReminderTask(lessonRepo, notifier, cfg.ReminderWindow, cfg.ReminderInterval, logger),
		cfg.ReminderInterval,
		logger,
	)
	reminders.Start(ctx)
	defer reminders.Stop()

	server := transport.NewServer(lessonSvc, recurringSvc, subSvc, bulkSvc, policySvc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.HTTPAddr)
	}()

	logger.Info("Server started",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("environment", cfg.Environment))

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Error("Failed to shut down server", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}
}
