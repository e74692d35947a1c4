package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/doc-approval/internal/application/service"
	"github.com/garyjia/doc-approval/internal/config"
	httpserver "github.com/garyjia/doc-approval/internal/interfaces/http"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/doc-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/doc-approval/pkg/database"
	"github.com/garyjia/doc-approval/pkg/utils"
)

func main() {
	// .env is optional; environment wins over file values
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting document approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, logger)

	// Repositories
	docRepo := repository.NewDocumentRepository(sqlDB, logger)
	versionRepo := repository.NewVersionRepository(sqlDB, logger)
	templateRepo := repository.NewTemplateRepository(sqlDB, logger)
	taskRepo := repository.NewTaskRepository(sqlDB, logger)
	recordRepo := repository.NewRecordRepository(sqlDB, logger)
	userRepo := repository.NewUserRepository(sqlDB, logger)
	auditRepo := repository.NewAuditRepository(sqlDB, logger)

	// Services
	serviceLogger := &zapLoggerAdapter{logger: logger}
	documentService := service.NewDocumentService(
		docRepo, versionRepo, taskRepo, recordRepo, userRepo, auditRepo, db, serviceLogger)
	submitService := service.NewSubmitService(
		docRepo, versionRepo, templateRepo, taskRepo, userRepo, auditRepo, db, serviceLogger)
	reviewService := service.NewReviewService(
		docRepo, templateRepo, taskRepo, recordRepo, auditRepo, db, serviceLogger)

	// HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, documentService, submitService, reviewService, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// zapLoggerAdapter adapts zap.Logger to the keysAndValues logger interfaces
// used by the service and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
