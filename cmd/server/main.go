// Package main - точка входа HTTP-сервера CARPAS.
//
// CARPAS (Course and Academic Records Processing System) ведёт учёт
// студентов, курсов и зачислений, посещаемости и оценок, и считает
// аналитику поверх них: сводки по студентам, агрегаты по курсам и
// группу риска.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: хранилище (SQLite/PostgreSQL), кеш (Redis)
// - Interface: REST API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carpas-edu/carpas/config"
	"github.com/carpas-edu/carpas/internal/application/command"
	"github.com/carpas-edu/carpas/internal/application/query"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/redis"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/sqldb"
	httpserver "github.com/carpas-edu/carpas/internal/interface/http"
	"github.com/carpas-edu/carpas/internal/interface/http/handlers"
	"github.com/carpas-edu/carpas/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CARPAS",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	store, err := sqldb.Open(ctx, sqldb.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		_ = store.Close()
	}()
	log.Info("database connection established", logger.String("dialect", store.Dialect()))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := sqldb.NewMigrator(store)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
	} else {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		log.Info("migrations completed", logger.Int("applied", applied), logger.Int("total", len(status)))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var analytics *redis.AnalyticsCache

	if cfg.Cache.Enabled {
		log.Info("connecting to Redis...")
		cache, err := redis.NewCache(redis.Config{
			Host:         cfg.Cache.Host,
			Port:         cfg.Cache.Port,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			PoolSize:     cfg.Cache.PoolSize,
			MinIdleConns: cfg.Cache.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			PoolTimeout:  cfg.Cache.DialTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			analytics = redis.NewAnalyticsCache(cache, log)
			defer analytics.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	deps := httpserver.Dependencies{
		CreateStudentHandler:      command.NewCreateStudentHandler(store),
		UpdateStudentHandler:      command.NewUpdateStudentHandler(store),
		DeleteStudentHandler:      command.NewDeleteStudentHandler(store),
		CreateCourseHandler:       command.NewCreateCourseHandler(store),
		UpdateCourseHandler:       command.NewUpdateCourseHandler(store),
		DeleteCourseHandler:       command.NewDeleteCourseHandler(store),
		EnrollStudentHandler:      command.NewEnrollStudentHandler(store),
		WithdrawEnrollmentHandler: command.NewWithdrawEnrollmentHandler(store),
		RecordAttendanceHandler:   command.NewRecordAttendanceHandler(store),
		AddMarkHandler:            command.NewAddMarkHandler(store),
		RemoveMarkHandler:         command.NewRemoveMarkHandler(store),

		ListStudentsHandler:          query.NewListStudentsHandler(store),
		ListCoursesHandler:           query.NewListCoursesHandler(store),
		GetStudentSummaryHandler:     query.NewGetStudentSummaryHandler(store),
		GetCoursePerformanceHandler:  query.NewGetCoursePerformanceHandler(store),
		GetEnrollmentProgressHandler: query.NewGetEnrollmentProgressHandler(store),
		FindAtRiskHandler:            query.NewFindAtRiskHandler(store),

		Analytics: analytics,
		Logger:    log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	checker.AddCheck("database", handlers.NewDatabaseCheck(store))
	if analytics != nil {
		checker.AddCheck("cache", handlers.NewCacheCheck(analytics))
	}
	deps.HealthChecker = checker

	// ─────────────────────────────────────────────────────────────────────────
	// 8. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.APIKeys = cfg.HTTP.APIKeys
	httpConfig.AtRiskAttendanceBelow = cfg.Analytics.AttendanceThreshold
	httpConfig.AtRiskMarksBelow = cfg.Analytics.MarksThreshold

	server := httpserver.NewServer(httpConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	log.Info("CARPAS is running", logger.String("http_address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}

	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		AddCaller: cfg.App.Debug,
	})
}
