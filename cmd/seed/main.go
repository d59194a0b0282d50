// Package main - утилита наполнения базы CARPAS демо-данными.
//
// Создаёт шесть курсов и двадцать студентов (DEMO-001..DEMO-020) с
// зачислениями, посещаемостью и оценками. Набор детерминирован и
// идемпотентен: повторный запуск пропускает уже существующие записи.
//
// Флаг -reset сбрасывает схему базы перед наполнением.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carpas-edu/carpas/config"
	"github.com/carpas-edu/carpas/internal/infrastructure/persistence/sqldb"
	"github.com/carpas-edu/carpas/internal/seed"
	"github.com/carpas-edu/carpas/pkg/logger"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the schema before seeding")
	rngSeed := flag.Int64("seed", seed.DefaultSeed, "random seed for deterministic demo data")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *reset, *rngSeed); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, reset bool, rngSeed int64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

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
	defer store.Close()

	log.Info("database connection established", logger.String("dialect", store.Dialect()))

	migrator := sqldb.NewMigrator(store)
	if reset {
		log.Warn("resetting database schema")
		if err := migrator.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset schema: %w", err)
		}
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	result, err := seed.NewSeeder(store, log).Run(ctx, rngSeed)
	if err != nil {
		return err
	}

	fmt.Printf("seeded %d courses, %d students, %d enrollments, %d marks (%d skipped)\n",
		result.Courses, result.Students, result.Enrollments, result.Marks, result.Skipped)
	return nil
}
