package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/advisor"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/cache"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/config"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/enrich"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/handler"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/logger"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/metrics"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/model"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/repository"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/router"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/service"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/video"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/seeds"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.PoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, zl); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	zl.Info("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := migrateDown(ctx, pool, zl); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	}

	if err := migrateUp(ctx, pool, zl); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	repo := repository.NewRepository(pool)

	// ------------ Setup Seed Data ---------------
	if err := checkSeed(ctx, pool, repo, zl); err != nil {
		return fmt.Errorf("check seed: %w", err)
	}

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	c := cache.NewCache(rdb, cfg.Redis.CacheTTL)
	if err := c.Ping(ctx); err != nil {
		zl.Warn("redis unreachable, cache reads will miss", zap.Error(err))
	}

	// ------------ Metrics ---------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ------------ AI + enrichment ---------------
	client := model.NewClient(cfg.AI,
		model.WithLogger(zl.Named("model")),
		model.WithObserver(m),
	)
	if !client.Enabled() {
		zl.Warn("AI api key not configured, recommendation endpoints will answer 503")
	}
	finder := video.NewFinder(cfg.Video,
		video.WithCache(c),
		video.WithLogger(zl.Named("video")),
	)

	svc := service.NewService(repo, c, service.Generators{
		Body:     advisor.NewBodyAnalyzer(client, zl.Named("advisor")),
		Diet:     advisor.NewDietPlanner(client, zl.Named("advisor")),
		Workout:  advisor.NewWorkoutPlanner(client, zl.Named("advisor")),
		Enricher: enrich.NewEnhancer(finder, zl.Named("enrich")),
	}, zl.Named("service"), m)

	h := handler.NewHandler(svc, zl.Named("handler"))
	r := router.Setup(h, router.Options{
		Logger:   zl.Named("http"),
		Metrics:  m,
		Gatherer: reg,
		Checks: map[string]router.Pinger{
			"postgres": repo,
			"redis":    c,
		},
	})

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server running", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, zl *zap.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		zl.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("max", 30))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool, zl *zap.Logger) error {
	sql, err := os.ReadFile("migrations/create_tables.down.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	zl.Info("migrations dropped successfully")
	return nil
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, zl *zap.Logger) error {
	sql, err := os.ReadFile("migrations/create_tables.up.sql")
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	zl.Info("migrations applied successfully")
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool, repo *repository.Repository, zl *zap.Logger) error {
	count, err := repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("check users count: %w", err)
	}
	if count > 0 {
		zl.Info("database already seeded, skipping", zap.Int("users", count))
		return nil
	}
	return seeds.Setup(ctx, pool, zl.Named("seed"))
}
