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

	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/budget"
	"github.com/CXmiloxx/secop-app-sub001/internal/config"
	"github.com/CXmiloxx/secop-app-sub001/internal/database"
	"github.com/CXmiloxx/secop-app-sub001/internal/lock"
	"github.com/CXmiloxx/secop-app-sub001/internal/logging"
	"github.com/CXmiloxx/secop-app-sub001/internal/pettycash"
	"github.com/CXmiloxx/secop-app-sub001/internal/requisition"
	"github.com/CXmiloxx/secop-app-sub001/internal/router"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("PCL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	locker, closeLocker, err := newLocker(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	threshold, err := cfg.Ledger.Threshold()
	if err != nil {
		return err
	}

	s := store.NewGorm(db)
	rec := audit.NewRecorder(s, logger.Named("audit"))
	ledger := budget.NewLedger(s, locker, rec, logger.Named("budget"))
	petty := pettycash.NewService(s, locker, rec, logger.Named("pettycash"), threshold)
	machine := requisition.NewMachine(s, locker, ledger, petty, rec, logger.Named("requisition"))

	r := router.SetupRouter(cfg, router.Deps{
		Logger:    logger.Named("http"),
		Store:     s,
		Ledger:    ledger,
		PettyCash: petty,
		Machine:   machine,
		Recorder:  rec,
		Ping:      sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr),
			zap.String("period", cfg.Ledger.CurrentPeriod), zap.String("db", cfg.Database.Driver))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newLocker uses redis when an address is configured so several instances can share
// the ledgers; otherwise locks are in-process.
func newLocker(cfg config.RedisConfig, logger *zap.Logger) (lock.Locker, func(), error) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, using in-process locks")
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	ttl := time.Duration(cfg.LockTTLSeconds) * time.Second
	return lock.NewRedis(client, ttl, logger.Named("lock")), func() { _ = client.Close() }, nil
}
