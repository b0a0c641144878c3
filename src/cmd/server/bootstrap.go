package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/application/ledger"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/config"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/events"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/lock"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/persistence"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/persistence/memory"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/handler"
	"github.com/jackyeh168/loyalty_crm/src/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	modeAll    = "all"
	modeAPI    = "api"
	modeWorker = "worker"

	shutdownTimeout = 10 * time.Second
	pingTimeout     = 3 * time.Second
)

// closers 依建立的相反順序關閉資源
type closers struct {
	log *zap.Logger
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.fns = append(c.fns, fn)
}

func (c *closers) closeAll() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			c.log.Warn("shutdown_close_failed", zap.Error(err))
		}
	}
}

// run 依模式啟動 HTTP 與 / 或 asynq worker，ctx 取消後優雅關閉
func run(ctx context.Context, cfg *config.Config, mode string, log *zap.Logger) error {
	switch mode {
	case modeAll, modeAPI, modeWorker:
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if mode == modeWorker && !cfg.Queue.Enabled {
		return errors.New("worker mode requires queue.enabled")
	}

	if mode != modeAPI && cfg.Queue.Enabled {
		worker, err := events.NewWorkerService(cfg.Queue, events.NewConsumer(log, nil))
		if err != nil {
			return fmt.Errorf("init worker: %w", err)
		}
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer worker.Stop()
		log.Info("worker_started", zap.Int("concurrency", cfg.Queue.Concurrency))
	}

	if mode == modeWorker {
		<-ctx.Done()
		return nil
	}

	res := &closers{log: log}
	defer res.closeAll()

	svc, err := buildLedgerService(ctx, cfg, log, res)
	if err != nil {
		return err
	}
	return serveHTTP(ctx, cfg.Server.Addr(), router.SetupRouter(log, handler.New(svc)), log)
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("http_server_started", zap.String("addr", addr))

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("http_server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildLedgerService 組裝儲存、卡片鎖、事件發布與帳本服務
func buildLedgerService(ctx context.Context, cfg *config.Config, log *zap.Logger, res *closers) (*ledger.Service, error) {
	cardRepo, programRepo, txManager, err := buildStorage(cfg, log, res)
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithMaxAttempts(cfg.Ledger.MaxAttempts),
		ledger.WithEventBuffer(cfg.Ledger.EventBuffer),
	}

	switch cfg.Ledger.LockBackend {
	case config.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		res.add(client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr(), err)
		}
		opts = append(opts, ledger.WithLocker(
			lock.NewRedisLocker(client, cfg.Redis.Prefix, cfg.Ledger.LockTTL(), cfg.Ledger.LockWait()),
		))
	default:
		opts = append(opts, ledger.WithLocker(lock.NewKeyedMutex()))
	}

	if cfg.Queue.Enabled {
		publisher := events.NewAsynqPublisher(cfg.Queue)
		res.add(publisher.Close)
		opts = append(opts, ledger.WithPublisher(publisher))
	} else {
		opts = append(opts, ledger.WithPublisher(events.NewLogPublisher(log)))
	}

	log.Info("ledger_service_ready",
		zap.String("database", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Ledger.LockBackend),
		zap.Bool("queue_enabled", cfg.Queue.Enabled),
		zap.Int("max_attempts", cfg.Ledger.MaxAttempts),
	)
	svc := ledger.NewService(cardRepo, programRepo, txManager, opts...)
	res.add(func() error {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return svc.Close(drainCtx)
	})
	return svc, nil
}

func buildStorage(cfg *config.Config, log *zap.Logger, res *closers) (loyalty.CardRepository, loyalty.ProgramRepository, shared.TransactionManager, error) {
	if cfg.Database.Driver == config.DatabaseDriverMemory {
		log.Warn("database_memory_mode", zap.String("note", "data is lost on restart"))
		store := memory.NewStore()
		return memory.NewCardRepository(store), memory.NewProgramRepository(store), memory.NewTransactionManager(store), nil
	}

	db, err := persistence.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN, persistence.PoolOptions{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, gormLogLevel(cfg.Server.Mode))
	if err != nil {
		return nil, nil, nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		res.add(sqlDB.Close)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	return persistence.NewCardRepository(db), persistence.NewProgramRepository(db), persistence.NewGORMTransactionManager(db), nil
}

func gormLogLevel(mode string) gormlogger.LogLevel {
	if mode == "debug" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}
