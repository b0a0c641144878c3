package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Forwarder 下游通知（推播、CRM 同步等）
type Forwarder func(ctx context.Context, payload LedgerEventPayload) error

// Consumer 帳本事件消費者
type Consumer struct {
	logger  *zap.Logger
	forward Forwarder
}

// NewConsumer 建立消費者；forward 為 nil 時只寫日誌
func NewConsumer(logger *zap.Logger, forward Forwarder) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{logger: logger, forward: forward}
}

// Register 註冊所有帳本事件任務
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		return
	}
	for _, taskType := range TaskTypes {
		mux.HandleFunc(taskType, c.handleLedgerEvent)
	}
}

func (c *Consumer) handleLedgerEvent(ctx context.Context, task *asynq.Task) error {
	var payload LedgerEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		c.logger.Warn("worker_ledger_event_unmarshal_failed", zap.String("task_type", task.Type()), zap.Error(err))
		// 載荷壞掉重試也不會成功
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.CardID == "" || payload.EventType != task.Type() {
		c.logger.Warn("worker_ledger_event_skip_invalid_payload",
			zap.String("task_type", task.Type()),
			zap.String("event_type", payload.EventType),
			zap.String("card_id", payload.CardID),
		)
		return nil
	}

	c.logger.Info("worker_ledger_event_received",
		zap.String("event_id", payload.EventID),
		zap.String("event_type", payload.EventType),
		zap.String("card_id", payload.CardID),
	)
	if c.forward == nil {
		return nil
	}
	if err := c.forward(ctx, payload); err != nil {
		c.logger.Warn("worker_ledger_event_forward_failed",
			zap.String("event_id", payload.EventID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ===========================
// WorkerService
// ===========================

// WorkerService asynq worker 服務
type WorkerService struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorkerService 建立 worker 服務
func NewWorkerService(cfg config.QueueConfig, consumer *Consumer) (*WorkerService, error) {
	if !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	server := asynq.NewServer(BuildRedisOpt(cfg), BuildServerConfig(cfg))
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &WorkerService{server: server, mux: mux}, nil
}

// Start 啟動 worker（非阻塞）
func (s *WorkerService) Start() error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Start(s.mux)
}

// Stop 等待處理中的任務完成後停止
func (s *WorkerService) Stop() {
	if s == nil || s.server == nil {
		return
	}
	s.server.Shutdown()
}
